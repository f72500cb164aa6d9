package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/palemoky/stone-rolling/internal/logger"
	"github.com/palemoky/stone-rolling/internal/protocol"
	"github.com/palemoky/stone-rolling/internal/protocol/codec"
)

const (
	monitorInterval       = 30 * time.Second
	shutdownCheckInterval = 2 * time.Second
	httpShutdownTimeout   = 5 * time.Second
)

// monitorStats 定期记录服务器状态，并清理限流器的过期记录
func (s *Server) monitorStats(ctx context.Context) {
	ticker := time.NewTicker(monitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			s.rateLimiter.Cleanup(now)

			logger.L().Info().
				Int("online", s.GetOnlineCount()).
				Int("bound", s.registry.Count()).
				Int("watched_rooms", s.registry.RoomCount()).
				Int("active_games", s.coord.ActiveGames()).
				Int("pending_settlements", len(s.coord.PendingSettlements())).
				Int("goroutines", runtime.NumGoroutine()).
				Int("active_conns", len(s.semaphore)).
				Int("max_conns", s.maxConnections).
				Float64("mem_mb", float64(m.Alloc)/1024/1024).
				Msg("📊 [监控]")
		}
	}
}

// EnterMaintenanceMode 进入维护模式：拒绝新连接、新房间和新的加入
func (s *Server) EnterMaintenanceMode() {
	s.maintenanceMu.Lock()
	s.maintenanceMode = true
	s.maintenanceMu.Unlock()

	s.BroadcastToLobby(codec.MustNewMessage(protocol.MsgError, protocol.ErrorPayload{
		Code:    protocol.ErrCodeServerMaintenance,
		Message: "👷🏻‍♂️ 维护模式：停止新的房间创建",
	}))

	logger.L().Info().Msg("🔧 进入维护模式：停止新连接和房间创建")
}

// IsMaintenanceMode 检查是否在维护模式
func (s *Server) IsMaintenanceMode() bool {
	s.maintenanceMu.RLock()
	defer s.maintenanceMu.RUnlock()
	return s.maintenanceMode
}

// GracefulShutdown 进入维护模式并等待进行中的对局结束，最多等待 timeout
//
// 等待房间里的玩家可以继续投掷并完成结算；超时后直接关闭，未结束的房间由持久化快照恢复。
func (s *Server) GracefulShutdown(timeout time.Duration) {
	s.EnterMaintenanceMode()

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(shutdownCheckInterval)
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		activeGames := s.coord.ActiveGames()
		if activeGames == 0 {
			logger.L().Info().Msg("✅ 所有对局已结束")
			break
		}
		logger.L().Info().Int("active_games", activeGames).Msg("⏳ 等待对局结束...")
		<-ticker.C
	}

	if activeGames := s.coord.ActiveGames(); activeGames > 0 {
		logger.L().Warn().Int("active_games", activeGames).Msg("⚠️ 超时，仍有对局进行中，强制关闭")
	}

	s.Broadcast(codec.MustNewMessage(protocol.MsgError, protocol.ErrorPayload{
		Code:    protocol.ErrCodeServerMaintenance,
		Message: "🚧 服务器即将停机维护",
	}))

	s.sendShutdownNotification()
}

// sendShutdownNotification 通知外部系统服务已停止，未配置时跳过
func (s *Server) sendShutdownNotification() {
	url := s.config.Server.ShutdownWebhook
	if url == "" {
		return
	}

	body, _ := json.Marshal(map[string]any{
		"text":                fmt.Sprintf("石头对战服务器已优雅关闭，剩余对局 %d", s.coord.ActiveGames()),
		"pending_settlements": s.coord.PendingSettlements(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		logger.L().Warn().Err(err).Msg("创建通知请求失败")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		logger.L().Warn().Err(err).Msg("发送关闭通知失败")
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusOK {
		logger.L().Info().Msg("🔔 已发送关闭通知")
	} else {
		logger.L().Warn().Int("status", resp.StatusCode).Msg("通知响应异常")
	}
}

// Shutdown 关闭所有连接和 HTTP 服务
func (s *Server) Shutdown() error {
	s.clientsMu.RLock()
	for _, client := range s.clients {
		client.Close()
	}
	s.clientsMu.RUnlock()
	s.cancelBase()

	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	logger.L().Info().Msg("服务器已关闭")
	return nil
}
