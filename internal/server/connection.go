package server

import (
	"net/http"

	"github.com/palemoky/stone-rolling/internal/logger"
	"github.com/palemoky/stone-rolling/internal/protocol"
)

// handleWebSocket 处理 WebSocket 连接
//
// 用户身份由上游鉴权网关通过请求头（或 user_id 查询参数）传入，这里只做透传。
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	clientIP := GetClientIP(r)
	log := logger.L().With().Str("ip", clientIP).Logger()

	// 维护模式检查（最优先）
	if s.IsMaintenanceMode() {
		log.Info().Msg("🔧 维护模式，拒绝新连接")
		http.Error(w, "Server is under maintenance, please try again later", http.StatusServiceUnavailable)
		return
	}

	if !s.ipFilter.IsAllowed(clientIP) {
		log.Warn().Msg("🚫 IP 被过滤器拒绝")
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	if !s.originChecker.Check(r) {
		log.Warn().Str("origin", r.Header.Get("Origin")).Msg("🚫 来源验证失败")
		http.Error(w, "Origin not allowed", http.StatusForbidden)
		return
	}

	if !s.rateLimiter.Allow(clientIP) {
		log.Warn().Msg("🚫 请求过于频繁")
		http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
		return
	}

	userID := r.Header.Get(s.config.Server.UserIDHeader)
	if userID == "" {
		userID = r.URL.Query().Get("user_id")
	}
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	// 连接数限制，信号量在连接断开时释放
	select {
	case s.semaphore <- struct{}{}:
	default:
		log.Warn().Int("max", s.maxConnections).Msg("🚫 达到最大连接数限制")
		http.Error(w, "Server Full", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		<-s.semaphore
		log.Warn().Err(err).Msg("WebSocket 升级失败")
		return
	}

	client := NewClient(s, conn, userID, clientIP)
	s.registerClient(client)
	s.handler.Connected(client)

	log.Info().Str("conn_id", client.ID).Str("user_id", userID).Msg("✅ 玩家已连接")

	go client.WritePump()
	go client.ReadPump(s.baseCtx)
}

// handleDisconnect 连接断开：解除房间绑定（玩家保留在房间中）并释放资源
func (s *Server) handleDisconnect(client *Client) {
	s.handler.Disconnected(client)
	s.messageLimiter.RemoveClient(client.ID)
	if s.unregisterClient(client) {
		<-s.semaphore
	}
}

// registerClient 注册客户端
func (s *Server) registerClient(client *Client) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	s.clients[client.ID] = client
}

// unregisterClient 注销客户端，返回是否确实移除
func (s *Server) unregisterClient(client *Client) bool {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()

	if _, ok := s.clients[client.ID]; !ok {
		return false
	}
	delete(s.clients, client.ID)
	logger.L().Info().Str("conn_id", client.ID).Str("user_id", client.UserID).Msg("❌ 玩家已断开")
	return true
}

// GetOnlineCount 在线连接数
func (s *Server) GetOnlineCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// BroadcastToLobby 发送给未绑定房间的连接
func (s *Server) BroadcastToLobby(msg *protocol.Message) {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	for id, client := range s.clients {
		if _, bound := s.registry.RoomFor(id); !bound {
			client.SendMessage(msg)
		}
	}
}

// Broadcast 发送给所有连接
func (s *Server) Broadcast(msg *protocol.Message) {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	for _, client := range s.clients {
		client.SendMessage(msg)
	}
}
