// Package server WebSocket 接入层：连接管理、安全检查、生命周期。
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/palemoky/stone-rolling/internal/config"
	"github.com/palemoky/stone-rolling/internal/game/coordinator"
	"github.com/palemoky/stone-rolling/internal/logger"
	"github.com/palemoky/stone-rolling/internal/server/handler"
	"github.com/palemoky/stone-rolling/internal/server/registry"
	"github.com/palemoky/stone-rolling/internal/types"
)

// ServerDeps 服务器依赖
type ServerDeps struct {
	Coordinator *coordinator.Coordinator
	Registry    *registry.Registry
	Fanout      *registry.Fanout
	Stats       types.StatsReader // 可选
}

// Server WebSocket 服务器
type Server struct {
	config   *config.Config
	coord    *coordinator.Coordinator
	registry *registry.Registry
	handler  *handler.Handler
	upgrader websocket.Upgrader

	clients   map[string]*Client
	clientsMu sync.RWMutex

	// 安全组件
	rateLimiter    *RateLimiter
	originChecker  *OriginChecker
	messageLimiter *MessageRateLimiter
	chatLimiter    *ChatRateLimiter
	ipFilter       *IPFilter

	// 连接控制
	maxConnections int
	semaphore      chan struct{} // 信号量控制并发连接数

	// 维护模式
	maintenanceMode bool
	maintenanceMu   sync.RWMutex

	// 连接上请求的基础 context，关闭时取消
	baseCtx    context.Context
	cancelBase context.CancelFunc
	httpServer *http.Server
}

// NewServer 创建服务器实例
func NewServer(cfg *config.Config, deps ServerDeps) *Server {
	baseCtx, cancel := context.WithCancel(context.Background())
	sec := cfg.Security
	s := &Server{
		config:   cfg,
		coord:    deps.Coordinator,
		registry: deps.Registry,
		clients:  make(map[string]*Client),
		rateLimiter: NewRateLimiter(
			sec.RateLimit.MaxPerSecond,
			sec.RateLimit.MaxPerMinute,
			sec.RateLimit.BanDurationTime(),
		),
		originChecker:  NewOriginChecker(cfg.Server.AllowedOrigins),
		messageLimiter: NewMessageRateLimiter(sec.MessageLimit.MaxPerSecond),
		chatLimiter: NewChatRateLimiter(
			sec.ChatLimit.MaxPerSecond,
			sec.ChatLimit.MaxPerMinute,
			sec.ChatLimit.CooldownDuration(),
		),
		ipFilter:       NewIPFilter(sec.IPWhitelist, sec.IPBlacklist),
		maxConnections: cfg.Server.MaxConnections,
		semaphore:      make(chan struct{}, cfg.Server.MaxConnections),
		baseCtx:        baseCtx,
		cancelBase:     cancel,
	}

	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.originChecker.Check,
		// 消息都很小，压缩只会增加 CPU 开销
		EnableCompression: false,
	}

	s.handler = handler.NewHandler(handler.HandlerDeps{
		Server:      s,
		Coordinator: deps.Coordinator,
		Registry:    deps.Registry,
		Fanout:      deps.Fanout,
		ChatLimiter: s.chatLimiter,
		Stats:       deps.Stats,
	})

	logger.L().Info().
		Int("conn_per_sec", sec.RateLimit.MaxPerSecond).
		Int("msg_per_sec", sec.MessageLimit.MaxPerSecond).
		Int("chat_per_sec", sec.ChatLimit.MaxPerSecond).
		Int("max_connections", cfg.Server.MaxConnections).
		Msg("🔒 安全配置")

	return s
}

// Routes HTTP 路由
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("GET /health", s.handleHealth)
	return mux
}

// Run 启动服务器并阻塞，ctx 取消后进入优雅关闭
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second, // 防止 Slowloris 攻击
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.L().Info().Str("addr", "ws://"+addr+"/ws").Int("cpus", runtime.NumCPU()).Msg("🚀 服务器启动")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen %s: %w", addr, err)
		}
		return nil
	})
	g.Go(func() error {
		s.monitorStats(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() != nil {
			s.GracefulShutdown(s.config.Game.ShutdownTimeoutDuration())
		}
		return s.Shutdown()
	})
	return g.Wait()
}

// handleHealth 健康检查接口
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
