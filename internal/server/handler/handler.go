// Package handler 把客户端请求分发给协调器，并维护连接与房间的绑定。
package handler

import (
	"context"
	"fmt"

	"github.com/palemoky/stone-rolling/internal/apperrors"
	"github.com/palemoky/stone-rolling/internal/game/coordinator"
	"github.com/palemoky/stone-rolling/internal/logger"
	"github.com/palemoky/stone-rolling/internal/protocol"
	"github.com/palemoky/stone-rolling/internal/protocol/codec"
	"github.com/palemoky/stone-rolling/internal/server/registry"
	"github.com/palemoky/stone-rolling/internal/types"
)

// HandlerDeps 处理器依赖
type HandlerDeps struct {
	Server      types.ServerInterface
	Coordinator *coordinator.Coordinator
	Registry    *registry.Registry
	Fanout      *registry.Fanout
	ChatLimiter types.ChatLimiter
	Stats       types.StatsReader // 可选，未启用战绩时为 nil
}

// Handler 消息处理器
type Handler struct {
	server      types.ServerInterface
	coord       *coordinator.Coordinator
	registry    *registry.Registry
	fanout      *registry.Fanout
	chatLimiter types.ChatLimiter
	stats       types.StatsReader
}

// NewHandler 创建处理器
func NewHandler(deps HandlerDeps) *Handler {
	return &Handler{
		server:      deps.Server,
		coord:       deps.Coordinator,
		registry:    deps.Registry,
		fanout:      deps.Fanout,
		chatLimiter: deps.ChatLimiter,
		stats:       deps.Stats,
	}
}

// Handle 处理一条消息。msg 只在调用期间有效
func (h *Handler) Handle(ctx context.Context, client types.ClientInterface, msg *protocol.Message) {
	defer func() {
		if r := recover(); r != nil {
			logger.LogPanic(r)
			client.SendMessage(codec.ErrorMessageFrom(apperrors.ErrInternal))
		}
	}()

	intent, err := codec.DecodeIntent(msg)
	if err != nil {
		logger.L().Warn().Err(err).
			Str("conn_id", client.GetID()).
			Str("user_id", client.GetUserID()).
			Int("payload_bytes", len(msg.Payload)).
			Msg("⚠️ 无法解析的消息")
		client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeInvalidMsg))
		return
	}

	switch in := intent.(type) {
	case protocol.Ping:
		h.handlePing(client, in)
	case protocol.CreateRoom:
		h.handleCreateRoom(ctx, client, in)
	case protocol.JoinGame:
		h.handleJoinGame(ctx, client, in)
	case protocol.LeaveGame:
		h.handleLeaveGame(ctx, client, in)
	case protocol.StartGame:
		h.handleStartGame(ctx, client, in)
	case protocol.RollStone:
		h.handleRollStone(ctx, client, in)
	case protocol.GetSnapshot:
		h.handleGetSnapshot(client, in)
	case protocol.QuickMatch:
		h.handleQuickMatch(ctx, client, in)
	case protocol.GetRoomList:
		h.handleGetRoomList(client)
	case protocol.ChatMessage:
		h.handleChat(client, in)
	case protocol.GetStats:
		h.handleGetStats(ctx, client)
	case protocol.GetLeaderboard:
		h.handleGetLeaderboard(ctx, client, in)
	default:
		logger.L().Error().Str("intent", fmt.Sprintf("%T", intent)).Msg("❌ 未处理的请求类型")
		client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeInvalidMsg))
	}
}

// sendError 把错误发送给请求方；不变量错误只记录细节，不暴露给客户端
func (h *Handler) sendError(client types.ClientInterface, op string, err error) {
	ev := logger.L().Debug()
	if apperrors.KindOf(err) == apperrors.KindInvariant {
		ev = logger.L().Error().Bool("invariant", true)
	}
	ev.Err(err).
		Str("op", op).
		Str("conn_id", client.GetID()).
		Str("user_id", client.GetUserID()).
		Msg("请求失败")
	client.SendMessage(codec.ErrorMessageFrom(err))
}
