package handler

import (
	"time"

	"github.com/palemoky/stone-rolling/internal/logger"
	"github.com/palemoky/stone-rolling/internal/protocol"
	"github.com/palemoky/stone-rolling/internal/protocol/codec"
	"github.com/palemoky/stone-rolling/internal/types"
)

// handlePing 处理心跳消息
func (h *Handler) handlePing(client types.ClientInterface, in protocol.Ping) {
	client.SendMessage(codec.MustNewMessage(protocol.MsgPong, protocol.PongPayload{
		ClientTimestamp: in.Timestamp,
		ServerTimestamp: time.Now().UnixMilli(),
	}))
}

// Connected 新连接建立后发送连接信息
func (h *Handler) Connected(client types.ClientInterface) {
	client.SendMessage(codec.MustNewMessage(protocol.MsgConnected, protocol.ConnectedPayload{
		ConnectionID: client.GetID(),
		UserID:       client.GetUserID(),
	}))
}

// Disconnected 连接断开：只解除绑定，玩家仍留在房间中，重连后通过快照恢复
func (h *Handler) Disconnected(client types.ClientInterface) {
	roomID, userID, bound := h.registry.Unbind(client.GetID())
	if h.chatLimiter != nil {
		h.chatLimiter.RemoveClient(client.GetID())
	}
	if !bound {
		return
	}

	seated := h.coord.RoomsOf(userID)
	ids := make([]string, 0, len(seated))
	for _, r := range seated {
		ids = append(ids, r.ID)
	}
	logger.Room(roomID).Info().
		Str("conn_id", client.GetID()).
		Str("user_id", userID).
		Strs("seated_rooms", ids).
		Msg("📴 连接断开，保留房间席位")
}
