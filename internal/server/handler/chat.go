package handler

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/palemoky/stone-rolling/internal/protocol"
	"github.com/palemoky/stone-rolling/internal/protocol/codec"
	"github.com/palemoky/stone-rolling/internal/types"
)

// maxChatRunes 单条聊天的最大字符数
const maxChatRunes = 200

// handleChat 房间聊天，只转发给同一房间的连接，不影响房间状态
func (h *Handler) handleChat(client types.ClientInterface, in protocol.ChatMessage) {
	if h.chatLimiter != nil {
		if allowed, reason := h.chatLimiter.AllowChat(client.GetID()); !allowed {
			client.SendMessage(codec.NewErrorMessageWithText(protocol.ErrCodeRateLimit, reason))
			return
		}
	}

	if bound, ok := h.registry.RoomFor(client.GetID()); !ok || bound != in.RoomID {
		client.SendMessage(codec.NewErrorMessageWithText(protocol.ErrCodeNotInRoom, "不在房间中，无法发送房间消息"))
		return
	}

	content := strings.TrimSpace(in.Content)
	if content == "" || utf8.RuneCountInString(content) > maxChatRunes {
		client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeInvalidMsg))
		return
	}

	h.fanout.Broadcast(in.RoomID, codec.MustNewMessage(protocol.MsgChatMessage, protocol.ChatPayload{
		RoomID:   in.RoomID,
		SenderID: client.GetUserID(),
		Content:  content,
		Time:     time.Now().UnixMilli(),
	}))
}
