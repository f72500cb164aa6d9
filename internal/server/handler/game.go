package handler

import (
	"context"

	"github.com/palemoky/stone-rolling/internal/protocol"
	"github.com/palemoky/stone-rolling/internal/types"
)

// handleStartGame 开始游戏，结果通过房间广播送达
func (h *Handler) handleStartGame(ctx context.Context, client types.ClientInterface, in protocol.StartGame) {
	if _, err := h.coord.Start(ctx, in.RoomID, client.GetUserID()); err != nil {
		h.sendError(client, "start_game", err)
	}
}

// handleRollStone 掷石头
//
// 结算入账失败时投掷本身已经生效，请求方会先收到广播，再收到结算处理中的错误。
func (h *Handler) handleRollStone(ctx context.Context, client types.ClientInterface, in protocol.RollStone) {
	if _, err := h.coord.RollStone(ctx, in.RoomID, client.GetUserID()); err != nil {
		h.sendError(client, "roll_stone", err)
	}
}
