package handler

import (
	"context"

	"github.com/palemoky/stone-rolling/internal/game/room"
	"github.com/palemoky/stone-rolling/internal/protocol"
	"github.com/palemoky/stone-rolling/internal/protocol/codec"
	"github.com/palemoky/stone-rolling/internal/types"
)

// handleCreateRoom 创建房间并把连接绑定到新房间；房主需要再发送 join_game 押注
func (h *Handler) handleCreateRoom(ctx context.Context, client types.ClientInterface, in protocol.CreateRoom) {
	if h.server.IsMaintenanceMode() {
		client.SendMessage(codec.NewErrorMessageWithText(
			protocol.ErrCodeServerMaintenance, "服务器维护中，暂停创建房间"))
		return
	}

	r, err := h.coord.CreateRoom(ctx, client.GetUserID(), in.Stake, in.MaxPlayers)
	if err != nil {
		h.sendError(client, "create_room", err)
		return
	}

	h.registry.Bind(client, client.GetUserID(), r.ID)
	client.SendMessage(codec.MustNewMessage(protocol.MsgRoomCreated, protocol.RoomPayload{Room: r.ToInfo()}))
}

// handleJoinGame 加入房间
//
// 先绑定再加入，这样请求方也能收到自己的 player_joined；失败时恢复原来的绑定。
func (h *Handler) handleJoinGame(ctx context.Context, client types.ClientInterface, in protocol.JoinGame) {
	if h.server.IsMaintenanceMode() {
		client.SendMessage(codec.NewErrorMessageWithText(
			protocol.ErrCodeServerMaintenance, "服务器维护中，暂停加入房间"))
		return
	}

	prev := h.registry.Bind(client, client.GetUserID(), in.RoomID)
	if _, err := h.coord.Join(ctx, in.RoomID, client.GetUserID()); err != nil {
		h.restoreBinding(client, prev, in.RoomID)
		h.sendError(client, "join_game", err)
	}
}

// handleLeaveGame 开局前离开房间，成功后解除绑定
func (h *Handler) handleLeaveGame(ctx context.Context, client types.ClientInterface, in protocol.LeaveGame) {
	if _, err := h.coord.Leave(ctx, in.RoomID, client.GetUserID()); err != nil {
		h.sendError(client, "leave_game", err)
		return
	}
	h.registry.UnbindIf(client.GetID(), in.RoomID)
}

// handleGetSnapshot 返回房间当前状态并绑定连接，用于断线重连
func (h *Handler) handleGetSnapshot(client types.ClientInterface, in protocol.GetSnapshot) {
	if _, err := h.coord.Snapshot(in.RoomID); err != nil {
		h.sendError(client, "get_snapshot", err)
		return
	}
	h.registry.Bind(client, client.GetUserID(), in.RoomID)
	h.sendSnapshot(client, in.RoomID)
}

// handleQuickMatch 按押注快速匹配
//
// 匹配完成前还不知道房间号，加入事件可能早于绑定发出，因此绑定后补发一份快照。
func (h *Handler) handleQuickMatch(ctx context.Context, client types.ClientInterface, in protocol.QuickMatch) {
	if h.server.IsMaintenanceMode() {
		client.SendMessage(codec.NewErrorMessageWithText(
			protocol.ErrCodeServerMaintenance, "服务器维护中，暂停匹配"))
		return
	}

	r, err := h.coord.QuickMatch(ctx, client.GetUserID(), in.Stake)
	if err != nil {
		h.sendError(client, "quick_match", err)
		return
	}
	h.registry.Bind(client, client.GetUserID(), r.ID)
	h.sendSnapshot(client, r.ID)
}

// handleGetRoomList 可加入的房间列表
func (h *Handler) handleGetRoomList(client types.ClientInterface) {
	rooms := h.coord.RoomList()
	items := make([]protocol.RoomListItem, 0, len(rooms))
	for _, r := range rooms {
		items = append(items, r.ToListItem())
	}
	client.SendMessage(codec.MustNewMessage(protocol.MsgRoomList, protocol.RoomListPayload{Rooms: items}))
}

// sendSnapshot 在绑定之后读取快照，之后的事件都会送达，不会漏掉中间状态
func (h *Handler) sendSnapshot(client types.ClientInterface, roomID string) {
	r, err := h.coord.Snapshot(roomID)
	if err != nil {
		h.sendError(client, "get_snapshot", err)
		return
	}
	client.SendMessage(snapshotMessage(r))
}

func snapshotMessage(r *room.Room) *protocol.Message {
	return codec.MustNewMessage(protocol.MsgRoomSnapshot, protocol.RoomPayload{Room: r.ToInfo()})
}

// restoreBinding 撤销一次失败请求造成的绑定变化
func (h *Handler) restoreBinding(client types.ClientInterface, prev, attempted string) {
	switch prev {
	case attempted:
		// 原本就绑定在这个房间
	case "":
		h.registry.UnbindIf(client.GetID(), attempted)
	default:
		h.registry.Bind(client, client.GetUserID(), prev)
	}
}
