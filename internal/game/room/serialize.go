package room

import (
	"github.com/palemoky/stone-rolling/internal/protocol"
)

// ToInfo 转换为协议层房间信息
func (r *Room) ToInfo() protocol.RoomInfo {
	info := protocol.RoomInfo{
		ID:                r.ID,
		OwnerUserID:       r.OwnerUserID,
		Status:            r.Status.String(),
		Stake:             r.Stake,
		MinPlayers:        r.MinPlayers,
		MaxPlayers:        r.MaxPlayers,
		Players:           make([]protocol.PlayerInfo, 0, len(r.Players)),
		WinnerUserIDs:     r.WinnerUserIDs,
		Pot:               r.Pot,
		Commission:        r.Commission,
		SettlementPending: r.SettlementPending,
		CreatedAt:         r.CreatedAt.UnixMilli(),
	}
	if r.WinningValue != nil {
		v := *r.WinningValue
		info.WinningValue = &v
	}
	if r.EndedAt != nil {
		info.EndedAt = r.EndedAt.UnixMilli()
	}
	for _, p := range r.Players {
		info.Players = append(info.Players, p.ToInfo())
	}
	return info
}

// ToInfo 转换为协议层玩家信息
func (p *Player) ToInfo() protocol.PlayerInfo {
	info := protocol.PlayerInfo{
		UserID:    p.UserID,
		TurnOrder: p.TurnOrder,
		HasRolled: p.HasRolled,
		IsWinner:  p.IsWinner,
		WinShare:  p.WinShare,
	}
	if p.RolledValue != nil {
		v := *p.RolledValue
		info.RolledValue = &v
	}
	return info
}

// ToListItem 转换为大厅房间列表项
func (r *Room) ToListItem() protocol.RoomListItem {
	return protocol.RoomListItem{
		RoomID:      r.ID,
		Stake:       r.Stake,
		PlayerCount: len(r.Players),
		MaxPlayers:  r.MaxPlayers,
	}
}
