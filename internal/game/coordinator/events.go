package coordinator

import (
	"github.com/palemoky/stone-rolling/internal/game/payout"
	"github.com/palemoky/stone-rolling/internal/game/room"
	"github.com/palemoky/stone-rolling/internal/game/stone"
	"github.com/palemoky/stone-rolling/internal/protocol"
	"github.com/palemoky/stone-rolling/internal/protocol/codec"
)

func playerJoinedEvent(r *room.Room, p *room.Player) *protocol.Message {
	return codec.MustNewMessage(protocol.MsgPlayerJoined, protocol.PlayerJoinedPayload{
		RoomID: r.ID,
		Player: p.ToInfo(),
	})
}

func playerLeftEvent(r *room.Room, userID string) *protocol.Message {
	return codec.MustNewMessage(protocol.MsgPlayerLeft, protocol.PlayerLeftPayload{
		RoomID: r.ID,
		UserID: userID,
	})
}

func roomEvent(t protocol.MessageType, r *room.Room) *protocol.Message {
	return codec.MustNewMessage(t, protocol.RoomPayload{Room: r.ToInfo()})
}

func playerRolledEvent(r *room.Room, userID string, o stone.Outcome) *protocol.Message {
	return codec.MustNewMessage(protocol.MsgPlayerRolled, protocol.PlayerRolledPayload{
		RoomID: r.ID,
		UserID: userID,
		Outcome: protocol.OutcomeInfo{
			Value:     o.Value,
			IsSpecial: o.IsSpecial,
			IsSuper:   o.IsSuper,
		},
	})
}

func gameEndedEvent(r *room.Room, res payout.Result) *protocol.Message {
	winners := make([]protocol.WinnerInfo, 0, len(res.Shares))
	for _, s := range res.Shares {
		winners = append(winners, protocol.WinnerInfo{UserID: s.UserID, Share: s.Amount})
	}
	return codec.MustNewMessage(protocol.MsgGameEnded, protocol.GameEndedPayload{
		Room:    r.ToInfo(),
		Winners: winners,
	})
}
