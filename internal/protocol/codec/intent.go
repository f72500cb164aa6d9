package codec

import (
	"fmt"

	"github.com/palemoky/stone-rolling/internal/protocol"
)

// DecodeIntent 将入站消息解析为封闭的 Intent 集合
func DecodeIntent(msg *protocol.Message) (protocol.Intent, error) {
	switch msg.Type {
	case protocol.MsgPing:
		p, err := ParsePayload[protocol.PingPayload](msg)
		if err != nil {
			return nil, err
		}
		return protocol.Ping{Timestamp: p.Timestamp}, nil

	case protocol.MsgCreateRoom:
		p, err := ParsePayload[protocol.CreateRoomPayload](msg)
		if err != nil {
			return nil, err
		}
		return protocol.CreateRoom{Stake: p.Stake, MaxPlayers: p.MaxPlayers}, nil

	case protocol.MsgJoinGame, protocol.MsgLeaveGame, protocol.MsgStartGame,
		protocol.MsgRollStone, protocol.MsgGetSnapshot:
		p, err := ParsePayload[protocol.RoomRefPayload](msg)
		if err != nil {
			return nil, err
		}
		if p.RoomID == "" {
			return nil, fmt.Errorf("%s: missing room_id", msg.Type)
		}
		return roomIntent(msg.Type, p.RoomID), nil

	case protocol.MsgQuickMatch:
		p, err := ParsePayload[protocol.QuickMatchPayload](msg)
		if err != nil {
			return nil, err
		}
		return protocol.QuickMatch{Stake: p.Stake}, nil

	case protocol.MsgGetRoomList:
		return protocol.GetRoomList{}, nil

	case protocol.MsgChatMessage:
		p, err := ParsePayload[protocol.ChatPayload](msg)
		if err != nil {
			return nil, err
		}
		if p.RoomID == "" {
			return nil, fmt.Errorf("%s: missing room_id", msg.Type)
		}
		return protocol.ChatMessage{RoomID: p.RoomID, Content: p.Content}, nil

	case protocol.MsgGetStats:
		return protocol.GetStats{}, nil

	case protocol.MsgGetLeaderboard:
		p, err := ParsePayload[protocol.GetLeaderboardPayload](msg)
		if err != nil {
			return nil, err
		}
		return protocol.GetLeaderboard{Type: p.Type, Offset: p.Offset, Limit: p.Limit}, nil
	}

	return nil, fmt.Errorf("unknown message type %q", msg.Type)
}

func roomIntent(t protocol.MessageType, roomID string) protocol.Intent {
	switch t {
	case protocol.MsgJoinGame:
		return protocol.JoinGame{RoomID: roomID}
	case protocol.MsgLeaveGame:
		return protocol.LeaveGame{RoomID: roomID}
	case protocol.MsgStartGame:
		return protocol.StartGame{RoomID: roomID}
	case protocol.MsgRollStone:
		return protocol.RollStone{RoomID: roomID}
	default:
		return protocol.GetSnapshot{RoomID: roomID}
	}
}
