package transport

import (
	"time"

	"github.com/palemoky/stone-rolling/internal/protocol"
	"github.com/palemoky/stone-rolling/internal/protocol/codec"
)

// --- 便捷方法 ---

// CreateRoom 创建房间，maxPlayers 为 0 时使用服务端默认值
func (c *Client) CreateRoom(stake int64, maxPlayers int) error {
	return c.Send(codec.MustNewMessage(protocol.MsgCreateRoom, protocol.CreateRoomPayload{
		Stake:      stake,
		MaxPlayers: maxPlayers,
	}))
}

// JoinGame 加入房间并押注
func (c *Client) JoinGame(roomID string) error {
	return c.sendRoomRef(protocol.MsgJoinGame, roomID)
}

// LeaveGame 开局前离开房间
func (c *Client) LeaveGame(roomID string) error {
	return c.sendRoomRef(protocol.MsgLeaveGame, roomID)
}

// StartGame 开始游戏
func (c *Client) StartGame(roomID string) error {
	return c.sendRoomRef(protocol.MsgStartGame, roomID)
}

// RollStone 掷石头
func (c *Client) RollStone(roomID string) error {
	return c.sendRoomRef(protocol.MsgRollStone, roomID)
}

// GetSnapshot 请求房间快照
func (c *Client) GetSnapshot(roomID string) error {
	return c.sendRoomRef(protocol.MsgGetSnapshot, roomID)
}

// QuickMatch 按押注快速匹配
func (c *Client) QuickMatch(stake int64) error {
	return c.Send(codec.MustNewMessage(protocol.MsgQuickMatch, protocol.QuickMatchPayload{Stake: stake}))
}

// GetRoomList 获取房间列表
func (c *Client) GetRoomList() error {
	return c.Send(codec.MustNewMessage(protocol.MsgGetRoomList, nil))
}

// Chat 房间聊天
func (c *Client) Chat(roomID, content string) error {
	return c.Send(codec.MustNewMessage(protocol.MsgChatMessage, protocol.ChatPayload{
		RoomID:  roomID,
		Content: content,
	}))
}

// GetStats 获取个人战绩
func (c *Client) GetStats() error {
	return c.Send(codec.MustNewMessage(protocol.MsgGetStats, nil))
}

// GetLeaderboard 获取排行榜，boardType 为 total、daily 或 weekly
func (c *Client) GetLeaderboard(boardType string, offset, limit int) error {
	return c.Send(codec.MustNewMessage(protocol.MsgGetLeaderboard, protocol.GetLeaderboardPayload{
		Type:   boardType,
		Offset: offset,
		Limit:  limit,
	}))
}

// Ping 发送心跳
func (c *Client) Ping() error {
	return c.Send(codec.MustNewMessage(protocol.MsgPing, protocol.PingPayload{
		Timestamp: time.Now().UnixMilli(),
	}))
}

func (c *Client) sendRoomRef(t protocol.MessageType, roomID string) error {
	return c.Send(codec.MustNewMessage(t, protocol.RoomRefPayload{RoomID: roomID}))
}
