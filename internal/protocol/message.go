package protocol

import "encoding/json"

// Message 基础消息结构
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// MessageType 消息类型
type MessageType string

// 客户端 → 服务端 消息类型
const (
	// 连接操作
	MsgPing MessageType = "ping" // 心跳 ping

	// 房间操作
	MsgCreateRoom  MessageType = "create_room"   // 创建房间
	MsgJoinGame    MessageType = "join_game"     // 加入房间（押注）
	MsgLeaveGame   MessageType = "leave_game"    // 离开房间（退款）
	MsgStartGame   MessageType = "start_game"    // 房主开始游戏
	MsgQuickMatch  MessageType = "quick_match"   // 按押注快速匹配
	MsgGetSnapshot MessageType = "get_snapshot"  // 获取房间快照（断线重连）
	MsgGetRoomList MessageType = "get_room_list" // 获取房间列表

	// 游戏操作
	MsgRollStone MessageType = "roll_stone" // 掷石头

	// 聊天
	MsgChatMessage MessageType = "chat_message" // 房间聊天（仅转发）

	// 战绩
	MsgGetStats       MessageType = "get_stats"       // 获取个人战绩
	MsgGetLeaderboard MessageType = "get_leaderboard" // 获取排行榜
)

// 服务端 → 客户端 消息类型
const (
	// 连接相关
	MsgConnected MessageType = "connected" // 连接成功
	MsgPong      MessageType = "pong"      // 心跳 pong

	// 房间相关
	MsgRoomCreated   MessageType = "room_created"   // 房间创建成功
	MsgPlayerJoined  MessageType = "player_joined"  // 玩家加入
	MsgPlayerLeft    MessageType = "player_left"    // 玩家离开
	MsgRoomCancelled MessageType = "room_cancelled" // 房间取消（人数不足）
	MsgRoomSnapshot  MessageType = "room_snapshot"  // 房间当前状态
	MsgRoomList      MessageType = "room_list"      // 房间列表结果

	// 游戏流程
	MsgGameStarted  MessageType = "game_started"  // 游戏开始
	MsgPlayerRolled MessageType = "player_rolled" // 有人掷出结果
	MsgGameEnded    MessageType = "game_ended"    // 游戏结束（含结算）

	// 战绩
	MsgStatsResult       MessageType = "stats_result"       // 个人战绩
	MsgLeaderboardResult MessageType = "leaderboard_result" // 排行榜

	// 错误
	MsgError MessageType = "error" // 错误消息
)
