package protocol

// Intent 客户端请求的封闭集合。
// 新增一种请求时需要同时扩展 codec.DecodeIntent 与 handler 中的 switch。
type Intent interface {
	isIntent()
}

// Ping 心跳
type Ping struct{ Timestamp int64 }

// CreateRoom 创建房间
type CreateRoom struct {
	Stake      int64
	MaxPlayers int
}

// JoinGame 加入房间并押注
type JoinGame struct{ RoomID string }

// LeaveGame 开局前离开房间
type LeaveGame struct{ RoomID string }

// StartGame 房主开始游戏
type StartGame struct{ RoomID string }

// RollStone 掷石头
type RollStone struct{ RoomID string }

// GetSnapshot 请求房间当前状态
type GetSnapshot struct{ RoomID string }

// QuickMatch 按押注快速匹配
type QuickMatch struct{ Stake int64 }

// GetRoomList 请求可加入的房间列表
type GetRoomList struct{}

// ChatMessage 房间聊天，服务端只做转发
type ChatMessage struct {
	RoomID  string
	Content string
}

// GetStats 请求个人战绩
type GetStats struct{}

// GetLeaderboard 请求排行榜
type GetLeaderboard struct {
	Type   string
	Offset int
	Limit  int
}

func (Ping) isIntent()           {}
func (CreateRoom) isIntent()     {}
func (JoinGame) isIntent()       {}
func (LeaveGame) isIntent()      {}
func (StartGame) isIntent()      {}
func (RollStone) isIntent()      {}
func (GetSnapshot) isIntent()    {}
func (QuickMatch) isIntent()     {}
func (GetRoomList) isIntent()    {}
func (ChatMessage) isIntent()    {}
func (GetStats) isIntent()       {}
func (GetLeaderboard) isIntent() {}
