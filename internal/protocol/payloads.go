package protocol

// --- 客户端请求 Payloads ---

// PingPayload 心跳请求
type PingPayload struct {
	Timestamp int64 `json:"timestamp"` // 客户端时间戳（毫秒）
}

// CreateRoomPayload 创建房间请求
type CreateRoomPayload struct {
	Stake      int64 `json:"stake"`       // 每人押注（最小货币单位）
	MaxPlayers int   `json:"max_players"` // 0 表示使用默认人数
}

// RoomRefPayload 只携带房间号的请求（join/leave/start/roll/snapshot）
type RoomRefPayload struct {
	RoomID string `json:"room_id"`
}

// QuickMatchPayload 快速匹配请求
type QuickMatchPayload struct {
	Stake int64 `json:"stake"`
}

// ChatPayload 聊天消息
type ChatPayload struct {
	RoomID   string `json:"room_id"`
	SenderID string `json:"sender_id,omitempty"` // 发送者 ID (服务端填充)
	Content  string `json:"content"`             // 消息内容
	Time     int64  `json:"time,omitempty"`      // 发送时间 (服务端填充)
}

// GetLeaderboardPayload 排行榜请求
type GetLeaderboardPayload struct {
	Type   string `json:"type"` // total, daily, weekly
	Offset int    `json:"offset"`
	Limit  int    `json:"limit"`
}

// --- 服务端响应 Payloads ---

// ConnectedPayload 连接成功响应
type ConnectedPayload struct {
	ConnectionID string `json:"connection_id"`
	UserID       string `json:"user_id"`
}

// PongPayload 心跳响应
type PongPayload struct {
	ClientTimestamp int64 `json:"client_timestamp"` // 客户端发送的时间戳
	ServerTimestamp int64 `json:"server_timestamp"` // 服务器时间戳（毫秒）
}

// RoomPayload 携带完整房间状态（room_created / game_started / room_snapshot / room_cancelled）
type RoomPayload struct {
	Room RoomInfo `json:"room"`
}

// PlayerJoinedPayload 玩家加入通知
type PlayerJoinedPayload struct {
	RoomID string     `json:"room_id"`
	Player PlayerInfo `json:"player"`
}

// PlayerLeftPayload 玩家离开通知
type PlayerLeftPayload struct {
	RoomID string `json:"room_id"`
	UserID string `json:"user_id"`
}

// PlayerRolledPayload 掷石头结果通知
type PlayerRolledPayload struct {
	RoomID  string      `json:"room_id"`
	UserID  string      `json:"user_id"`
	Outcome OutcomeInfo `json:"outcome"`
}

// GameEndedPayload 游戏结束通知
type GameEndedPayload struct {
	Room    RoomInfo     `json:"room"`
	Winners []WinnerInfo `json:"winners"`
}

// RoomListPayload 房间列表结果
type RoomListPayload struct {
	Rooms []RoomListItem `json:"rooms"`
}

// StatsResultPayload 个人战绩
type StatsResultPayload struct {
	UserID        string  `json:"user_id"`
	TotalGames    int     `json:"total_games"`
	Wins          int     `json:"wins"`
	Losses        int     `json:"losses"`
	WinRate       float64 `json:"win_rate"`
	TotalStaked   int64   `json:"total_staked"`
	TotalWon      int64   `json:"total_won"`
	NetWinnings   int64   `json:"net_winnings"`
	BiggestWin    int64   `json:"biggest_win"`
	CurrentStreak int     `json:"current_streak"`
	MaxWinStreak  int     `json:"max_win_streak"`
	Rank          int     `json:"rank"` // -1 表示未上榜
}

// LeaderboardResultPayload 排行榜结果
type LeaderboardResultPayload struct {
	Type    string                 `json:"type"`
	Entries []LeaderboardEntryInfo `json:"entries"`
}

// ErrorPayload 错误响应
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// --- 通用数据结构 ---

// RoomInfo 房间信息
type RoomInfo struct {
	ID            string       `json:"id"`
	OwnerUserID   string       `json:"owner_user_id"`
	Status        string       `json:"status"`
	Stake         int64        `json:"stake"`
	MinPlayers    int          `json:"min_players"`
	MaxPlayers    int          `json:"max_players"`
	Players       []PlayerInfo `json:"players"` // 按 turn_order 排列
	WinningValue  *int         `json:"winning_value,omitempty"`
	WinnerUserIDs []string     `json:"winner_user_ids,omitempty"`
	Pot           int64        `json:"pot"`
	Commission    int64        `json:"commission,omitempty"`
	// SettlementPending 全部投掷完成但入账尚未全部成功
	SettlementPending bool  `json:"settlement_pending,omitempty"`
	CreatedAt         int64 `json:"created_at"`
	EndedAt           int64 `json:"ended_at,omitempty"`
}

// PlayerInfo 玩家信息
type PlayerInfo struct {
	UserID      string `json:"user_id"`
	TurnOrder   int    `json:"turn_order"`
	HasRolled   bool   `json:"has_rolled"`
	RolledValue *int   `json:"rolled_value,omitempty"`
	IsWinner    bool   `json:"is_winner"`
	WinShare    int64  `json:"win_share,omitempty"`
}

// OutcomeInfo 掷石头结果
type OutcomeInfo struct {
	Value     int  `json:"value"`
	IsSpecial bool `json:"is_special"`
	IsSuper   bool `json:"is_super"`
}

// WinnerInfo 赢家及其所得
type WinnerInfo struct {
	UserID string `json:"user_id"`
	Share  int64  `json:"share"`
}

// RoomListItem 房间列表项
type RoomListItem struct {
	RoomID      string `json:"room_id"`
	Stake       int64  `json:"stake"`
	PlayerCount int    `json:"player_count"`
	MaxPlayers  int    `json:"max_players"`
}

// LeaderboardEntryInfo 排行榜条目
type LeaderboardEntryInfo struct {
	Rank        int     `json:"rank"`
	UserID      string  `json:"user_id"`
	NetWinnings int64   `json:"net_winnings"`
	Wins        int     `json:"wins"`
	WinRate     float64 `json:"win_rate"`
}
