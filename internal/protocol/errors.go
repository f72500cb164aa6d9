package protocol

// 错误码
const (
	ErrCodeUnknown    = 1000
	ErrCodeInvalidMsg = 1001
	ErrCodeRateLimit  = 1002 // 速率限制
	ErrCodeInternal   = 1003 // 内部错误（不向客户端暴露细节）

	ErrCodeRoomNotFound      = 2001
	ErrCodeRoomFull          = 2002
	ErrCodeNotInRoom         = 2003
	ErrCodeRoomStarted       = 2004 // 游戏已开始
	ErrCodeAlreadyJoined     = 2005
	ErrCodeRoomNotWaiting    = 2006
	ErrCodeNotEnoughPlayers  = 2007
	ErrCodeNotOwner          = 2008
	ErrCodeInvalidStake      = 2009
	ErrCodeInvalidMaxPlayers = 2010
	ErrCodeGameNotInProgress = 3001
	ErrCodeAlreadyRolled     = 3002
	ErrCodeInsufficientFunds = 4001
	ErrCodeLedgerUnavailable = 4002
	ErrCodeSettlementPending = 4003
	ErrCodeStatsUnavailable  = 5001
	ErrCodeServerMaintenance = 5003 // 服务器维护中
)

// ErrorMessages 错误码对应的消息
var ErrorMessages = map[int]string{
	ErrCodeUnknown:           "未知错误",
	ErrCodeInvalidMsg:        "无效的消息格式",
	ErrCodeRateLimit:         "请求过于频繁",
	ErrCodeInternal:          "服务器内部错误",
	ErrCodeRoomNotFound:      "房间不存在",
	ErrCodeRoomFull:          "房间已满",
	ErrCodeNotInRoom:         "您不在房间中",
	ErrCodeRoomStarted:       "游戏已开始",
	ErrCodeAlreadyJoined:     "您已在房间中",
	ErrCodeRoomNotWaiting:    "房间不在等待状态",
	ErrCodeNotEnoughPlayers:  "玩家人数不足",
	ErrCodeNotOwner:          "只有房主可以开始游戏",
	ErrCodeInvalidStake:      "无效的下注金额",
	ErrCodeInvalidMaxPlayers: "无效的房间人数",
	ErrCodeGameNotInProgress: "游戏未在进行中",
	ErrCodeAlreadyRolled:     "您已经掷过石头了",
	ErrCodeInsufficientFunds: "余额不足",
	ErrCodeLedgerUnavailable: "钱包服务暂不可用",
	ErrCodeSettlementPending: "结算处理中，请稍候",
	ErrCodeStatsUnavailable:  "战绩服务暂不可用",
	ErrCodeServerMaintenance: "服务器维护中",
}
