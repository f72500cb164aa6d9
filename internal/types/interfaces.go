package types

import (
	"context"

	"github.com/palemoky/stone-rolling/internal/protocol"
	"github.com/palemoky/stone-rolling/internal/protocol/codec"
	"github.com/palemoky/stone-rolling/internal/stats"
)

// ServerInterface 定义服务器接口（用于打破循环依赖）
type ServerInterface interface {
	IsMaintenanceMode() bool
	GetOnlineCount() int
}

// ClientInterface 定义连接接口，一条 WebSocket 连接对应一个实例
type ClientInterface interface {
	GetID() string
	GetUserID() string
	// Format 连接使用的编码格式
	Format() codec.Format
	SendMessage(msg *protocol.Message)
	// SendFrame 发送按 format 编码好的帧
	SendFrame(format codec.Format, data []byte)
	Close()
}

// ChatLimiter 聊天速率限制器接口
type ChatLimiter interface {
	AllowChat(clientID string) (allowed bool, reason string)
	RemoveClient(clientID string)
}

// StatsReader 战绩查询接口
type StatsReader interface {
	GetPlayerStats(ctx context.Context, userID string) (*stats.PlayerStats, error)
	GetPlayerRank(ctx context.Context, userID string) (int64, error)
	GetLeaderboard(ctx context.Context, board stats.Board, offset, limit int) ([]stats.LeaderboardEntry, error)
}
