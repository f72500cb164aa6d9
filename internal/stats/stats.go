// Package stats 玩家战绩与排行榜，数据保存在 Redis。
package stats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/palemoky/stone-rolling/internal/game/room"
)

const (
	// Redis key
	playerStatsKey    = "stats:player:"
	recordedKey       = "stats:recorded:"
	leaderboardKey    = "leaderboard:net"
	dailyLeaderboard  = "leaderboard:daily:"
	weeklyLeaderboard = "leaderboard:weekly:"

	recordedTTL  = 7 * 24 * time.Hour
	maxTxRetries = 10
)

// Board 排行榜类型
type Board string

const (
	BoardTotal  Board = "total"
	BoardDaily  Board = "daily"
	BoardWeekly Board = "weekly"
)

// ParseBoard 解析排行榜类型，空字符串视为总榜
func ParseBoard(s string) (Board, bool) {
	switch Board(s) {
	case "", BoardTotal:
		return BoardTotal, true
	case BoardDaily, BoardWeekly:
		return Board(s), true
	}
	return "", false
}

// PlayerStats 玩家统计数据
type PlayerStats struct {
	UserID string `json:"user_id"`

	TotalGames int `json:"total_games"`
	Wins       int `json:"wins"`
	Losses     int `json:"losses"`

	// 金额（最小货币单位）
	TotalStaked int64 `json:"total_staked"`
	TotalWon    int64 `json:"total_won"`
	BiggestWin  int64 `json:"biggest_win"`

	// 正数为连胜，负数为连败
	CurrentStreak int `json:"current_streak"`
	MaxWinStreak  int `json:"max_win_streak"`

	LastPlayedAt int64 `json:"last_played_at"`
	CreatedAt    int64 `json:"created_at"`
}

// Net 净输赢
func (s *PlayerStats) Net() int64 {
	return s.TotalWon - s.TotalStaked
}

// WinRate 胜率（百分比）
func (s *PlayerStats) WinRate() float64 {
	if s.TotalGames == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.TotalGames) * 100
}

// apply 记入一局的结果
func (s *PlayerStats) apply(stake, share int64, isWinner bool, at time.Time) {
	s.TotalGames++
	s.TotalStaked += stake
	s.TotalWon += share
	s.BiggestWin = max(s.BiggestWin, share-stake)
	s.LastPlayedAt = at.Unix()

	if isWinner {
		s.Wins++
		s.CurrentStreak = max(1, s.CurrentStreak+1)
	} else {
		s.Losses++
		s.CurrentStreak = min(-1, s.CurrentStreak-1)
	}
	s.MaxWinStreak = max(s.MaxWinStreak, s.CurrentStreak)
}

// LeaderboardEntry 排行榜条目
type LeaderboardEntry struct {
	Rank        int
	UserID      string
	NetWinnings int64 // 日榜、周榜为该周期内的净输赢
	Wins        int
	WinRate     float64
}

// Recorder 战绩记录与查询
type Recorder struct {
	redis *redis.Client
	now   func() time.Time
}

// NewRecorder 创建战绩记录器
func NewRecorder(client *redis.Client) *Recorder {
	return &Recorder{redis: client, now: time.Now}
}

// RecordResult 记录一局已结束对局的结果，同一房间只记录一次
//
// 记录是尽力而为的：标记写入后单个玩家失败不会重试。
func (rec *Recorder) RecordResult(ctx context.Context, r *room.Room) error {
	if r.Status != room.StatusCompleted {
		return fmt.Errorf("room %s is %s, not completed", r.ID, r.Status)
	}
	first, err := rec.redis.SetNX(ctx, recordedKey+r.ID, 1, recordedTTL).Result()
	if err != nil {
		return err
	}
	if !first {
		return nil
	}

	var errs []error
	for _, p := range r.Players {
		if err := rec.recordPlayer(ctx, p.UserID, r.Stake, p.WinShare, p.IsWinner); err != nil {
			errs = append(errs, fmt.Errorf("record %s: %w", p.UserID, err))
		}
	}
	return errors.Join(errs...)
}

// recordPlayer 用 WATCH 乐观锁更新玩家统计，同一玩家可能同时在多个房间结算
func (rec *Recorder) recordPlayer(ctx context.Context, userID string, stake, share int64, isWinner bool) error {
	key := playerStatsKey + userID
	now := rec.now()

	txf := func(tx *redis.Tx) error {
		stats, err := loadStats(ctx, tx, key)
		if err != nil {
			return err
		}
		if stats == nil {
			stats = &PlayerStats{UserID: userID, CreatedAt: now.Unix()}
		}
		stats.apply(stake, share, isWinner, now)

		data, err := json.Marshal(stats)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			updateLeaderboards(ctx, pipe, userID, stats.Net(), share-stake, now)
			return nil
		})
		return err
	}

	for range maxTxRetries {
		err := rec.redis.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return redis.TxFailedErr
}

// updateLeaderboards 总榜记录累计净输赢，日榜、周榜累加本局净输赢
func updateLeaderboards(ctx context.Context, pipe redis.Pipeliner, userID string, net, delta int64, now time.Time) {
	pipe.ZAdd(ctx, leaderboardKey, redis.Z{Score: float64(net), Member: userID})

	dailyKey := boardKey(BoardDaily, now)
	pipe.ZIncrBy(ctx, dailyKey, float64(delta), userID)
	pipe.Expire(ctx, dailyKey, 48*time.Hour)

	weeklyKey := boardKey(BoardWeekly, now)
	pipe.ZIncrBy(ctx, weeklyKey, float64(delta), userID)
	pipe.Expire(ctx, weeklyKey, 8*24*time.Hour)
}

func boardKey(board Board, now time.Time) string {
	switch board {
	case BoardDaily:
		return dailyLeaderboard + now.Format("2006-01-02")
	case BoardWeekly:
		year, week := now.ISOWeek()
		return fmt.Sprintf("%s%d-W%02d", weeklyLeaderboard, year, week)
	default:
		return leaderboardKey
	}
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func loadStats(ctx context.Context, g getter, key string) (*PlayerStats, error) {
	data, err := g.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var stats PlayerStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// GetPlayerStats 获取玩家统计，没有记录时返回 nil
func (rec *Recorder) GetPlayerStats(ctx context.Context, userID string) (*PlayerStats, error) {
	return loadStats(ctx, rec.redis, playerStatsKey+userID)
}

// GetPlayerRank 玩家在总榜的名次，未上榜返回 -1
func (rec *Recorder) GetPlayerRank(ctx context.Context, userID string) (int64, error) {
	rank, err := rec.redis.ZRevRank(ctx, leaderboardKey, userID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return -1, nil
		}
		return -1, err
	}
	return rank + 1, nil // Redis 排名从 0 开始
}

// GetLeaderboard 获取排行榜（从高到低）
func (rec *Recorder) GetLeaderboard(ctx context.Context, board Board, offset, limit int) ([]LeaderboardEntry, error) {
	key := boardKey(board, rec.now())
	results, err := rec.redis.ZRevRangeWithScores(ctx, key, int64(offset), int64(offset+limit-1)).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, 0, len(results))
	for i, z := range results {
		userID, ok := z.Member.(string)
		if !ok {
			continue
		}
		entry := LeaderboardEntry{
			Rank:        offset + i + 1,
			UserID:      userID,
			NetWinnings: int64(z.Score),
		}
		if stats, err := rec.GetPlayerStats(ctx, userID); err == nil && stats != nil {
			entry.Wins = stats.Wins
			entry.WinRate = stats.WinRate()
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
