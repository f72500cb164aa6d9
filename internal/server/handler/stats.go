package handler

import (
	"context"

	"github.com/palemoky/stone-rolling/internal/logger"
	"github.com/palemoky/stone-rolling/internal/protocol"
	"github.com/palemoky/stone-rolling/internal/protocol/codec"
	"github.com/palemoky/stone-rolling/internal/stats"
	"github.com/palemoky/stone-rolling/internal/types"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 50
)

// --- 战绩处理 ---

// handleGetStats 获取个人战绩
func (h *Handler) handleGetStats(ctx context.Context, client types.ClientInterface) {
	if h.stats == nil {
		client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeStatsUnavailable))
		return
	}

	userID := client.GetUserID()
	ps, err := h.stats.GetPlayerStats(ctx, userID)
	if err != nil {
		logger.L().Warn().Err(err).Str("user_id", userID).Msg("⚠️ 获取战绩失败")
		client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeStatsUnavailable))
		return
	}
	if ps == nil {
		// 还没有完成过对局
		client.SendMessage(codec.MustNewMessage(protocol.MsgStatsResult, protocol.StatsResultPayload{
			UserID: userID,
			Rank:   -1,
		}))
		return
	}

	rank, err := h.stats.GetPlayerRank(ctx, userID)
	if err != nil {
		rank = -1
	}

	client.SendMessage(codec.MustNewMessage(protocol.MsgStatsResult, protocol.StatsResultPayload{
		UserID:        ps.UserID,
		TotalGames:    ps.TotalGames,
		Wins:          ps.Wins,
		Losses:        ps.Losses,
		WinRate:       ps.WinRate(),
		TotalStaked:   ps.TotalStaked,
		TotalWon:      ps.TotalWon,
		NetWinnings:   ps.Net(),
		BiggestWin:    ps.BiggestWin,
		CurrentStreak: ps.CurrentStreak,
		MaxWinStreak:  ps.MaxWinStreak,
		Rank:          int(rank),
	}))
}

// handleGetLeaderboard 获取排行榜
func (h *Handler) handleGetLeaderboard(ctx context.Context, client types.ClientInterface, in protocol.GetLeaderboard) {
	if h.stats == nil {
		client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeStatsUnavailable))
		return
	}

	board, ok := stats.ParseBoard(in.Type)
	if !ok {
		client.SendMessage(codec.NewErrorMessageWithText(protocol.ErrCodeInvalidMsg, "未知的排行榜类型"))
		return
	}
	limit := in.Limit
	if limit <= 0 || limit > maxLeaderboardLimit {
		limit = defaultLeaderboardLimit
	}

	entries, err := h.stats.GetLeaderboard(ctx, board, max(0, in.Offset), limit)
	if err != nil {
		logger.L().Warn().Err(err).Str("board", string(board)).Msg("⚠️ 获取排行榜失败")
		client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeStatsUnavailable))
		return
	}

	infos := make([]protocol.LeaderboardEntryInfo, len(entries))
	for i, e := range entries {
		infos[i] = protocol.LeaderboardEntryInfo{
			Rank:        e.Rank,
			UserID:      e.UserID,
			NetWinnings: e.NetWinnings,
			Wins:        e.Wins,
			WinRate:     e.WinRate,
		}
	}
	client.SendMessage(codec.MustNewMessage(protocol.MsgLeaderboardResult, protocol.LeaderboardResultPayload{
		Type:    string(board),
		Entries: infos,
	}))
}
