package room

import (
	"context"
	"time"

	"github.com/palemoky/stone-rolling/internal/logger"
)

// Sweep 清理过期房间，返回被删除的房间号
//
// 只清理两类房间：超时且没有玩家的等待房间，以及超过保留期的终止房间。
// 有押注的房间不会被自动清理。
func (s *Store) Sweep(ctx context.Context, now time.Time, waitingTimeout, finishedTTL time.Duration) []string {
	expired := func(r *Room) bool {
		switch {
		case r.Status == StatusWaiting:
			return len(r.Players) == 0 && now.Sub(r.CreatedAt) > waitingTimeout
		case r.Status.Terminal():
			return !r.SettlementPending && r.EndedAt != nil && now.Sub(*r.EndedAt) > finishedTTL
		default:
			return false
		}
	}

	var ids []string
	for _, r := range s.List(expired) {
		// 列出之后房间可能已变化，删除时在锁内重新检查
		if s.DeleteIf(ctx, r.ID, expired) {
			ids = append(ids, r.ID)
			logger.Room(r.ID).Info().Str("status", r.Status.String()).Msg("🧹 房间已清理")
		}
	}
	return ids
}
