package coordinator

import (
	"context"
	"time"

	"github.com/palemoky/stone-rolling/internal/apperrors"
	"github.com/palemoky/stone-rolling/internal/game/room"
	"github.com/palemoky/stone-rolling/internal/logger"
	"github.com/palemoky/stone-rolling/internal/protocol"
)

func (c *Coordinator) markPending(roomID string) {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	c.pending[roomID] = struct{}{}
}

func (c *Coordinator) clearPending(roomID string) {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	delete(c.pending, roomID)
}

// PendingSettlements 等待重试结算的房间号
func (c *Coordinator) PendingSettlements() []string {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	ids := make([]string, 0, len(c.pending))
	for id := range c.pending {
		ids = append(ids, id)
	}
	return ids
}

// RecoverPending 把存储中标记为待结算的房间加入重试队列（重启恢复后调用）
func (c *Coordinator) RecoverPending() int {
	rooms := c.store.List(func(r *room.Room) bool { return r.SettlementPending })
	for _, r := range rooms {
		c.markPending(r.ID)
	}
	return len(rooms)
}

// RetrySettlements 对所有待结算房间重新执行结算，返回本轮完成的数量
func (c *Coordinator) RetrySettlements(ctx context.Context) int {
	done := 0
	for _, roomID := range c.PendingSettlements() {
		if ctx.Err() != nil {
			return done
		}
		if c.retrySettlement(ctx, roomID) {
			c.clearPending(roomID)
			done++
		}
	}
	return done
}

// retrySettlement 返回 true 表示房间已不再需要重试
func (c *Coordinator) retrySettlement(ctx context.Context, roomID string) bool {
	var ev events
	var retryErr error
	_, err := c.store.Mutate(ctx, roomID, func(r *room.Room) error {
		if !r.SettlementPending {
			return nil
		}
		switch r.Status {
		case room.StatusInProgress:
			res, err := c.plan(r)
			if err != nil {
				return err
			}
			retryErr = c.settle(ctx, r, res, &ev)
		case room.StatusCancelled:
			if c.refundAll(ctx, r) {
				r.SettlementPending = false
				ev.add(roomEvent(protocol.MsgRoomSnapshot, r))
			}
		default:
			r.SettlementPending = false
		}
		return nil
	}, c.publish(&ev))

	log := logger.Room(roomID)
	switch {
	case err != nil && apperrors.KindOf(err) == apperrors.KindValidation:
		// 房间已被删除
		return true
	case err != nil:
		log.Error().Err(err).Bool("invariant", true).Msg("❌ 重试结算失败")
		return false
	case retryErr != nil && apperrors.KindOf(retryErr) == apperrors.KindInvariant:
		log.Error().Err(retryErr).Bool("invariant", true).Msg("❌ 结算入账出现不变量错误，保持待结算")
		return false
	case retryErr != nil:
		log.Warn().Err(retryErr).Msg("⚠️ 结算仍未完成，稍后重试")
		return false
	}

	snap, err := c.store.Get(roomID)
	if err != nil {
		return true
	}
	if snap.SettlementPending {
		return false
	}
	log.Info().Str("status", snap.Status.String()).Msg("✅ 待结算房间已完成入账")
	c.recordResult(snap)
	return true
}

// Sweep 清理过期房间
func (c *Coordinator) Sweep(ctx context.Context) []string {
	return c.store.Sweep(ctx, c.now(), c.cfg.RoomTimeout, c.cfg.FinishedRoomTTL)
}

// Run 运行后台任务：结算重试和房间清理，ctx 取消时返回
func (c *Coordinator) Run(ctx context.Context) error {
	settleEvery := c.cfg.SettleRetryInterval
	if settleEvery <= 0 {
		settleEvery = 5 * time.Second
	}
	cleanupEvery := c.cfg.CleanupInterval
	if cleanupEvery <= 0 {
		cleanupEvery = time.Minute
	}

	settle := time.NewTicker(settleEvery)
	defer settle.Stop()
	cleanup := time.NewTicker(cleanupEvery)
	defer cleanup.Stop()

	if n := c.RecoverPending(); n > 0 {
		logger.L().Info().Int("rooms", n).Msg("🔁 发现待结算房间，开始重试")
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-settle.C:
			c.RetrySettlements(ctx)
		case <-cleanup.C:
			c.Sweep(ctx)
		}
	}
}
