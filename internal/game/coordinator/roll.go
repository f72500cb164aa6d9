package coordinator

import (
	"context"
	"fmt"

	"github.com/palemoky/stone-rolling/internal/apperrors"
	"github.com/palemoky/stone-rolling/internal/game/payout"
	"github.com/palemoky/stone-rolling/internal/game/room"
	"github.com/palemoky/stone-rolling/internal/logger"
)

// RollStone 玩家掷石头；最后一位玩家投掷后在同一临界区内结算
//
// 投掷一旦提交就不会回滚。开始入账后无论成败都会提交，入账失败时房间标记为待结算，
// 调用方收到 ErrSettlementPending，后台重试直到全部入账成功。
func (c *Coordinator) RollStone(ctx context.Context, roomID, userID string) (*room.Room, error) {
	ctx = detached(ctx)
	var ev events
	var settleErr error
	snap, err := c.store.Mutate(ctx, roomID, func(r *room.Room) error {
		if r.Status != room.StatusInProgress {
			return apperrors.ErrNotInProgress
		}
		p := r.Player(userID)
		switch {
		case p == nil:
			return apperrors.ErrNotInRoom
		case p.HasRolled:
			return apperrors.ErrAlreadyRolled
		}

		outcome, err := c.roller.Roll(r, userID)
		if err != nil {
			return err
		}
		value := outcome.Value
		p.HasRolled = true
		p.RolledValue = &value
		p.IsSpecial = outcome.IsSpecial
		p.IsSuper = outcome.IsSuper
		ev.add(playerRolledEvent(r, userID, outcome))

		if !r.AllRolled() {
			return nil
		}
		res, err := c.plan(r)
		if err != nil {
			return err
		}
		settleErr = c.settle(ctx, r, res, &ev)
		return nil
	}, c.publish(&ev))
	if err != nil {
		c.logFailure(roomID, userID, "roll", err)
		return nil, err
	}

	if settleErr != nil {
		c.markPending(roomID)
		c.logFailure(roomID, userID, "resolve", settleErr)
		return snap, fmt.Errorf("%w: %w", apperrors.ErrSettlementPending, settleErr)
	}
	c.recordResult(snap)
	return snap, nil
}

// plan 根据已提交的投掷计算结算结果，不产生副作用
func (c *Coordinator) plan(r *room.Room) (payout.Result, error) {
	rolls := make([]payout.Roll, 0, len(r.Players))
	for _, p := range r.Players {
		if p.RolledValue == nil {
			return payout.Result{}, apperrors.Invariant(fmt.Errorf("room %s: player %s has no roll at resolution", r.ID, p.UserID))
		}
		rolls = append(rolls, payout.Roll{UserID: p.UserID, Value: *p.RolledValue})
	}

	res, err := payout.Compute(c.cfg.Payout, r.Stake, rolls)
	if err != nil {
		return payout.Result{}, apperrors.Invariant(err)
	}
	return res, nil
}

// settle 逐一为赢家入账，全部成功后房间结束
//
// 任一入账失败（包括不变量错误）时房间保持 in_progress 并标记待结算，调用方必须提交该状态：
// 投掷结果已固定，重试时按相同结果结算，已入账的赢家因幂等键不会重复入账。
func (c *Coordinator) settle(ctx context.Context, r *room.Room, res payout.Result, ev *events) error {
	for _, s := range res.Shares {
		if s.Amount <= 0 {
			continue
		}
		if err := c.ledger.Credit(ctx, s.UserID, s.Amount, resolutionKey(r.ID, s.UserID)); err != nil {
			r.SettlementPending = true
			return fmt.Errorf("credit winner %s: %w", s.UserID, err)
		}
	}

	winning := res.WinningValue
	r.WinningValue = &winning
	r.WinnerUserIDs = res.WinnerIDs()
	r.Pot = res.Pot
	r.Commission = res.Commission
	r.SettlementPending = false
	for _, p := range r.Players {
		p.WinShare = res.ShareOf(p.UserID)
		p.IsWinner = *p.RolledValue == winning
	}
	if err := r.Transition(room.StatusCompleted, c.now()); err != nil {
		r.SettlementPending = true
		return apperrors.Invariant(err)
	}
	ev.add(gameEndedEvent(r, res))

	logger.Room(r.ID).Info().
		Int("winning_value", winning).
		Strs("winners", r.WinnerUserIDs).
		Int64("pot", res.Pot).
		Int64("gross", res.Gross).
		Int64("commission", res.Commission).
		Int64("remainder", res.Remainder).
		Msg("🏆 对局结算完成")
	return nil
}
