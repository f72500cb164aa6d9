package coordinator

import (
	"context"
	"errors"
	"fmt"

	"github.com/palemoky/stone-rolling/internal/apperrors"
	"github.com/palemoky/stone-rolling/internal/game/room"
	"github.com/palemoky/stone-rolling/internal/logger"
	"github.com/palemoky/stone-rolling/internal/protocol"
)

// CreateRoom 创建房间，押注在加入时才扣除
func (c *Coordinator) CreateRoom(ctx context.Context, ownerUserID string, stake int64, maxPlayers int) (*room.Room, error) {
	if ownerUserID == "" {
		return nil, apperrors.Invariant(errors.New("create room without owner"))
	}
	if stake <= 0 || stake < c.cfg.MinStake || stake > c.cfg.MaxStake {
		return nil, apperrors.ErrInvalidStake
	}
	if maxPlayers == 0 {
		maxPlayers = c.cfg.DefaultMaxPlayers
	}
	if maxPlayers < c.cfg.MinPlayers || maxPlayers > c.cfg.MaxPlayersLimit {
		return nil, apperrors.ErrInvalidMaxPlayers
	}

	r := c.store.Create(ctx, ownerUserID, stake, c.cfg.MinPlayers, maxPlayers)

	logger.Room(r.ID).Info().
		Str("owner", ownerUserID).
		Int64("stake", stake).
		Int("max_players", maxPlayers).
		Msg("🏠 房间已创建")
	return r, nil
}

// Join 加入房间并托管押注
//
// 扣款和加入是一个整体：扣款失败房间不变；扣款成功后如果加入失败会发起补偿入账。
func (c *Coordinator) Join(ctx context.Context, roomID, userID string) (*room.Room, error) {
	ctx = detached(ctx)
	var ev events
	snap, err := c.store.Mutate(ctx, roomID, func(r *room.Room) error {
		switch {
		case r.Status != room.StatusWaiting:
			// 非等待状态的房间一律按已开始处理
			return apperrors.ErrRoomAlreadyStarted
		case r.HasPlayer(userID):
			return apperrors.ErrAlreadyJoined
		case r.IsFull():
			return apperrors.ErrRoomFull
		}

		seq := r.NextJoinSeq(userID)
		if err := c.ledger.Debit(ctx, userID, r.Stake, joinKey(r.ID, userID, seq)); err != nil {
			return fmt.Errorf("escrow stake: %w", err)
		}

		p := r.AddPlayer(userID, c.now())
		if err := r.Validate(); err != nil {
			c.compensate(ctx, r, userID, seq)
			return apperrors.Invariant(err)
		}
		ev.add(playerJoinedEvent(r, p))

		if c.cfg.AutoStartWhenFull && r.IsFull() {
			if err := c.start(r); err != nil {
				return err
			}
			ev.add(roomEvent(protocol.MsgGameStarted, r))
		}
		return nil
	}, c.publish(&ev))
	if err != nil {
		c.logFailure(roomID, userID, "join", err)
		return nil, err
	}

	logger.Room(roomID).Info().Str("user_id", userID).Int("players", len(snap.Players)).Msg("👤 玩家加入房间")
	return snap, nil
}

// compensate 撤销一次已经成功的托管扣款
func (c *Coordinator) compensate(ctx context.Context, r *room.Room, userID string, seq int) {
	if err := c.ledger.Credit(ctx, userID, r.Stake, compensateKey(r.ID, userID, seq)); err != nil {
		logger.Room(r.ID).Error().Err(err).
			Str("user_id", userID).
			Int64("amount", r.Stake).
			Msg("❌ 押注补偿入账失败，需要人工处理")
	}
}

// Leave 开始前离开房间并退还押注
//
// 离开后人数低于最少人数时房间取消，其余玩家同时退款。
func (c *Coordinator) Leave(ctx context.Context, roomID, userID string) (*room.Room, error) {
	ctx = detached(ctx)
	var ev events
	cancelled := false
	snap, err := c.store.Mutate(ctx, roomID, func(r *room.Room) error {
		p := r.Player(userID)
		switch {
		case p == nil:
			return apperrors.ErrNotInRoom
		case r.Status == room.StatusInProgress:
			return apperrors.ErrRoomAlreadyStarted
		case r.Status != room.StatusWaiting:
			return apperrors.ErrNotWaiting
		}

		if err := c.ledger.Credit(ctx, userID, r.Stake, leaveKey(r.ID, userID, p.JoinSeq)); err != nil {
			return fmt.Errorf("refund stake: %w", err)
		}
		r.RemovePlayer(userID)
		ev.add(playerLeftEvent(r, userID))

		if len(r.Players) >= r.MinPlayers {
			return nil
		}
		if err := r.Transition(room.StatusCancelled, c.now()); err != nil {
			return apperrors.Invariant(err)
		}
		cancelled = true
		if !c.refundAll(ctx, r) {
			r.SettlementPending = true
		}
		ev.add(roomEvent(protocol.MsgRoomCancelled, r))
		return nil
	}, c.publish(&ev))
	if err != nil {
		c.logFailure(roomID, userID, "leave", err)
		return nil, err
	}

	log := logger.Room(roomID)
	log.Info().Str("user_id", userID).Msg("👋 玩家离开房间")
	if cancelled {
		log.Info().Bool("settlement_pending", snap.SettlementPending).Msg("🚫 房间人数不足，已取消")
		if snap.SettlementPending {
			c.markPending(roomID)
		}
	}
	return snap, nil
}

// refundAll 为取消房间中剩余的玩家退款，全部成功返回 true
func (c *Coordinator) refundAll(ctx context.Context, r *room.Room) bool {
	ok := true
	for _, p := range r.Players {
		if p.Refunded {
			continue
		}
		if err := c.ledger.Credit(ctx, p.UserID, r.Stake, refundKey(r.ID, p.UserID, p.JoinSeq)); err != nil {
			logger.Room(r.ID).Warn().Err(err).Str("user_id", p.UserID).Msg("⚠️ 取消退款失败，稍后重试")
			ok = false
			continue
		}
		p.Refunded = true
	}
	return ok
}

// Start 房主开始游戏；房主不在房间时任一玩家都可以开始
func (c *Coordinator) Start(ctx context.Context, roomID, userID string) (*room.Room, error) {
	var ev events
	snap, err := c.store.Mutate(ctx, roomID, func(r *room.Room) error {
		if r.OwnerUserID != userID && (r.HasPlayer(r.OwnerUserID) || !r.HasPlayer(userID)) {
			return apperrors.ErrNotOwner
		}
		if err := c.start(r); err != nil {
			return err
		}
		ev.add(roomEvent(protocol.MsgGameStarted, r))
		return nil
	}, c.publish(&ev))
	if err != nil {
		c.logFailure(roomID, userID, "start", err)
		return nil, err
	}

	logger.Room(roomID).Info().Int("players", len(snap.Players)).Msg("🎮 游戏开始")
	return snap, nil
}

func (c *Coordinator) start(r *room.Room) error {
	switch {
	case r.Status == room.StatusInProgress:
		return apperrors.ErrRoomAlreadyStarted
	case r.Status != room.StatusWaiting:
		return apperrors.ErrNotWaiting
	case len(r.Players) < r.MinPlayers:
		return apperrors.ErrNotEnoughPlayers
	}
	if err := r.Transition(room.StatusInProgress, c.now()); err != nil {
		return apperrors.Invariant(err)
	}
	return nil
}

// logFailure 按错误分类记录日志，不变量错误以 error 级别记录
func (c *Coordinator) logFailure(roomID, userID, op string, err error) {
	log := logger.Room(roomID)
	switch apperrors.KindOf(err) {
	case apperrors.KindValidation:
		log.Debug().Err(err).Str("user_id", userID).Str("op", op).Msg("请求被拒绝")
	case apperrors.KindResource:
		log.Warn().Err(err).Str("user_id", userID).Str("op", op).Msg("⚠️ 外部资源失败")
	default:
		log.Error().Err(err).Str("user_id", userID).Str("op", op).Bool("invariant", true).Msg("❌ 不变量被破坏")
	}
}
