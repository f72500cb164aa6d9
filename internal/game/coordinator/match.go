package coordinator

import (
	"context"
	"errors"
	"sync"

	"github.com/palemoky/stone-rolling/internal/apperrors"
	"github.com/palemoky/stone-rolling/internal/game/room"
	"github.com/palemoky/stone-rolling/internal/logger"
)

// QuickMatch 按押注匹配：加入最早创建的可加入房间，没有则新建一个
//
// 用户已在同押注的等待房间中时直接返回该房间。
func (c *Coordinator) QuickMatch(ctx context.Context, userID string, stake int64) (*room.Room, error) {
	if stake <= 0 || stake < c.cfg.MinStake || stake > c.cfg.MaxStake {
		return nil, apperrors.ErrInvalidStake
	}

	mu := c.matchLock(stake)
	mu.Lock()
	defer mu.Unlock()

	candidates := c.store.List(func(r *room.Room) bool {
		return r.Status == room.StatusWaiting && r.Stake == stake
	})
	for _, r := range candidates {
		if r.HasPlayer(userID) {
			return r, nil
		}
	}

	for _, r := range candidates {
		if r.IsFull() {
			continue
		}
		joined, err := c.Join(ctx, r.ID, userID)
		switch {
		case err == nil:
			logger.Room(r.ID).Info().Str("user_id", userID).Msg("🔍 快速匹配加入已有房间")
			return joined, nil
		case errors.Is(err, apperrors.ErrRoomFull),
			errors.Is(err, apperrors.ErrRoomAlreadyStarted),
			errors.Is(err, apperrors.ErrRoomNotFound):
			// 房间在列出之后发生了变化，尝试下一个
			continue
		default:
			return nil, err
		}
	}

	created, err := c.CreateRoom(ctx, userID, stake, c.cfg.DefaultMaxPlayers)
	if err != nil {
		return nil, err
	}
	joined, err := c.Join(ctx, created.ID, userID)
	if err != nil {
		// 新建的空房间没有押注，直接删除
		c.store.DeleteIf(ctx, created.ID, func(r *room.Room) bool { return len(r.Players) == 0 })
		return nil, err
	}
	logger.Room(created.ID).Info().Str("user_id", userID).Msg("🔍 快速匹配创建新房间")
	return joined, nil
}

func (c *Coordinator) matchLock(stake int64) *sync.Mutex {
	c.matchLocksMu.Lock()
	defer c.matchLocksMu.Unlock()
	mu, ok := c.matchLocks[stake]
	if !ok {
		mu = &sync.Mutex{}
		c.matchLocks[stake] = mu
	}
	return mu
}
