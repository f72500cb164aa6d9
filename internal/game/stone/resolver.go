package stone

import (
	crand "crypto/rand"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/palemoky/stone-rolling/internal/apperrors"
	"github.com/palemoky/stone-rolling/internal/game/room"
)

var (
	// ErrUnknownPlayer 投掷者不在房间中
	ErrUnknownPlayer = errors.New("player not in room")
	// ErrRolledTwice 投掷者已经投掷过
	ErrRolledTwice = errors.New("player already rolled")
)

// Resolver 投掷结算器，不修改房间
type Resolver struct {
	mu  sync.Mutex
	src rand.Source
}

// NewResolver 创建结算器，src 为 nil 时使用 crypto/rand 播种的 ChaCha8
func NewResolver(src rand.Source) *Resolver {
	if src == nil {
		var seed [32]byte
		_, _ = crand.Read(seed[:])
		src = rand.NewChaCha8(seed)
	}
	return &Resolver{src: src}
}

// Roll 为房间中的玩家抽取一个石头值
//
// 房间状态由调用方检查；玩家不存在或已投掷属于不变量被破坏。
func (r *Resolver) Roll(rm *room.Room, userID string) (Outcome, error) {
	p := rm.Player(userID)
	if p == nil {
		return Outcome{}, apperrors.Invariant(fmt.Errorf("%w: %s in room %s", ErrUnknownPlayer, userID, rm.ID))
	}
	if p.HasRolled {
		return Outcome{}, apperrors.Invariant(fmt.Errorf("%w: %s in room %s", ErrRolledTwice, userID, rm.ID))
	}

	r.mu.Lock()
	n := r.src.Uint64()
	r.mu.Unlock()

	// 2^64 对面板长度取模的偏差可以忽略
	return OutcomeOf(board[n%uint64(len(board))]), nil
}
