package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/palemoky/stone-rolling/internal/logger"
)

const maxRetryBackoff = 5 * time.Second

// RetryLedger 在账本暂时不可用时按指数退避重试
//
// 幂等键保证重试不会重复记账；余额不足和冲突不会重试。
type RetryLedger struct {
	next     Ledger
	attempts int
	backoff  time.Duration
}

// NewRetryLedger 包装一个账本，attempts 为总尝试次数
func NewRetryLedger(next Ledger, attempts int, backoff time.Duration) *RetryLedger {
	if attempts < 1 {
		attempts = 1
	}
	return &RetryLedger{next: next, attempts: attempts, backoff: backoff}
}

// Debit 扣款
func (l *RetryLedger) Debit(ctx context.Context, userID string, amount int64, key string) error {
	return l.do(ctx, "debit", key, func() error {
		return l.next.Debit(ctx, userID, amount, key)
	})
}

// Credit 入账
func (l *RetryLedger) Credit(ctx context.Context, userID string, amount int64, key string) error {
	return l.do(ctx, "credit", key, func() error {
		return l.next.Credit(ctx, userID, amount, key)
	})
}

func (l *RetryLedger) do(ctx context.Context, op, key string, fn func() error) error {
	backoff := l.backoff
	var err error
	for attempt := 1; attempt <= l.attempts; attempt++ {
		err = fn()
		if err == nil || !errors.Is(err, ErrUnavailable) {
			return err
		}
		if attempt == l.attempts {
			break
		}

		logger.L().Warn().Err(err).
			Str("op", op).
			Str("key", key).
			Int("attempt", attempt).
			Msg("⚠️ 账本不可用，稍后重试")

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
		backoff *= 2
		if backoff > maxRetryBackoff {
			backoff = maxRetryBackoff
		}
	}
	return err
}
