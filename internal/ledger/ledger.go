// Package ledger 钱包账本：房间在加入时扣除押注，离开、取消和结算时入账。
//
// 所有操作都带幂等键，同一个键重复提交只生效一次，因此调用方可以在失败后安全重试。
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/palemoky/stone-rolling/internal/apperrors"
)

// Ledger 房间协调器依赖的钱包接口
type Ledger interface {
	// Debit 从用户余额扣除 amount，余额不足返回 ErrInsufficientFunds
	Debit(ctx context.Context, userID string, amount int64, key string) error
	// Credit 向用户余额增加 amount
	Credit(ctx context.Context, userID string, amount int64, key string) error
}

// Account 可查询余额、可充值的账本实现
type Account interface {
	Ledger
	Balance(ctx context.Context, userID string) (int64, error)
	Deposit(ctx context.Context, userID string, amount int64) error
}

var (
	ErrInsufficientFunds = apperrors.ErrInsufficientFunds
	ErrUnavailable       = apperrors.ErrLedgerUnavailable
	// ErrKeyConflict 同一个幂等键被用于不同的用户或金额
	ErrKeyConflict = errors.New("idempotency key reused with different entry")
	// ErrInvalidAmount 金额必须为正数
	ErrInvalidAmount = errors.New("amount must be positive")
)

// unavailable 把底层存储错误包装成 ErrUnavailable，保留原因用于日志
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}

// conflict 幂等键冲突属于调用方的程序缺陷
func conflict(key string) error {
	return apperrors.Invariant(fmt.Errorf("%w: %s", ErrKeyConflict, key))
}

func checkAmount(amount int64) error {
	if amount <= 0 {
		return apperrors.Invariant(fmt.Errorf("%w: %d", ErrInvalidAmount, amount))
	}
	return nil
}

// entry 账本流水，delta 为负表示扣款
type entry struct {
	UserID string
	Delta  int64
}

func (e entry) fingerprint() string {
	return fmt.Sprintf("%s|%d", e.UserID, e.Delta)
}
