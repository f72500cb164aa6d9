package ledger

import (
	"context"
	"sync"
)

// MemoryLedger 内存账本，用于开发和测试
type MemoryLedger struct {
	mu             sync.Mutex
	initialBalance int64
	balances       map[string]int64
	applied        map[string]entry
	journal        []Entry
}

// Entry 已生效的一条流水
type Entry struct {
	Key    string
	UserID string
	Delta  int64
}

// NewMemoryLedger 创建内存账本，未见过的用户以 initialBalance 开户
func NewMemoryLedger(initialBalance int64) *MemoryLedger {
	return &MemoryLedger{
		initialBalance: initialBalance,
		balances:       make(map[string]int64),
		applied:        make(map[string]entry),
	}
}

// SetBalance 直接设置余额（测试用）
func (l *MemoryLedger) SetBalance(userID string, balance int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[userID] = balance
}

func (l *MemoryLedger) balanceLocked(userID string) int64 {
	balance, ok := l.balances[userID]
	if !ok {
		return l.initialBalance
	}
	return balance
}

// Balance 查询余额
func (l *MemoryLedger) Balance(_ context.Context, userID string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balanceLocked(userID), nil
}

// Deposit 充值，不记幂等键
func (l *MemoryLedger) Deposit(_ context.Context, userID string, amount int64) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[userID] = l.balanceLocked(userID) + amount
	return nil
}

// Debit 扣款
func (l *MemoryLedger) Debit(_ context.Context, userID string, amount int64, key string) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	return l.apply(key, entry{UserID: userID, Delta: -amount})
}

// Credit 入账
func (l *MemoryLedger) Credit(_ context.Context, userID string, amount int64, key string) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	return l.apply(key, entry{UserID: userID, Delta: amount})
}

func (l *MemoryLedger) apply(key string, e entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if prev, ok := l.applied[key]; ok {
		if prev != e {
			return conflict(key)
		}
		return nil
	}

	balance := l.balanceLocked(e.UserID)
	if balance+e.Delta < 0 {
		return ErrInsufficientFunds
	}
	l.balances[e.UserID] = balance + e.Delta
	l.applied[key] = e
	l.journal = append(l.journal, Entry{Key: key, UserID: e.UserID, Delta: e.Delta})
	return nil
}

// Entries 返回已生效流水的副本，按生效顺序
func (l *MemoryLedger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.journal))
	copy(out, l.journal)
	return out
}

// Net 返回某用户所有流水的净额
func (l *MemoryLedger) Net(userID string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	var sum int64
	for _, e := range l.journal {
		if e.UserID == userID {
			sum += e.Delta
		}
	}
	return sum
}
