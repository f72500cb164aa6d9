//go:build !production

package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/palemoky/stone-rolling/internal/ledger"
)

// FaultyLedger 包装内存账本，幂等键包含指定片段的调用返回预设错误
type FaultyLedger struct {
	*ledger.MemoryLedger

	mu     sync.Mutex
	faults map[string]error
	calls  []string
}

// NewFaultyLedger 创建可注入故障的账本
func NewFaultyLedger(initialBalance int64) *FaultyLedger {
	return &FaultyLedger{
		MemoryLedger: ledger.NewMemoryLedger(initialBalance),
		faults:       make(map[string]error),
	}
}

// FailOn 键包含 fragment 的调用返回 err
func (f *FaultyLedger) FailOn(fragment string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faults[fragment] = err
}

// Heal 移除故障
func (f *FaultyLedger) Heal(fragment string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.faults, fragment)
}

// Calls 所有调用过的幂等键（含失败的调用）
func (f *FaultyLedger) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *FaultyLedger) fault(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, key)
	for fragment, err := range f.faults {
		if strings.Contains(key, fragment) {
			return err
		}
	}
	return nil
}

func (f *FaultyLedger) Debit(ctx context.Context, userID string, amount int64, key string) error {
	if err := f.fault(key); err != nil {
		return err
	}
	return f.MemoryLedger.Debit(ctx, userID, amount, key)
}

func (f *FaultyLedger) Credit(ctx context.Context, userID string, amount int64, key string) error {
	if err := f.fault(key); err != nil {
		return err
	}
	return f.MemoryLedger.Credit(ctx, userID, amount, key)
}
