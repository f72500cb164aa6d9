package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS balances (
	user_id TEXT PRIMARY KEY,
	amount  INTEGER NOT NULL CHECK (amount >= 0)
);
CREATE TABLE IF NOT EXISTS ledger_entries (
	idempotency_key TEXT PRIMARY KEY,
	user_id         TEXT NOT NULL,
	delta           INTEGER NOT NULL,
	created_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_ledger_entries_user ON ledger_entries(user_id);
`

// SQLiteLedger 基于 SQLite 的账本，幂等键由主键约束保证唯一
type SQLiteLedger struct {
	db             *sql.DB
	initialBalance int64
}

// OpenSQLite 打开（必要时创建）SQLite 账本
func OpenSQLite(path string, initialBalance int64) (*SQLiteLedger, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create ledger dir: %w", err)
			}
		}
	}

	// WAL + busy timeout，写事务立即加锁避免升级死锁
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("open ledger db: %w", err)
	}
	// SQLite 单写者
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate ledger db: %w", err)
	}
	return &SQLiteLedger{db: db, initialBalance: initialBalance}, nil
}

// Close 关闭数据库
func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}

// Balance 查询余额
func (l *SQLiteLedger) Balance(ctx context.Context, userID string) (int64, error) {
	var amount int64
	err := l.db.QueryRowContext(ctx, `SELECT amount FROM balances WHERE user_id = ?`, userID).Scan(&amount)
	if errors.Is(err, sql.ErrNoRows) {
		return l.initialBalance, nil
	}
	if err != nil {
		return 0, unavailable("balance", err)
	}
	return amount, nil
}

// Deposit 充值
func (l *SQLiteLedger) Deposit(ctx context.Context, userID string, amount int64) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO balances (user_id, amount) VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET amount = amount + ?`,
		userID, l.initialBalance+amount, amount)
	if err != nil {
		return unavailable("deposit", err)
	}
	return nil
}

// Debit 扣款
func (l *SQLiteLedger) Debit(ctx context.Context, userID string, amount int64, key string) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	return l.apply(ctx, key, entry{UserID: userID, Delta: -amount})
}

// Credit 入账
func (l *SQLiteLedger) Credit(ctx context.Context, userID string, amount int64, key string) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	return l.apply(ctx, key, entry{UserID: userID, Delta: amount})
}

func (l *SQLiteLedger) apply(ctx context.Context, key string, e entry) (err error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("begin", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var prev entry
	err = tx.QueryRowContext(ctx,
		`SELECT user_id, delta FROM ledger_entries WHERE idempotency_key = ?`, key,
	).Scan(&prev.UserID, &prev.Delta)
	switch {
	case err == nil:
		if prev != e {
			return conflict(key)
		}
		// 重复提交，直接结束事务
		if cerr := tx.Commit(); cerr != nil {
			return unavailable("commit", cerr)
		}
		return nil
	case !errors.Is(err, sql.ErrNoRows):
		return unavailable("lookup", err)
	}

	balance := l.initialBalance
	err = tx.QueryRowContext(ctx, `SELECT amount FROM balances WHERE user_id = ?`, e.UserID).Scan(&balance)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return unavailable("balance", err)
	}
	if balance+e.Delta < 0 {
		return ErrInsufficientFunds
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO balances (user_id, amount) VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET amount = excluded.amount`,
		e.UserID, balance+e.Delta); err != nil {
		return unavailable("update balance", err)
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO ledger_entries (idempotency_key, user_id, delta, created_at) VALUES (?, ?, ?, ?)`,
		key, e.UserID, e.Delta, time.Now().Unix()); err != nil {
		return unavailable("insert entry", err)
	}
	if err = tx.Commit(); err != nil {
		return unavailable("commit", err)
	}
	return nil
}
