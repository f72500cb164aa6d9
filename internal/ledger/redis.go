package ledger

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	balanceKeyPrefix = "ledger:balance:"
	txKeyPrefix      = "ledger:tx:"

	// 幂等键保留时间，必须远大于结算重试窗口
	txExpiration = 7 * 24 * time.Hour
)

// applyScript 原子地检查幂等键、校验余额并记账
//
// KEYS[1] 余额键，KEYS[2] 幂等键
// ARGV[1] 变动金额，ARGV[2] 流水指纹，ARGV[3] 幂等键过期秒数，ARGV[4] 开户余额
// 返回 0 已记账，1 重复提交，-1 余额不足，-2 幂等键冲突
var applyScript = redis.NewScript(`
local prev = redis.call('GET', KEYS[2])
if prev then
	if prev == ARGV[2] then
		return 1
	end
	return -2
end
local raw = redis.call('GET', KEYS[1])
if not raw then
	redis.call('SET', KEYS[1], ARGV[4])
	raw = ARGV[4]
end
if tonumber(raw) + tonumber(ARGV[1]) < 0 then
	return -1
end
redis.call('INCRBY', KEYS[1], ARGV[1])
redis.call('SET', KEYS[2], ARGV[2], 'EX', tonumber(ARGV[3]))
return 0
`)

// RedisLedger 基于 Redis 的账本
type RedisLedger struct {
	client         *redis.Client
	initialBalance int64
}

// NewRedisLedger 创建 Redis 账本
func NewRedisLedger(client *redis.Client, initialBalance int64) *RedisLedger {
	return &RedisLedger{client: client, initialBalance: initialBalance}
}

// Balance 查询余额
func (l *RedisLedger) Balance(ctx context.Context, userID string) (int64, error) {
	balance, err := l.client.Get(ctx, balanceKeyPrefix+userID).Int64()
	if errors.Is(err, redis.Nil) {
		return l.initialBalance, nil
	}
	if err != nil {
		return 0, unavailable("balance", err)
	}
	return balance, nil
}

// Deposit 充值
func (l *RedisLedger) Deposit(ctx context.Context, userID string, amount int64) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	key := balanceKeyPrefix + userID
	// 先按开户余额初始化，再累加
	if err := l.client.SetNX(ctx, key, l.initialBalance, 0).Err(); err != nil {
		return unavailable("deposit", err)
	}
	if err := l.client.IncrBy(ctx, key, amount).Err(); err != nil {
		return unavailable("deposit", err)
	}
	return nil
}

// Debit 扣款
func (l *RedisLedger) Debit(ctx context.Context, userID string, amount int64, key string) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	return l.apply(ctx, key, entry{UserID: userID, Delta: -amount})
}

// Credit 入账
func (l *RedisLedger) Credit(ctx context.Context, userID string, amount int64, key string) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	return l.apply(ctx, key, entry{UserID: userID, Delta: amount})
}

func (l *RedisLedger) apply(ctx context.Context, key string, e entry) error {
	keys := []string{balanceKeyPrefix + e.UserID, txKeyPrefix + key}
	result, err := applyScript.Run(ctx, l.client, keys,
		strconv.FormatInt(e.Delta, 10),
		e.fingerprint(),
		int64(txExpiration/time.Second),
		strconv.FormatInt(l.initialBalance, 10),
	).Int()
	if err != nil {
		return unavailable("apply", err)
	}

	switch result {
	case 0, 1:
		return nil
	case -1:
		return ErrInsufficientFunds
	default:
		return conflict(key)
	}
}
