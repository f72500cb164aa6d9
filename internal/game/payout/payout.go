// Package payout 计算对局结算：赢家、奖池、抽成和每位赢家的份额。
//
// 金额均为最小货币单位的整数。份额向下取整，除不尽的余数归平台。
package payout

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/palemoky/stone-rolling/internal/game/stone"
)

const bpsDenominator = 10_000

var (
	// ErrNoRolls 没有任何投掷结果
	ErrNoRolls = errors.New("no rolled values")
	// ErrOverflow 金额超出 int64 范围
	ErrOverflow = errors.New("payout overflows int64")
)

// Config 赔率配置
type Config struct {
	SpecialMultiplier int64 // 500/1000 的倍数
	SuperMultiplier   int64 // 3355/6624 在 special 基础上的再乘倍数
	CommissionBps     int64 // 抽成，万分比
}

// Roll 一个玩家的投掷结果
type Roll struct {
	UserID string
	Value  int
}

// Share 一位赢家的所得
type Share struct {
	UserID string
	Amount int64
}

// Result 结算结果
type Result struct {
	WinningValue int
	Tier         stone.Tier
	Multiplier   int64
	Pot          int64 // 押注总额
	Gross        int64 // 倍率放大后的总奖金
	Commission   int64
	Net          int64 // 扣除抽成后分给赢家的总额（含余数）
	Remainder    int64 // 平分后剩余，归平台
	Shares       []Share
}

// WinnerIDs 按投掷顺序返回赢家
func (r Result) WinnerIDs() []string {
	ids := make([]string, len(r.Shares))
	for i, s := range r.Shares {
		ids[i] = s.UserID
	}
	return ids
}

// ShareOf 返回某用户的份额，非赢家为 0
func (r Result) ShareOf(userID string) int64 {
	for _, s := range r.Shares {
		if s.UserID == userID {
			return s.Amount
		}
	}
	return 0
}

// Multiplier 返回档位对应的倍数
func (c Config) Multiplier(tier stone.Tier) int64 {
	switch tier {
	case stone.TierSpecial:
		return c.SpecialMultiplier
	case stone.TierSuper:
		return c.SpecialMultiplier * c.SuperMultiplier
	default:
		return 1
	}
}

// Compute 根据押注和所有投掷结果计算结算
func Compute(cfg Config, stake int64, rolls []Roll) (Result, error) {
	if len(rolls) == 0 {
		return Result{}, ErrNoRolls
	}

	winning := slices.MaxFunc(rolls, func(a, b Roll) int { return a.Value - b.Value }).Value
	tier := stone.TierOf(winning)

	res := Result{
		WinningValue: winning,
		Tier:         tier,
		Multiplier:   cfg.Multiplier(tier),
	}

	var err error
	if res.Pot, err = mul(stake, int64(len(rolls))); err != nil {
		return Result{}, err
	}
	if res.Gross, err = mul(res.Pot, res.Multiplier); err != nil {
		return Result{}, err
	}
	commission, err := mul(res.Gross, cfg.CommissionBps)
	if err != nil {
		return Result{}, err
	}
	res.Commission = commission / bpsDenominator
	res.Net = res.Gross - res.Commission

	for _, r := range rolls {
		if r.Value == winning {
			res.Shares = append(res.Shares, Share{UserID: r.UserID})
		}
	}
	each := res.Net / int64(len(res.Shares))
	for i := range res.Shares {
		res.Shares[i].Amount = each
	}
	res.Remainder = res.Net - each*int64(len(res.Shares))
	return res, nil
}

func mul(a, b int64) (int64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	if a < 0 || b < 0 || a > math.MaxInt64/b {
		return 0, fmt.Errorf("%w: %d * %d", ErrOverflow, a, b)
	}
	return a * b, nil
}
