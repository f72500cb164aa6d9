// Package stone 掷石头：从固定的石头面板中等概率抽取一个值。
package stone

import (
	"slices"
)

// board 石头面板，包含重复值
var board = [...]int{
	3, 3, 6, 6, 10, 20, 40, 40, 60, 80, 100, 150, 200, 300,
	500, 1000, // special
	3355, 6624, // super
}

// Board 返回石头面板的副本
func Board() []int {
	return slices.Clone(board[:])
}

// Tier 石头档位，决定赔率倍数
type Tier int

const (
	TierNormal Tier = iota
	TierSpecial
	TierSuper
)

func (t Tier) String() string {
	switch t {
	case TierSpecial:
		return "special"
	case TierSuper:
		return "super"
	default:
		return "normal"
	}
}

// TierOf 返回石头值所属档位
func TierOf(value int) Tier {
	switch value {
	case 500, 1000:
		return TierSpecial
	case 3355, 6624:
		return TierSuper
	default:
		return TierNormal
	}
}

// Outcome 一次投掷的结果
type Outcome struct {
	Value     int
	IsSpecial bool
	IsSuper   bool
}

// OutcomeOf 根据石头值构造结果
func OutcomeOf(value int) Outcome {
	tier := TierOf(value)
	return Outcome{
		Value:     value,
		IsSpecial: tier == TierSpecial,
		IsSuper:   tier == TierSuper,
	}
}

// Tier 结果所属档位
func (o Outcome) Tier() Tier {
	return TierOf(o.Value)
}
