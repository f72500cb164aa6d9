//go:build !production

package stone

import (
	"fmt"
	"slices"
)

// Sequence 按顺序返回预设面板下标的随机源，用完后从头循环
type Sequence struct {
	indexes []uint64
	next    int
}

// Uint64 返回下一个下标
func (s *Sequence) Uint64() uint64 {
	v := s.indexes[s.next%len(s.indexes)]
	s.next++
	return v
}

// NewSequence 构造让 Roll 依次产出 values 的随机源
func NewSequence(values ...int) *Sequence {
	if len(values) == 0 {
		panic("stone: empty sequence")
	}
	s := &Sequence{indexes: make([]uint64, len(values))}
	for i, v := range values {
		idx := slices.Index(board[:], v)
		if idx < 0 {
			panic(fmt.Sprintf("stone: %d is not on the board", v))
		}
		s.indexes[i] = uint64(idx)
	}
	return s
}
