package room

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// Player 房间中的玩家
type Player struct {
	UserID      string    `json:"user_id"`
	TurnOrder   int       `json:"turn_order"`
	JoinSeq     int       `json:"join_seq"`
	JoinedAt    time.Time `json:"joined_at"`
	HasRolled   bool      `json:"has_rolled"`
	RolledValue *int      `json:"rolled_value,omitempty"`
	IsSpecial   bool      `json:"is_special"`
	IsSuper     bool      `json:"is_super"`
	IsWinner    bool      `json:"is_winner"`
	WinShare    int64     `json:"win_share"`
	Refunded    bool      `json:"refunded"`
}

// Room 游戏房间
type Room struct {
	ID            string         `json:"id"`
	OwnerUserID   string         `json:"owner_user_id"`
	Status        Status         `json:"status"`
	Stake         int64          `json:"stake"`
	MinPlayers    int            `json:"min_players"`
	MaxPlayers    int            `json:"max_players"`
	Players       []*Player      `json:"players"`
	NextTurnOrder int            `json:"next_turn_order"`
	JoinCounts    map[string]int `json:"join_counts"`
	WinningValue  *int           `json:"winning_value,omitempty"`
	WinnerUserIDs []string       `json:"winner_user_ids"`
	Pot           int64          `json:"pot"`
	Commission    int64          `json:"commission"`
	// SettlementPending 最后一次投掷或取消已提交，但还有入账未成功
	SettlementPending bool       `json:"settlement_pending"`
	CreatedAt         time.Time  `json:"created_at"`
	EndedAt           *time.Time `json:"ended_at,omitempty"`
}

// Clone 深拷贝
func (r *Room) Clone() *Room {
	if r == nil {
		return nil
	}
	c := *r
	c.Players = make([]*Player, len(r.Players))
	for i, p := range r.Players {
		cp := *p
		if p.RolledValue != nil {
			v := *p.RolledValue
			cp.RolledValue = &v
		}
		c.Players[i] = &cp
	}
	c.JoinCounts = make(map[string]int, len(r.JoinCounts))
	for k, v := range r.JoinCounts {
		c.JoinCounts[k] = v
	}
	if r.WinningValue != nil {
		v := *r.WinningValue
		c.WinningValue = &v
	}
	c.WinnerUserIDs = slices.Clone(r.WinnerUserIDs)
	if r.EndedAt != nil {
		t := *r.EndedAt
		c.EndedAt = &t
	}
	return &c
}

// Player 按用户查找玩家
func (r *Room) Player(userID string) *Player {
	for _, p := range r.Players {
		if p.UserID == userID {
			return p
		}
	}
	return nil
}

// HasPlayer 用户是否在房间中
func (r *Room) HasPlayer(userID string) bool {
	return r.Player(userID) != nil
}

// IsFull 房间是否已满
func (r *Room) IsFull() bool {
	return len(r.Players) >= r.MaxPlayers
}

// AllRolled 所有玩家是否都已投掷
func (r *Room) AllRolled() bool {
	if len(r.Players) == 0 {
		return false
	}
	for _, p := range r.Players {
		if !p.HasRolled {
			return false
		}
	}
	return true
}

// AddPlayer 追加玩家并分配投掷顺序
func (r *Room) AddPlayer(userID string, now time.Time) *Player {
	if r.JoinCounts == nil {
		r.JoinCounts = make(map[string]int)
	}
	r.JoinCounts[userID]++
	p := &Player{
		UserID:    userID,
		TurnOrder: r.NextTurnOrder,
		JoinSeq:   r.JoinCounts[userID],
		JoinedAt:  now,
	}
	r.NextTurnOrder++
	r.Players = append(r.Players, p)
	return p
}

// NextJoinSeq 用户下一次加入时的序号
func (r *Room) NextJoinSeq(userID string) int {
	return r.JoinCounts[userID] + 1
}

// RemovePlayer 移除玩家，保持其余玩家顺序
func (r *Room) RemovePlayer(userID string) bool {
	for i, p := range r.Players {
		if p.UserID == userID {
			r.Players = slices.Delete(r.Players, i, i+1)
			return true
		}
	}
	return false
}

// Transition 推进房间状态，终止状态会记录结束时间
func (r *Room) Transition(to Status, now time.Time) error {
	if !r.Status.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, r.Status, to)
	}
	r.Status = to
	if to.Terminal() {
		r.EndedAt = &now
	}
	return nil
}

// ErrIllegalTransition 非法状态转换
var ErrIllegalTransition = errors.New("illegal room status transition")

// Validate 检查房间不变量
func (r *Room) Validate() error {
	if len(r.Players) > r.MaxPlayers {
		return fmt.Errorf("room %s has %d players, max %d", r.ID, len(r.Players), r.MaxPlayers)
	}
	seen := make(map[string]struct{}, len(r.Players))
	for _, p := range r.Players {
		if _, dup := seen[p.UserID]; dup {
			return fmt.Errorf("room %s has duplicate player %s", r.ID, p.UserID)
		}
		seen[p.UserID] = struct{}{}
		if p.HasRolled != (p.RolledValue != nil) {
			return fmt.Errorf("room %s player %s roll state inconsistent", r.ID, p.UserID)
		}
	}
	if r.Status == StatusCompleted && (r.WinningValue == nil || r.EndedAt == nil) {
		return fmt.Errorf("room %s completed without winning value or end time", r.ID)
	}
	return nil
}
