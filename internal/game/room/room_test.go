package room

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestRoom_AddRemovePlayer(t *testing.T) {
	t.Parallel()

	r := &Room{ID: "r1", MaxPlayers: 3}
	now := time.Now()

	a := r.AddPlayer("alice", now)
	b := r.AddPlayer("bob", now)
	assert.Equal(t, 0, a.TurnOrder)
	assert.Equal(t, 1, b.TurnOrder)
	assert.Equal(t, 1, a.JoinSeq)

	require.True(t, r.RemovePlayer("alice"))
	assert.False(t, r.RemovePlayer("alice"))
	assert.Equal(t, 2, r.NextJoinSeq("alice"))

	// turn order keeps increasing after a leave
	again := r.AddPlayer("alice", now)
	assert.Equal(t, 2, again.TurnOrder)
	assert.Equal(t, 2, again.JoinSeq)
	assert.Equal(t, []string{"bob", "alice"}, []string{r.Players[0].UserID, r.Players[1].UserID})
}

func TestRoom_CloneIsDeep(t *testing.T) {
	t.Parallel()

	ended := time.Now()
	r := &Room{
		ID:            "r1",
		MaxPlayers:    2,
		Players:       []*Player{{UserID: "alice", HasRolled: true, RolledValue: intPtr(40)}},
		JoinCounts:    map[string]int{"alice": 1},
		WinningValue:  intPtr(40),
		WinnerUserIDs: []string{"alice"},
		EndedAt:       &ended,
	}

	c := r.Clone()
	*c.Players[0].RolledValue = 1000
	c.Players[0].IsWinner = true
	c.JoinCounts["alice"] = 5
	*c.WinningValue = 1000
	c.WinnerUserIDs[0] = "mallory"

	assert.Equal(t, 40, *r.Players[0].RolledValue)
	assert.False(t, r.Players[0].IsWinner)
	assert.Equal(t, 1, r.JoinCounts["alice"])
	assert.Equal(t, 40, *r.WinningValue)
	assert.Equal(t, "alice", r.WinnerUserIDs[0])
}

func TestRoom_AllRolled(t *testing.T) {
	t.Parallel()

	r := &Room{}
	assert.False(t, r.AllRolled(), "an empty room never counts as all rolled")

	r.Players = []*Player{{UserID: "a", HasRolled: true, RolledValue: intPtr(3)}, {UserID: "b"}}
	assert.False(t, r.AllRolled())

	r.Players[1].HasRolled = true
	r.Players[1].RolledValue = intPtr(6)
	assert.True(t, r.AllRolled())
}

func TestRoom_Transition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from, to Status
		ok       bool
	}{
		{StatusWaiting, StatusInProgress, true},
		{StatusWaiting, StatusCancelled, true},
		{StatusWaiting, StatusCompleted, false},
		{StatusInProgress, StatusCompleted, true},
		{StatusInProgress, StatusWaiting, false},
		{StatusInProgress, StatusCancelled, false},
		{StatusCompleted, StatusWaiting, false},
		{StatusCancelled, StatusInProgress, false},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			r := &Room{Status: tt.from}
			err := r.Transition(tt.to, time.Now())
			if !tt.ok {
				assert.ErrorIs(t, err, ErrIllegalTransition)
				assert.Equal(t, tt.from, r.Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.to, r.Status)
			assert.Equal(t, tt.to.Terminal(), r.EndedAt != nil)
		})
	}
}

func TestRoom_Validate(t *testing.T) {
	t.Parallel()

	r := &Room{ID: "r1", MaxPlayers: 1, Players: []*Player{{UserID: "a"}, {UserID: "b"}}}
	assert.Error(t, r.Validate(), "over capacity")

	r = &Room{ID: "r1", MaxPlayers: 3, Players: []*Player{{UserID: "a"}, {UserID: "a"}}}
	assert.Error(t, r.Validate(), "duplicate user")

	r = &Room{ID: "r1", MaxPlayers: 3, Status: StatusCompleted}
	assert.Error(t, r.Validate(), "completed without winner")

	r = &Room{ID: "r1", MaxPlayers: 3, Players: []*Player{{UserID: "a", HasRolled: true}}}
	assert.Error(t, r.Validate(), "rolled without value")

	r = &Room{ID: "r1", MaxPlayers: 3, Players: []*Player{{UserID: "a"}}}
	assert.NoError(t, r.Validate())
}

func TestRoom_ToInfo(t *testing.T) {
	t.Parallel()

	created := time.UnixMilli(1_700_000_000_000)
	r := &Room{
		ID:          "r1",
		OwnerUserID: "alice",
		Status:      StatusInProgress,
		Stake:       1000,
		MinPlayers:  2,
		MaxPlayers:  2,
		Players: []*Player{
			{UserID: "alice", TurnOrder: 0, HasRolled: true, RolledValue: intPtr(500)},
			{UserID: "bob", TurnOrder: 1},
		},
		CreatedAt: created,
	}

	info := r.ToInfo()
	assert.Equal(t, "in_progress", info.Status)
	assert.Equal(t, created.UnixMilli(), info.CreatedAt)
	assert.Zero(t, info.EndedAt)
	require.Len(t, info.Players, 2)
	assert.Equal(t, 500, *info.Players[0].RolledValue)
	assert.Nil(t, info.Players[1].RolledValue)

	item := r.ToListItem()
	assert.Equal(t, 2, item.PlayerCount)
	assert.Equal(t, int64(1000), item.Stake)
}
