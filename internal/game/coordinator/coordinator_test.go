package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/stone-rolling/internal/apperrors"
	"github.com/palemoky/stone-rolling/internal/game/payout"
	"github.com/palemoky/stone-rolling/internal/game/room"
	"github.com/palemoky/stone-rolling/internal/game/stone"
	"github.com/palemoky/stone-rolling/internal/ledger"
	"github.com/palemoky/stone-rolling/internal/protocol"
	"github.com/palemoky/stone-rolling/internal/testutil"
)

const initialBalance = 10_000

var errLedgerDown = fmt.Errorf("connection refused: %w", ledger.ErrUnavailable)

func testConfig() Config {
	return Config{
		MinStake:          1,
		MaxStake:          1_000_000,
		MinPlayers:        2,
		MaxPlayersLimit:   10,
		DefaultMaxPlayers: 2,
		Payout:            payout.Config{SpecialMultiplier: 2, SuperMultiplier: 3, CommissionBps: 500},
		RoomTimeout:       10 * time.Minute,
		FinishedRoomTTL:   30 * time.Minute,
	}
}

type fixture struct {
	c       *Coordinator
	store   *room.Store
	ledger  *testutil.FaultyLedger
	events  *testutil.EventRecorder
	results *testutil.ResultSink
}

// newFixture builds a coordinator whose rolls follow values in order.
func newFixture(t *testing.T, cfg Config, values ...int) *fixture {
	t.Helper()
	var roller Roller
	if len(values) > 0 {
		roller = stone.NewResolver(stone.NewSequence(values...))
	}
	f := &fixture{
		store:   room.NewStore(nil),
		ledger:  testutil.NewFaultyLedger(initialBalance),
		events:  &testutil.EventRecorder{},
		results: &testutil.ResultSink{},
	}
	f.c = New(cfg, Deps{Store: f.store, Ledger: f.ledger, Roller: roller, Publisher: f.events, Results: f.results})
	return f
}

func (f *fixture) balance(t *testing.T, userID string) int64 {
	t.Helper()
	b, err := f.ledger.Balance(context.Background(), userID)
	require.NoError(t, err)
	return b
}

// roomWith creates a room owned by the first user and joins every user.
func (f *fixture) roomWith(t *testing.T, stake int64, maxPlayers int, users ...string) *room.Room {
	t.Helper()
	ctx := context.Background()
	r, err := f.c.CreateRoom(ctx, users[0], stake, maxPlayers)
	require.NoError(t, err)
	for _, u := range users {
		r, err = f.c.Join(ctx, r.ID, u)
		require.NoError(t, err)
	}
	return r
}

func TestCreateRoom_Validation(t *testing.T) {
	t.Parallel()
	f := newFixture(t, testConfig())
	ctx := context.Background()

	tests := []struct {
		name       string
		stake      int64
		maxPlayers int
		wantErr    error
	}{
		{"zero stake", 0, 2, apperrors.ErrInvalidStake},
		{"negative stake", -5, 2, apperrors.ErrInvalidStake},
		{"stake above max", 1_000_001, 2, apperrors.ErrInvalidStake},
		{"one player", 100, 1, apperrors.ErrInvalidMaxPlayers},
		{"too many players", 100, 11, apperrors.ErrInvalidMaxPlayers},
		{"ok", 100, 10, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := f.c.CreateRoom(ctx, "alice", tt.stake, tt.maxPlayers)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, room.StatusWaiting, r.Status)
		})
	}

	r, err := f.c.CreateRoom(ctx, "alice", 100, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, r.MaxPlayers, "zero max players uses the default")
	assert.Equal(t, 2, r.MinPlayers)
	assert.Equal(t, int64(initialBalance), f.balance(t, "alice"), "creation debits nothing")
}

func TestJoin_EscrowsStake(t *testing.T) {
	t.Parallel()
	f := newFixture(t, testConfig())

	r := f.roomWith(t, 1000, 3, "alice", "bob")

	require.Len(t, r.Players, 2)
	assert.Equal(t, 0, r.Players[0].TurnOrder)
	assert.Equal(t, 1, r.Players[1].TurnOrder)
	assert.Equal(t, int64(initialBalance-1000), f.balance(t, "alice"))
	assert.Equal(t, int64(initialBalance-1000), f.balance(t, "bob"))
	assert.Equal(t, []protocol.MessageType{protocol.MsgPlayerJoined, protocol.MsgPlayerJoined}, f.events.Types(r.ID))
	assert.Contains(t, f.ledger.Calls(), r.ID+":alice:join:1")
}

func TestJoin_Rejections(t *testing.T) {
	t.Parallel()
	f := newFixture(t, testConfig())
	ctx := context.Background()

	_, err := f.c.Join(ctx, "missing", "alice")
	assert.ErrorIs(t, err, apperrors.ErrRoomNotFound)

	r := f.roomWith(t, 1000, 2, "alice")
	_, err = f.c.Join(ctx, r.ID, "alice")
	assert.ErrorIs(t, err, apperrors.ErrAlreadyJoined)

	_, err = f.c.Join(ctx, r.ID, "bob")
	require.NoError(t, err)
	_, err = f.c.Join(ctx, r.ID, "carol")
	assert.ErrorIs(t, err, apperrors.ErrRoomFull)

	_, err = f.c.Start(ctx, r.ID, "alice")
	require.NoError(t, err)
	_, err = f.c.Join(ctx, r.ID, "carol")
	assert.ErrorIs(t, err, apperrors.ErrRoomAlreadyStarted)

	assert.Equal(t, int64(initialBalance), f.balance(t, "carol"), "rejected joins never debit")
}

func TestJoin_InsufficientFundsChangesNothing(t *testing.T) {
	t.Parallel()
	f := newFixture(t, testConfig())
	ctx := context.Background()
	r := f.roomWith(t, 1000, 3, "alice")
	f.ledger.SetBalance("poor", 999)
	f.events.Reset()

	_, err := f.c.Join(ctx, r.ID, "poor")
	assert.ErrorIs(t, err, apperrors.ErrInsufficientFunds)
	assert.Equal(t, apperrors.KindResource, apperrors.KindOf(err))

	snap, err := f.c.Snapshot(r.ID)
	require.NoError(t, err)
	assert.Equal(t, r, snap)
	assert.Empty(t, f.events.Types(r.ID))
	assert.Equal(t, int64(999), f.balance(t, "poor"))
}

func TestJoin_RetryAfterLedgerOutageReusesKey(t *testing.T) {
	t.Parallel()
	f := newFixture(t, testConfig())
	ctx := context.Background()
	r := f.roomWith(t, 1000, 3, "alice")

	f.ledger.FailOn(":bob:join", errLedgerDown)
	_, err := f.c.Join(ctx, r.ID, "bob")
	assert.ErrorIs(t, err, apperrors.ErrLedgerUnavailable)

	snap, _ := f.c.Snapshot(r.ID)
	assert.False(t, snap.HasPlayer("bob"))

	f.ledger.Heal(":bob:join")
	_, err = f.c.Join(ctx, r.ID, "bob")
	require.NoError(t, err)

	key := r.ID + ":bob:join:1"
	count := 0
	for _, k := range f.ledger.Calls() {
		if k == key {
			count++
		}
	}
	assert.Equal(t, 2, count, "the retried join must reuse the same idempotency key")
	assert.Equal(t, int64(initialBalance-1000), f.balance(t, "bob"))
}

func TestJoinLeave_IsInverse(t *testing.T) {
	t.Parallel()
	f := newFixture(t, testConfig())
	ctx := context.Background()
	before := f.roomWith(t, 1000, 4, "alice", "bob")

	_, err := f.c.Join(ctx, before.ID, "carol")
	require.NoError(t, err)
	after, err := f.c.Leave(ctx, before.ID, "carol")
	require.NoError(t, err)

	assert.Equal(t, room.StatusWaiting, after.Status)
	assert.Equal(t, userIDs(before), userIDs(after))
	assert.Equal(t, int64(0), f.ledger.Net("carol"), "refund equals the escrowed stake")
	assert.Equal(t, int64(initialBalance), f.balance(t, "carol"))

	// rejoining uses a fresh key
	_, err = f.c.Join(ctx, before.ID, "carol")
	require.NoError(t, err)
	assert.Contains(t, f.ledger.Calls(), before.ID+":carol:join:2")
	assert.Equal(t, int64(initialBalance-1000), f.balance(t, "carol"))
}

func TestLeave_CancelsWhenBelowMinimum(t *testing.T) {
	t.Parallel()
	f := newFixture(t, testConfig())
	ctx := context.Background()
	r := f.roomWith(t, 1000, 3, "alice", "bob")

	got, err := f.c.Leave(ctx, r.ID, "alice")
	require.NoError(t, err)

	assert.Equal(t, room.StatusCancelled, got.Status)
	assert.NotNil(t, got.EndedAt)
	assert.False(t, got.SettlementPending)
	assert.Equal(t, int64(initialBalance), f.balance(t, "alice"))
	assert.Equal(t, int64(initialBalance), f.balance(t, "bob"))
	assert.Equal(t, []protocol.MessageType{
		protocol.MsgPlayerJoined,
		protocol.MsgPlayerJoined,
		protocol.MsgPlayerLeft,
		protocol.MsgRoomCancelled,
	}, f.events.Types(r.ID))
	assert.NotContains(t, f.events.Types(r.ID), protocol.MsgGameStarted)

	_, err = f.c.Join(ctx, r.ID, "carol")
	assert.ErrorIs(t, err, apperrors.ErrRoomAlreadyStarted)
}

func TestJoin_CompletedRoomReportsStarted(t *testing.T) {
	t.Parallel()
	f := newFixture(t, testConfig(), 40, 3)
	ctx := context.Background()
	r := f.startedRoom(t, 100, "alice", "bob")
	_, err := f.c.RollStone(ctx, r.ID, "alice")
	require.NoError(t, err)
	done, err := f.c.RollStone(ctx, r.ID, "bob")
	require.NoError(t, err)
	require.Equal(t, room.StatusCompleted, done.Status)

	_, err = f.c.Join(ctx, r.ID, "carol")
	assert.ErrorIs(t, err, apperrors.ErrRoomAlreadyStarted)
	assert.Equal(t, int64(initialBalance), f.balance(t, "carol"))
}

func TestLeave_LastPlayerCancels(t *testing.T) {
	t.Parallel()
	f := newFixture(t, testConfig())
	r := f.roomWith(t, 500, 2, "alice")

	got, err := f.c.Leave(context.Background(), r.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, room.StatusCancelled, got.Status)
	assert.Empty(t, got.Players)
	assert.Equal(t, int64(initialBalance), f.balance(t, "alice"))
}

func TestLeave_Rejections(t *testing.T) {
	t.Parallel()
	f := newFixture(t, testConfig())
	ctx := context.Background()
	r := f.roomWith(t, 1000, 2, "alice", "bob")

	_, err := f.c.Leave(ctx, r.ID, "mallory")
	assert.ErrorIs(t, err, apperrors.ErrNotInRoom)

	f.ledger.FailOn(":alice:leave", errLedgerDown)
	_, err = f.c.Leave(ctx, r.ID, "alice")
	assert.ErrorIs(t, err, apperrors.ErrLedgerUnavailable)
	snap, _ := f.c.Snapshot(r.ID)
	assert.True(t, snap.HasPlayer("alice"), "failed refund leaves the room unchanged")
	f.ledger.Heal(":alice:leave")

	_, err = f.c.Start(ctx, r.ID, "alice")
	require.NoError(t, err)
	_, err = f.c.Leave(ctx, r.ID, "alice")
	assert.ErrorIs(t, err, apperrors.ErrRoomAlreadyStarted)
}

func TestLeave_CancelRefundRetried(t *testing.T) {
	t.Parallel()
	f := newFixture(t, testConfig())
	ctx := context.Background()
	r := f.roomWith(t, 1000, 3, "alice", "bob")

	f.ledger.FailOn(":bob:refund", errLedgerDown)
	got, err := f.c.Leave(ctx, r.ID, "alice")
	require.NoError(t, err, "the leaver's own refund succeeded")
	assert.Equal(t, room.StatusCancelled, got.Status)
	assert.True(t, got.SettlementPending)
	assert.Equal(t, []string{r.ID}, f.c.PendingSettlements())
	assert.Equal(t, int64(initialBalance-1000), f.balance(t, "bob"))

	assert.Equal(t, 0, f.c.RetrySettlements(ctx))

	f.ledger.Heal(":bob:refund")
	assert.Equal(t, 1, f.c.RetrySettlements(ctx))
	assert.Empty(t, f.c.PendingSettlements())
	assert.Equal(t, int64(initialBalance), f.balance(t, "bob"))

	snap, _ := f.c.Snapshot(r.ID)
	assert.False(t, snap.SettlementPending)
	assert.True(t, snap.Player("bob").Refunded)
}

func TestStart(t *testing.T) {
	t.Parallel()
	f := newFixture(t, testConfig())
	ctx := context.Background()
	r := f.roomWith(t, 1000, 3, "alice")

	_, err := f.c.Start(ctx, r.ID, "alice")
	assert.ErrorIs(t, err, apperrors.ErrNotEnoughPlayers)

	_, err = f.c.Join(ctx, r.ID, "bob")
	require.NoError(t, err)
	_, err = f.c.Start(ctx, r.ID, "bob")
	assert.ErrorIs(t, err, apperrors.ErrNotOwner)

	got, err := f.c.Start(ctx, r.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, room.StatusInProgress, got.Status)
	assert.Equal(t, protocol.MsgGameStarted, f.events.Types(r.ID)[2])

	_, err = f.c.Start(ctx, r.ID, "alice")
	assert.ErrorIs(t, err, apperrors.ErrRoomAlreadyStarted)
	assert.Equal(t, 1, f.c.ActiveGames())
}

func TestStart_AnyPlayerWhenOwnerAbsent(t *testing.T) {
	t.Parallel()
	f := newFixture(t, testConfig())
	ctx := context.Background()

	r, err := f.c.CreateRoom(ctx, "host", 100, 3)
	require.NoError(t, err)
	for _, u := range []string{"alice", "bob"} {
		_, err = f.c.Join(ctx, r.ID, u)
		require.NoError(t, err)
	}

	_, err = f.c.Start(ctx, r.ID, "mallory")
	assert.ErrorIs(t, err, apperrors.ErrNotOwner)
	_, err = f.c.Start(ctx, r.ID, "bob")
	assert.NoError(t, err)
}

func TestJoin_AutoStartWhenFull(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.AutoStartWhenFull = true
	f := newFixture(t, cfg)

	r := f.roomWith(t, 100, 2, "alice", "bob")
	assert.Equal(t, room.StatusInProgress, r.Status)
	assert.Equal(t, []protocol.MessageType{
		protocol.MsgPlayerJoined,
		protocol.MsgPlayerJoined,
		protocol.MsgGameStarted,
	}, f.events.Types(r.ID))
}

func TestSnapshot_Idempotent(t *testing.T) {
	t.Parallel()
	f := newFixture(t, testConfig())
	r := f.roomWith(t, 100, 3, "alice", "bob")

	a, err := f.c.Snapshot(r.ID)
	require.NoError(t, err)
	b, err := f.c.Snapshot(r.ID)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	_, err = f.c.Snapshot("missing")
	assert.ErrorIs(t, err, apperrors.ErrRoomNotFound)
}

func TestJoin_ConcurrentNeverExceedsCapacity(t *testing.T) {
	t.Parallel()
	f := newFixture(t, testConfig())
	ctx := context.Background()
	r, err := f.c.CreateRoom(ctx, "owner", 100, 5)
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	joined, full := 0, 0
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.c.Join(ctx, r.ID, fmt.Sprintf("user-%d", i))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				joined++
			case errors.Is(err, apperrors.ErrRoomFull):
				full++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 5, joined)
	assert.Equal(t, 15, full)
	snap, _ := f.c.Snapshot(r.ID)
	assert.Len(t, snap.Players, 5)
	assert.NoError(t, snap.Validate())

	var escrowed int64
	for i := range 20 {
		escrowed -= f.ledger.Net(fmt.Sprintf("user-%d", i))
	}
	assert.Equal(t, int64(500), escrowed, "only admitted players were debited")
}

func TestSweep_RemovesExpiredRooms(t *testing.T) {
	t.Parallel()
	f := newFixture(t, testConfig())
	ctx := context.Background()

	now := time.Now()
	f.store.SetClock(func() time.Time { return now })
	empty, err := f.c.CreateRoom(ctx, "alice", 100, 2)
	require.NoError(t, err)
	busy := f.roomWith(t, 100, 3, "bob")

	f.store.SetClock(func() time.Time { return now.Add(time.Hour) })
	removed := f.c.Sweep(ctx)
	assert.Equal(t, []string{empty.ID}, removed)

	_, err = f.c.Snapshot(busy.ID)
	assert.NoError(t, err, "rooms holding escrow are never swept")
}

func TestRun_StopsOnCancel(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.SettleRetryInterval = time.Millisecond
	cfg.CleanupInterval = time.Millisecond
	f := newFixture(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.c.Run(ctx) }()

	time.Sleep(10 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}

func userIDs(r *room.Room) []string {
	ids := make([]string, len(r.Players))
	for i, p := range r.Players {
		ids[i] = p.UserID
	}
	return ids
}
