package transport

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/palemoky/stone-rolling/internal/config"
	"github.com/palemoky/stone-rolling/internal/game/coordinator"
	"github.com/palemoky/stone-rolling/internal/game/room"
	"github.com/palemoky/stone-rolling/internal/game/stone"
	"github.com/palemoky/stone-rolling/internal/ledger"
	"github.com/palemoky/stone-rolling/internal/protocol"
	"github.com/palemoky/stone-rolling/internal/protocol/codec"
	"github.com/palemoky/stone-rolling/internal/server"
	"github.com/palemoky/stone-rolling/internal/server/registry"
)

type fixture struct {
	url    string
	ledger *ledger.MemoryLedger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := config.Default()

	reg := registry.New()
	fanout := registry.NewFanout(reg)
	mem := ledger.NewMemoryLedger(10_000)
	coord := coordinator.New(coordinator.ConfigFrom(cfg.Game), coordinator.Deps{
		Store:     room.NewStore(nil),
		Ledger:    mem,
		Roller:    stone.NewResolver(stone.NewSequence(500, 40)),
		Publisher: fanout,
	})
	s := server.NewServer(cfg, server.ServerDeps{Coordinator: coord, Registry: reg, Fanout: fanout})
	ts := httptest.NewServer(s.Routes())
	t.Cleanup(func() {
		_ = s.Shutdown()
		ts.Close()
	})
	return &fixture{
		url:    "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws",
		ledger: mem,
	}
}

func (f *fixture) dial(t *testing.T, userID string, format codec.Format, reconnects int) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	c, err := Dial(ctx, Options{
		URL:               f.url,
		UserID:            userID,
		Format:            format,
		MaxReconnects:     reconnects,
		ReconnectInterval: 50 * time.Millisecond,
	})
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

// await reads messages until one of the given type arrives.
func await(t *testing.T, c *Client, msgType protocol.MessageType) *protocol.Message {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	for {
		msg, err := c.Receive(ctx)
		require.NoError(t, err, "waiting for %s", msgType)
		if msg.Type == msgType {
			return msg
		}
	}
}

func TestClient_FullGame(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	alice := f.dial(t, "alice", codec.FormatJSON, 0)
	bob := f.dial(t, "bob", codec.FormatProtobuf, 0)
	await(t, alice, protocol.MsgConnected)
	await(t, bob, protocol.MsgConnected)
	assert.NotEmpty(t, alice.ConnectionID())

	require.NoError(t, alice.CreateRoom(100, 2))
	await(t, alice, protocol.MsgRoomCreated)
	roomID := alice.RoomID()
	require.NotEmpty(t, roomID)

	require.NoError(t, alice.JoinGame(roomID))
	await(t, alice, protocol.MsgPlayerJoined)
	require.NoError(t, bob.JoinGame(roomID))
	await(t, alice, protocol.MsgPlayerJoined)
	await(t, bob, protocol.MsgPlayerJoined)
	assert.Equal(t, roomID, bob.RoomID())

	require.NoError(t, alice.StartGame(roomID))
	await(t, bob, protocol.MsgGameStarted)
	require.NoError(t, alice.RollStone(roomID))
	await(t, bob, protocol.MsgPlayerRolled)
	require.NoError(t, bob.RollStone(roomID))

	msg := await(t, bob, protocol.MsgGameEnded)
	ended, err := codec.ParsePayload[protocol.GameEndedPayload](msg)
	require.NoError(t, err)
	require.Len(t, ended.Winners, 1)
	assert.Equal(t, "alice", ended.Winners[0].UserID)
	await(t, alice, protocol.MsgGameEnded)

	aliceBalance, err := f.ledger.Balance(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, 10_000-100+ended.Winners[0].Share, aliceBalance)
}

func TestClient_ReconnectRequestsSnapshot(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	c := f.dial(t, "carol", codec.FormatJSON, 3)
	var reconnected atomic.Bool
	c.OnReconnect = func() { reconnected.Store(true) }

	require.NoError(t, c.CreateRoom(100, 2))
	await(t, c, protocol.MsgRoomCreated)
	roomID := c.RoomID()
	require.NoError(t, c.JoinGame(roomID))
	await(t, c, protocol.MsgPlayerJoined)

	// Drop the socket underneath the client
	c.mu.RLock()
	_ = c.conn.Close()
	c.mu.RUnlock()

	msg := await(t, c, protocol.MsgRoomSnapshot)
	snap, err := codec.ParsePayload[protocol.RoomPayload](msg)
	require.NoError(t, err)
	assert.Equal(t, roomID, snap.Room.ID)
	require.Len(t, snap.Room.Players, 1)
	assert.Equal(t, "carol", snap.Room.Players[0].UserID)
	assert.True(t, reconnected.Load())
	assert.False(t, c.IsClosed())
}

func TestClient_ClosesOnDropWithoutReconnect(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	c := f.dial(t, "dave", codec.FormatJSON, 0)
	await(t, c, protocol.MsgConnected)

	c.mu.RLock()
	_ = c.conn.Close()
	c.mu.RUnlock()

	assert.Eventually(t, c.IsClosed, 2*time.Second, 10*time.Millisecond)
	assert.ErrorIs(t, c.Ping(), ErrClosed)
	_, err := c.Receive(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestClient_PingMeasuresLatency(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	c := f.dial(t, "erin", codec.FormatProtobuf, 0)
	require.NoError(t, c.Ping())
	msg := await(t, c, protocol.MsgPong)
	pong, err := codec.ParsePayload[protocol.PongPayload](msg)
	require.NoError(t, err)
	assert.Positive(t, pong.ServerTimestamp)
	assert.GreaterOrEqual(t, c.Latency(), time.Duration(0))
}

func TestBot_PlaysRounds(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	bots := []*Bot{
		NewBot(f.dial(t, "bot-1", codec.FormatJSON, 0), BotConfig{Stake: 50, Rounds: 2}),
		NewBot(f.dial(t, "bot-2", codec.FormatProtobuf, 0), BotConfig{Stake: 50, Rounds: 2}),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	for _, b := range bots {
		g.Go(func() error { return b.Run(gctx) })
	}
	require.NoError(t, g.Wait())

	var total int64
	for _, b := range bots {
		assert.Equal(t, 2, b.Rounds())
		total += b.Winnings()
	}
	// Every round pays out the pot minus commission to someone
	assert.Positive(t, total)
}
