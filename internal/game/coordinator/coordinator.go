// Package coordinator 房间生命周期：创建、加入、开始、投掷、结算、结束。
//
// Coordinator 是房间状态唯一的写入者。所有修改都在房间锁内完成，
// 钱包调用同样发生在锁内；事件在提交后、释放锁前发出，保证同一房间内的事件顺序。
package coordinator

import (
	"context"
	"sync"
	"time"

	"github.com/palemoky/stone-rolling/internal/config"
	"github.com/palemoky/stone-rolling/internal/game/payout"
	"github.com/palemoky/stone-rolling/internal/game/room"
	"github.com/palemoky/stone-rolling/internal/game/stone"
	"github.com/palemoky/stone-rolling/internal/ledger"
	"github.com/palemoky/stone-rolling/internal/logger"
	"github.com/palemoky/stone-rolling/internal/protocol"
)

// Publisher 房间事件出口
type Publisher interface {
	Broadcast(roomID string, msg *protocol.Message)
}

// Roller 投掷结算器
type Roller interface {
	Roll(r *room.Room, userID string) (stone.Outcome, error)
}

// ResultRecorder 记录已结束对局的战绩
type ResultRecorder interface {
	RecordResult(ctx context.Context, r *room.Room) error
}

// Config 房间规则
type Config struct {
	MinStake          int64
	MaxStake          int64
	MinPlayers        int
	MaxPlayersLimit   int
	DefaultMaxPlayers int
	AutoStartWhenFull bool
	Payout            payout.Config

	SettleRetryInterval time.Duration
	CleanupInterval     time.Duration
	RoomTimeout         time.Duration
	FinishedRoomTTL     time.Duration
}

// ConfigFrom 从配置文件构造房间规则
func ConfigFrom(g config.GameConfig) Config {
	return Config{
		MinStake:          g.MinStake,
		MaxStake:          g.MaxStake,
		MinPlayers:        g.MinPlayers,
		MaxPlayersLimit:   g.MaxPlayersLimit,
		DefaultMaxPlayers: g.DefaultMaxPlayers,
		AutoStartWhenFull: g.AutoStartWhenFull,
		Payout: payout.Config{
			SpecialMultiplier: g.SpecialMultiplier,
			SuperMultiplier:   g.SuperMultiplier,
			CommissionBps:     g.Commission(),
		},
		SettleRetryInterval: g.SettleRetryIntervalDuration(),
		CleanupInterval:     time.Minute,
		RoomTimeout:         g.RoomTimeoutDuration(),
		FinishedRoomTTL:     g.FinishedRoomTTLDuration(),
	}
}

// Deps 协调器依赖
type Deps struct {
	Store     *room.Store
	Ledger    ledger.Ledger
	Roller    Roller
	Publisher Publisher
	Results   ResultRecorder // 可选
}

// Coordinator 游戏协调器
type Coordinator struct {
	cfg     Config
	store   *room.Store
	ledger  ledger.Ledger
	roller  Roller
	pub     Publisher
	results ResultRecorder

	// pending 等待重试结算的房间
	pending   map[string]struct{}
	pendingMu sync.Mutex

	// matchLocks 按押注串行化快速匹配，避免同时为同一押注创建多个房间；
	// 不同押注之间互不等待
	matchLocks   map[int64]*sync.Mutex
	matchLocksMu sync.Mutex
}

// New 创建协调器
func New(cfg Config, deps Deps) *Coordinator {
	pub := deps.Publisher
	if pub == nil {
		pub = nopPublisher{}
	}
	roller := deps.Roller
	if roller == nil {
		roller = stone.NewResolver(nil)
	}
	return &Coordinator{
		cfg:        cfg,
		store:      deps.Store,
		ledger:     deps.Ledger,
		roller:     roller,
		pub:        pub,
		results:    deps.Results,
		pending:    make(map[string]struct{}),
		matchLocks: make(map[int64]*sync.Mutex),
	}
}

type nopPublisher struct{}

func (nopPublisher) Broadcast(string, *protocol.Message) {}

// events 收集一次修改产生的事件，提交后依次发布
type events struct {
	msgs []*protocol.Message
}

func (e *events) add(msg *protocol.Message) {
	e.msgs = append(e.msgs, msg)
}

// publish 返回提交回调，在房间锁内按顺序广播
func (c *Coordinator) publish(ev *events) func(*room.Room) {
	return func(r *room.Room) {
		for _, msg := range ev.msgs {
			c.pub.Broadcast(r.ID, msg)
		}
	}
}

// Snapshot 返回房间当前状态，可随时重复调用
func (c *Coordinator) Snapshot(roomID string) (*room.Room, error) {
	return c.store.Get(roomID)
}

// RoomList 可加入的房间
func (c *Coordinator) RoomList() []*room.Room {
	return c.store.List(func(r *room.Room) bool {
		return r.Status == room.StatusWaiting && !r.IsFull()
	})
}

// ActiveGames 进行中的对局数量
func (c *Coordinator) ActiveGames() int {
	return len(c.store.List(func(r *room.Room) bool {
		return r.Status == room.StatusInProgress
	}))
}

// RoomsOf 用户所在的未结束房间
func (c *Coordinator) RoomsOf(userID string) []*room.Room {
	return c.store.List(func(r *room.Room) bool {
		return !r.Status.Terminal() && r.HasPlayer(userID)
	})
}

// recordResult 异步记录对局战绩，失败只记录日志
func (c *Coordinator) recordResult(r *room.Room) {
	if c.results == nil || r.Status != room.StatusCompleted {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.results.RecordResult(ctx, r); err != nil {
			logger.Room(r.ID).Warn().Err(err).Msg("⚠️ 记录对局战绩失败")
		}
	}()
}

func (c *Coordinator) now() time.Time {
	return c.store.Now()
}

// detached 钱包调用不随请求方取消，避免请求中断导致结果不确定
func detached(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}
