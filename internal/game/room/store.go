package room

import (
	"context"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/palemoky/stone-rolling/internal/apperrors"
	"github.com/palemoky/stone-rolling/internal/logger"
)

// Persister 房间持久化插件，未配置时房间只保存在内存中
type Persister interface {
	SaveRoom(ctx context.Context, room *Room) error
	DeleteRoom(ctx context.Context, roomID string) error
	LoadRooms(ctx context.Context) ([]*Room, error)
}

// slot 单个房间及其互斥锁，同一房间的修改串行执行
//
// view 保存最近一次提交的只读快照，读操作不等待进行中的修改（修改可能包含钱包调用）。
type slot struct {
	mu   sync.Mutex
	room *Room
	view atomic.Pointer[Room]
}

func newSlot(room *Room) *slot {
	sl := &slot{}
	sl.commit(room)
	return sl
}

// commit 需持有 mu；room 为 nil 表示已删除
func (sl *slot) commit(room *Room) {
	sl.room = room
	if room == nil {
		sl.view.Store(nil)
		return
	}
	sl.view.Store(room.Clone())
}

// snapshot 最近一次提交的房间副本，已删除时返回 nil
func (sl *slot) snapshot() *Room {
	if v := sl.view.Load(); v != nil {
		return v.Clone()
	}
	return nil
}

// Store 房间状态存储
type Store struct {
	persister Persister
	slots     map[string]*slot
	mu        sync.RWMutex
	now       func() time.Time
}

// NewStore 创建房间存储，persister 可以为 nil
func NewStore(persister Persister) *Store {
	return &Store{
		persister: persister,
		slots:     make(map[string]*slot),
		now:       time.Now,
	}
}

// SetClock 替换时钟（测试用）
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// Now 当前时间
func (s *Store) Now() time.Time {
	return s.now()
}

// Create 创建房间
func (s *Store) Create(ctx context.Context, ownerUserID string, stake int64, minPlayers, maxPlayers int) *Room {
	room := &Room{
		ID:          uuid.NewString(),
		OwnerUserID: ownerUserID,
		Status:      StatusWaiting,
		Stake:       stake,
		MinPlayers:  minPlayers,
		MaxPlayers:  maxPlayers,
		Players:     make([]*Player, 0, maxPlayers),
		JoinCounts:  make(map[string]int),
		CreatedAt:   s.now(),
	}

	s.mu.Lock()
	s.slots[room.ID] = newSlot(room)
	s.mu.Unlock()

	s.persist(ctx, room)
	return room.Clone()
}

func (s *Store) lookup(roomID string) (*slot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sl, ok := s.slots[roomID]
	return sl, ok
}

// Get 返回最近一次提交的房间快照
func (s *Store) Get(roomID string) (*Room, error) {
	sl, ok := s.lookup(roomID)
	if !ok {
		return nil, apperrors.ErrRoomNotFound
	}
	r := sl.snapshot()
	if r == nil {
		return nil, apperrors.ErrRoomNotFound
	}
	return r, nil
}

// Mutate 在房间锁内对工作副本执行 fn，fn 返回 nil 时提交
//
// fn 返回错误时房间保持原状。onCommit 在提交后、释放房间锁前按顺序执行，
// 用于保证同一房间的事件顺序；执行 onCommit 时 Get 已能读到新状态。返回提交后的快照。
func (s *Store) Mutate(ctx context.Context, roomID string, fn func(*Room) error, onCommit ...func(*Room)) (*Room, error) {
	sl, ok := s.lookup(roomID)
	if !ok {
		return nil, apperrors.ErrRoomNotFound
	}

	sl.mu.Lock()
	defer sl.mu.Unlock()
	if sl.room == nil {
		return nil, apperrors.ErrRoomNotFound
	}

	working := sl.room.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	if err := working.Validate(); err != nil {
		return nil, apperrors.Invariant(err)
	}
	sl.commit(working)

	s.persist(ctx, working)
	snapshot := working.Clone()
	for _, f := range onCommit {
		f(snapshot)
	}
	return snapshot.Clone(), nil
}

// List 返回满足条件的房间快照，按创建时间排序
func (s *Store) List(filter func(*Room) bool) []*Room {
	s.mu.RLock()
	slots := make([]*slot, 0, len(s.slots))
	for _, sl := range s.slots {
		slots = append(slots, sl)
	}
	s.mu.RUnlock()

	rooms := make([]*Room, 0, len(slots))
	for _, sl := range slots {
		r := sl.snapshot()
		if r != nil && (filter == nil || filter(r)) {
			rooms = append(rooms, r)
		}
	}

	slices.SortFunc(rooms, func(a, b *Room) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return rooms
}

// Count 房间数量
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.slots)
}

// Delete 删除房间，会等待进行中的修改结束
func (s *Store) Delete(ctx context.Context, roomID string) {
	s.DeleteIf(ctx, roomID, nil)
}

// DeleteIf 在房间锁内检查 cond，满足时删除房间
func (s *Store) DeleteIf(ctx context.Context, roomID string, cond func(*Room) bool) bool {
	sl, ok := s.lookup(roomID)
	if !ok {
		return false
	}

	sl.mu.Lock()
	if sl.room == nil || (cond != nil && !cond(sl.room)) {
		sl.mu.Unlock()
		return false
	}
	sl.commit(nil)
	s.mu.Lock()
	delete(s.slots, roomID)
	s.mu.Unlock()
	sl.mu.Unlock()

	if s.persister != nil {
		if err := s.persister.DeleteRoom(ctx, roomID); err != nil {
			logger.L().Warn().Err(err).Str("room_id", roomID).Msg("⚠️ 删除持久化房间失败")
		}
	}
	return true
}

// Restore 从持久化存储恢复房间，已存在的房间不会被覆盖
func (s *Store) Restore(ctx context.Context) (int, error) {
	if s.persister == nil {
		return 0, nil
	}
	// 部分房间损坏时仍恢复其余房间
	rooms, err := s.persister.LoadRooms(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	restored := 0
	for _, room := range rooms {
		if room == nil || room.ID == "" {
			continue
		}
		if _, exists := s.slots[room.ID]; exists {
			continue
		}
		if room.JoinCounts == nil {
			room.JoinCounts = make(map[string]int)
		}
		s.slots[room.ID] = newSlot(room)
		restored++
	}
	return restored, err
}

// persist 持久化失败只记录日志，内存状态仍然有效
func (s *Store) persist(ctx context.Context, room *Room) {
	if s.persister == nil {
		return
	}
	if err := s.persister.SaveRoom(ctx, room); err != nil {
		logger.Room(room.ID).Warn().Err(err).Msg("⚠️ 保存房间失败")
	}
}
