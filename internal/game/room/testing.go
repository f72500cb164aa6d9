//go:build !production

package room

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockPersister 持久化 mock
type MockPersister struct {
	mock.Mock
}

func (m *MockPersister) SaveRoom(ctx context.Context, room *Room) error {
	args := m.Called(ctx, room)
	return args.Error(0)
}

func (m *MockPersister) DeleteRoom(ctx context.Context, roomID string) error {
	args := m.Called(ctx, roomID)
	return args.Error(0)
}

func (m *MockPersister) LoadRooms(ctx context.Context) ([]*Room, error) {
	args := m.Called(ctx)
	rooms, _ := args.Get(0).([]*Room)
	return rooms, args.Error(1)
}

// AddRoomForTest 直接放入房间用于测试
func (s *Store) AddRoomForTest(room *Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if room.JoinCounts == nil {
		room.JoinCounts = make(map[string]int)
	}
	s.slots[room.ID] = newSlot(room)
}
