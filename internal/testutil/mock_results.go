//go:build !production

package testutil

import (
	"context"
	"sync"

	"github.com/palemoky/stone-rolling/internal/game/room"
)

// ResultSink 记录协调器提交的对局战绩
type ResultSink struct {
	mu    sync.Mutex
	rooms []*room.Room
}

func (s *ResultSink) RecordResult(_ context.Context, r *room.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms = append(s.rooms, r)
	return nil
}

// RoomIDs 已记录的房间号，按记录顺序
func (s *ResultSink) RoomIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, len(s.rooms))
	for i, r := range s.rooms {
		ids[i] = r.ID
	}
	return ids
}
