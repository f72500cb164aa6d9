//go:build !production

package testutil

import (
	"sync"

	"github.com/palemoky/stone-rolling/internal/protocol"
)

// Event 一次广播
type Event struct {
	RoomID  string
	Message *protocol.Message
}

// EventRecorder 记录所有房间广播
type EventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *EventRecorder) Broadcast(roomID string, msg *protocol.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{RoomID: roomID, Message: msg})
}

// Events 某房间的所有广播，按发出顺序
func (r *EventRecorder) Events(roomID string) []*protocol.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*protocol.Message
	for _, e := range r.events {
		if e.RoomID == roomID {
			out = append(out, e.Message)
		}
	}
	return out
}

// Types 某房间广播的消息类型
func (r *EventRecorder) Types(roomID string) []protocol.MessageType {
	events := r.Events(roomID)
	out := make([]protocol.MessageType, len(events))
	for i, e := range events {
		out[i] = e.Type
	}
	return out
}

// Reset 清空记录
func (r *EventRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
