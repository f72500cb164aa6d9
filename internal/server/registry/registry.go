// Package registry 连接与房间的绑定关系，以及按房间广播。
package registry

import (
	"sync"

	"github.com/palemoky/stone-rolling/internal/types"
)

type binding struct {
	conn   types.ClientInterface
	userID string
	roomID string
}

// Registry 连接注册表：一个连接同一时间最多绑定一个房间，一个房间可以有多个连接
//
// 绑定只存在于连接存活期间，不持久化。
type Registry struct {
	mu       sync.RWMutex
	bindings map[string]*binding                         // connID -> binding
	rooms    map[string]map[string]types.ClientInterface // roomID -> connID -> conn
}

// New 创建注册表
func New() *Registry {
	return &Registry{
		bindings: make(map[string]*binding),
		rooms:    make(map[string]map[string]types.ClientInterface),
	}
}

// Bind 把连接绑定到房间，已绑定其他房间时先解绑，返回之前绑定的房间号
func (r *Registry) Bind(conn types.ClientInterface, userID, roomID string) (prev string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := conn.GetID()
	if b, ok := r.bindings[id]; ok {
		prev = b.roomID
		if prev == roomID {
			return prev
		}
		r.detachLocked(id, prev)
	}

	r.bindings[id] = &binding{conn: conn, userID: userID, roomID: roomID}
	conns, ok := r.rooms[roomID]
	if !ok {
		conns = make(map[string]types.ClientInterface)
		r.rooms[roomID] = conns
	}
	conns[id] = conn
	return prev
}

// Unbind 解除连接的绑定，返回解绑前的房间号和绑定时的用户
func (r *Registry) Unbind(connID string) (roomID, userID string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bindings[connID]
	if !ok {
		return "", "", false
	}
	r.detachLocked(connID, b.roomID)
	delete(r.bindings, connID)
	return b.roomID, b.userID, true
}

// UnbindIf 只有当连接仍绑定在 roomID 时才解绑
func (r *Registry) UnbindIf(connID, roomID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bindings[connID]
	if !ok || b.roomID != roomID {
		return false
	}
	r.detachLocked(connID, roomID)
	delete(r.bindings, connID)
	return true
}

func (r *Registry) detachLocked(connID, roomID string) {
	conns := r.rooms[roomID]
	delete(conns, connID)
	if len(conns) == 0 {
		delete(r.rooms, roomID)
	}
}

// ConnectionsFor 房间内的所有连接
func (r *Registry) ConnectionsFor(roomID string) []types.ClientInterface {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := r.rooms[roomID]
	out := make([]types.ClientInterface, 0, len(conns))
	for _, c := range conns {
		out = append(out, c)
	}
	return out
}

// RoomFor 连接当前绑定的房间
func (r *Registry) RoomFor(connID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bindings[connID]
	if !ok {
		return "", false
	}
	return b.roomID, true
}

// Count 已绑定的连接数
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bindings)
}

// RoomCount 至少有一个连接的房间数
func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
