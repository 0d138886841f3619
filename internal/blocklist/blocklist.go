// Package blocklist tracks which users are barred from which chat rooms.
// Entries live for the lifetime of the process.
package blocklist

import (
	"sort"
	"sync"
)

// Registry maps a room to the set of users blocked in it. Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	rooms map[uint]map[uint]struct{}
}

// New constructs an empty registry.
func New() *Registry {
	return &Registry{rooms: make(map[uint]map[uint]struct{})}
}

// IsBlocked reports whether userID is blocked in roomID.
func (r *Registry) IsBlocked(userID, roomID uint) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.rooms[roomID][userID]
	return ok
}

// Block adds the pair and reports whether it was newly added.
func (r *Registry) Block(userID, roomID uint) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, ok := r.rooms[roomID]
	if !ok {
		users = make(map[uint]struct{})
		r.rooms[roomID] = users
	}
	if _, exists := users[userID]; exists {
		return false
	}
	users[userID] = struct{}{}
	return true
}

// Unblock removes the pair and reports whether it was present.
func (r *Registry) Unblock(userID, roomID uint) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, ok := r.rooms[roomID]
	if !ok {
		return false
	}
	if _, exists := users[userID]; !exists {
		return false
	}
	delete(users, userID)
	if len(users) == 0 {
		delete(r.rooms, roomID)
	}
	return true
}

// BlockedUsers lists the users blocked in roomID in ascending order.
func (r *Registry) BlockedUsers(roomID uint) []uint {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]uint, 0, len(r.rooms[roomID]))
	for id := range r.rooms[roomID] {
		users = append(users, id)
	}
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })
	return users
}

// ForgetRoom drops every entry of roomID.
func (r *Registry) ForgetRoom(roomID uint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rooms, roomID)
}

// ForgetUser drops userID from every room.
func (r *Registry) ForgetUser(userID uint) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for roomID, users := range r.rooms {
		delete(users, userID)
		if len(users) == 0 {
			delete(r.rooms, roomID)
		}
	}
}
