package server

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/stormyfocus/gamehub/game"
)

// Registry owns the live room sessions. Each room is a single goroutine,
// so events for one room apply atomically while different rooms run
// independently.
type Registry struct {
	mu      sync.Mutex
	rooms   map[string]*session
	log     zerolog.Logger
	onEmpty func(roomID string)
}

func NewRegistry(log zerolog.Logger, onEmpty func(roomID string)) *Registry {
	return &Registry{
		rooms:   map[string]*session{},
		log:     log,
		onEmpty: onEmpty,
	}
}

// GetOrCreate returns the live session for a room, starting one on first
// join. A session that emptied out and stopped gets replaced.
func (r *Registry) GetOrCreate(roomID string, kind game.Kind) *session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.rooms[roomID]; ok && !s.closed() {
		return s
	}

	var s *session
	s = newSession(roomID, kind, r.log, func() {
		r.remove(roomID, s)
		if r.onEmpty != nil {
			r.onEmpty(roomID)
		}
	})
	r.rooms[roomID] = s
	go s.run()
	return s
}

// Get returns a live session, or nothing if the room has no connected
// members.
func (r *Registry) Get(roomID string) (*session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.rooms[roomID]
	if !ok || s.closed() {
		return nil, false
	}
	return s, true
}

func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

func (r *Registry) remove(roomID string, s *session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.rooms[roomID]; ok && cur == s {
		delete(r.rooms, roomID)
	}
}
