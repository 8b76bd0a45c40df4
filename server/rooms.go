package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/cockroachdb/pebble/v2"
	"github.com/rs/zerolog"

	"github.com/stormyfocus/gamehub/game"
)

var ErrRoomNotFound = errors.New("room not found")

// Room is the rooms service's record of a game room. Rooms are marked
// inactive when their last player disconnects, never deleted, so a code
// stays resolvable for the lobby page.
type Room struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Kind      game.Kind `json:"gameKind"`
	HostName  string    `json:"hostName"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
}

// RoomPlayer is an issued player identity for one room.
type RoomPlayer struct {
	ID       string    `json:"id"`
	RoomID   string    `json:"roomId"`
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joinedAt"`
}

// RoomService mints rooms and player identities and keeps them in
// memory, mirrored as one JSON snapshot in a pebble store so a restart
// keeps the room codes. With an empty dir it runs memory-only, which is
// what the tests mostly use.
type RoomService struct {
	mu      sync.RWMutex
	rooms   map[string]*Room
	byCode  map[string]string
	players map[string][]*RoomPlayer
	db      *pebble.DB
	log     zerolog.Logger
}

const roomsSnapshotKey = "rooms-json"

type roomsSnapshot struct {
	Rooms   []*Room                  `json:"rooms"`
	Players map[string][]*RoomPlayer `json:"players"`
}

func NewRoomService(dir string, log zerolog.Logger) (*RoomService, error) {
	rs := &RoomService{
		rooms:   map[string]*Room{},
		byCode:  map[string]string{},
		players: map[string][]*RoomPlayer{},
		log:     log.With().Str("part", "rooms").Logger(),
	}
	if dir != "" {
		db, err := pebble.Open(filepath.Join(dir, "rooms"), &pebble.Options{})
		if err != nil {
			return nil, fmt.Errorf("open rooms db: %w", err)
		}
		rs.db = db
		if err := rs.load(); err != nil {
			db.Close()
			return nil, err
		}
	}
	return rs, nil
}

func (rs *RoomService) Close() error {
	if rs.db == nil {
		return nil
	}
	return rs.db.Close()
}

func (rs *RoomService) load() error {
	data, closer, err := rs.db.Get([]byte(roomsSnapshotKey))
	if err != nil {
		if err == pebble.ErrNotFound {
			return nil
		}
		return fmt.Errorf("load rooms: %w", err)
	}
	defer closer.Close()

	var snap roomsSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("load rooms: %w", err)
	}

	for _, room := range snap.Rooms {
		rs.rooms[room.ID] = room
		rs.byCode[room.Code] = room.ID
	}
	if snap.Players != nil {
		rs.players = snap.Players
	}
	rs.log.Info().Int("rooms", len(rs.rooms)).Msg("loaded")
	return nil
}

// persistLocked writes the snapshot; callers hold the write lock.
func (rs *RoomService) persistLocked() {
	if rs.db == nil {
		return
	}
	snap := roomsSnapshot{Players: rs.players}
	for _, room := range rs.rooms {
		snap.Rooms = append(snap.Rooms, room)
	}
	data, err := json.Marshal(snap)
	if err != nil {
		rs.log.Error().Err(err).Msg("can't save")
		return
	}
	if err := rs.db.Set([]byte(roomsSnapshotKey), data, pebble.Sync); err != nil {
		rs.log.Error().Err(err).Msg("can't save")
	}
}

// CreateRoom mints a room with a fresh collision-free 4-char code.
func (rs *RoomService) CreateRoom(kind game.Kind, hostName string) (*Room, error) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	code := ""
	for i := 0; i < 100; i++ {
		c := randomRoomCode()
		if _, taken := rs.byCode[c]; !taken {
			code = c
			break
		}
	}
	if code == "" {
		return nil, errors.New("no free room codes")
	}

	room := &Room{
		ID:        RandomString(12),
		Code:      code,
		Kind:      kind,
		HostName:  hostName,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	rs.rooms[room.ID] = room
	rs.byCode[room.Code] = room.ID
	rs.players[room.ID] = []*RoomPlayer{}
	rs.persistLocked()

	rs.log.Info().Str("room", room.ID).Str("code", room.Code).Msg("room created")
	return room, nil
}

// JoinRoom resolves a code and issues a player identity for that room.
func (rs *RoomService) JoinRoom(code, playerName string) (*RoomPlayer, error) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	roomID, ok := rs.byCode[code]
	if !ok {
		return nil, ErrRoomNotFound
	}

	p := &RoomPlayer{
		ID:       RandomString(12),
		RoomID:   roomID,
		Name:     playerName,
		JoinedAt: time.Now().UTC(),
	}
	rs.players[roomID] = append(rs.players[roomID], p)
	rs.rooms[roomID].Active = true
	rs.persistLocked()

	return p, nil
}

func (rs *RoomService) Room(roomID string) (*Room, error) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	room, ok := rs.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	out := *room
	return &out, nil
}

func (rs *RoomService) RoomByCode(code string) (*Room, error) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	roomID, ok := rs.byCode[code]
	if !ok {
		return nil, ErrRoomNotFound
	}
	out := *rs.rooms[roomID]
	return &out, nil
}

// Players lists a room's issued players in join order.
func (rs *RoomService) Players(roomID string) ([]*RoomPlayer, error) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	if _, ok := rs.rooms[roomID]; !ok {
		return nil, ErrRoomNotFound
	}
	return append([]*RoomPlayer(nil), rs.players[roomID]...), nil
}

// DeletePlayer removes an issued identity; done when a player leaves or
// their connection drops.
func (rs *RoomService) DeletePlayer(roomID, playerID string) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	ps := rs.players[roomID]
	for i, p := range ps {
		if p.ID == playerID {
			rs.players[roomID] = append(ps[:i], ps[i+1:]...)
			rs.persistLocked()
			return
		}
	}
}

// MarkInactive flags an emptied room without forgetting it.
func (rs *RoomService) MarkInactive(roomID string) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	room, ok := rs.rooms[roomID]
	if !ok || !room.Active {
		return
	}
	room.Active = false
	rs.persistLocked()
	rs.log.Info().Str("room", roomID).Msg("room inactive")
}
