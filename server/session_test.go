package server

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"

	"github.com/stormyfocus/gamehub/comms"
	"github.com/stormyfocus/gamehub/game"
	"github.com/stormyfocus/gamehub/kniffel"
)

func startSession(t *testing.T, kind game.Kind, onEmpty func()) *session {
	t.Helper()
	s := newSession("r1", kind, zerolog.Nop(), onEmpty)
	go s.run()
	return s
}

func bundle() clientBundle {
	return clientBundle{downCh: make(chan comms.Message, 100)}
}

// pull every buffered message with the given head, keep the last one
func lastMessage(ch chan comms.Message, head string) (comms.Message, bool) {
	var out comms.Message
	found := false
	for {
		select {
		case msg := <-ch:
			if string(msg.Head) == head {
				out = msg
				found = true
			}
		default:
			return out, found
		}
	}
}

func TestJoinIdempotent(t *testing.T) {
	s := startSession(t, game.Nim, nil)

	r1, err := s.Join("p1", "One", bundle())
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	r2, err := s.Join("p1", "One", bundle())
	if err != nil {
		t.Fatalf("rejoin: %v", err)
	}

	if len(r1.Players) != 1 || len(r2.Players) != 1 || r2.Players[0] != "p1" {
		t.Errorf("bad membership: %v then %v", r1.Players, r2.Players)
	}
	if got := s.Players(); len(got) != 1 {
		t.Errorf("bad members: %v", got)
	}
}

func TestJoinOrderAndBroadcast(t *testing.T) {
	s := startSession(t, game.Nim, nil)
	b1 := bundle()

	s.Join("p1", "One", b1)
	r2, _ := s.Join("p2", "Two", bundle())

	if len(r2.Players) != 2 || r2.Players[0] != "p1" || r2.Players[1] != "p2" {
		t.Errorf("bad join order: %v", r2.Players)
	}

	msg, ok := lastMessage(b1.downCh, "playersUpdate")
	if !ok {
		t.Fatalf("no players update broadcast")
	}
	var up PlayersUpdateData
	if err := comms.Decode(msg, &up); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(up.PlayerIDs) != 2 || up.PlayerIDs[1] != "p2" {
		t.Errorf("bad broadcast: %v", up.PlayerIDs)
	}
}

func TestPushRoundTrip(t *testing.T) {
	s := startSession(t, game.Nim, nil)
	b1 := bundle()
	s.Join("p1", "One", b1)

	// odd spacing on purpose, stored bytes must come back untouched
	pushed := json.RawMessage(`{"heaps": [1,3,5,7], "currentPlayerIndex":0, "removedCoins":["3-0" ,"3-1"]}`)
	if err := s.Push("p1", pushed); err != nil {
		t.Fatalf("push: %v", err)
	}

	msg, ok := lastMessage(b1.downCh, "gameState")
	if !ok {
		t.Fatalf("pusher got no state broadcast")
	}
	var gs GameStateData
	if err := comms.Decode(msg, &gs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(gs.State, pushed) {
		t.Errorf("broadcast state not byte-identical:\n%s\n%s", gs.State, pushed)
	}

	r2, _ := s.Join("p2", "Two", bundle())
	if !bytes.Equal(r2.State, pushed) {
		t.Errorf("hydrated state not byte-identical:\n%s\n%s", r2.State, pushed)
	}
	if !bytes.Equal(s.State(), pushed) {
		t.Errorf("stored state not byte-identical")
	}
}

func TestPushNonMember(t *testing.T) {
	s := startSession(t, game.Nim, nil)
	s.Join("p1", "One", bundle())

	err := s.Push("intruder", json.RawMessage(`{"heaps":[1]}`))
	if err != errNotMember {
		t.Errorf("wrong error: %v", err)
	}
	if s.State() != nil {
		t.Errorf("state stored anyway")
	}
}

func TestPushWrongShape(t *testing.T) {
	s := startSession(t, game.Nim, nil)
	b1 := bundle()
	s.Join("p1", "One", b1)

	if err := s.Push("p1", json.RawMessage(`{"dice":[1,2,3,4,5]}`)); err == nil {
		t.Errorf("kniffel blob accepted by a nim room")
	}
	if err := s.Push("p1", json.RawMessage(`"junk"`)); err == nil {
		t.Errorf("junk accepted")
	}
	if s.State() != nil {
		t.Errorf("bad push stored")
	}

	if _, ok := lastMessage(b1.downCh, "gameState"); ok {
		t.Errorf("bad push broadcast")
	}
}

func TestLastWriteWins(t *testing.T) {
	s := startSession(t, game.Nim, nil)
	s.Join("p1", "One", bundle())
	s.Join("p2", "Two", bundle())

	first := json.RawMessage(`{"heaps":[1,3]}`)
	second := json.RawMessage(`{"heaps":[9,9]}`)
	s.Push("p1", first)
	s.Push("p2", second)

	if !bytes.Equal(s.State(), second) {
		t.Errorf("second push did not win: %s", s.State())
	}
}

func TestDepartureRepair(t *testing.T) {
	s := startSession(t, game.Kniffel, nil)
	b1 := bundle()
	s.Join("p1", "One", b1)
	s.Join("p2", "Two", bundle())
	s.Join("p3", "Three", bundle())

	ks := kniffel.NewState([]string{"p1", "p2", "p3"})
	ks.CurrentPlayerIndex = 1
	raw, _ := json.Marshal(ks)
	if err := s.Push("p1", raw); err != nil {
		t.Fatalf("push: %v", err)
	}

	s.Leave("p2")

	if got := s.Players(); len(got) != 2 || got[0] != "p1" || got[1] != "p3" {
		t.Errorf("bad members after leave: %v", got)
	}

	var repaired kniffel.State
	if err := json.Unmarshal(s.State(), &repaired); err != nil {
		t.Fatalf("unmarshal repaired: %v", err)
	}
	if _, ok := repaired.Scores["p2"]; ok {
		t.Errorf("departed sheet survived")
	}
	if repaired.CurrentPlayerIndex != 0 {
		t.Errorf("bad pointer after repair: %d", repaired.CurrentPlayerIndex)
	}

	// survivors hear about both the membership and the mutated state
	if _, ok := lastMessage(b1.downCh, "playersUpdate"); !ok {
		t.Errorf("no players update after leave")
	}
	msg, ok := lastMessage(b1.downCh, "gameState")
	if !ok {
		t.Fatalf("no state broadcast after repair")
	}
	var gs GameStateData
	comms.Decode(msg, &gs)
	if !bytes.Equal(gs.State, s.State()) {
		t.Errorf("broadcast state differs from stored")
	}
}

func TestLeaveWithoutRepairKeepsBytes(t *testing.T) {
	s := startSession(t, game.Nim, nil)
	s.Join("p1", "One", bundle())
	s.Join("p2", "Two", bundle())

	pushed := json.RawMessage(`{"heaps": [1,3,5,7] ,"currentPlayerIndex":0}`)
	s.Push("p1", pushed)
	s.Leave("p2")

	// pointer still in range, nothing to repair, bytes untouched
	if !bytes.Equal(s.State(), pushed) {
		t.Errorf("state re-marshalled without need: %s", s.State())
	}
}

func TestEmptyRoomCloses(t *testing.T) {
	emptied := make(chan struct{}, 1)
	s := startSession(t, game.Nim, func() { emptied <- struct{}{} })

	s.Join("p1", "One", bundle())
	s.Leave("p1")

	select {
	case <-emptied:
	default:
		t.Fatalf("onEmpty never ran")
	}
	if !s.closed() {
		t.Errorf("session still open")
	}
	if _, err := s.Join("p2", "Two", bundle()); err != errSessionClosed {
		t.Errorf("wrong error on dead session: %v", err)
	}
}

func TestRegistryReplacesClosedSession(t *testing.T) {
	log := zerolog.Nop()
	var gone []string
	r := NewRegistry(log, func(roomID string) { gone = append(gone, roomID) })

	s1 := r.GetOrCreate("r1", game.Nim)
	s1.Join("p1", "One", bundle())
	s1.Leave("p1")

	if len(gone) != 1 || gone[0] != "r1" {
		t.Errorf("onEmpty not forwarded: %v", gone)
	}
	if r.Count() != 0 {
		t.Errorf("dead session still registered")
	}

	s2 := r.GetOrCreate("r1", game.Nim)
	if s2 == s1 || s2.closed() {
		t.Errorf("closed session not replaced")
	}
	if _, ok := r.Get("r1"); !ok {
		t.Errorf("live session not found")
	}
}
