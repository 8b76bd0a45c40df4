package server

import (
	"encoding/json"
	"errors"

	"github.com/rs/zerolog"

	"github.com/stormyfocus/gamehub/comms"
	"github.com/stormyfocus/gamehub/game"
)

var (
	errNotMember     = errors.New("not a room member")
	errSessionClosed = errors.New("room session closed")
)

type member struct {
	name   string
	client clientBundle
}

// session is one live room. A single goroutine owns the member set, the
// join order and the latest snapshot; everything reaches it through
// coreCh. The snapshot is kept as the raw bytes that were pushed, so
// hydration hands back exactly what the last writer sent.
type session struct {
	roomID  string
	kind    game.Kind
	coreCh  chan interface{}
	done    chan struct{}
	log     zerolog.Logger
	onEmpty func()

	// owned by the run loop
	members map[string]*member
	order   []string
	state   json.RawMessage
}

func newSession(roomID string, kind game.Kind, log zerolog.Logger, onEmpty func()) *session {
	return &session{
		roomID:  roomID,
		kind:    kind,
		coreCh:  make(chan interface{}),
		done:    make(chan struct{}),
		log:     log.With().Str("room", roomID).Logger(),
		onEmpty: onEmpty,
		members: map[string]*member{},
	}
}

func (s *session) run() {
	s.log.Info().Str("kind", string(s.kind)).Msg("room opening")
	defer s.log.Info().Msg("room closed")

	for in := range s.coreCh {
		if stop := s.processMessage(in); stop {
			return
		}
	}
}

func (s *session) processMessage(in interface{}) bool {
	switch msg := in.(type) {
	case joinMsg:
		if _, ok := s.members[msg.PlayerID]; ok {
			s.log.Info().Str("player", msg.PlayerID).Msg("rejoins")
		} else {
			s.order = append(s.order, msg.PlayerID)
			s.log.Info().Str("player", msg.PlayerID).Msg("joins")
		}
		s.members[msg.PlayerID] = &member{name: msg.PlayerName, client: msg.Client}
		// broadcast first so the reply implies everyone was told
		s.broadcastPlayers()
		msg.Rep <- joinReply{Players: s.playerIDs(), State: s.state}
	case playerListMsg:
		msg.Rep <- s.playerIDs()
	case stateMsg:
		msg.Rep <- s.state
	case pushMsg:
		if _, ok := s.members[msg.PlayerID]; !ok {
			msg.Rep <- errNotMember
			return false
		}
		if err := validateState(s.kind, msg.State); err != nil {
			msg.Rep <- err
			return false
		}
		s.state = msg.State
		s.broadcastState()
		msg.Rep <- nil
	case leaveMsg:
		stop := s.dropMember(msg.PlayerID)
		if stop {
			// closed before the reply so callers see a dead session
			// the moment Leave returns
			close(s.done)
		}
		if msg.Rep != nil {
			msg.Rep <- struct{}{}
		}
		return stop
	default:
		s.log.Warn().Msgf("nonsense in core: %#v", in)
	}
	return false
}

// dropMember handles both explicit leaves and transport disconnects.
// Reports true when the room emptied and the session should stop.
func (s *session) dropMember(playerID string) bool {
	if _, ok := s.members[playerID]; !ok {
		return false
	}

	players := s.seating()
	delete(s.members, playerID)
	for i, id := range s.order {
		if id == playerID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.log.Info().Str("player", playerID).Msg("leaves")

	if len(s.members) == 0 {
		s.state = nil
		if s.onEmpty != nil {
			s.onEmpty()
		}
		return true
	}

	repaired, changed, err := repairState(s.kind, s.state, playerID, players, s.seating())
	if err != nil {
		s.log.Error().Err(err).Msg("state repair failed")
		changed = false
	} else if changed {
		s.state = repaired
	}

	s.broadcastPlayers()
	if changed {
		s.broadcastState()
	}
	return false
}

func (s *session) playerIDs() []string {
	return append([]string(nil), s.order...)
}

func (s *session) seating() []game.Player {
	out := make([]game.Player, 0, len(s.order))
	for _, id := range s.order {
		m := s.members[id]
		if m == nil {
			continue
		}
		out = append(out, game.Player{ID: id, Name: m.name})
	}
	return out
}

func (s *session) broadcastPlayers() {
	msg, err := comms.Encode("playersUpdate", PlayersUpdateData{PlayerIDs: s.playerIDs()})
	if err != nil {
		s.log.Error().Err(err).Msg("failed to encode players update")
		return
	}
	s.broadcast(msg)
}

func (s *session) broadcastState() {
	msg, err := comms.Encode("gameState", GameStateData{State: s.state})
	if err != nil {
		s.log.Error().Err(err).Msg("failed to encode state")
		return
	}
	s.broadcast(msg)
}

func (s *session) broadcast(msg comms.Message) {
	for id, m := range s.members {
		select {
		case m.client.downCh <- msg:
		default:
			// client lagging
			s.log.Info().Msgf("client lagging: %s", id)
		}
	}
}

// Join adds or re-adds a player and returns the hydration data: the
// ordered member list and the latest snapshot, if any.
func (s *session) Join(playerID, playerName string, client clientBundle) (joinReply, error) {
	rep := make(chan joinReply, 1)
	select {
	case s.coreCh <- joinMsg{playerID, playerName, client, rep}:
		return <-rep, nil
	case <-s.done:
		return joinReply{}, errSessionClosed
	}
}

func (s *session) Players() []string {
	rep := make(chan []string, 1)
	select {
	case s.coreCh <- playerListMsg{rep}:
		return <-rep
	case <-s.done:
		return nil
	}
}

func (s *session) State() json.RawMessage {
	rep := make(chan json.RawMessage, 1)
	select {
	case s.coreCh <- stateMsg{rep}:
		return <-rep
	case <-s.done:
		return nil
	}
}

// Push stores a snapshot and fans it out to every member, the pusher
// included. errNotMember pushes are for the caller to drop quietly.
func (s *session) Push(playerID string, state json.RawMessage) error {
	rep := make(chan error, 1)
	select {
	case s.coreCh <- pushMsg{playerID, state, rep}:
		return <-rep
	case <-s.done:
		return errSessionClosed
	}
}

func (s *session) Leave(playerID string) {
	rep := make(chan struct{}, 1)
	select {
	case s.coreCh <- leaveMsg{playerID, rep}:
		<-rep
	case <-s.done:
	}
}

func (s *session) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}
