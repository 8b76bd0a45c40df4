package server

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/stormyfocus/gamehub/fishing"
	"github.com/stormyfocus/gamehub/game"
	"github.com/stormyfocus/gamehub/kniffel"
	"github.com/stormyfocus/gamehub/nim"
)

// validateState checks that a pushed snapshot decodes as the room's game
// kind. The relay never judges legality, only shape: a room is bound to
// one kind and a blob of the wrong shape is rejected before storage.
func validateState(kind game.Kind, raw json.RawMessage) error {
	if len(raw) == 0 {
		return fmt.Errorf("empty state")
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	var err error
	switch kind {
	case game.Nim:
		err = dec.Decode(&nim.State{})
	case game.Kniffel:
		err = dec.Decode(&kniffel.State{})
	case game.Fishing:
		err = dec.Decode(&fishing.State{})
	default:
		return fmt.Errorf("unknown game kind: %q", kind)
	}
	if err != nil {
		return fmt.Errorf("not a %s state: %w", kind, err)
	}
	return nil
}

// repairState fixes a stored snapshot after a player departs: their
// per-player entries are pruned and the turn pointer is put back in
// range. Returns the (possibly new) raw snapshot and whether it changed.
// The stored bytes are only re-marshalled when a repair actually
// happened, so untouched snapshots keep round-tripping byte-for-byte.
func repairState(kind game.Kind, raw json.RawMessage, playerID string, players, remaining []game.Player) (json.RawMessage, bool, error) {
	if len(raw) == 0 {
		return raw, false, nil
	}

	switch kind {
	case game.Nim:
		var s nim.State
		if err := json.Unmarshal(raw, &s); err != nil {
			return raw, false, err
		}
		// nim state carries no per-player entries, only the pointer
		if s.CurrentPlayerIndex < len(remaining) {
			return raw, false, nil
		}
		s.CurrentPlayerIndex = 0
		out, err := json.Marshal(s)
		return out, err == nil, err
	case game.Kniffel:
		var s kniffel.State
		if err := json.Unmarshal(raw, &s); err != nil {
			return raw, false, err
		}
		if _, ok := s.Scores[playerID]; !ok && game.IndexOf(players, playerID) < 0 {
			return raw, false, nil
		}
		repaired := kniffel.RemovePlayer(s, playerID, players, remaining)
		out, err := json.Marshal(repaired)
		return out, err == nil, err
	case game.Fishing:
		var s fishing.State
		if err := json.Unmarshal(raw, &s); err != nil {
			return raw, false, err
		}
		if _, ok := s.Hands[playerID]; !ok {
			return raw, false, nil
		}
		repaired := fishing.RemovePlayer(s, playerID)
		out, err := json.Marshal(repaired)
		return out, err == nil, err
	}
	return raw, false, fmt.Errorf("unknown game kind: %q", kind)
}
