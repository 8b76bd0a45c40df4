// Package nim is the coin-removal game. A turn removes coins one at a
// time from the rows; the player who takes the very last coin loses.
//
// All transitions copy the input state and return a new one.
package nim

import (
	"fmt"
	"time"

	"github.com/stormyfocus/gamehub/game"
)

var (
	// ErrCoinRemoved means that exact coin is already gone
	ErrCoinRemoved = &game.Error{Code: "COINREMOVED", Msg: "coin already removed"}
	// ErrFirstPlayerSet means the first player was chosen before
	ErrFirstPlayerSet = &game.Error{Code: "FIRSTPLAYERSET", Msg: "first player already selected"}
)

// DefaultHeaps is the classic 1-3-5-7 layout.
var DefaultHeaps = []int{1, 3, 5, 7}

// Move records what the last action was, for the activity display.
type Move struct {
	PlayerID       string `json:"playerId"`
	PlayerName     string `json:"playerName"`
	HeapIndex      int    `json:"heapIndex"`
	ObjectsRemoved int    `json:"objectsRemoved"`
	Timestamp      string `json:"timestamp"`
}

// State is the whole shared snapshot. Heaps keeps the original row
// sizes; RemovedCoins marks individual coins as "row-coin" keys, so a
// row's live count is its size minus its markers.
type State struct {
	Heaps               []int    `json:"heaps"`
	CurrentPlayerIndex  int      `json:"currentPlayerIndex"`
	GameOver            bool     `json:"gameOver"`
	Winner              *string  `json:"winner"`
	GameOverTimestamp   *string  `json:"gameOverTimestamp"`
	LastMove            *Move    `json:"lastMove"`
	RemovedCoins        []string `json:"removedCoins"`
	FirstPlayerSelected bool     `json:"firstPlayerSelected"`
	FirstPlayerID       *string  `json:"firstPlayerId"`
}

// NewState makes a fresh game with the given rows, or the default
// layout if none are given.
func NewState(heaps []int) State {
	if len(heaps) == 0 {
		heaps = DefaultHeaps
	}
	return State{
		Heaps:        append([]int(nil), heaps...),
		RemovedCoins: []string{},
	}
}

func (s State) clone() State {
	out := s
	out.Heaps = append([]int(nil), s.Heaps...)
	out.RemovedCoins = append([]string(nil), s.RemovedCoins...)
	if s.LastMove != nil {
		m := *s.LastMove
		out.LastMove = &m
	}
	return out
}

func coinKey(row, coin int) string {
	return fmt.Sprintf("%d-%d", row, coin)
}

// IsCoinRemoved says whether one specific coin is gone.
func IsCoinRemoved(s State, row, coin int) bool {
	key := coinKey(row, coin)
	for _, k := range s.RemovedCoins {
		if k == key {
			return true
		}
	}
	return false
}

// ActualRemaining is the live count per row: original size minus the
// removal markers in that row.
func ActualRemaining(s State) []int {
	out := append([]int(nil), s.Heaps...)
	for _, key := range s.RemovedCoins {
		var row, coin int
		if _, err := fmt.Sscanf(key, "%d-%d", &row, &coin); err != nil {
			continue
		}
		if row >= 0 && row < len(out) {
			out[row]--
		}
	}
	return out
}

// Sum is the nim-sum (XOR of live row counts). Derived value for UI
// hinting only; it has no effect on legality.
func Sum(s State) int {
	acc := 0
	for _, h := range ActualRemaining(s) {
		acc ^= h
	}
	return acc
}

// IsGameOver recomputes the end condition from the markers.
func IsGameOver(s State) bool {
	for _, h := range ActualRemaining(s) {
		if h != 0 {
			return false
		}
	}
	return true
}

// AvailableMove is a row that still has coins.
type AvailableMove struct {
	HeapIndex  int `json:"heapIndex"`
	MaxObjects int `json:"maxObjects"`
}

// AvailableMoves lists the rows a player could still take from.
func AvailableMoves(s State) []AvailableMove {
	if s.GameOver {
		return nil
	}
	var out []AvailableMove
	for i, h := range ActualRemaining(s) {
		if h > 0 {
			out = append(out, AvailableMove{HeapIndex: i, MaxObjects: h})
		}
	}
	return out
}

// SelectFirstPlayer is legal exactly once, before any coin is taken.
func SelectFirstPlayer(s State, playerID string, players []game.Player) (State, error) {
	if s.FirstPlayerSelected {
		return s, ErrFirstPlayerSet
	}
	idx := game.IndexOf(players, playerID)
	if idx < 0 {
		return s, game.ErrUnknownPlayer
	}

	out := s.clone()
	out.FirstPlayerSelected = true
	out.FirstPlayerID = &playerID
	out.CurrentPlayerIndex = idx
	return out, nil
}

// RemoveCoin takes one coin. It does not advance the turn; a player may
// remove several coins before calling EndTurn. The engine does not stop
// cross-row removal within a turn; the client locks the row.
//
// Misère rule: whoever removes the last coin loses. With exactly two
// players the other one is the winner; with more, no winner is
// recorded.
func RemoveCoin(s State, playerID, playerName string, row, coin int, players []game.Player) (State, error) {
	if s.GameOver {
		return s, game.ErrGameOver
	}
	if row < 0 || row >= len(s.Heaps) || coin < 0 || coin >= s.Heaps[row] {
		return s, game.ErrBadRequest
	}
	if IsCoinRemoved(s, row, coin) {
		return s, ErrCoinRemoved
	}

	out := s.clone()
	out.RemovedCoins = append(out.RemovedCoins, coinKey(row, coin))
	out.LastMove = &Move{
		PlayerID:       playerID,
		PlayerName:     playerName,
		HeapIndex:      row,
		ObjectsRemoved: 1,
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
	}

	if IsGameOver(out) {
		out.GameOver = true
		ts := time.Now().UTC().Format(time.RFC3339)
		out.GameOverTimestamp = &ts
		if len(players) == 2 {
			for _, p := range players {
				if p.ID != playerID {
					id := p.ID
					out.Winner = &id
					break
				}
			}
		}
	}

	return out, nil
}

// EndTurn passes to the next seat. It does not check that anything was
// removed this turn.
func EndTurn(s State, playerCount int) State {
	out := s.clone()
	if playerCount > 0 {
		out.CurrentPlayerIndex = (out.CurrentPlayerIndex + 1) % playerCount
	}
	return out
}
