// Package kniffel is the dice-scoring game: up to three rolls a turn,
// thirteen categories per player, highest grand total wins.
package kniffel

import (
	"math/rand"
	"time"

	"github.com/stormyfocus/gamehub/game"
)

var (
	// ErrRollLimit means the three rolls of this turn are used up
	ErrRollLimit = &game.Error{Code: "ROLLLIMIT", Msg: "no rolls left this turn"}
	// ErrMustRoll means scoring before rolling at least once
	ErrMustRoll = &game.Error{Code: "MUSTROLL", Msg: "must roll before scoring"}
	// ErrCategorySet means that category already has a score
	ErrCategorySet = &game.Error{Code: "CATEGORYSET", Msg: "category already scored"}
)

// Category is one of the 13 scoring slots on a sheet.
type Category string

const (
	Ones   Category = "ones"
	Twos   Category = "twos"
	Threes Category = "threes"
	Fours  Category = "fours"
	Fives  Category = "fives"
	Sixes  Category = "sixes"

	ThreeOfAKind  Category = "threeOfAKind"
	FourOfAKind   Category = "fourOfAKind"
	FullHouse     Category = "fullHouse"
	SmallStraight Category = "smallStraight"
	LargeStraight Category = "largeStraight"
	KniffelCat    Category = "kniffel"
	Chance        Category = "chance"
)

// UpperCategories count single faces and feed the 63-point bonus.
var UpperCategories = []Category{Ones, Twos, Threes, Fours, Fives, Sixes}

// LowerCategories are the combination scores.
var LowerCategories = []Category{ThreeOfAKind, FourOfAKind, FullHouse, SmallStraight, LargeStraight, KniffelCat, Chance}

// AllCategories in sheet order.
var AllCategories = append(append([]Category{}, UpperCategories...), LowerCategories...)

// Sheet maps category to recorded score; nil means still open.
type Sheet map[Category]*int

// NewSheet is a sheet with every category open.
func NewSheet() Sheet {
	s := make(Sheet, len(AllCategories))
	for _, c := range AllCategories {
		s[c] = nil
	}
	return s
}

// HasOpen says whether any category is still unscored.
func (s Sheet) HasOpen() bool {
	for _, c := range AllCategories {
		if v, ok := s[c]; !ok || v == nil {
			return true
		}
	}
	return false
}

func (s Sheet) clone() Sheet {
	out := make(Sheet, len(s))
	for c, v := range s {
		if v == nil {
			out[c] = nil
			continue
		}
		n := *v
		out[c] = &n
	}
	return out
}

// Winner is what gets stored when the game ends with a single best
// total. A tie stores nothing; callers recompute the tie set from
// GrandTotals.
type Winner struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Score      int    `json:"score"`
}

// State is the whole shared snapshot.
type State struct {
	Dice               []int            `json:"dice"`
	SelectedDice       []int            `json:"selectedDice"`
	RollCount          int              `json:"rollCount"`
	CurrentPlayerIndex int              `json:"currentPlayerIndex"`
	Scores             map[string]Sheet `json:"scores"`
	GameOver           bool             `json:"gameOver"`
	Winner             *Winner          `json:"winner"`
	GameOverTimestamp  *string          `json:"gameOverTimestamp"`
}

// NewState starts a game for the given seats, dice face up at 1.
func NewState(playerIDs []string) State {
	scores := make(map[string]Sheet, len(playerIDs))
	for _, id := range playerIDs {
		scores[id] = NewSheet()
	}
	return State{
		Dice:         []int{1, 1, 1, 1, 1},
		SelectedDice: []int{},
		Scores:       scores,
	}
}

func (s State) clone() State {
	out := s
	out.Dice = append([]int(nil), s.Dice...)
	out.SelectedDice = append([]int(nil), s.SelectedDice...)
	out.Scores = make(map[string]Sheet, len(s.Scores))
	for id, sheet := range s.Scores {
		out.Scores[id] = sheet.clone()
	}
	if s.Winner != nil {
		w := *s.Winner
		out.Winner = &w
	}
	return out
}

func randomDie() int {
	return rand.Intn(6) + 1
}

// Roll re-rolls every die whose index is not held. Legal only for the
// current player with rolls left this turn.
func Roll(s State, playerID string, players []game.Player, held []int) (State, error) {
	if s.GameOver {
		return s, game.ErrGameOver
	}
	if !isCurrent(s, playerID, players) {
		return s, game.ErrNotYourTurn
	}
	if s.RollCount >= 3 {
		return s, ErrRollLimit
	}

	heldSet := make(map[int]bool, len(held))
	for _, i := range held {
		heldSet[i] = true
	}

	out := s.clone()
	for i := range out.Dice {
		if !heldSet[i] {
			out.Dice[i] = randomDie()
		}
	}
	out.SelectedDice = append([]int{}, held...)
	out.RollCount++
	return out, nil
}

// Score records value into an open category for the current player,
// resets the dice for the next turn and advances to the next player who
// still has an open category. Scoring 0 is how a stuck player passes.
func Score(s State, playerID string, players []game.Player, category Category, value int) (State, error) {
	if s.GameOver {
		return s, game.ErrGameOver
	}
	if !isCurrent(s, playerID, players) {
		return s, game.ErrNotYourTurn
	}
	if s.RollCount == 0 {
		return s, ErrMustRoll
	}
	if !validCategory(category) || value < 0 {
		return s, game.ErrBadRequest
	}
	sheet, ok := s.Scores[playerID]
	if !ok {
		return s, game.ErrUnknownPlayer
	}
	if v := sheet[category]; v != nil {
		return s, ErrCategorySet
	}

	out := s.clone()
	v := value
	out.Scores[playerID][category] = &v
	out.Dice = []int{1, 1, 1, 1, 1}
	out.SelectedDice = []int{}
	out.RollCount = 0
	out.CurrentPlayerIndex = NextPlayerIndex(out, players, out.CurrentPlayerIndex)

	return finishIfDone(out, players), nil
}

// NextPlayerIndex finds the next seat whose sheet still has an open
// category, skipping finished players. If nobody is left it returns the
// index unchanged, which is the terminal signal.
func NextPlayerIndex(s State, players []game.Player, current int) int {
	if len(players) <= 1 {
		return 0
	}
	next := (current + 1) % len(players)
	for attempts := 0; attempts < len(players); attempts++ {
		if sheet, ok := s.Scores[players[next].ID]; ok && sheet.HasOpen() {
			return next
		}
		next = (next + 1) % len(players)
	}
	return current
}

func isCurrent(s State, playerID string, players []game.Player) bool {
	idx := s.CurrentPlayerIndex
	return idx >= 0 && idx < len(players) && players[idx].ID == playerID
}

func validCategory(c Category) bool {
	for _, k := range AllCategories {
		if k == c {
			return true
		}
	}
	return false
}

// finishIfDone ends the game when no seated player has an open
// category, and works out the winner.
func finishIfDone(s State, players []game.Player) State {
	for _, p := range players {
		if sheet, ok := s.Scores[p.ID]; ok && sheet.HasOpen() {
			return s
		}
	}
	if len(players) == 0 {
		return s
	}

	out := s
	out.GameOver = true
	ts := time.Now().UTC().Format(time.RFC3339)
	out.GameOverTimestamp = &ts

	best, tied := -1, false
	var winner *Winner
	for _, p := range players {
		sheet, ok := out.Scores[p.ID]
		if !ok {
			continue
		}
		total := GrandTotal(sheet)
		if total > best {
			best = total
			tied = false
			winner = &Winner{PlayerID: p.ID, PlayerName: p.Name, Score: total}
		} else if total == best {
			tied = true
		}
	}
	if !tied {
		out.Winner = winner
	}
	return out
}

// RemovePlayer prunes a departed player's sheet and repairs the turn
// pointer. players is the seating before the departure, remaining the
// seating after. If it was the departed player's turn, or the pointer
// fell off the end of the shorter list, it resets to 0; a pointer at a
// seat after the departed one shifts down to keep naming the same
// player. Then it skips to the next seat with an open category, and if
// nobody has one left the game ends right away.
func RemovePlayer(s State, playerID string, players, remaining []game.Player) State {
	out := s.clone()
	delete(out.Scores, playerID)

	oldIdx := game.IndexOf(players, playerID)
	switch {
	case out.CurrentPlayerIndex == oldIdx:
		out.CurrentPlayerIndex = 0
	case oldIdx >= 0 && oldIdx < out.CurrentPlayerIndex:
		out.CurrentPlayerIndex--
	}
	if out.CurrentPlayerIndex >= len(remaining) {
		out.CurrentPlayerIndex = 0
	}

	if len(remaining) > 0 {
		idx := out.CurrentPlayerIndex
		if sheet, ok := out.Scores[remaining[idx].ID]; !ok || !sheet.HasOpen() {
			out.CurrentPlayerIndex = NextPlayerIndex(out, remaining, idx)
		}
	}

	return finishIfDone(out, remaining)
}
