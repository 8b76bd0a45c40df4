// Package fishing is the card-collection game: ask another player for
// a rank, guess the suits of what they show, bank four-of-a-kind sets.
// The game ends when every hand is empty; most banked sets wins.
package fishing

import (
	"math/rand"
	"time"

	"github.com/stormyfocus/gamehub/game"
)

var (
	// ErrAskPending means an ask is waiting for its suit guess
	ErrAskPending = &game.Error{Code: "ASKPENDING", Msg: "an ask is already in progress"}
	// ErrNoAsk means there is nothing to guess on or cancel
	ErrNoAsk = &game.Error{Code: "NOASK", Msg: "no ask in progress"}
	// ErrNotInHand means asking for a rank you hold none of
	ErrNotInHand = &game.Error{Code: "NOTINHAND", Msg: "you do not hold that rank"}
)

// Phase of a turn.
type Phase string

const (
	PhaseAsking   Phase = "asking"
	PhaseGuessing Phase = "guessing"
	PhaseComplete Phase = "complete"
)

// Player is a seat; IsCurrentPlayer mirrors the turn pointer for the
// clients' convenience.
type Player struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	IsCurrentPlayer bool   `json:"isCurrentPlayer"`
}

// Ask is the in-flight question: the shown cards are revealed only to
// the asker by the client layer.
type Ask struct {
	AskingPlayerID string `json:"askingPlayerId"`
	TargetPlayerID string `json:"targetPlayerId"`
	RequestedRank  string `json:"requestedRank"`
	ShownCards     []Card `json:"shownCards"`
}

// Move summarises the last completed action.
type Move struct {
	PlayerID          string   `json:"playerId"`
	PlayerName        string   `json:"playerName"`
	TargetPlayerID    string   `json:"targetPlayerId"`
	Timestamp         string   `json:"timestamp"`
	RequestedRank     string   `json:"requestedRank"`
	TargetPlayerCards []Card   `json:"targetPlayerCards"`
	GuessedSuits      []string `json:"guessedSuits"`
	GuessCorrect      *bool    `json:"guessCorrect"`
	CardsExchanged    []Card   `json:"cardsExchanged"`
}

// State is the whole shared snapshot.
type State struct {
	Players            []Player            `json:"players"`
	CurrentPlayerIndex int                 `json:"currentPlayerIndex"`
	GameOver           bool                `json:"gameOver"`
	Winner             *string             `json:"winner"`
	LastMove           *Move               `json:"lastMove"`
	Hands              map[string][]Card   `json:"playerHands"`
	Scores             map[string]int      `json:"playerScores"`
	Stockpiles         map[string][][]Card `json:"playerStockpiles"`
	Deck               []Card              `json:"deck"`
	Discarded          []Card              `json:"discardedCards"`
	Phase              Phase               `json:"phase"`
	CurrentAsk         *Ask                `json:"currentAsk"`
}

func (s State) clone() State {
	out := s
	out.Players = append([]Player(nil), s.Players...)
	out.Deck = append([]Card(nil), s.Deck...)
	out.Discarded = append([]Card(nil), s.Discarded...)
	out.Hands = make(map[string][]Card, len(s.Hands))
	for id, h := range s.Hands {
		out.Hands[id] = append([]Card(nil), h...)
	}
	out.Scores = make(map[string]int, len(s.Scores))
	for id, n := range s.Scores {
		out.Scores[id] = n
	}
	out.Stockpiles = make(map[string][][]Card, len(s.Stockpiles))
	for id, piles := range s.Stockpiles {
		cp := make([][]Card, len(piles))
		for i, pile := range piles {
			cp[i] = append([]Card(nil), pile...)
		}
		out.Stockpiles[id] = cp
	}
	if s.CurrentAsk != nil {
		a := *s.CurrentAsk
		a.ShownCards = append([]Card(nil), s.CurrentAsk.ShownCards...)
		out.CurrentAsk = &a
	}
	if s.LastMove != nil {
		m := *s.LastMove
		out.LastMove = &m
	}
	return out
}

// Deal shuffles a fresh deck, gives everyone five cards and picks a
// random starting player. Any four-of-a-kind dealt straight into a hand
// banks before the first turn.
func Deal(players []Player) State {
	deck := Shuffle(NewDeck())

	s := State{
		Players:    make([]Player, len(players)),
		Hands:      make(map[string][]Card, len(players)),
		Scores:     make(map[string]int, len(players)),
		Stockpiles: make(map[string][][]Card, len(players)),
		Discarded:  []Card{},
		Phase:      PhaseAsking,
	}
	for i, p := range players {
		s.Players[i] = Player{ID: p.ID, Name: p.Name}
		s.Hands[p.ID] = append([]Card(nil), deck[:5]...)
		deck = deck[5:]
		s.Scores[p.ID] = 0
		s.Stockpiles[p.ID] = [][]Card{}
	}
	s.Deck = deck

	if len(players) > 0 {
		s.CurrentPlayerIndex = rand.Intn(len(players))
		s.Players[s.CurrentPlayerIndex].IsCurrentPlayer = true
	}

	settleSets(&s)
	return s
}

// settleSets banks every rank a player holds all four of, scoring one
// point per set. Re-run after every hand mutation.
func settleSets(s *State) {
	for id, hand := range s.Hands {
		byRank := map[string][]Card{}
		for _, c := range hand {
			byRank[c.Rank] = append(byRank[c.Rank], c)
		}
		for _, cards := range byRank {
			if len(cards) == 4 {
				s.Stockpiles[id] = append(s.Stockpiles[id], cards)
				s.Hands[id] = withoutCards(s.Hands[id], cards)
				s.Scores[id]++
			}
		}
	}
}

func (s *State) playerIndex(id string) int {
	for i, p := range s.Players {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (s *State) playerName(id string) string {
	if i := s.playerIndex(id); i >= 0 {
		return s.Players[i].Name
	}
	return ""
}

func (s *State) isCurrent(id string) bool {
	idx := s.CurrentPlayerIndex
	return idx >= 0 && idx < len(s.Players) && s.Players[idx].ID == id
}

func markCurrent(s *State) {
	for i := range s.Players {
		s.Players[i].IsCurrentPlayer = i == s.CurrentPlayerIndex
	}
}

func passTurn(s *State) {
	if len(s.Players) == 0 {
		return
	}
	s.CurrentPlayerIndex = (s.CurrentPlayerIndex + 1) % len(s.Players)
	markCurrent(s)
}

// passTurnToNextWithCards also skips players whose hands have emptied.
func passTurnToNextWithCards(s *State) {
	if len(s.Players) == 0 {
		return
	}
	for attempts := 0; attempts < len(s.Players); attempts++ {
		s.CurrentPlayerIndex = (s.CurrentPlayerIndex + 1) % len(s.Players)
		if len(s.Hands[s.Players[s.CurrentPlayerIndex].ID]) > 0 {
			break
		}
	}
	markCurrent(s)
}

func drawCard(s *State, playerID string) bool {
	if len(s.Deck) == 0 {
		return false
	}
	last := len(s.Deck) - 1
	card := s.Deck[last]
	s.Deck = s.Deck[:last]
	s.Hands[playerID] = append(s.Hands[playerID], card)
	return true
}

func checkGameOver(s *State) {
	for _, hand := range s.Hands {
		if len(hand) > 0 {
			return
		}
	}
	s.GameOver = true
	s.Phase = PhaseComplete

	best, tied := -1, false
	var winner string
	for id, score := range s.Scores {
		if score > best {
			best, tied, winner = score, false, id
		} else if score == best {
			tied = true
		}
	}
	if best >= 0 && !tied {
		s.Winner = &winner
	}
}

func recordMove(s *State, askerID, targetID, rank string, shown []Card, guessed []string, correct *bool, exchanged []Card) {
	s.LastMove = &Move{
		PlayerID:          askerID,
		PlayerName:        s.playerName(askerID),
		TargetPlayerID:    targetID,
		Timestamp:         time.Now().UTC().Format(time.RFC3339),
		RequestedRank:     rank,
		TargetPlayerCards: shown,
		GuessedSuits:      guessed,
		GuessCorrect:      correct,
		CardsExchanged:    exchanged,
	}
}

// AskForRank is the first half of a turn. Three outcomes:
//   - target holds nothing of the rank: asker goes fishing (draws one
//     if the pile allows) and the turn passes;
//   - asker holds three of the rank and target the fourth: it
//     transfers by itself, no guess, and the turn only passes if the
//     asker's hand emptied;
//   - otherwise the shown cards wait in CurrentAsk for a suit guess.
func AskForRank(s State, askerID, targetID, rank string) (State, error) {
	if s.GameOver {
		return s, game.ErrGameOver
	}
	if s.CurrentAsk != nil {
		return s, ErrAskPending
	}
	if !s.isCurrent(askerID) {
		return s, game.ErrNotYourTurn
	}
	if s.playerIndex(targetID) < 0 || targetID == askerID {
		return s, game.ErrUnknownPlayer
	}
	if len(cardsOfRank(s.Hands[askerID], rank)) == 0 {
		return s, ErrNotInHand
	}

	out := s.clone()
	matching := cardsOfRank(out.Hands[targetID], rank)

	if len(matching) == 0 {
		drawCard(&out, askerID)
		settleSets(&out)
		recordMove(&out, askerID, targetID, rank, []Card{}, nil, nil, []Card{})
		passTurnToNextWithCards(&out)
		checkGameOver(&out)
		return out, nil
	}

	if len(cardsOfRank(out.Hands[askerID], rank)) == 3 && len(matching) == 1 {
		out.Hands[askerID] = append(out.Hands[askerID], matching...)
		out.Hands[targetID] = withoutCards(out.Hands[targetID], matching)
		settleSets(&out)
		yes := true
		recordMove(&out, askerID, targetID, rank, matching, nil, &yes, matching)
		if len(out.Hands[askerID]) == 0 {
			passTurnToNextWithCards(&out)
		}
		checkGameOver(&out)
		return out, nil
	}

	out.CurrentAsk = &Ask{
		AskingPlayerID: askerID,
		TargetPlayerID: targetID,
		RequestedRank:  rank,
		ShownCards:     matching,
	}
	out.Phase = PhaseGuessing
	return out, nil
}

// GuessSuits resolves an open ask. Correctly guessed suits transfer
// their cards; anything missed costs a draw from the pile. The turn
// stays with the asker only after a perfect guess that leaves them
// holding cards.
func GuessSuits(s State, askerID string, guessedSuits []string) (State, error) {
	if s.CurrentAsk == nil || s.CurrentAsk.AskingPlayerID != askerID {
		return s, ErrNoAsk
	}

	out := s.clone()
	ask := *out.CurrentAsk
	out.CurrentAsk = nil
	out.Phase = PhaseAsking

	guessedSet := make(map[string]bool, len(guessedSuits))
	for _, g := range guessedSuits {
		guessedSet[g] = true
	}
	var won []Card
	for _, c := range ask.ShownCards {
		if guessedSet[c.Suit] {
			won = append(won, c)
		}
	}
	allCorrect := len(won) == len(ask.ShownCards)

	if len(won) > 0 {
		out.Hands[askerID] = append(out.Hands[askerID], won...)
		out.Hands[ask.TargetPlayerID] = withoutCards(out.Hands[ask.TargetPlayerID], won)
	}
	if !allCorrect {
		drawCard(&out, askerID)
	}
	settleSets(&out)

	if won == nil {
		won = []Card{}
	}
	if guessedSuits == nil {
		guessedSuits = []string{}
	}
	recordMove(&out, askerID, ask.TargetPlayerID, ask.RequestedRank, ask.ShownCards, guessedSuits, &allCorrect, won)

	if !allCorrect || len(out.Hands[askerID]) == 0 {
		passTurnToNextWithCards(&out)
	}
	checkGameOver(&out)
	return out, nil
}

// CancelGuess closes the guess dialog without an answer. It costs the
// same as guessing everything wrong: draw one card, turn passes. Seeing
// the shown count is never free.
func CancelGuess(s State, askerID string) (State, error) {
	if s.CurrentAsk == nil || s.CurrentAsk.AskingPlayerID != askerID {
		return s, ErrNoAsk
	}

	out := s.clone()
	ask := *out.CurrentAsk
	out.CurrentAsk = nil
	out.Phase = PhaseAsking

	drawCard(&out, askerID)
	settleSets(&out)

	no := false
	recordMove(&out, askerID, ask.TargetPlayerID, ask.RequestedRank, ask.ShownCards, []string{}, &no, []Card{})

	passTurn(&out)
	checkGameOver(&out)
	return out, nil
}

// RemovePlayer prunes a departed player: their hand goes to the discard
// pile, their score and banked sets leave the state, and the turn
// pointer is repaired like everywhere else (reset to 0 when it pointed
// at them or fell off the end).
func RemovePlayer(s State, playerID string) State {
	out := s.clone()

	oldIdx := out.playerIndex(playerID)
	if oldIdx < 0 {
		return out
	}

	if hand := out.Hands[playerID]; len(hand) > 0 {
		out.Discarded = append(out.Discarded, hand...)
	}
	delete(out.Hands, playerID)
	delete(out.Scores, playerID)
	delete(out.Stockpiles, playerID)
	out.Players = append(out.Players[:oldIdx], out.Players[oldIdx+1:]...)

	if out.CurrentAsk != nil && (out.CurrentAsk.AskingPlayerID == playerID || out.CurrentAsk.TargetPlayerID == playerID) {
		out.CurrentAsk = nil
		out.Phase = PhaseAsking
	}

	switch {
	case out.CurrentPlayerIndex == oldIdx:
		out.CurrentPlayerIndex = 0
	case oldIdx < out.CurrentPlayerIndex:
		out.CurrentPlayerIndex--
	}
	if out.CurrentPlayerIndex >= len(out.Players) {
		out.CurrentPlayerIndex = 0
	}
	markCurrent(&out)

	if len(out.Players) > 0 {
		checkGameOver(&out)
	}
	return out
}
