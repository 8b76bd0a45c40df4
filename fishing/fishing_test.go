package fishing

import (
	"testing"

	"github.com/stormyfocus/gamehub/game"
)

func testPlayers() []Player {
	return []Player{
		{ID: "p1", Name: "One"},
		{ID: "p2", Name: "Two"},
		{ID: "p3", Name: "Three"},
	}
}

// a bare state with empty zones, to be filled per test
func testState(players []Player) State {
	s := State{
		Players:    append([]Player(nil), players...),
		Hands:      map[string][]Card{},
		Scores:     map[string]int{},
		Stockpiles: map[string][][]Card{},
		Deck:       []Card{},
		Discarded:  []Card{},
		Phase:      PhaseAsking,
	}
	for _, p := range players {
		s.Hands[p.ID] = []Card{}
		s.Stockpiles[p.ID] = [][]Card{}
		s.Scores[p.ID] = 0
	}
	s.Players[0].IsCurrentPlayer = true
	return s
}

// every card in the game, wherever it lives
func countCards(s State) int {
	n := len(s.Deck) + len(s.Discarded)
	for _, h := range s.Hands {
		n += len(h)
	}
	for _, piles := range s.Stockpiles {
		for _, pile := range piles {
			n += len(pile)
		}
	}
	return n
}

func TestDeal(t *testing.T) {
	s := Deal(testPlayers())

	if countCards(s) != 52 {
		t.Errorf("cards not conserved: %d", countCards(s))
	}
	if len(s.Deck) > 52-3*5 {
		t.Errorf("deck too big: %d", len(s.Deck))
	}
	if s.CurrentPlayerIndex < 0 || s.CurrentPlayerIndex >= 3 {
		t.Errorf("bad starting index: %d", s.CurrentPlayerIndex)
	}
	if !s.Players[s.CurrentPlayerIndex].IsCurrentPlayer {
		t.Errorf("current player not marked")
	}
	if s.GameOver {
		t.Errorf("over at deal")
	}
}

func TestAsk_noCards(t *testing.T) {
	s := testState(testPlayers())
	s.Hands["p1"] = []Card{{Suit: "S", Rank: "7"}}
	s.Hands["p2"] = []Card{{Suit: "H", Rank: "K"}}
	s.Hands["p3"] = []Card{{Suit: "D", Rank: "2"}}
	s.Deck = []Card{{Suit: "C", Rank: "9"}}

	s1, err := AskForRank(s, "p1", "p2", "7")
	if err != nil {
		t.Errorf("error: %v", err)
	}
	if len(s1.Hands["p1"]) != 2 {
		t.Errorf("no card drawn: %v", s1.Hands["p1"])
	}
	if len(s1.Deck) != 0 {
		t.Errorf("deck not drawn from")
	}
	if s1.CurrentPlayerIndex != 1 {
		t.Errorf("turn not passed: %d", s1.CurrentPlayerIndex)
	}
	if s1.LastMove == nil || len(s1.LastMove.TargetPlayerCards) != 0 {
		t.Errorf("bad move record: %+v", s1.LastMove)
	}
	if countCards(s1) != countCards(s) {
		t.Errorf("cards not conserved")
	}
}

// Asker holds three sevens, target holds the fourth: automatic
// transfer, immediate banking, one point, no guess dialog.
func TestAsk_autoTransfer(t *testing.T) {
	s := testState(testPlayers())
	s.Hands["p1"] = []Card{
		{Suit: "S", Rank: "7"}, {Suit: "H", Rank: "7"}, {Suit: "D", Rank: "7"},
		{Suit: "S", Rank: "2"},
	}
	s.Hands["p2"] = []Card{{Suit: "C", Rank: "7"}, {Suit: "H", Rank: "K"}}
	s.Hands["p3"] = []Card{{Suit: "D", Rank: "2"}}

	s1, err := AskForRank(s, "p1", "p2", "7")
	if err != nil {
		t.Errorf("error: %v", err)
	}
	if s1.CurrentAsk != nil {
		t.Errorf("guess dialog opened")
	}
	if s1.Scores["p1"] != 1 {
		t.Errorf("set not banked: %d", s1.Scores["p1"])
	}
	if len(s1.Stockpiles["p1"]) != 1 || len(s1.Stockpiles["p1"][0]) != 4 {
		t.Errorf("bad stockpile: %+v", s1.Stockpiles["p1"])
	}
	if len(cardsOfRank(s1.Hands["p1"], "7")) != 0 {
		t.Errorf("sevens still in hand")
	}
	// asker still holds the 2, so the turn stays
	if s1.CurrentPlayerIndex != 0 {
		t.Errorf("turn passed: %d", s1.CurrentPlayerIndex)
	}
	if countCards(s1) != countCards(s) {
		t.Errorf("cards not conserved")
	}
}

func TestAsk_opensGuess(t *testing.T) {
	s := testState(testPlayers())
	s.Hands["p1"] = []Card{{Suit: "S", Rank: "7"}}
	s.Hands["p2"] = []Card{{Suit: "C", Rank: "7"}, {Suit: "H", Rank: "7"}}
	s.Hands["p3"] = []Card{{Suit: "D", Rank: "2"}}

	s1, err := AskForRank(s, "p1", "p2", "7")
	if err != nil {
		t.Errorf("error: %v", err)
	}
	if s1.CurrentAsk == nil || len(s1.CurrentAsk.ShownCards) != 2 {
		t.Errorf("no ask opened: %+v", s1.CurrentAsk)
	}
	if s1.Phase != PhaseGuessing {
		t.Errorf("bad phase: %v", s1.Phase)
	}

	// nothing transfers until the guess
	if len(s1.Hands["p1"]) != 1 || len(s1.Hands["p2"]) != 2 {
		t.Errorf("cards moved early")
	}

	if _, err := AskForRank(s1, "p1", "p3", "7"); err != ErrAskPending {
		t.Errorf("wrong error: %v", err)
	}
}

func TestAsk_illegal(t *testing.T) {
	s := testState(testPlayers())
	s.Hands["p1"] = []Card{{Suit: "S", Rank: "7"}}
	s.Hands["p2"] = []Card{{Suit: "H", Rank: "K"}}

	if _, err := AskForRank(s, "p2", "p1", "K"); err != game.ErrNotYourTurn {
		t.Errorf("wrong error: %v", err)
	}
	if _, err := AskForRank(s, "p1", "p1", "7"); err != game.ErrUnknownPlayer {
		t.Errorf("wrong error: %v", err)
	}
	if _, err := AskForRank(s, "p1", "p2", "K"); err != ErrNotInHand {
		t.Errorf("wrong error: %v", err)
	}
}

func TestGuess_partial(t *testing.T) {
	s := testState(testPlayers())
	s.Hands["p1"] = []Card{{Suit: "S", Rank: "7"}}
	s.Hands["p2"] = []Card{{Suit: "C", Rank: "7"}, {Suit: "H", Rank: "7"}, {Suit: "D", Rank: "K"}}
	s.Hands["p3"] = []Card{{Suit: "D", Rank: "2"}}
	s.Deck = []Card{{Suit: "D", Rank: "9"}}

	s1, _ := AskForRank(s, "p1", "p2", "7")
	s2, err := GuessSuits(s1, "p1", []string{"C", "D"})
	if err != nil {
		t.Errorf("error: %v", err)
	}
	// C7 transfers, H7 was missed: draw one and pass the turn
	if len(cardsOfRank(s2.Hands["p1"], "7")) != 2 {
		t.Errorf("card not transferred: %v", s2.Hands["p1"])
	}
	if len(s2.Deck) != 0 {
		t.Errorf("no draw after miss")
	}
	if s2.CurrentPlayerIndex != 1 {
		t.Errorf("turn not passed: %d", s2.CurrentPlayerIndex)
	}
	if s2.LastMove == nil || s2.LastMove.GuessCorrect == nil || *s2.LastMove.GuessCorrect {
		t.Errorf("bad move record: %+v", s2.LastMove)
	}
	if s2.CurrentAsk != nil {
		t.Errorf("ask not cleared")
	}
	if countCards(s2) != countCards(s) {
		t.Errorf("cards not conserved")
	}
}

func TestGuess_allCorrectKeepsTurn(t *testing.T) {
	s := testState(testPlayers())
	s.Hands["p1"] = []Card{{Suit: "S", Rank: "7"}, {Suit: "S", Rank: "3"}}
	s.Hands["p2"] = []Card{{Suit: "C", Rank: "7"}, {Suit: "D", Rank: "K"}}
	s.Hands["p3"] = []Card{{Suit: "D", Rank: "2"}}
	s.Deck = []Card{{Suit: "D", Rank: "9"}}

	s1, _ := AskForRank(s, "p1", "p2", "7")
	s2, err := GuessSuits(s1, "p1", []string{"C"})
	if err != nil {
		t.Errorf("error: %v", err)
	}
	if len(s2.Deck) != 1 {
		t.Errorf("drew on a perfect guess")
	}
	if s2.CurrentPlayerIndex != 0 {
		t.Errorf("turn passed on a perfect guess: %d", s2.CurrentPlayerIndex)
	}
	if s2.LastMove.GuessCorrect == nil || !*s2.LastMove.GuessCorrect {
		t.Errorf("bad move record: %+v", s2.LastMove)
	}
}

func TestGuess_withoutAsk(t *testing.T) {
	s := testState(testPlayers())
	if _, err := GuessSuits(s, "p1", []string{"C"}); err != ErrNoAsk {
		t.Errorf("wrong error: %v", err)
	}
	if _, err := CancelGuess(s, "p1"); err != ErrNoAsk {
		t.Errorf("wrong error: %v", err)
	}
}

// Cancelling the dialog costs the same as an all-wrong guess: one draw
// and the turn always passes.
func TestCancelGuess(t *testing.T) {
	s := testState(testPlayers())
	s.Hands["p1"] = []Card{{Suit: "S", Rank: "7"}}
	s.Hands["p2"] = []Card{{Suit: "C", Rank: "7"}, {Suit: "H", Rank: "7"}}
	s.Hands["p3"] = []Card{{Suit: "D", Rank: "2"}}
	s.Deck = []Card{{Suit: "D", Rank: "9"}}

	s1, _ := AskForRank(s, "p1", "p2", "7")
	s2, err := CancelGuess(s1, "p1")
	if err != nil {
		t.Errorf("error: %v", err)
	}
	if len(s2.Deck) != 0 {
		t.Errorf("no draw on cancel")
	}
	if len(s2.Hands["p2"]) != 2 {
		t.Errorf("cards moved on cancel")
	}
	if s2.CurrentPlayerIndex != 1 {
		t.Errorf("turn not passed: %d", s2.CurrentPlayerIndex)
	}
	if countCards(s2) != countCards(s) {
		t.Errorf("cards not conserved")
	}
}

func TestGameOverWinner(t *testing.T) {
	s := testState(testPlayers()[:2])
	s.Hands["p1"] = []Card{{Suit: "S", Rank: "7"}}
	s.Hands["p2"] = []Card{{Suit: "C", Rank: "7"}}
	s.Scores["p1"] = 3
	s.Scores["p2"] = 1

	// p1 takes p2's last card with a perfect guess; p2 is now empty
	// but the game runs on while p1 still holds cards
	s1, _ := AskForRank(s, "p1", "p2", "7")
	s2, err := GuessSuits(s1, "p1", []string{"C"})
	if err != nil {
		t.Errorf("error: %v", err)
	}
	if s2.GameOver {
		t.Errorf("over with cards in hand")
	}

	s2.Discarded = append(s2.Discarded, s2.Hands["p1"]...)
	s2.Hands["p1"] = []Card{}
	checkGameOver(&s2)
	if !s2.GameOver || s2.Phase != PhaseComplete {
		t.Errorf("not over with all hands empty")
	}
	if s2.Winner == nil || *s2.Winner != "p1" {
		t.Errorf("bad winner: %v", s2.Winner)
	}
}

func TestGameOverTie(t *testing.T) {
	s := testState(testPlayers()[:2])
	s.Scores["p1"] = 2
	s.Scores["p2"] = 2

	checkGameOver(&s)
	if !s.GameOver {
		t.Errorf("not over")
	}
	if s.Winner != nil {
		t.Errorf("tie produced a winner: %v", *s.Winner)
	}
}

func TestRemovePlayer(t *testing.T) {
	s := testState(testPlayers())
	s.Hands["p1"] = []Card{{Suit: "S", Rank: "7"}}
	s.Hands["p2"] = []Card{{Suit: "C", Rank: "7"}, {Suit: "H", Rank: "K"}}
	s.Hands["p3"] = []Card{{Suit: "D", Rank: "2"}}
	s.CurrentPlayerIndex = 1
	markCurrent(&s)

	before := countCards(s)
	s1 := RemovePlayer(s, "p2")

	if len(s1.Players) != 2 {
		t.Errorf("player not removed")
	}
	if _, ok := s1.Hands["p2"]; ok {
		t.Errorf("hand not removed")
	}
	if len(s1.Discarded) != 2 {
		t.Errorf("hand not discarded: %v", s1.Discarded)
	}
	if countCards(s1) != before {
		t.Errorf("cards not conserved")
	}
	if s1.CurrentPlayerIndex != 0 {
		t.Errorf("bad pointer: %d", s1.CurrentPlayerIndex)
	}
	if !s1.Players[0].IsCurrentPlayer {
		t.Errorf("current player not marked")
	}
}

func TestRemovePlayer_clearsTheirAsk(t *testing.T) {
	s := testState(testPlayers())
	s.Hands["p1"] = []Card{{Suit: "S", Rank: "7"}}
	s.Hands["p2"] = []Card{{Suit: "C", Rank: "7"}}
	s.Hands["p3"] = []Card{{Suit: "D", Rank: "2"}}

	s1, _ := AskForRank(s, "p1", "p2", "7")
	if s1.CurrentAsk == nil {
		t.Fatalf("no ask")
	}
	s2 := RemovePlayer(s1, "p2")
	if s2.CurrentAsk != nil {
		t.Errorf("ask survived its target leaving")
	}
	if s2.Phase != PhaseAsking {
		t.Errorf("bad phase: %v", s2.Phase)
	}
}
