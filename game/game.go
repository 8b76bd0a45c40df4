package game

import "fmt"

// Kind says which rule engine a room plays.
type Kind string

const (
	Nim     Kind = "nim"
	Kniffel Kind = "kniffel"
	Fishing Kind = "fishing"
)

// ParseKind checks a kind string from outside.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case Nim, Kniffel, Fishing:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown game kind: %q", s)
}

// Player is the shared identity the engines care about. Identity is
// opaque here; the rooms service is the one that mints ids.
type Player struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// IndexOf finds a player by id in a seating list, or -1.
func IndexOf(players []Player, id string) int {
	for i, p := range players {
		if p.ID == id {
			return i
		}
	}
	return -1
}
