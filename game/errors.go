package game

// Error is a game rule violation with a stable code.
type Error struct {
	Code string
	Msg  string
}

func (e *Error) ErrorCode() string { return e.Code }
func (e *Error) Error() string     { return e.Msg }

var (
	// ErrUnknownPlayer means the named player is not in this game
	ErrUnknownPlayer = &Error{"UNKNOWNPLAYER", "unknown player"}
	// ErrNotYourTurn means you can't do something while it's not your turn
	ErrNotYourTurn = &Error{"NOTYOURTURN", "it's not your turn"}
	// ErrGameOver means the game has already finished
	ErrGameOver = &Error{"GAMEOVER", "the game is over"}
	// ErrBadRequest is for arguments that make no sense at all
	ErrBadRequest = &Error{"BADREQUEST", "bad request"}
)
