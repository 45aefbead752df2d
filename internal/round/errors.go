package round

import "errors"

var (
	ErrAlreadyStarted = errors.New("Game already started")
	ErrNoPlayers      = errors.New("No players in the game")
)
