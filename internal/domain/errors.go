package domain

import "errors"

// Auth errors
var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUsernameExists     = errors.New("username already exists")
	ErrUserNotFound       = errors.New("user not found")
)

// Room errors
var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrRoomFull          = errors.New("room is full")
	ErrRoomInactive      = errors.New("room is not active")
	ErrNotHost           = errors.New("only the room host can perform this action")
	ErrInvalidMaxPlayers = errors.New("max players must be between 2 and 6")
	ErrNotEnoughPlayers  = errors.New("need at least 2 players to start")
)

// Game errors
var (
	ErrGameNotFound   = errors.New("game not found")
	ErrNoActiveGame   = errors.New("no active game found")
	ErrGameInProgress = errors.New("game in progress")
	ErrGameEnded      = errors.New("game has already ended")
	ErrNoQuestions    = errors.New("no questions available for requested difficulty")
)

// Submission errors
var (
	ErrQuestionNotFound = errors.New("question not found")
	ErrAlreadySolved    = errors.New("a correct solution was already submitted for this game")
	ErrGradingFailed    = errors.New("code execution failed")
)
