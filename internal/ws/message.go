package ws

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event names carried over the wire. Server events are notifications to
// re-fetch authoritative state; only toast/leaderboard UI may consume the
// payloads directly.
const (
	// Client to server
	EventJoinRoom  = "join-room"
	EventLeaveRoom = "leave-room"

	// Server to client
	EventPlayerJoined     = "player-joined"
	EventPlayerLeft       = "player-left"
	EventGameStarted      = "game-started"
	EventSubmissionUpdate = "submission-update"
	EventWinnerAnnounced  = "winner-announced"
	EventTimeExpired      = "time-expired"
	EventRoomDeleted      = "room-deleted"
	EventRematchWaiting   = "rematch-waiting"
	EventError            = "error"
)

type Message struct {
	Event     string          `json:"event"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

func NewMessage(event string, payload interface{}) (*Message, error) {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = data
	}
	return &Message{
		Event:     event,
		Payload:   raw,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

// Client to server payloads

type JoinRoomPayload struct {
	RoomID string `json:"roomId"`
}

// Server to client payloads

type PlayerEventPayload struct {
	RoomID   uuid.UUID `json:"roomId"`
	UserID   uuid.UUID `json:"userId"`
	Username string    `json:"username"`
}

type GameStartedPayload struct {
	RoomID          uuid.UUID `json:"roomId"`
	GameID          uuid.UUID `json:"gameId"`
	QuestionID      uuid.UUID `json:"questionId"`
	Difficulty      string    `json:"difficulty"`
	DurationSeconds int       `json:"durationSeconds"`
	StartedAt       time.Time `json:"startedAt"`
}

type SubmissionUpdatePayload struct {
	RoomID    uuid.UUID `json:"roomId"`
	GameID    uuid.UUID `json:"gameId"`
	UserID    uuid.UUID `json:"userId"`
	Username  string    `json:"username"`
	IsCorrect bool      `json:"isCorrect"`
}

type WinnerAnnouncedPayload struct {
	RoomID     uuid.UUID  `json:"roomId"`
	GameID     uuid.UUID  `json:"gameId"`
	WinnerID   *uuid.UUID `json:"winnerId"`
	WinnerName string     `json:"winnerName,omitempty"`
}

type TimeExpiredPayload struct {
	RoomID uuid.UUID `json:"roomId"`
	GameID uuid.UUID `json:"gameId"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
