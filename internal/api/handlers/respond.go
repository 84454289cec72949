package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/sam/code-clash/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		json.NewEncoder(w).Encode(body)
	}
}

// writeError maps domain sentinels to stable statuses so every handler
// reports the same failure the same way.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, domain.ErrInvalidCredentials):
		http.Error(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, domain.ErrNotHost):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrRoomNotFound),
		errors.Is(err, domain.ErrGameNotFound),
		errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrNoActiveGame),
		errors.Is(err, domain.ErrNoQuestions):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrUsernameExists),
		errors.Is(err, domain.ErrRoomFull),
		errors.Is(err, domain.ErrRoomInactive),
		errors.Is(err, domain.ErrGameInProgress),
		errors.Is(err, domain.ErrGameEnded),
		errors.Is(err, domain.ErrAlreadySolved):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrInvalidMaxPlayers),
		errors.Is(err, domain.ErrNotEnoughPlayers):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		log.Printf("internal error: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
