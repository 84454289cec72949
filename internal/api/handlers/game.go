package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sam/code-clash/internal/api/middleware"
	"github.com/sam/code-clash/internal/config"
	"github.com/sam/code-clash/internal/domain"
	"github.com/sam/code-clash/internal/service"
)

type GameHandler struct {
	gameService *service.GameService
	cfg         *config.Config
}

func NewGameHandler(gameService *service.GameService, cfg *config.Config) *GameHandler {
	return &GameHandler{gameService: gameService, cfg: cfg}
}

type StartGameRequest struct {
	RoomID          string `json:"roomId"`
	Difficulty      string `json:"difficulty"`
	DurationSeconds int    `json:"durationSeconds"`
}

type EndGameRequest struct {
	RoomID string `json:"roomId"`
}

type GameResponse struct {
	ID              string     `json:"id"`
	RoomID          string     `json:"roomId"`
	QuestionID      string     `json:"questionId"`
	Difficulty      string     `json:"difficulty"`
	StartedAt       time.Time  `json:"startedAt"`
	DurationSeconds int        `json:"durationSeconds"`
	EndedAt         *time.Time `json:"endedAt,omitempty"`
	WinnerID        *string    `json:"winnerId,omitempty"`
}

func gameResponse(game *domain.Game) GameResponse {
	resp := GameResponse{
		ID:              game.ID.String(),
		RoomID:          game.RoomID.String(),
		QuestionID:      game.QuestionID.String(),
		Difficulty:      game.Difficulty,
		StartedAt:       game.StartedAt,
		DurationSeconds: game.DurationSeconds,
		EndedAt:         game.EndedAt,
	}
	if game.WinnerID != nil {
		id := game.WinnerID.String()
		resp.WinnerID = &id
	}
	return resp
}

func (h *GameHandler) Start(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req StartGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	roomID, err := uuid.Parse(req.RoomID)
	if err != nil {
		http.Error(w, "Invalid room id", http.StatusBadRequest)
		return
	}

	difficulty := req.Difficulty
	if difficulty == "" {
		difficulty = "easy"
	}

	duration := req.DurationSeconds
	if duration <= 0 {
		duration = int(h.cfg.DefaultGameDuration.Seconds())
	}

	game, err := h.gameService.StartGame(r.Context(), service.StartGameInput{
		RoomID:          roomID,
		HostID:          identity.ID,
		Difficulty:      difficulty,
		DurationSeconds: duration,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, gameResponse(game))
}

func (h *GameHandler) End(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req EndGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	roomID, err := uuid.Parse(req.RoomID)
	if err != nil {
		http.Error(w, "Invalid room id", http.StatusBadRequest)
		return
	}

	result, err := h.gameService.EndGame(r.Context(), roomID, identity.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *GameHandler) Active(w http.ResponseWriter, r *http.Request) {
	roomID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid room id", http.StatusBadRequest)
		return
	}

	game, err := h.gameService.ActiveGame(r.Context(), roomID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, gameResponse(game))
}

// Expire lets any client report that the game's deadline has passed. Early
// reports are rejected; late duplicates return the recorded outcome.
func (h *GameHandler) Expire(w http.ResponseWriter, r *http.Request) {
	gameID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid game id", http.StatusBadRequest)
		return
	}

	result, err := h.gameService.ExpireGame(r.Context(), gameID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *GameHandler) Results(w http.ResponseWriter, r *http.Request) {
	gameID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid game id", http.StatusBadRequest)
		return
	}

	results, err := h.gameService.Results(r.Context(), gameID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, results)
}
