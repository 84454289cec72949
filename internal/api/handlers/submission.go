package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/sam/code-clash/internal/api/middleware"
	"github.com/sam/code-clash/internal/leaderboard"
	"github.com/sam/code-clash/internal/service"
)

type SubmissionHandler struct {
	submissionService *service.SubmissionService
}

func NewSubmissionHandler(submissionService *service.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{submissionService: submissionService}
}

type SubmitRequest struct {
	RoomID       string `json:"roomId"`
	QuestionID   string `json:"questionId"`
	Code         string `json:"code"`
	Language     string `json:"language"`
	Disqualified bool   `json:"disqualified"`
}

func (h *SubmissionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Code == "" && !req.Disqualified {
		http.Error(w, "Code is required", http.StatusBadRequest)
		return
	}
	if req.Language == "" {
		req.Language = "javascript"
	}

	input := service.SubmitInput{
		User:         identity,
		Code:         req.Code,
		Language:     req.Language,
		Disqualified: req.Disqualified,
	}

	if req.RoomID != "" {
		roomID, err := uuid.Parse(req.RoomID)
		if err != nil {
			http.Error(w, "Invalid room id", http.StatusBadRequest)
			return
		}
		input.RoomID = &roomID
	} else if req.QuestionID != "" {
		questionID, err := uuid.Parse(req.QuestionID)
		if err != nil {
			http.Error(w, "Invalid question id", http.StatusBadRequest)
			return
		}
		input.QuestionID = &questionID
	} else {
		http.Error(w, "roomId or questionId is required", http.StatusBadRequest)
		return
	}

	result, err := h.submissionService.Submit(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// List returns submissions for a game id, or for a room's active game.
func (h *SubmissionHandler) List(w http.ResponseWriter, r *http.Request) {
	if gameIDStr := r.URL.Query().Get("gameId"); gameIDStr != "" {
		gameID, err := uuid.Parse(gameIDStr)
		if err != nil {
			http.Error(w, "Invalid game id", http.StatusBadRequest)
			return
		}
		submissions, err := h.submissionService.ListByGame(r.Context(), gameID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, submissions)
		return
	}

	if roomIDStr := r.URL.Query().Get("roomId"); roomIDStr != "" {
		roomID, err := uuid.Parse(roomIDStr)
		if err != nil {
			http.Error(w, "Invalid room id", http.StatusBadRequest)
			return
		}
		submissions, err := h.submissionService.ListByRoom(r.Context(), roomID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, submissions)
		return
	}

	http.Error(w, "gameId or roomId query parameter is required", http.StatusBadRequest)
}

// Leaderboard returns the live leaderboard snapshot for a game.
func (h *SubmissionHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	gameIDStr := r.URL.Query().Get("gameId")
	gameID, err := uuid.Parse(gameIDStr)
	if err != nil {
		http.Error(w, "Invalid game id", http.StatusBadRequest)
		return
	}

	entries := h.submissionService.Leaderboard(r.Context(), gameID)
	if entries == nil {
		entries = []leaderboard.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
