package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sam/code-clash/internal/api/middleware"
	"github.com/sam/code-clash/internal/domain"
	"github.com/sam/code-clash/internal/service"
)

type RoomHandler struct {
	roomService *service.RoomService
}

func NewRoomHandler(roomService *service.RoomService) *RoomHandler {
	return &RoomHandler{roomService: roomService}
}

type CreateRoomRequest struct {
	Name       string `json:"name"`
	MaxPlayers int    `json:"maxPlayers"`
	Privacy    string `json:"privacy"`
}

type JoinByCodeRequest struct {
	JoinCode string `json:"joinCode"`
}

type RoomResponse struct {
	ID           string               `json:"id"`
	JoinCode     string               `json:"joinCode"`
	Name         string               `json:"name"`
	HostID       string               `json:"hostId"`
	MaxPlayers   int                  `json:"maxPlayers"`
	Privacy      string               `json:"privacy"`
	IsActive     bool                 `json:"isActive"`
	Participants []domain.Participant `json:"participants"`
}

func roomResponse(room *domain.Room) RoomResponse {
	participants := room.ParticipantList()
	if participants == nil {
		participants = []domain.Participant{}
	}
	return RoomResponse{
		ID:           room.ID.String(),
		JoinCode:     room.JoinCode,
		Name:         room.Name,
		HostID:       room.HostID.String(),
		MaxPlayers:   room.MaxPlayers,
		Privacy:      string(room.Privacy),
		IsActive:     room.IsActive,
		Participants: participants,
	}
}

func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	maxPlayers := req.MaxPlayers
	if maxPlayers == 0 {
		maxPlayers = 4
	}

	room, err := h.roomService.CreateRoom(r.Context(), service.CreateRoomInput{
		Host:       identity,
		Name:       req.Name,
		MaxPlayers: maxPlayers,
		Privacy:    domain.Privacy(req.Privacy),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, roomResponse(room))
}

func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	room, err := h.roomService.GetRoom(r.Context(), chi.URLParam(r, "idOrCode"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, roomResponse(room))
}

func (h *RoomHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.roomService.ListActiveRooms(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]RoomResponse, len(rooms))
	for i, room := range rooms {
		resp[i] = roomResponse(room)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *RoomHandler) Join(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	roomID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid room id", http.StatusBadRequest)
		return
	}

	room, err := h.roomService.JoinRoom(r.Context(), roomID, identity)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, roomResponse(room))
}

func (h *RoomHandler) JoinByCode(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req JoinByCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.JoinCode == "" {
		http.Error(w, "joinCode is required", http.StatusBadRequest)
		return
	}

	room, err := h.roomService.JoinByCode(r.Context(), req.JoinCode, identity)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, roomResponse(room))
}

func (h *RoomHandler) Leave(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	roomID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid room id", http.StatusBadRequest)
		return
	}

	if err := h.roomService.LeaveRoom(r.Context(), roomID, identity.ID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *RoomHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	roomID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid room id", http.StatusBadRequest)
		return
	}

	if err := h.roomService.DeleteRoom(r.Context(), roomID, identity.ID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *RoomHandler) Finish(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	roomID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid room id", http.StatusBadRequest)
		return
	}

	if err := h.roomService.FinishRoom(r.Context(), roomID, identity.ID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *RoomHandler) Rematch(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	roomID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid room id", http.StatusBadRequest)
		return
	}

	room, err := h.roomService.Rematch(r.Context(), roomID, identity.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, roomResponse(room))
}

func (h *RoomHandler) Status(w http.ResponseWriter, r *http.Request) {
	roomID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid room id", http.StatusBadRequest)
		return
	}

	status, err := h.roomService.Status(r.Context(), roomID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, status)
}
