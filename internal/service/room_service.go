package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sam/code-clash/internal/domain"
	"github.com/sam/code-clash/internal/repository"
	"github.com/sam/code-clash/internal/ws"
	"gorm.io/gorm"
)

const (
	joinCodeLength   = 6
	joinCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	joinCodeRetries  = 20
)

// RoomService is the room lifecycle coordinator. All room mutations run
// against the current persisted state under the room's lock, never against
// cached client state.
type RoomService struct {
	roomRepo    repository.RoomRepository
	gameRepo    repository.GameRepository
	locks       *roomLocks
	broadcaster Broadcaster
}

func NewRoomService(roomRepo repository.RoomRepository, gameRepo repository.GameRepository, locks *roomLocks, broadcaster Broadcaster) *RoomService {
	if broadcaster == nil {
		broadcaster = nopBroadcaster{}
	}
	return &RoomService{
		roomRepo:    roomRepo,
		gameRepo:    gameRepo,
		locks:       locks,
		broadcaster: broadcaster,
	}
}

type CreateRoomInput struct {
	Host       domain.Identity
	Name       string
	MaxPlayers int
	Privacy    domain.Privacy
}

func (s *RoomService) CreateRoom(ctx context.Context, input CreateRoomInput) (*domain.Room, error) {
	if input.MaxPlayers < domain.MinPlayers || input.MaxPlayers > domain.MaxPlayers {
		return nil, domain.ErrInvalidMaxPlayers
	}

	privacy := input.Privacy
	if privacy != domain.PrivacyPrivate {
		privacy = domain.PrivacyPublic
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = fmt.Sprintf("%s's Room", input.Host.Username)
	}

	joinCode, err := s.uniqueJoinCode(ctx)
	if err != nil {
		return nil, err
	}

	room := &domain.Room{
		ID:         uuid.New(),
		JoinCode:   joinCode,
		Name:       name,
		HostID:     input.Host.ID,
		MaxPlayers: input.MaxPlayers,
		Privacy:    privacy,
		IsActive:   true,
	}
	room.SetParticipantList([]domain.Participant{
		{ID: input.Host.ID, Username: input.Host.Username},
	})

	if err := s.roomRepo.Create(ctx, room); err != nil {
		return nil, err
	}

	return room, nil
}

// uniqueJoinCode retries random codes against the store, then falls back to a
// timestamp-derived code so creation always terminates, even when the random
// source fails.
func (s *RoomService) uniqueJoinCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < joinCodeRetries; attempt++ {
		code, err := generateJoinCode()
		if err != nil {
			break
		}
		_, err = s.roomRepo.GetByJoinCode(ctx, code)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return code, nil
		}
		if err != nil {
			return "", err
		}
	}

	return fallbackJoinCode(), nil
}

func generateJoinCode() (string, error) {
	code := make([]byte, joinCodeLength)
	max := big.NewInt(int64(len(joinCodeAlphabet)))
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		code[i] = joinCodeAlphabet[n.Int64()]
	}
	return string(code), nil
}

func fallbackJoinCode() string {
	code := strings.ToUpper(fmt.Sprintf("%06s", big.NewInt(time.Now().UnixMilli()).Text(36)))
	return code[len(code)-joinCodeLength:]
}

// GetRoom accepts a room id or a join code.
func (s *RoomService) GetRoom(ctx context.Context, idOrCode string) (*domain.Room, error) {
	var room *domain.Room
	var err error
	if id, parseErr := uuid.Parse(idOrCode); parseErr == nil {
		room, err = s.roomRepo.GetByID(ctx, id)
	} else {
		room, err = s.roomRepo.GetByJoinCode(ctx, idOrCode)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, err
	}
	return room, nil
}

func (s *RoomService) ListActiveRooms(ctx context.Context) ([]*domain.Room, error) {
	return s.roomRepo.ListActive(ctx)
}

// JoinRoom appends the user to the room's participants. Joining a room the
// user is already in succeeds without changing anything.
func (s *RoomService) JoinRoom(ctx context.Context, roomID uuid.UUID, user domain.Identity) (*domain.Room, error) {
	unlock := s.locks.Lock(roomID)
	defer unlock()

	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, err
	}

	if !room.IsActive {
		return nil, domain.ErrRoomInactive
	}

	if room.HasParticipant(user.ID) {
		return room, nil
	}

	if room.ParticipantCount() >= room.MaxPlayers {
		return nil, domain.ErrRoomFull
	}

	room.AddParticipant(domain.Participant{ID: user.ID, Username: user.Username})
	if err := s.roomRepo.Update(ctx, room); err != nil {
		return nil, err
	}

	s.broadcaster.Publish(room.ID.String(), ws.EventPlayerJoined, ws.PlayerEventPayload{
		RoomID:   room.ID,
		UserID:   user.ID,
		Username: user.Username,
	})

	return room, nil
}

// JoinByCode resolves the code case-insensitively, then joins.
func (s *RoomService) JoinByCode(ctx context.Context, joinCode string, user domain.Identity) (*domain.Room, error) {
	room, err := s.roomRepo.GetByJoinCode(ctx, joinCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, err
	}
	return s.JoinRoom(ctx, room.ID, user)
}

// LeaveRoom removes a participant. A leaving host tears the room down, but
// never while a game is still running.
func (s *RoomService) LeaveRoom(ctx context.Context, roomID, userID uuid.UUID) error {
	unlock := s.locks.Lock(roomID)
	defer unlock()

	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrRoomNotFound
		}
		return err
	}

	username := room.ParticipantName(userID)

	if room.HostID == userID {
		if _, err := s.gameRepo.ActiveByRoomID(ctx, roomID); err == nil {
			return domain.ErrGameInProgress
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := s.roomRepo.Delete(ctx, roomID); err != nil {
			return err
		}
		s.locks.Forget(roomID)
		s.broadcaster.Publish(room.ID.String(), ws.EventRoomDeleted, ws.PlayerEventPayload{
			RoomID:   room.ID,
			UserID:   userID,
			Username: username,
		})
		return nil
	}

	if !room.RemoveParticipant(userID) {
		return nil
	}
	if err := s.roomRepo.Update(ctx, room); err != nil {
		return err
	}

	s.broadcaster.Publish(room.ID.String(), ws.EventPlayerLeft, ws.PlayerEventPayload{
		RoomID:   room.ID,
		UserID:   userID,
		Username: username,
	})

	return nil
}

func (s *RoomService) DeleteRoom(ctx context.Context, roomID, requesterID uuid.UUID) error {
	unlock := s.locks.Lock(roomID)
	defer unlock()

	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrRoomNotFound
		}
		return err
	}

	if room.HostID != requesterID {
		return domain.ErrNotHost
	}

	if err := s.roomRepo.Delete(ctx, roomID); err != nil {
		return err
	}
	s.locks.Forget(roomID)

	s.broadcaster.Publish(room.ID.String(), ws.EventRoomDeleted, ws.PlayerEventPayload{
		RoomID:   room.ID,
		UserID:   requesterID,
		Username: room.ParticipantName(requesterID),
	})

	return nil
}

// FinishRoom deactivates the room while preserving its games and submissions
// so results stay viewable. This is the chosen close-out policy; deletion
// only happens through LeaveRoom/DeleteRoom.
func (s *RoomService) FinishRoom(ctx context.Context, roomID, requesterID uuid.UUID) error {
	unlock := s.locks.Lock(roomID)
	defer unlock()

	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrRoomNotFound
		}
		return err
	}

	if room.HostID != requesterID {
		return domain.ErrNotHost
	}

	room.IsActive = false
	return s.roomRepo.Update(ctx, room)
}

// Rematch reactivates a finished room for another round.
func (s *RoomService) Rematch(ctx context.Context, roomID, requesterID uuid.UUID) (*domain.Room, error) {
	unlock := s.locks.Lock(roomID)
	defer unlock()

	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, err
	}

	if room.HostID != requesterID {
		return nil, domain.ErrNotHost
	}

	if _, err := s.gameRepo.ActiveByRoomID(ctx, roomID); err == nil {
		return nil, domain.ErrGameInProgress
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	room.IsActive = true
	if err := s.roomRepo.Update(ctx, room); err != nil {
		return nil, err
	}

	s.broadcaster.Publish(room.ID.String(), ws.EventRematchWaiting, ws.PlayerEventPayload{
		RoomID:   room.ID,
		UserID:   requesterID,
		Username: room.ParticipantName(requesterID),
	})

	return room, nil
}

type RoomStatus struct {
	PlayerCount int  `json:"playerCount"`
	MaxPlayers  int  `json:"maxPlayers"`
	IsActive    bool `json:"isActive"`
	GameStarted bool `json:"gameStarted"`
}

func (s *RoomService) Status(ctx context.Context, roomID uuid.UUID) (*RoomStatus, error) {
	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, err
	}

	gameStarted := false
	if _, err := s.gameRepo.ActiveByRoomID(ctx, roomID); err == nil {
		gameStarted = true
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	return &RoomStatus{
		PlayerCount: room.ParticipantCount(),
		MaxPlayers:  room.MaxPlayers,
		IsActive:    room.IsActive,
		GameStarted: gameStarted,
	}, nil
}
