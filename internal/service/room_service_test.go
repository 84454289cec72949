package service_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/sam/code-clash/internal/domain"
	"github.com/sam/code-clash/internal/repository/postgres"
	"github.com/sam/code-clash/internal/service"
	"github.com/sam/code-clash/internal/testutil"
	"github.com/sam/code-clash/internal/ws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServices(t *testing.T) (*service.Services, *testutil.TestDB) {
	t.Helper()
	testDB := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(testDB.DB)
	services := service.NewServices(repos, testutil.TestConfig(), nil, testutil.FixedGrader(false), nil)
	t.Cleanup(services.Game.StopTimers)
	return services, testDB
}

func identity(user *domain.User) domain.Identity {
	return domain.Identity{ID: user.ID, Username: user.Username}
}

func TestRoomService_CreateRoom(t *testing.T) {
	services, testDB := newTestServices(t)
	ctx := context.Background()

	host, _ := testutil.NewUserBuilder().WithUsername("alice").Build(t, testDB.DB)

	tests := []struct {
		name    string
		input   service.CreateRoomInput
		wantErr error
	}{
		{
			name: "successful creation",
			input: service.CreateRoomInput{
				Host:       identity(host),
				Name:       "Friday Night",
				MaxPlayers: 4,
				Privacy:    domain.PrivacyPublic,
			},
		},
		{
			name: "default name from host",
			input: service.CreateRoomInput{
				Host:       identity(host),
				MaxPlayers: 2,
			},
		},
		{
			name: "max players too low",
			input: service.CreateRoomInput{
				Host:       identity(host),
				MaxPlayers: 1,
			},
			wantErr: domain.ErrInvalidMaxPlayers,
		},
		{
			name: "max players too high",
			input: service.CreateRoomInput{
				Host:       identity(host),
				MaxPlayers: 7,
			},
			wantErr: domain.ErrInvalidMaxPlayers,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			room, err := services.Room.CreateRoom(ctx, tt.input)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, host.ID, room.HostID)
			assert.Len(t, room.JoinCode, 6)
			assert.Equal(t, strings.ToUpper(room.JoinCode), room.JoinCode)
			assert.True(t, room.IsActive)
			assert.Equal(t, 1, room.ParticipantCount())
			assert.True(t, room.HasParticipant(host.ID))

			if tt.input.Name == "" {
				assert.Equal(t, "alice's Room", room.Name)
			} else {
				assert.Equal(t, tt.input.Name, room.Name)
			}
		})
	}
}

func TestRoomService_JoinCodeUniqueness(t *testing.T) {
	services, testDB := newTestServices(t)
	ctx := context.Background()

	host, _ := testutil.NewUserBuilder().Build(t, testDB.DB)

	codes := make(map[string]bool)
	for i := 0; i < 10; i++ {
		room, err := services.Room.CreateRoom(ctx, service.CreateRoomInput{
			Host:       identity(host),
			MaxPlayers: 4,
		})
		require.NoError(t, err)
		assert.False(t, codes[room.JoinCode], "duplicate join code generated")
		codes[room.JoinCode] = true
	}
}

func TestRoomService_GetRoom(t *testing.T) {
	services, testDB := newTestServices(t)
	ctx := context.Background()

	host, _ := testutil.NewUserBuilder().Build(t, testDB.DB)
	room, err := services.Room.CreateRoom(ctx, service.CreateRoomInput{
		Host:       identity(host),
		MaxPlayers: 4,
	})
	require.NoError(t, err)

	tests := []struct {
		name     string
		idOrCode string
		wantErr  error
	}{
		{name: "get by UUID", idOrCode: room.ID.String()},
		{name: "get by join code", idOrCode: room.JoinCode},
		{name: "get by lowercase join code", idOrCode: strings.ToLower(room.JoinCode)},
		{name: "non-existent UUID", idOrCode: uuid.New().String(), wantErr: domain.ErrRoomNotFound},
		{name: "non-existent code", idOrCode: "ZZZZZZ", wantErr: domain.ErrRoomNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := services.Room.GetRoom(ctx, tt.idOrCode)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, room.ID, got.ID)
		})
	}
}

func TestRoomService_JoinRoom(t *testing.T) {
	services, testDB := newTestServices(t)
	ctx := context.Background()

	host, _ := testutil.NewUserBuilder().WithUsername("host").Build(t, testDB.DB)
	user1, _ := testutil.NewUserBuilder().WithUsername("user1").Build(t, testDB.DB)
	user2, _ := testutil.NewUserBuilder().WithUsername("user2").Build(t, testDB.DB)

	room, err := services.Room.CreateRoom(ctx, service.CreateRoomInput{
		Host:       identity(host),
		MaxPlayers: 2,
	})
	require.NoError(t, err)

	joined, err := services.Room.JoinRoom(ctx, room.ID, identity(user1))
	require.NoError(t, err)
	assert.Equal(t, 2, joined.ParticipantCount())

	// Rejoin succeeds without growing the list
	joined, err = services.Room.JoinRoom(ctx, room.ID, identity(user1))
	require.NoError(t, err)
	assert.Equal(t, 2, joined.ParticipantCount())

	// Room is at capacity
	_, err = services.Room.JoinRoom(ctx, room.ID, identity(user2))
	assert.ErrorIs(t, err, domain.ErrRoomFull)

	_, err = services.Room.JoinRoom(ctx, uuid.New(), identity(user2))
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
}

func TestRoomService_JoinByCode(t *testing.T) {
	services, testDB := newTestServices(t)
	ctx := context.Background()

	host, _ := testutil.NewUserBuilder().Build(t, testDB.DB)
	user, _ := testutil.NewUserBuilder().Build(t, testDB.DB)

	room, err := services.Room.CreateRoom(ctx, service.CreateRoomInput{
		Host:       identity(host),
		MaxPlayers: 4,
	})
	require.NoError(t, err)

	joined, err := services.Room.JoinByCode(ctx, strings.ToLower(room.JoinCode), identity(user))
	require.NoError(t, err)
	assert.True(t, joined.HasParticipant(user.ID))

	_, err = services.Room.JoinByCode(ctx, "NOPE42", identity(user))
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
}

func TestRoomService_ConcurrentJoinsRespectCapacity(t *testing.T) {
	services, testDB := newTestServices(t)
	ctx := context.Background()

	host, _ := testutil.NewUserBuilder().Build(t, testDB.DB)
	room, err := services.Room.CreateRoom(ctx, service.CreateRoomInput{
		Host:       identity(host),
		MaxPlayers: 3,
	})
	require.NoError(t, err)

	users := make([]*domain.User, 6)
	for i := range users {
		users[i], _ = testutil.NewUserBuilder().Build(t, testDB.DB)
	}

	var wg sync.WaitGroup
	errs := make([]error, len(users))
	for i, user := range users {
		wg.Add(1)
		go func(i int, user *domain.User) {
			defer wg.Done()
			_, errs[i] = services.Room.JoinRoom(ctx, room.ID, identity(user))
		}(i, user)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, domain.ErrRoomFull)
		}
	}
	// Host holds one slot, so exactly two joins fit
	assert.Equal(t, 2, succeeded)

	final, err := services.Room.GetRoom(ctx, room.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 3, final.ParticipantCount())
}

func TestRoomService_LeaveRoom(t *testing.T) {
	services, testDB := newTestServices(t)
	ctx := context.Background()

	host, _ := testutil.NewUserBuilder().Build(t, testDB.DB)
	user, _ := testutil.NewUserBuilder().Build(t, testDB.DB)

	room, err := services.Room.CreateRoom(ctx, service.CreateRoomInput{
		Host:       identity(host),
		MaxPlayers: 4,
	})
	require.NoError(t, err)
	_, err = services.Room.JoinRoom(ctx, room.ID, identity(user))
	require.NoError(t, err)

	// Non-host leave removes only that user
	require.NoError(t, services.Room.LeaveRoom(ctx, room.ID, user.ID))
	got, err := services.Room.GetRoom(ctx, room.ID.String())
	require.NoError(t, err)
	assert.False(t, got.HasParticipant(user.ID))
	assert.True(t, got.HasParticipant(host.ID))

	// Host leave deletes the room
	require.NoError(t, services.Room.LeaveRoom(ctx, room.ID, host.ID))
	_, err = services.Room.GetRoom(ctx, room.ID.String())
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
}

func TestRoomService_LeaveBroadcastsUsernames(t *testing.T) {
	recorder := &testutil.BroadcastRecorder{}
	testDB := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(testDB.DB)
	services := service.NewServices(repos, testutil.TestConfig(), recorder, testutil.FixedGrader(false), nil)
	t.Cleanup(services.Game.StopTimers)
	ctx := context.Background()

	host, _ := testutil.NewUserBuilder().WithUsername("roomhost").Build(t, testDB.DB)
	user, _ := testutil.NewUserBuilder().WithUsername("leaver").Build(t, testDB.DB)

	room, err := services.Room.CreateRoom(ctx, service.CreateRoomInput{
		Host:       identity(host),
		MaxPlayers: 4,
	})
	require.NoError(t, err)
	_, err = services.Room.JoinRoom(ctx, room.ID, identity(user))
	require.NoError(t, err)

	require.NoError(t, services.Room.LeaveRoom(ctx, room.ID, user.ID))

	left := recorder.Events(ws.EventPlayerLeft)
	require.Len(t, left, 1)
	payload, ok := left[0].Payload.(ws.PlayerEventPayload)
	require.True(t, ok)
	assert.Equal(t, user.ID, payload.UserID)
	assert.Equal(t, "leaver", payload.Username)

	require.NoError(t, services.Room.LeaveRoom(ctx, room.ID, host.ID))

	deleted := recorder.Events(ws.EventRoomDeleted)
	require.Len(t, deleted, 1)
	payload, ok = deleted[0].Payload.(ws.PlayerEventPayload)
	require.True(t, ok)
	assert.Equal(t, host.ID, payload.UserID)
	assert.Equal(t, "roomhost", payload.Username)
}

func TestRoomService_HostCannotLeaveDuringGame(t *testing.T) {
	services, testDB := newTestServices(t)
	ctx := context.Background()

	host, _ := testutil.NewUserBuilder().Build(t, testDB.DB)
	user, _ := testutil.NewUserBuilder().Build(t, testDB.DB)
	testutil.NewQuestionBuilder().Build(t, testDB.DB)

	room, err := services.Room.CreateRoom(ctx, service.CreateRoomInput{
		Host:       identity(host),
		MaxPlayers: 4,
	})
	require.NoError(t, err)
	_, err = services.Room.JoinRoom(ctx, room.ID, identity(user))
	require.NoError(t, err)

	_, err = services.Game.StartGame(ctx, service.StartGameInput{
		RoomID:          room.ID,
		HostID:          host.ID,
		Difficulty:      "easy",
		DurationSeconds: 300,
	})
	require.NoError(t, err)

	err = services.Room.LeaveRoom(ctx, room.ID, host.ID)
	assert.ErrorIs(t, err, domain.ErrGameInProgress)

	// Room still exists with everyone in it
	got, err := services.Room.GetRoom(ctx, room.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 2, got.ParticipantCount())
}

func TestRoomService_FinishAndRematch(t *testing.T) {
	services, testDB := newTestServices(t)
	ctx := context.Background()

	host, _ := testutil.NewUserBuilder().Build(t, testDB.DB)
	user, _ := testutil.NewUserBuilder().Build(t, testDB.DB)

	room, err := services.Room.CreateRoom(ctx, service.CreateRoomInput{
		Host:       identity(host),
		MaxPlayers: 4,
	})
	require.NoError(t, err)

	// Only the host may finish
	err = services.Room.FinishRoom(ctx, room.ID, user.ID)
	assert.ErrorIs(t, err, domain.ErrNotHost)

	require.NoError(t, services.Room.FinishRoom(ctx, room.ID, host.ID))
	got, err := services.Room.GetRoom(ctx, room.ID.String())
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	// Inactive rooms reject joins
	_, err = services.Room.JoinRoom(ctx, room.ID, identity(user))
	assert.ErrorIs(t, err, domain.ErrRoomInactive)

	// Rematch reactivates
	reopened, err := services.Room.Rematch(ctx, room.ID, host.ID)
	require.NoError(t, err)
	assert.True(t, reopened.IsActive)

	_, err = services.Room.JoinRoom(ctx, room.ID, identity(user))
	require.NoError(t, err)
}

func TestRoomService_Status(t *testing.T) {
	services, testDB := newTestServices(t)
	ctx := context.Background()

	host, _ := testutil.NewUserBuilder().Build(t, testDB.DB)
	user, _ := testutil.NewUserBuilder().Build(t, testDB.DB)
	testutil.NewQuestionBuilder().Build(t, testDB.DB)

	room, err := services.Room.CreateRoom(ctx, service.CreateRoomInput{
		Host:       identity(host),
		MaxPlayers: 4,
	})
	require.NoError(t, err)
	_, err = services.Room.JoinRoom(ctx, room.ID, identity(user))
	require.NoError(t, err)

	status, err := services.Room.Status(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, status.PlayerCount)
	assert.Equal(t, 4, status.MaxPlayers)
	assert.True(t, status.IsActive)
	assert.False(t, status.GameStarted)

	_, err = services.Game.StartGame(ctx, service.StartGameInput{
		RoomID:          room.ID,
		HostID:          host.ID,
		Difficulty:      "easy",
		DurationSeconds: 300,
	})
	require.NoError(t, err)

	status, err = services.Room.Status(ctx, room.ID)
	require.NoError(t, err)
	assert.True(t, status.GameStarted)
}

func TestRoomService_ListActiveRooms(t *testing.T) {
	services, testDB := newTestServices(t)
	ctx := context.Background()

	host, _ := testutil.NewUserBuilder().Build(t, testDB.DB)

	active, err := services.Room.CreateRoom(ctx, service.CreateRoomInput{
		Host:       identity(host),
		MaxPlayers: 4,
	})
	require.NoError(t, err)

	finished, err := services.Room.CreateRoom(ctx, service.CreateRoomInput{
		Host:       identity(host),
		MaxPlayers: 4,
	})
	require.NoError(t, err)
	require.NoError(t, services.Room.FinishRoom(ctx, finished.ID, host.ID))

	rooms, err := services.Room.ListActiveRooms(ctx)
	require.NoError(t, err)

	ids := make(map[uuid.UUID]bool)
	for _, r := range rooms {
		ids[r.ID] = true
	}
	assert.True(t, ids[active.ID])
	assert.False(t, ids[finished.ID])
}
