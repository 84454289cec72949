package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sam/code-clash/internal/domain"
	"github.com/sam/code-clash/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doJSON(t *testing.T, method, url, token string, body interface{}) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

type roomBody struct {
	ID       string `json:"id"`
	JoinCode string `json:"joinCode"`
	Name     string `json:"name"`
	IsActive bool   `json:"isActive"`
	Participants []struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"participants"`
}

func TestRoomEndpoints(t *testing.T) {
	ts := testutil.NewTestServer(t, testutil.FixedGrader(false))

	_, hostToken := testutil.NewUserBuilder().WithUsername("webhost").BuildAndAuthenticate(t, ts)
	_, guestToken := testutil.NewUserBuilder().WithUsername("webguest").BuildAndAuthenticate(t, ts)

	// Create
	resp := doJSON(t, http.MethodPost, ts.APIURL("/rooms"), hostToken, map[string]interface{}{
		"name":       "Web Room",
		"maxPlayers": 3,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created roomBody
	decode(t, resp, &created)
	assert.Len(t, created.JoinCode, 6)
	assert.Len(t, created.Participants, 1)

	// Requires auth
	resp = doJSON(t, http.MethodPost, ts.APIURL("/rooms"), "", map[string]interface{}{"maxPlayers": 3})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// Get by join code
	resp = doJSON(t, http.MethodGet, ts.APIURL("/rooms/"+created.JoinCode), guestToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var fetched roomBody
	decode(t, resp, &fetched)
	assert.Equal(t, created.ID, fetched.ID)

	// Join by code
	resp = doJSON(t, http.MethodPost, ts.APIURL("/rooms/join-by-code"), guestToken, map[string]string{
		"joinCode": created.JoinCode,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var joined roomBody
	decode(t, resp, &joined)
	assert.Len(t, joined.Participants, 2)

	// Status
	resp = doJSON(t, http.MethodGet, ts.APIURL(fmt.Sprintf("/rooms/%s/status", created.ID)), hostToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var status struct {
		PlayerCount int  `json:"playerCount"`
		MaxPlayers  int  `json:"maxPlayers"`
		GameStarted bool `json:"gameStarted"`
	}
	decode(t, resp, &status)
	assert.Equal(t, 2, status.PlayerCount)
	assert.Equal(t, 3, status.MaxPlayers)
	assert.False(t, status.GameStarted)

	// Active list contains the room
	resp = doJSON(t, http.MethodGet, ts.APIURL("/rooms/active"), hostToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var active []roomBody
	decode(t, resp, &active)
	found := false
	for _, r := range active {
		if r.ID == created.ID {
			found = true
		}
	}
	assert.True(t, found)

	// Unknown room is a 404
	resp = doJSON(t, http.MethodGet, ts.APIURL("/rooms/ZZZZZZ"), hostToken, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	// Guest cannot finish the room
	resp = doJSON(t, http.MethodPost, ts.APIURL(fmt.Sprintf("/rooms/%s/finish", created.ID)), guestToken, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	// Host finishes it
	resp = doJSON(t, http.MethodPost, ts.APIURL(fmt.Sprintf("/rooms/%s/finish", created.ID)), hostToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, ts.APIURL("/rooms/"+created.ID), hostToken, nil)
	decode(t, resp, &fetched)
	assert.False(t, fetched.IsActive)
}

func TestExpireGameEndpoint(t *testing.T) {
	ts := testutil.NewTestServer(t, testutil.FixedGrader(false))
	ctx := context.Background()

	_, token := testutil.NewUserBuilder().WithUsername("expirehost").BuildAndAuthenticate(t, ts)

	resp := doJSON(t, http.MethodPost, ts.APIURL("/rooms"), token, map[string]interface{}{"maxPlayers": 2})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var room roomBody
	decode(t, resp, &room)
	roomID, err := uuid.Parse(room.ID)
	require.NoError(t, err)

	question := testutil.NewQuestionBuilder().Build(t, ts.DB.DB)

	// A game still inside its window may not be expired
	running := &domain.Game{
		ID: uuid.New(), RoomID: roomID, QuestionID: question.ID,
		Difficulty: "easy", StartedAt: time.Now(), DurationSeconds: 300,
	}
	require.NoError(t, ts.Repos.Game.Create(ctx, running))

	resp = doJSON(t, http.MethodPost, ts.APIURL(fmt.Sprintf("/games/%s/expire", running.ID)), token, nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// Past the deadline any client may report expiry
	overdue := &domain.Game{
		ID: uuid.New(), RoomID: roomID, QuestionID: question.ID,
		Difficulty: "easy", StartedAt: time.Now().Add(-10 * time.Minute), DurationSeconds: 60,
	}
	require.NoError(t, ts.Repos.Game.Create(ctx, overdue))

	resp = doJSON(t, http.MethodPost, ts.APIURL(fmt.Sprintf("/games/%s/expire", overdue.ID)), token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var first struct {
		Applied  bool    `json:"Applied"`
		WinnerID *string `json:"WinnerID"`
	}
	decode(t, resp, &first)
	assert.True(t, first.Applied)
	assert.Nil(t, first.WinnerID)

	// Reporting it again is a harmless no-op
	resp = doJSON(t, http.MethodPost, ts.APIURL(fmt.Sprintf("/games/%s/expire", overdue.ID)), token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var second struct {
		Applied bool `json:"Applied"`
	}
	decode(t, resp, &second)
	assert.False(t, second.Applied)
}

func TestGameFlowEndpoints(t *testing.T) {
	ts := testutil.NewTestServer(t, testutil.CodeGrader("print(a+b)"))

	_, hostToken := testutil.NewUserBuilder().WithUsername("gamehost").BuildAndAuthenticate(t, ts)
	guest, guestToken := testutil.NewUserBuilder().WithUsername("gameguest").BuildAndAuthenticate(t, ts)
	testutil.NewQuestionBuilder().Build(t, ts.DB.DB)

	resp := doJSON(t, http.MethodPost, ts.APIURL("/rooms"), hostToken, map[string]interface{}{"maxPlayers": 2})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var room roomBody
	decode(t, resp, &room)

	resp = doJSON(t, http.MethodPost, ts.APIURL("/rooms/join-by-code"), guestToken, map[string]string{"joinCode": room.JoinCode})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Guest may not start
	resp = doJSON(t, http.MethodPost, ts.APIURL("/games/start"), guestToken, map[string]interface{}{
		"roomId": room.ID, "difficulty": "easy", "durationSeconds": 300,
	})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, ts.APIURL("/games/start"), hostToken, map[string]interface{}{
		"roomId": room.ID, "difficulty": "easy", "durationSeconds": 300,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var game struct {
		ID         string `json:"id"`
		QuestionID string `json:"questionId"`
	}
	decode(t, resp, &game)
	assert.NotEmpty(t, game.QuestionID)

	// Duplicate start conflicts
	resp = doJSON(t, http.MethodPost, ts.APIURL("/games/start"), hostToken, map[string]interface{}{
		"roomId": room.ID, "difficulty": "easy", "durationSeconds": 300,
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// Guest submits the winning answer
	resp = doJSON(t, http.MethodPost, ts.APIURL("/submissions"), guestToken, map[string]interface{}{
		"roomId": room.ID, "code": "print(a+b)", "language": "python",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var submitted struct {
		GameEnded bool    `json:"gameEnded"`
		WinnerID  *string `json:"winnerId"`
	}
	decode(t, resp, &submitted)
	assert.True(t, submitted.GameEnded)
	require.NotNil(t, submitted.WinnerID)
	assert.Equal(t, guest.ID.String(), *submitted.WinnerID)

	// Results carry the winner
	resp = doJSON(t, http.MethodGet, ts.APIURL(fmt.Sprintf("/games/%s/results", game.ID)), hostToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var results struct {
		Game struct {
			WinnerID *string `json:"winnerId"`
		} `json:"game"`
		WinnerName string `json:"winnerName"`
	}
	decode(t, resp, &results)
	require.NotNil(t, results.Game.WinnerID)
	assert.Equal(t, guest.ID.String(), *results.Game.WinnerID)
	assert.Equal(t, "gameguest", results.WinnerName)
}
