package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sam/code-clash/internal/domain"
	"github.com/sam/code-clash/internal/grading"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserBuilder creates test users with a builder pattern
type UserBuilder struct {
	username string
	password string
}

// NewUserBuilder creates a new UserBuilder with default values
func NewUserBuilder() *UserBuilder {
	return &UserBuilder{
		username: fmt.Sprintf("testuser_%s", uuid.New().String()[:8]),
		password: "testpassword123",
	}
}

// WithUsername sets the username
func (b *UserBuilder) WithUsername(name string) *UserBuilder {
	b.username = name
	return b
}

// WithPassword sets the password
func (b *UserBuilder) WithPassword(password string) *UserBuilder {
	b.password = password
	return b
}

// Build creates the user in the database and returns the user with the raw password
func (b *UserBuilder) Build(t *testing.T, db *gorm.DB) (*domain.User, string) {
	t.Helper()

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(b.password), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &domain.User{
		ID:           uuid.New(),
		Username:     b.username,
		PasswordHash: string(hashedPassword),
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	return user, b.password
}

// AuthResponse matches the API auth response
type AuthResponse struct {
	User struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"user"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// BuildAndAuthenticate creates a user via API and returns the user and access token
func (b *UserBuilder) BuildAndAuthenticate(t *testing.T, ts *TestServer) (*domain.User, string) {
	t.Helper()

	reqBody := map[string]string{
		"username": b.username,
		"password": b.password,
	}
	body, _ := json.Marshal(reqBody)

	resp, err := http.Post(ts.APIURL("/auth/register"), "application/json", bytes.NewBuffer(body))
	if err != nil {
		t.Fatalf("failed to register user: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("register returned status %d", resp.StatusCode)
	}

	var authResp AuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
		t.Fatalf("failed to decode auth response: %v", err)
	}

	userID, err := uuid.Parse(authResp.User.ID)
	if err != nil {
		t.Fatalf("failed to parse user id: %v", err)
	}

	return &domain.User{ID: userID, Username: authResp.User.Username}, authResp.AccessToken
}

// QuestionBuilder creates test questions
type QuestionBuilder struct {
	title      string
	difficulty string
	cases      []domain.TestCase
}

func NewQuestionBuilder() *QuestionBuilder {
	return &QuestionBuilder{
		title:      fmt.Sprintf("question_%s", uuid.New().String()[:8]),
		difficulty: "easy",
		cases: []domain.TestCase{
			{Input: "1 2", ExpectedOutput: "3"},
			{Input: "2 3", ExpectedOutput: "5"},
		},
	}
}

func (b *QuestionBuilder) WithDifficulty(difficulty string) *QuestionBuilder {
	b.difficulty = difficulty
	return b
}

func (b *QuestionBuilder) WithTestCases(cases []domain.TestCase) *QuestionBuilder {
	b.cases = cases
	return b
}

func (b *QuestionBuilder) Build(t *testing.T, db *gorm.DB) *domain.Question {
	t.Helper()

	question := &domain.Question{
		ID:          uuid.New(),
		Title:       b.title,
		Description: "Read two integers and print their sum.",
		Difficulty:  b.difficulty,
		CreatedAt:   time.Now(),
	}
	question.SetTestCaseList(b.cases)

	if err := db.Create(question).Error; err != nil {
		t.Fatalf("failed to create question: %v", err)
	}

	return question
}

// RecordedEvent is one captured broadcast.
type RecordedEvent struct {
	RoomID  string
	Event   string
	Payload interface{}
}

// BroadcastRecorder implements the service Broadcaster and captures every
// published event for assertions.
type BroadcastRecorder struct {
	mu     sync.Mutex
	events []RecordedEvent
}

func (r *BroadcastRecorder) Publish(roomID string, event string, payload interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, RecordedEvent{RoomID: roomID, Event: event, Payload: payload})
}

// Events returns the captured broadcasts for one event name.
func (r *BroadcastRecorder) Events(event string) []RecordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []RecordedEvent
	for _, e := range r.events {
		if e.Event == event {
			matched = append(matched, e)
		}
	}
	return matched
}

// GraderFunc adapts a function to the service.Grader interface.
type GraderFunc func(ctx context.Context, code, language string, cases []domain.TestCase) (*grading.Result, error)

func (f GraderFunc) Run(ctx context.Context, code, language string, cases []domain.TestCase) (*grading.Result, error) {
	return f(ctx, code, language, cases)
}

// FixedGrader always grades the same way regardless of the code.
func FixedGrader(correct bool) GraderFunc {
	return func(ctx context.Context, code, language string, cases []domain.TestCase) (*grading.Result, error) {
		feedback := "0/2 test cases passed"
		if correct {
			feedback = "All test cases passed"
		}
		return &grading.Result{
			IsCorrect:     correct,
			Feedback:      feedback,
			ExecutionTime: 5,
		}, nil
	}
}

// CodeGrader marks a submission correct only when the code equals answer.
func CodeGrader(answer string) GraderFunc {
	return func(ctx context.Context, code, language string, cases []domain.TestCase) (*grading.Result, error) {
		correct := code == answer
		feedback := "0/2 test cases passed"
		if correct {
			feedback = "All test cases passed"
		}
		return &grading.Result{
			IsCorrect:     correct,
			Feedback:      feedback,
			ExecutionTime: 5,
		}, nil
	}
}
