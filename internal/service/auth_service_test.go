package service_test

import (
	"context"
	"testing"

	"github.com/sam/code-clash/internal/domain"
	"github.com/sam/code-clash/internal/repository/postgres"
	"github.com/sam/code-clash/internal/service"
	"github.com/sam/code-clash/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthService_Register(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(testDB.DB)
	authService := service.NewAuthService(repos.User, repos.Session, testutil.TestConfig())
	ctx := context.Background()

	result, err := authService.Register(ctx, service.RegisterInput{
		Username: "newuser",
		Password: "password123",
	})
	require.NoError(t, err)
	assert.Equal(t, "newuser", result.User.Username)
	assert.NotEmpty(t, result.AccessToken)
	assert.NotEmpty(t, result.RefreshToken)
	assert.NotEqual(t, "password123", result.User.PasswordHash)

	// Duplicate username
	_, err = authService.Register(ctx, service.RegisterInput{
		Username: "newuser",
		Password: "otherpassword",
	})
	assert.ErrorIs(t, err, domain.ErrUsernameExists)
}

func TestAuthService_Login(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(testDB.DB)
	authService := service.NewAuthService(repos.User, repos.Session, testutil.TestConfig())
	ctx := context.Background()

	user, password := testutil.NewUserBuilder().WithUsername("loginuser").Build(t, testDB.DB)

	tests := []struct {
		name     string
		username string
		password string
		wantErr  error
	}{
		{name: "valid credentials", username: user.Username, password: password},
		{name: "wrong password", username: user.Username, password: "wrong", wantErr: domain.ErrInvalidCredentials},
		{name: "unknown user", username: "ghost", password: password, wantErr: domain.ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := authService.Login(ctx, service.LoginInput{
				Username: tt.username,
				Password: tt.password,
			})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, user.ID, result.User.ID)
			assert.NotEmpty(t, result.AccessToken)
		})
	}
}

func TestAuthService_Identity(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(testDB.DB)
	authService := service.NewAuthService(repos.User, repos.Session, testutil.TestConfig())
	ctx := context.Background()

	result, err := authService.Register(ctx, service.RegisterInput{
		Username: "tokenuser",
		Password: "password123",
	})
	require.NoError(t, err)

	identity, err := authService.Identity(result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, identity.ID)
	assert.Equal(t, "tokenuser", identity.Username)

	_, err = authService.Identity("not-a-token")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}
