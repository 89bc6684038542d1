package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/JonkiPro/popcorn-sub004/internal/models"
	"github.com/JonkiPro/popcorn-sub004/pkg/config"
	appErrors "github.com/JonkiPro/popcorn-sub004/pkg/errors"
)

type stubUserStore struct {
	users map[string]*models.User
}

func (s *stubUserStore) FindByUsername(_ context.Context, username string) (*models.User, error) {
	for _, user := range s.users {
		if user.Username == username {
			copied := *user
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *stubUserStore) FindByID(_ context.Context, id string) (*models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *user
	return &copied, nil
}

func (s *stubUserStore) UpdateLastLogin(_ context.Context, id string, ts time.Time) error {
	if user, ok := s.users[id]; ok {
		user.LastLogin = &ts
	}
	return nil
}

func newTestAuthService(t *testing.T) (*AuthService, *stubUserStore) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)

	store := &stubUserStore{users: map[string]*models.User{
		"user-1": {
			ID:           "user-1",
			Email:        "verifier@example.com",
			Username:     "verifier",
			PasswordHash: string(hash),
			Role:         models.RoleVerifier,
			Active:       true,
		},
	}}
	svc := NewAuthService(store, nil, nil, nil, config.JWTConfig{
		Secret:     "test-secret",
		Expiration: time.Hour,
		Issuer:     "popcorn-api",
	})
	return svc, store
}

func TestAuthServiceLoginAndValidate(t *testing.T) {
	svc, store := newTestAuthService(t)

	result, err := svc.Login(context.Background(), models.LoginRequest{Username: "verifier", Password: "hunter2"})
	require.NoError(t, err)
	require.NotEmpty(t, result.AccessToken)
	require.Equal(t, models.RoleVerifier, result.User.Role)
	require.NotNil(t, store.users["user-1"].LastLogin)

	claims, err := svc.ValidateToken(result.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.UserID)
	require.Equal(t, models.RoleVerifier, claims.Role)
	require.Equal(t, "popcorn-api", claims.Issuer)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	svc, _ := newTestAuthService(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "verifier", Password: "wrong"})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginUnknownUser(t *testing.T) {
	svc, _ := newTestAuthService(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "nobody", Password: "hunter2"})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginInactiveAccount(t *testing.T) {
	svc, store := newTestAuthService(t)
	store.users["user-1"].Active = false

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "verifier", Password: "hunter2"})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceValidateGarbageToken(t *testing.T) {
	svc, _ := newTestAuthService(t)

	_, err := svc.ValidateToken("not-a-token")
	require.Error(t, err)
}
