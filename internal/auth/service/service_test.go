package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"donation-gateway/internal/auth/store"
	"donation-gateway/pkg/derrors"
)

type staticTokens struct{}

func (staticTokens) GenerateAccessToken(uuid.UUID, string) (string, error) {
	return "test-token", nil
}

func newTestService() *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(store.NewMemoryStore(), staticTokens{}, logger)
}

func TestSignup(t *testing.T) {
	ctx := context.Background()

	t.Run("registers and returns a token", func(t *testing.T) {
		svc := newTestService()
		user, token, err := svc.Signup(ctx, "Jane.Doe@Example.com", "Jane Doe", "correct-horse")
		require.NoError(t, err)

		assert.Equal(t, "jane.doe@example.com", user.Email, "email is stored lower-cased")
		assert.Equal(t, "test-token", token)
		assert.NotEmpty(t, user.PasswordHash)
		assert.NotEqual(t, "correct-horse", user.PasswordHash)
	})

	t.Run("rejects duplicate email regardless of case", func(t *testing.T) {
		svc := newTestService()
		_, _, err := svc.Signup(ctx, "jane@example.com", "Jane", "correct-horse")
		require.NoError(t, err)

		_, _, err = svc.Signup(ctx, "JANE@example.com", "Jane", "correct-horse")
		require.Error(t, err)
		assert.True(t, derrors.HasCode(err, derrors.CodeConflict))
	})

	t.Run("rejects invalid email", func(t *testing.T) {
		svc := newTestService()
		_, _, err := svc.Signup(ctx, "not-an-email", "Jane", "correct-horse")
		require.Error(t, err)
		assert.True(t, derrors.HasCode(err, derrors.CodeBadRequest))
	})

	t.Run("rejects short password", func(t *testing.T) {
		svc := newTestService()
		_, _, err := svc.Signup(ctx, "jane@example.com", "Jane", "short")
		require.Error(t, err)
		assert.True(t, derrors.HasCode(err, derrors.CodeBadRequest))
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()
	_, _, err := svc.Signup(ctx, "jane@example.com", "Jane", "correct-horse")
	require.NoError(t, err)

	t.Run("valid credentials", func(t *testing.T) {
		user, token, err := svc.Login(ctx, "jane@example.com", "correct-horse")
		require.NoError(t, err)
		assert.Equal(t, "jane@example.com", user.Email)
		assert.Equal(t, "test-token", token)
	})

	t.Run("case-insensitive email lookup", func(t *testing.T) {
		_, _, err := svc.Login(ctx, "JANE@EXAMPLE.COM", "correct-horse")
		require.NoError(t, err)
	})

	t.Run("wrong password and unknown email are indistinguishable", func(t *testing.T) {
		_, _, wrongPassword := svc.Login(ctx, "jane@example.com", "wrong")
		_, _, unknownEmail := svc.Login(ctx, "nobody@example.com", "correct-horse")

		require.Error(t, wrongPassword)
		require.Error(t, unknownEmail)
		assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
		assert.True(t, derrors.HasCode(wrongPassword, derrors.CodeUnauthenticated))
	})
}
