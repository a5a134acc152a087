//go:build unit

package usecase_test

import (
	"testing"
	"time"

	"calendar-assistant/internal/pkg/clock"
	"calendar-assistant/internal/pkg/errs"
	"calendar-assistant/internal/pkg/jwt"
	"calendar-assistant/internal/usecase"
	"calendar-assistant/internal/usecase/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenValidator(t *testing.T) {
	svc := jwt.NewService("secret", time.Hour, clock.NewMockClock(time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC)))
	validator := usecase.NewTokenValidator(svc)

	t.Run("known role", func(t *testing.T) {
		token, err := svc.GenerateToken("5", shared.RoleMember)
		require.NoError(t, err)

		caller, err := validator.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, shared.Caller{UserID: "5", Role: shared.RoleMember}, caller)
		assert.False(t, caller.IsAdmin())
	})

	t.Run("unknown role", func(t *testing.T) {
		token, err := svc.GenerateToken("5", "owner")
		require.NoError(t, err)

		_, err = validator.ValidateToken(token)
		assert.True(t, errs.Is(err, usecase.ErrUnknownRole))
	})

	t.Run("invalid token", func(t *testing.T) {
		_, err := validator.ValidateToken("garbage")
		assert.ErrorIs(t, err, jwt.ErrInvalidToken)
	})
}
