package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/clanstats-api/internal/models"
	appErrors "github.com/noah-isme/clanstats-api/pkg/errors"
)

func TestAuthServiceRoundTrip(t *testing.T) {
	svc := NewAuthService("secret", "clanstats")

	token, err := svc.IssueToken("user-1", models.RoleModerator, time.Minute)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleModerator, claims.Role)
}

func TestAuthServiceRejectsForeignTokens(t *testing.T) {
	issuer := NewAuthService("other-secret", "clanstats")
	token, err := issuer.IssueToken("user-1", models.RoleAdmin, time.Minute)
	require.NoError(t, err)

	_, err = NewAuthService("secret", "clanstats").ValidateToken(token)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))

	wrongIssuer, err := NewAuthService("secret", "elsewhere").IssueToken("user-1", models.RoleAdmin, time.Minute)
	require.NoError(t, err)
	_, err = NewAuthService("secret", "clanstats").ValidateToken(wrongIssuer)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}

func TestAuthServiceRejectsExpiredTokens(t *testing.T) {
	svc := NewAuthService("secret", "")
	token, err := svc.IssueToken("user-1", models.RoleOwner, -time.Minute)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}
