package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/noah-isme/clanstats-api/internal/middleware"
	"github.com/noah-isme/clanstats-api/internal/models"
	appErrors "github.com/noah-isme/clanstats-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.Claims(c)
}

// requireUUID trims value and rejects anything that is not a UUID.
func requireUUID(value, field string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, field+" is required")
	}
	if _, err := uuid.Parse(value); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, field+" must be a UUID")
	}
	return value, nil
}
