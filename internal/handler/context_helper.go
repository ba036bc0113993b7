package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/middleware"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// schoolFromContext returns the tenant of the authenticated caller.
func schoolFromContext(c *gin.Context) (string, error) {
	claims := claimsFromContext(c)
	if claims == nil || claims.SchoolID == "" {
		return "", appErrors.Clone(appErrors.ErrUnauthorized, "missing school scope")
	}
	return claims.SchoolID, nil
}
