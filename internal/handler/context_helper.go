package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/edu-analytics/student-portal-api/internal/middleware"
	"github.com/edu-analytics/student-portal-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.SessionClaims {
	value, exists := c.Get(middleware.ContextSessionKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.SessionClaims)
	if !ok {
		return nil
	}
	return claims
}
