package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/brightpath-english/academy-api/internal/middleware"
	"github.com/brightpath-english/academy-api/internal/models"
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

func callerFromContext(c *gin.Context) models.Caller {
	caller, _ := middleware.CallerFromContext(c)
	return caller
}
