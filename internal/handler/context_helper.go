package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/tarakiga/ccas/internal/middleware"
	"github.com/tarakiga/ccas/internal/models"
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

// actorFromContext projects the token claims onto the directory shape the
// services authorize against.
func actorFromContext(c *gin.Context) *models.User {
	claims := claimsFromContext(c)
	if claims == nil {
		return nil
	}
	return &models.User{
		ID:         claims.UserID,
		Email:      claims.Email,
		Department: claims.Department,
		Role:       claims.Role,
	}
}
