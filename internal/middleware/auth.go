package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/biodash/vitals-api/internal/handler"
	authsvc "github.com/biodash/vitals-api/internal/service/auth"
	"github.com/biodash/vitals-api/pkg/auth"
)

const contextClaims = "auth_claims"

type AuthMiddleware struct {
	authService *authsvc.Service
}

func NewAuthMiddleware(authService *authsvc.Service) *AuthMiddleware {
	return &AuthMiddleware{authService: authService}
}

// Authenticate validates the bearer token and stores the claims for handlers.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				handler.NewErrorResponse("missing authorization header"))
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				handler.NewErrorResponse("invalid authorization format"))
			return
		}

		claims, err := m.authService.ValidateToken(c.Request.Context(), parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				handler.NewErrorResponse("could not validate credentials"))
			return
		}

		SetClaims(c, claims)
		c.Next()
	}
}

// SetClaims stores validated claims on the context for ClaimsFrom.
func SetClaims(c *gin.Context, claims *auth.Claims) {
	c.Set(contextClaims, claims)
}

// ClaimsFrom extracts the authenticated claims a handler runs under.
func ClaimsFrom(c *gin.Context) *auth.Claims {
	v, ok := c.Get(contextClaims)
	if !ok {
		return nil
	}
	claims, _ := v.(*auth.Claims)
	return claims
}
