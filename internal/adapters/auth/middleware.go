package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dkeye/roomcast/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const userKey = "auth_user"

// TokenFromRequest reads the bearer token, falling back to the token query
// parameter since browsers cannot set headers on a WebSocket upgrade.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return r.URL.Query().Get("token")
}

// Middleware rejects the request with 401 unless it carries a valid token.
func Middleware(a *Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, err := a.Authenticate(TokenFromRequest(c.Request))
		if err != nil {
			var ae *domain.AuthError
			reason := domain.ErrInvalidCredential.Reason
			if errors.As(err, &ae) {
				reason = ae.Reason
			}
			log.Info().Str("module", "adapters.auth").Str("remote", c.ClientIP()).Str("reason", reason).Msg("handshake rejected")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": reason})
			return
		}
		c.Set(userKey, u)
		c.Next()
	}
}

// UserFrom returns the identity bound by Middleware.
func UserFrom(c *gin.Context) (domain.User, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return domain.User{}, false
	}
	u, ok := v.(domain.User)
	return u, ok
}
