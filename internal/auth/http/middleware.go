package http

import (
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"

	authDomain "github.com/tnptm/next-djchat/internal/auth/domain"
	authService "github.com/tnptm/next-djchat/internal/auth/service"
	"github.com/tnptm/next-djchat/internal/httputil"
)

const bearerPrefix = "bearer "

// BearerToken extracts the token from an "Authorization: Bearer <token>" header value.
// The scheme is matched case-insensitively.
func BearerToken(header string) (string, bool) {
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	return token, token != ""
}

// AuthenticationMiddleware verifies the bearer token in the Authorization header and
// stores the resulting principal in the request context.
//
// Error handling:
//   - Missing or malformed Authorization header → 401 Unauthorized
//   - Token rejected by the verifier → 401 Unauthorized
//   - Other errors (user lookup failures) → 500 Internal Server Error
func AuthenticationMiddleware(verifier authService.TokenVerifier, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := BearerToken(c.GetHeader("Authorization"))
		if !ok {
			logger.Debug("authentication failed: missing or malformed authorization header")
			httputil.HandleErrorGin(c, authDomain.ErrMissingCredential, logger)
			c.Abort()
			return
		}

		principal, err := verifier.Verify(c.Request.Context(), token)
		if err != nil {
			httputil.HandleErrorGin(c, err, logger)
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(WithPrincipal(c.Request.Context(), principal))

		logger.Debug("authentication successful",
			slog.String("user_id", principal.ID.String()),
			slog.String("username", principal.Username))

		c.Next()
	}
}
