package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"safe-gateway-lite/internal/apperr"
	"safe-gateway-lite/internal/auth"
)

// CredentialCookie carries the session credential for browser clients.
const CredentialCookie = "access_token"

const sessionContextKey = "session"

// SessionResolver maps a credential to a live session.
type SessionResolver interface {
	Resolve(credential string) (auth.Session, error)
}

func SessionFromContext(c *gin.Context) (auth.Session, bool) {
	v, ok := c.Get(sessionContextKey)
	if !ok {
		return auth.Session{}, false
	}
	sess, ok := v.(auth.Session)
	return sess, ok && sess.Address != ""
}

// Credential extracts the bearer token, falling back to the cookie.
func Credential(c *gin.Context) string {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	if cookie, err := c.Cookie(CredentialCookie); err == nil {
		return cookie
	}
	return ""
}

func RequireAuth(resolver SessionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		credential := Credential(c)
		if credential == "" {
			AbortWithError(c, apperr.Wrap(apperr.ErrUnauthorized, "missing session credential"))
			return
		}
		sess, err := resolver.Resolve(credential)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.Set(sessionContextKey, sess)
		c.Next()
	}
}
