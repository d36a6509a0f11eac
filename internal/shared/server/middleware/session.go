package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"release-analyzer/internal/shared/auth"
)

const (
	sessionIDKey  = "sessionId"
	sessionNewKey = "sessionNew"

	// SessionCookie carries the signed session token for browsers.
	SessionCookie = "ra_session"
	// SessionHeader carries the signed session token for API clients.
	SessionHeader = "X-Session-Token"
)

// Session resolves the caller's session from the cookie or header token.
// A missing or invalid token starts a new session. The current token is
// always echoed back so API clients can keep it.
func Session(signer *auth.SessionSigner, secureCookie bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		token := strings.TrimSpace(c.GetHeader(SessionHeader))
		if token == "" {
			if cookie, err := c.Cookie(SessionCookie); err == nil {
				token = cookie
			}
		}

		sessionID, err := signer.Verify(token)
		if err != nil {
			sessionID = uuid.NewString()
			c.Set(sessionNewKey, true)
		}
		signed, err := signer.Sign(sessionID)
		if err == nil {
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(SessionCookie, signed, int(signer.TTL().Seconds()), "/", "", secureCookie, true)
			c.Writer.Header().Set(SessionHeader, signed)
		}

		c.Set(sessionIDKey, sessionID)
		c.Next()
	}
}

// SessionIDFromContext fetches the session ID set by the session middleware.
func SessionIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(sessionIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}

// SessionIsNew reports whether the session was minted for this request
// because the caller sent no valid token.
func SessionIsNew(c *gin.Context) bool {
	if c == nil {
		return false
	}
	return c.GetBool(sessionNewKey)
}
