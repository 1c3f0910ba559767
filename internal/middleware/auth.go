package middleware

import (
	"context"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	CheckUserKey      = "user_id"
	sessionIDKey      = "sid"
	sessionOptionsKey = "session_options"
)

// SessionResolver maps a session id to the user bound to it.
type SessionResolver interface {
	CurrentUserID(ctx context.Context, sid string) (uint, error)
}

// Sessions installs the cookie session with opts and keeps opts around so
// ClearSession can expire the cookie with the same attributes.
func Sessions(name string, store sessions.Store, opts sessions.Options) gin.HandlerFunc {
	store.Options(opts)
	handler := sessions.Sessions(name, store)
	return func(c *gin.Context) {
		c.Set(sessionOptionsKey, opts)
		handler(c)
	}
}

// AuthRequired ensures a user is logged in
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUserID(c) == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			return
		}
		c.Next()
	}
}

// LoadUser resolves the session cookie and stores the user id in the
// context. An unreachable session store leaves the request anonymous.
func LoadUser(resolver SessionResolver, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if sid := SessionID(c); sid != "" {
			userID, err := resolver.CurrentUserID(c.Request.Context(), sid)
			if err != nil {
				log.WithError(err).Warn("session lookup failed")
			} else if userID != 0 {
				c.Set(CheckUserKey, userID)
			}
		}
		c.Next()
	}
}

// CurrentUserID returns the logged-in user, 0 when anonymous.
func CurrentUserID(c *gin.Context) uint {
	return c.GetUint(CheckUserKey)
}

// SessionID returns the session id carried by the signed cookie.
func SessionID(c *gin.Context) string {
	sid, _ := sessions.Default(c).Get(sessionIDKey).(string)
	return sid
}

// BindSession writes sid into the session cookie.
func BindSession(c *gin.Context, sid string) error {
	session := sessions.Default(c)
	session.Set(sessionIDKey, sid)
	return session.Save()
}

// ClearSession expires the session cookie.
func ClearSession(c *gin.Context) error {
	v, _ := c.Get(sessionOptionsKey)
	opts, _ := v.(sessions.Options)
	if opts.Path == "" {
		opts.Path = "/"
	}
	opts.MaxAge = -1

	session := sessions.Default(c)
	session.Clear()
	session.Options(opts)
	return session.Save()
}
