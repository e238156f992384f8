// Demo-grade identity middleware.
//
// Requests carry their identity in the X-User-ID and X-User-Role headers, the
// same convention the frontend dev proxy injects. The middleware normalizes
// them into an authz.Actor stashed in the Gin context; handlers read it via
// ActorFrom. Requests without the headers proceed as anonymous and are denied
// by the capability resolver wherever identity is required.
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-recipe-backend/internal/authz"
)

// HeaderUserID and HeaderUserRole convey the caller's identity.
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
)

const ctxKeyActor = "auth.actor"

// Identity resolves the caller into an authz.Actor and stashes it in the
// context. An unknown role header downgrades the caller to member so a typo
// never grants elevated capabilities.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderUserID))
		role := authz.Role(strings.TrimSpace(strings.ToLower(c.GetHeader(HeaderUserRole))))
		if !role.Valid() {
			role = authz.RoleMember
		}
		actor := authz.Actor{ID: id, Role: role}
		if id != "" {
			c.Set(ctxKeyActor, actor)
			c.Set("userID", id) // consumed by idempotency and rate limiting
		}
		c.Next()
	}
}

// ActorFrom returns the actor resolved by Identity. Anonymous requests yield
// a zero Actor, which the capability resolver denies everywhere.
func ActorFrom(c *gin.Context) authz.Actor {
	if v, ok := c.Get(ctxKeyActor); ok {
		if a, ok := v.(authz.Actor); ok {
			return a
		}
	}
	return authz.Actor{}
}
