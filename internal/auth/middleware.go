package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"rebelodds/internal/config"
	"rebelodds/internal/engine"
)

const actorKey = "auth.actor"

// Middleware resolves the bearer token against the configured demo sessions
// and attaches the resulting actor to the request. Infra endpoints and
// swagger stay open; every /api/ route requires a known token.
func Middleware(cfg config.AuthConfig) gin.HandlerFunc {
	sessions := make(map[string]engine.Actor, len(cfg.Sessions))
	for _, s := range cfg.Sessions {
		token := strings.TrimSpace(s.Token)
		if token == "" {
			continue
		}
		role := strings.TrimSpace(s.Role)
		if role == "" {
			role = "trader"
		}
		sessions[token] = engine.Actor{ID: strings.TrimSpace(s.OwnerID), Role: role}
	}

	return func(c *gin.Context) {
		p := c.Request.URL.Path
		if !strings.HasPrefix(p, "/api/") {
			c.Next()
			return
		}
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		actor, ok := sessions[token]
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown token"})
			return
		}
		c.Set(actorKey, actor)
		c.Next()
	}
}

// ActorFrom returns the actor the middleware attached to the request.
func ActorFrom(c *gin.Context) (engine.Actor, bool) {
	val, ok := c.Get(actorKey)
	if !ok {
		return engine.Actor{}, false
	}
	actor, ok := val.(engine.Actor)
	return actor, ok
}
