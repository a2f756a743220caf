package ginserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"
)

const principalContextKey = "staybook.principal"

var ErrUnknownToken = errors.New("ginserver: unknown token")

type principal struct {
	ID    string
	Roles []string
}

func (p principal) HasRole(role string) bool {
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		return false
	}
	for _, r := range p.Roles {
		if strings.ToLower(r) == role {
			return true
		}
	}
	return false
}

// TokenResolver turns a bearer token into an identity. The dev adapter reads a
// static table from the environment; a gateway-issued JWT verifier slots in the
// same way.
type TokenResolver interface {
	Resolve(ctx context.Context, token string) (ID string, roles []string, err error)
}

type AuthMiddleware struct {
	Resolver TokenResolver
	Logger   *slog.Logger
}

func (m AuthMiddleware) Handle(c *gin.Context) {
	token := extractBearerToken(c.GetHeader("Authorization"))
	if token == "" || m.Resolver == nil {
		c.Next()
		return
	}
	id, roles, err := m.Resolver.Resolve(c.Request.Context(), token)
	if err != nil {
		if !errors.Is(err, ErrUnknownToken) && m.Logger != nil {
			m.Logger.Debug("token validation failed", "error", err)
		}
		c.Next()
		return
	}
	setPrincipal(c, principal{ID: id, Roles: roles})
	c.Next()
}

// StaticTokenResolver maps fixed tokens to identities, for dev and tests.
// Entries look like "token:user-id:role1|role2".
type StaticTokenResolver struct {
	entries map[string]principal
}

func NewStaticTokenResolver(table string) *StaticTokenResolver {
	r := &StaticTokenResolver{entries: map[string]principal{}}
	for _, entry := range strings.Split(table, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) < 2 {
			continue
		}
		p := principal{ID: parts[1]}
		if len(parts) == 3 && parts[2] != "" {
			p.Roles = strings.Split(parts[2], "|")
		}
		r.entries[parts[0]] = p
	}
	return r
}

func (r *StaticTokenResolver) Resolve(_ context.Context, token string) (string, []string, error) {
	p, ok := r.entries[token]
	if !ok {
		return "", nil, ErrUnknownToken
	}
	return p.ID, p.Roles, nil
}

func setPrincipal(c *gin.Context, p principal) {
	c.Set(principalContextKey, p)
}

func currentPrincipal(c *gin.Context) (principal, bool) {
	val, exists := c.Get(principalContextKey)
	if !exists {
		return principal{}, false
	}
	p, ok := val.(principal)
	return p, ok
}

func requireRole(c *gin.Context, role string) (principal, bool) {
	p, ok := currentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "auth required"})
		return principal{}, false
	}
	if role != "" && !p.HasRole(role) {
		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
		return principal{}, false
	}
	return p, true
}

func extractBearerToken(header string) string {
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
