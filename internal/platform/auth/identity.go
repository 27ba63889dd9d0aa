package auth

import (
	"context"
	"strings"
)

// Identity captures the authenticated principal details for the active session.
type Identity struct {
	UID   string
	Email string
}

// Valid reports whether the identity carries a usable UID.
func (i Identity) Valid() bool {
	return strings.TrimSpace(i.UID) != ""
}

// AuthEvent describes a change in authentication state observed by subscribers.
type AuthEvent string

const (
	EventInitialSession AuthEvent = "initial_session"
	EventSignedIn       AuthEvent = "signed_in"
	EventSignedOut      AuthEvent = "signed_out"
	EventTokenRefreshed AuthEvent = "token_refreshed"
)

// StateChange is delivered to auth-state subscribers. Identity is nil for
// signed-out transitions.
type StateChange struct {
	Event    AuthEvent
	Identity *Identity
}

type contextKey string

const identityContextKey contextKey = "github.com/varmina-joyas/store/internal/platform/auth/identity"

// WithIdentity stores the identity within the context for downstream callers.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

// IdentityFromContext retrieves the identity previously stored in context.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(*Identity)
	if !ok || identity == nil {
		return nil, false
	}
	return identity, true
}
