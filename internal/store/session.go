package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/varmina-joyas/store/internal/platform/async"
	"github.com/varmina-joyas/store/internal/platform/auth"
	"github.com/varmina-joyas/store/internal/services"
)

const defaultAuthzTimeout = 10 * time.Second

// SessionState describes where the gate is in the auth lifecycle.
type SessionState string

const (
	// SessionUnknown means initialization has not run yet.
	SessionUnknown SessionState = "unknown"
	// SessionResolving means a restore or authorization check is in flight.
	SessionResolving SessionState = "resolving"
	// SessionGuest means no identity is signed in.
	SessionGuest SessionState = "guest"
	// SessionAuthorizedAdmin means the identity holds the admin role.
	SessionAuthorizedAdmin SessionState = "authorized_admin"
	// SessionUnauthorizedUser means an identity is signed in without admin rights.
	SessionUnauthorizedUser SessionState = "unauthorized_user"
)

// ErrNotAuthorized is returned by Login when the credentials are valid but the
// account lacks the admin role.
var ErrNotAuthorized = errors.New("session: account is not authorized")

// SessionGateDeps wires dependencies for the session gate.
type SessionGateDeps struct {
	Identity services.IdentityService
	Authz    services.AuthzService
	Notifier *Notifier
	Logger   *zap.Logger

	AuthzTimeout time.Duration
}

// SessionGate decides whether the admin surface is reachable. Authorization
// is fail-closed: any error or timeout while checking the role denies access.
type SessionGate struct {
	identity services.IdentityService
	authz    services.AuthzService
	notifier *Notifier
	logger   *zap.Logger
	timeout  time.Duration

	initOnce    sync.Once
	unsubscribe func()

	mu        sync.Mutex
	state     SessionState
	current   *auth.Identity
	roleCache map[string]bool
}

// NewSessionGate constructs a SessionGate in the unknown state; call Init to
// restore any persisted session.
func NewSessionGate(deps SessionGateDeps) (*SessionGate, error) {
	if deps.Identity == nil {
		return nil, errors.New("session gate: identity service is required")
	}
	if deps.Authz == nil {
		return nil, errors.New("session gate: authz service is required")
	}
	if deps.Notifier == nil {
		return nil, errors.New("session gate: notifier is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := deps.AuthzTimeout
	if timeout <= 0 {
		timeout = defaultAuthzTimeout
	}

	return &SessionGate{
		identity:  deps.Identity,
		authz:     deps.Authz,
		notifier:  deps.Notifier,
		logger:    logger,
		timeout:   timeout,
		state:     SessionUnknown,
		roleCache: make(map[string]bool),
	}, nil
}

// Init subscribes to auth-state changes and restores any persisted session.
// It runs at most once; later calls are no-ops.
func (g *SessionGate) Init(ctx context.Context) {
	g.initOnce.Do(func() {
		g.setState(SessionResolving, nil)
		g.unsubscribe = g.identity.OnAuthStateChange(g.handleAuthChange)

		identity, err := g.identity.RestoreSession(ctx)
		if err != nil {
			g.logger.Warn("session restore failed", zap.Error(err))
		}
		// A restored identity already went through handleAuthChange via the
		// initial_session event. Only the signed-out case needs settling here.
		if identity == nil {
			g.setState(SessionGuest, nil)
		}
	})
}

// Close removes the auth-state subscription.
func (g *SessionGate) Close() {
	if g.unsubscribe != nil {
		g.unsubscribe()
	}
}

// Login signs in and checks the admin role inline. Valid credentials without
// the admin role leave the session signed in locally and return
// ErrNotAuthorized; the caller decides whether to offer a sign-out.
func (g *SessionGate) Login(ctx context.Context, email, password string) error {
	identity, err := g.identity.SignIn(ctx, email, password)
	if err != nil {
		return err
	}

	if !g.authorize(ctx, identity.UID) {
		g.setState(SessionUnauthorizedUser, &identity)
		g.notifier.Error("No tienes permisos de administrador")
		return ErrNotAuthorized
	}
	g.setState(SessionAuthorizedAdmin, &identity)
	return nil
}

// Logout clears the session. Local state is always cleared, regardless of
// whether the remote revocation succeeded.
func (g *SessionGate) Logout(ctx context.Context) error {
	err := g.identity.SignOut(ctx)
	g.invalidateRoles()
	g.setState(SessionGuest, nil)
	return err
}

// State returns the current gate state.
func (g *SessionGate) State() SessionState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Identity returns the signed-in identity, or nil.
func (g *SessionGate) Identity() *auth.Identity {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.current == nil {
		return nil
	}
	copied := *g.current
	return &copied
}

// IsAdmin reports whether the gate currently grants admin access.
func (g *SessionGate) IsAdmin() bool {
	return g.State() == SessionAuthorizedAdmin
}

func (g *SessionGate) handleAuthChange(change auth.StateChange) {
	switch change.Event {
	case auth.EventSignedOut:
		g.invalidateRoles()
		g.setState(SessionGuest, nil)
	case auth.EventInitialSession, auth.EventSignedIn, auth.EventTokenRefreshed:
		if change.Identity == nil || !change.Identity.Valid() {
			g.setState(SessionGuest, nil)
			return
		}
		identity := *change.Identity
		if g.authorize(context.Background(), identity.UID) {
			g.setState(SessionAuthorizedAdmin, &identity)
		} else {
			g.setState(SessionUnauthorizedUser, &identity)
		}
	}
}

// authorize answers whether the uid holds the admin role. Decisions are
// cached per uid until the identity signs out; errors and timeouts deny
// without being cached, so a later attempt can succeed once the backend
// recovers.
func (g *SessionGate) authorize(ctx context.Context, uid string) bool {
	g.mu.Lock()
	if decision, ok := g.roleCache[uid]; ok {
		g.mu.Unlock()
		return decision
	}
	g.mu.Unlock()

	isAdmin, err := async.WithTimeout(ctx, g.timeout, func(ctx context.Context) (bool, error) {
		return g.authz.IsAdmin(ctx, uid)
	}, false)
	if err != nil {
		g.logger.Warn("authorization check failed, denying access",
			zap.String("uid", uid), zap.Error(err))
		return false
	}

	g.mu.Lock()
	g.roleCache[uid] = isAdmin
	g.mu.Unlock()
	return isAdmin
}

// invalidateRoles drops every cached authorization decision. A grant must
// not outlive the sign-in it was made for; roles revoked between sessions
// take effect on the next login.
func (g *SessionGate) invalidateRoles() {
	g.mu.Lock()
	g.roleCache = make(map[string]bool)
	g.mu.Unlock()
}

func (g *SessionGate) setState(state SessionState, identity *auth.Identity) {
	g.mu.Lock()
	g.state = state
	g.current = identity
	g.mu.Unlock()
}
