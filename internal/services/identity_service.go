package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	firebaseauth "firebase.google.com/go/v4/auth"
	"github.com/golang-jwt/jwt/v4"

	"github.com/varmina-joyas/store/internal/platform/auth"
	"github.com/varmina-joyas/store/internal/platform/config"
	"github.com/varmina-joyas/store/internal/platform/localstore"
)

const signInEndpoint = "https://identitytoolkit.googleapis.com/v1/accounts:signInWithPassword?key="

var (
	// ErrIdentityInvalidInput indicates the caller provided an invalid argument.
	ErrIdentityInvalidInput = errors.New("identity: invalid input")
	// ErrIdentityInvalidCredentials indicates the email/password pair was rejected.
	ErrIdentityInvalidCredentials = errors.New("identity: invalid credentials")
	// ErrIdentityUnavailable indicates the identity backend could not be reached.
	ErrIdentityUnavailable = errors.New("identity: backend unavailable")
)

// TokenVerifier abstracts the Firebase Admin operations the identity service uses.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*firebaseauth.Token, error)
	RevokeRefreshTokens(ctx context.Context, uid string) error
}

// HTTPDoer issues HTTP requests; *http.Client satisfies it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// IdentityServiceDeps wires dependencies for the identity service implementation.
type IdentityServiceDeps struct {
	Config     config.FirebaseConfig
	Verifier   TokenVerifier
	HTTPClient HTTPDoer
	Local      localstore.Store
	Clock      func() time.Time
	Logger     func(ctx context.Context, event string, fields map[string]any)
}

type identityService struct {
	apiKey   string
	verifier TokenVerifier
	http     HTTPDoer
	local    localstore.Store
	now      func() time.Time
	logger   func(context.Context, string, map[string]any)

	mu        sync.Mutex
	current   *auth.Identity
	listeners map[int]func(auth.StateChange)
	nextSub   int
}

// NewIdentityService constructs an IdentityService backed by the provided dependencies.
func NewIdentityService(deps IdentityServiceDeps) (IdentityService, error) {
	if strings.TrimSpace(deps.Config.WebAPIKey) == "" {
		return nil, errors.New("identity service: web api key is required")
	}
	if deps.Verifier == nil {
		return nil, errors.New("identity service: token verifier is required")
	}
	if deps.Local == nil {
		return nil, errors.New("identity service: local store is required")
	}

	httpClient := deps.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &identityService{
		apiKey:    deps.Config.WebAPIKey,
		verifier:  deps.Verifier,
		http:      httpClient,
		local:     deps.Local,
		now:       func() time.Time { return clock().UTC() },
		logger:    logger,
		listeners: make(map[int]func(auth.StateChange)),
	}, nil
}

type sessionRecord struct {
	IDToken      string    `json:"idToken"`
	RefreshToken string    `json:"refreshToken"`
	UID          string    `json:"uid"`
	Email        string    `json:"email"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

type signInRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type signInResponse struct {
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	ExpiresIn    string `json:"expiresIn"`
}

type signInErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// SignIn exchanges an email/password pair for a session via the Identity
// Toolkit REST API and persists it locally.
func (s *identityService) SignIn(ctx context.Context, email, password string) (Identity, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return Identity{}, fmt.Errorf("%w: email and password are required", ErrIdentityInvalidInput)
	}

	payload, err := json.Marshal(signInRequest{Email: email, Password: password, ReturnSecureToken: true})
	if err != nil {
		return Identity{}, fmt.Errorf("identity: encode sign-in request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, signInEndpoint+s.apiKey, bytes.NewReader(payload))
	if err != nil {
		return Identity{}, fmt.Errorf("identity: build sign-in request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return Identity{}, err
		}
		return Identity{}, fmt.Errorf("%w: %v", ErrIdentityUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrIdentityUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return Identity{}, s.mapSignInError(resp.StatusCode, body)
	}

	var result signInResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return Identity{}, fmt.Errorf("%w: decode sign-in response: %v", ErrIdentityUnavailable, err)
	}
	if result.IDToken == "" || result.LocalID == "" {
		return Identity{}, fmt.Errorf("%w: incomplete sign-in response", ErrIdentityUnavailable)
	}

	identity := auth.Identity{UID: result.LocalID, Email: result.Email}
	record := sessionRecord{
		IDToken:      result.IDToken,
		RefreshToken: result.RefreshToken,
		UID:          result.LocalID,
		Email:        result.Email,
		ExpiresAt:    s.now().Add(parseExpiry(result.ExpiresIn)),
	}
	if err := localstore.SetJSON(s.local, localstore.KeySession, record); err != nil {
		s.logger(ctx, "identity.session_persist_failed", map[string]any{"error": err.Error()})
	}

	s.setCurrent(&identity)
	s.notify(auth.StateChange{Event: auth.EventSignedIn, Identity: &identity})
	s.logger(ctx, "identity.signed_in", map[string]any{"uid": identity.UID})
	return identity, nil
}

// SignOut revokes the session remotely on a best-effort basis; local state is
// cleared and subscribers notified even when the revoke fails.
func (s *identityService) SignOut(ctx context.Context) error {
	current := s.CurrentIdentity()
	if current != nil {
		if err := s.verifier.RevokeRefreshTokens(ctx, current.UID); err != nil {
			s.logger(ctx, "identity.revoke_failed", map[string]any{"uid": current.UID, "error": err.Error()})
		}
	}

	if err := s.local.Delete(localstore.KeySession); err != nil {
		s.logger(ctx, "identity.session_clear_failed", map[string]any{"error": err.Error()})
	}
	s.setCurrent(nil)
	s.notify(auth.StateChange{Event: auth.EventSignedOut})
	return nil
}

// RestoreSession loads the persisted session, peeks at its claims, and
// verifies the token remotely. Anything short of a verified token clears the
// session and reports a signed-out state.
func (s *identityService) RestoreSession(ctx context.Context) (*Identity, error) {
	var record sessionRecord
	if !localstore.GetJSON(s.local, localstore.KeySession, &record) || record.IDToken == "" {
		return nil, nil
	}

	// Unverified peek only fills in display fields; authority comes from the
	// remote verification below.
	identity := auth.Identity{UID: record.UID, Email: record.Email}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(record.IDToken, claims); err == nil {
		if sub, ok := claims["sub"].(string); ok && sub != "" {
			identity.UID = sub
		}
		if email, ok := claims["email"].(string); ok && email != "" {
			identity.Email = email
		}
	}

	token, err := s.verifier.VerifyIDToken(ctx, record.IDToken)
	if err != nil {
		s.logger(ctx, "identity.session_invalid", map[string]any{"error": err.Error()})
		_ = s.local.Delete(localstore.KeySession)
		s.setCurrent(nil)
		return nil, nil
	}
	if token != nil && token.UID != "" {
		identity.UID = token.UID
	}

	s.setCurrent(&identity)
	s.notify(auth.StateChange{Event: auth.EventInitialSession, Identity: &identity})
	return &identity, nil
}

// CurrentIdentity returns the active identity, or nil when signed out.
func (s *identityService) CurrentIdentity() *Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	copied := *s.current
	return &copied
}

// OnAuthStateChange registers a callback invoked on every auth transition.
// The returned function removes the subscription.
func (s *identityService) OnAuthStateChange(fn func(StateChange)) func() {
	if fn == nil {
		return func() {}
	}
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *identityService) setCurrent(identity *auth.Identity) {
	s.mu.Lock()
	s.current = identity
	s.mu.Unlock()
}

func (s *identityService) notify(change auth.StateChange) {
	s.mu.Lock()
	listeners := make([]func(auth.StateChange), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(change)
	}
}

func (s *identityService) mapSignInError(statusCode int, body []byte) error {
	var parsed signInErrorResponse
	_ = json.Unmarshal(body, &parsed)
	message := strings.ToUpper(strings.TrimSpace(parsed.Error.Message))

	switch {
	case strings.HasPrefix(message, "EMAIL_NOT_FOUND"),
		strings.HasPrefix(message, "INVALID_PASSWORD"),
		strings.HasPrefix(message, "INVALID_LOGIN_CREDENTIALS"),
		strings.HasPrefix(message, "INVALID_EMAIL"),
		strings.HasPrefix(message, "USER_DISABLED"):
		return fmt.Errorf("%w: %s", ErrIdentityInvalidCredentials, message)
	}
	if message == "" {
		message = strconv.Itoa(statusCode)
	}
	return fmt.Errorf("%w: %s", ErrIdentityUnavailable, message)
}

func parseExpiry(expiresIn string) time.Duration {
	seconds, err := strconv.Atoi(strings.TrimSpace(expiresIn))
	if err != nil || seconds <= 0 {
		return time.Hour
	}
	return time.Duration(seconds) * time.Second
}
