package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	firebaseauth "firebase.google.com/go/v4/auth"

	"github.com/varmina-joyas/store/internal/platform/auth"
	"github.com/varmina-joyas/store/internal/platform/config"
	"github.com/varmina-joyas/store/internal/platform/localstore"
)

type stubHTTPDoer struct {
	status   int
	body     string
	failWith error
	requests []*http.Request
}

func (d *stubHTTPDoer) Do(req *http.Request) (*http.Response, error) {
	d.requests = append(d.requests, req)
	if d.failWith != nil {
		return nil, d.failWith
	}
	return &http.Response{
		StatusCode: d.status,
		Body:       io.NopCloser(bytes.NewReader([]byte(d.body))),
	}, nil
}

type stubVerifier struct {
	mu        sync.Mutex
	verifyErr error
	revokeErr error
	revoked   []string
	verifyUID string
}

func (v *stubVerifier) VerifyIDToken(_ context.Context, idToken string) (*firebaseauth.Token, error) {
	if v.verifyErr != nil {
		return nil, v.verifyErr
	}
	return &firebaseauth.Token{UID: v.verifyUID}, nil
}

func (v *stubVerifier) RevokeRefreshTokens(_ context.Context, uid string) error {
	v.mu.Lock()
	v.revoked = append(v.revoked, uid)
	v.mu.Unlock()
	return v.revokeErr
}

func newIdentityServiceForTest(t *testing.T, doer HTTPDoer, verifier TokenVerifier, local localstore.Store) IdentityService {
	t.Helper()
	svc, err := NewIdentityService(IdentityServiceDeps{
		Config:     config.FirebaseConfig{ProjectID: "varmina-test", WebAPIKey: "test-key"},
		Verifier:   verifier,
		HTTPClient: doer,
		Local:      local,
		Clock:      func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("NewIdentityService returned error: %v", err)
	}
	return svc
}

func TestSignInPersistsSessionAndNotifies(t *testing.T) {
	doer := &stubHTTPDoer{
		status: http.StatusOK,
		body:   `{"idToken":"tok","refreshToken":"ref","localId":"uid-1","email":"ana@varmina.cl","expiresIn":"3600"}`,
	}
	local := localstore.NewMemStore()
	svc := newIdentityServiceForTest(t, doer, &stubVerifier{}, local)

	var events []auth.AuthEvent
	unsubscribe := svc.OnAuthStateChange(func(change StateChange) {
		events = append(events, change.Event)
	})
	defer unsubscribe()

	identity, err := svc.SignIn(context.Background(), "ana@varmina.cl", "secret")
	if err != nil {
		t.Fatalf("SignIn returned error: %v", err)
	}
	if identity.UID != "uid-1" || identity.Email != "ana@varmina.cl" {
		t.Fatalf("unexpected identity %+v", identity)
	}

	var record struct {
		IDToken string `json:"idToken"`
		UID     string `json:"uid"`
	}
	if !localstore.GetJSON(local, localstore.KeySession, &record) {
		t.Fatal("expected persisted session")
	}
	if record.IDToken != "tok" || record.UID != "uid-1" {
		t.Fatalf("unexpected session record %+v", record)
	}

	if len(events) != 1 || events[0] != auth.EventSignedIn {
		t.Fatalf("expected signed_in event, got %v", events)
	}
	if current := svc.CurrentIdentity(); current == nil || current.UID != "uid-1" {
		t.Fatalf("expected current identity, got %+v", current)
	}
}

func TestSignInMapsCredentialErrors(t *testing.T) {
	doer := &stubHTTPDoer{
		status: http.StatusBadRequest,
		body:   `{"error":{"message":"INVALID_LOGIN_CREDENTIALS"}}`,
	}
	svc := newIdentityServiceForTest(t, doer, &stubVerifier{}, localstore.NewMemStore())

	_, err := svc.SignIn(context.Background(), "ana@varmina.cl", "wrong")
	if !errors.Is(err, ErrIdentityInvalidCredentials) {
		t.Fatalf("expected ErrIdentityInvalidCredentials, got %v", err)
	}
}

func TestSignInNetworkFailure(t *testing.T) {
	doer := &stubHTTPDoer{failWith: errors.New("connection refused")}
	svc := newIdentityServiceForTest(t, doer, &stubVerifier{}, localstore.NewMemStore())

	_, err := svc.SignIn(context.Background(), "ana@varmina.cl", "secret")
	if !errors.Is(err, ErrIdentityUnavailable) {
		t.Fatalf("expected ErrIdentityUnavailable, got %v", err)
	}
}

func TestSignInValidatesInput(t *testing.T) {
	doer := &stubHTTPDoer{}
	svc := newIdentityServiceForTest(t, doer, &stubVerifier{}, localstore.NewMemStore())

	if _, err := svc.SignIn(context.Background(), "", "secret"); !errors.Is(err, ErrIdentityInvalidInput) {
		t.Fatalf("expected ErrIdentityInvalidInput, got %v", err)
	}
	if len(doer.requests) != 0 {
		t.Fatal("expected no request for invalid input")
	}
}

func TestSignOutClearsLocalStateEvenWhenRevokeFails(t *testing.T) {
	doer := &stubHTTPDoer{
		status: http.StatusOK,
		body:   `{"idToken":"tok","refreshToken":"ref","localId":"uid-1","email":"ana@varmina.cl","expiresIn":"3600"}`,
	}
	local := localstore.NewMemStore()
	verifier := &stubVerifier{revokeErr: errors.New("backend down")}
	svc := newIdentityServiceForTest(t, doer, verifier, local)

	if _, err := svc.SignIn(context.Background(), "ana@varmina.cl", "secret"); err != nil {
		t.Fatalf("SignIn returned error: %v", err)
	}

	var events []auth.AuthEvent
	defer svc.OnAuthStateChange(func(change StateChange) {
		events = append(events, change.Event)
	})()

	if err := svc.SignOut(context.Background()); err != nil {
		t.Fatalf("SignOut returned error: %v", err)
	}

	if len(verifier.revoked) != 1 || verifier.revoked[0] != "uid-1" {
		t.Fatalf("expected revoke attempt, got %v", verifier.revoked)
	}
	if _, ok := local.Get(localstore.KeySession); ok {
		t.Fatal("expected session cleared despite revoke failure")
	}
	if svc.CurrentIdentity() != nil {
		t.Fatal("expected no current identity after sign-out")
	}
	if len(events) != 1 || events[0] != auth.EventSignedOut {
		t.Fatalf("expected signed_out event, got %v", events)
	}
}

func TestRestoreSessionWithoutStoredSession(t *testing.T) {
	svc := newIdentityServiceForTest(t, &stubHTTPDoer{}, &stubVerifier{}, localstore.NewMemStore())

	identity, err := svc.RestoreSession(context.Background())
	if err != nil {
		t.Fatalf("RestoreSession returned error: %v", err)
	}
	if identity != nil {
		t.Fatalf("expected nil identity, got %+v", identity)
	}
}

func TestRestoreSessionVerifiesToken(t *testing.T) {
	local := localstore.NewMemStore()
	seedSession(t, local)

	verifier := &stubVerifier{verifyUID: "verified-uid"}
	svc := newIdentityServiceForTest(t, &stubHTTPDoer{}, verifier, local)

	var events []auth.AuthEvent
	defer svc.OnAuthStateChange(func(change StateChange) {
		events = append(events, change.Event)
	})()

	identity, err := svc.RestoreSession(context.Background())
	if err != nil {
		t.Fatalf("RestoreSession returned error: %v", err)
	}
	if identity == nil || identity.UID != "verified-uid" {
		t.Fatalf("expected verified identity, got %+v", identity)
	}
	if len(events) != 1 || events[0] != auth.EventInitialSession {
		t.Fatalf("expected initial_session event, got %v", events)
	}
}

func TestRestoreSessionClearsInvalidSession(t *testing.T) {
	local := localstore.NewMemStore()
	seedSession(t, local)

	verifier := &stubVerifier{verifyErr: errors.New("token revoked")}
	svc := newIdentityServiceForTest(t, &stubHTTPDoer{}, verifier, local)

	identity, err := svc.RestoreSession(context.Background())
	if err != nil {
		t.Fatalf("RestoreSession returned error: %v", err)
	}
	if identity != nil {
		t.Fatalf("expected nil identity for invalid session, got %+v", identity)
	}
	if _, ok := local.Get(localstore.KeySession); ok {
		t.Fatal("expected invalid session cleared")
	}
}

func TestOnAuthStateChangeUnsubscribe(t *testing.T) {
	doer := &stubHTTPDoer{
		status: http.StatusOK,
		body:   `{"idToken":"tok","refreshToken":"ref","localId":"uid-1","email":"ana@varmina.cl","expiresIn":"3600"}`,
	}
	svc := newIdentityServiceForTest(t, doer, &stubVerifier{}, localstore.NewMemStore())

	calls := 0
	unsubscribe := svc.OnAuthStateChange(func(StateChange) { calls++ })
	unsubscribe()

	if _, err := svc.SignIn(context.Background(), "ana@varmina.cl", "secret"); err != nil {
		t.Fatalf("SignIn returned error: %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected no callbacks after unsubscribe, got %d", calls)
	}
}

func seedSession(t *testing.T, local localstore.Store) {
	t.Helper()
	err := localstore.SetJSON(local, localstore.KeySession, map[string]any{
		"idToken":      "stored-token",
		"refreshToken": "stored-refresh",
		"uid":          "stored-uid",
		"email":        "ana@varmina.cl",
		"expiresAt":    time.Date(2025, 6, 1, 13, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("failed seeding session: %v", err)
	}
}
