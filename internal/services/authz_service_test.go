package services

import (
	"context"
	"errors"
	"testing"
)

type stubRoleRepo struct {
	roles    map[string]string
	failWith error
}

func (r *stubRoleRepo) FindRole(_ context.Context, userID string) (string, error) {
	if r.failWith != nil {
		return "", r.failWith
	}
	role, ok := r.roles[userID]
	if !ok {
		return "", &stubRepoError{notFound: true}
	}
	return role, nil
}

func newAuthzServiceForTest(t *testing.T, repo *stubRoleRepo) AuthzService {
	t.Helper()
	svc, err := NewAuthzService(AuthzServiceDeps{Roles: repo})
	if err != nil {
		t.Fatalf("NewAuthzService returned error: %v", err)
	}
	return svc
}

func TestIsAdmin(t *testing.T) {
	svc := newAuthzServiceForTest(t, &stubRoleRepo{roles: map[string]string{
		"admin-uid":  "admin",
		"Admin-uid":  "ADMIN",
		"viewer-uid": "viewer",
	}})
	ctx := context.Background()

	cases := []struct {
		userID string
		want   bool
	}{
		{"admin-uid", true},
		{"Admin-uid", true},
		{"viewer-uid", false},
		{"unknown-uid", false},
	}
	for _, tc := range cases {
		got, err := svc.IsAdmin(ctx, tc.userID)
		if err != nil {
			t.Fatalf("IsAdmin(%q) returned error: %v", tc.userID, err)
		}
		if got != tc.want {
			t.Fatalf("IsAdmin(%q) = %v, want %v", tc.userID, got, tc.want)
		}
	}
}

func TestIsAdminRequiresUserID(t *testing.T) {
	svc := newAuthzServiceForTest(t, &stubRoleRepo{})
	if _, err := svc.IsAdmin(context.Background(), "  "); !errors.Is(err, ErrAuthzInvalidInput) {
		t.Fatalf("expected ErrAuthzInvalidInput, got %v", err)
	}
}

func TestIsAdminSurfacesLookupFailures(t *testing.T) {
	svc := newAuthzServiceForTest(t, &stubRoleRepo{failWith: errors.New("backend down")})

	ok, err := svc.IsAdmin(context.Background(), "admin-uid")
	if ok {
		t.Fatal("expected denial on lookup failure")
	}
	if !errors.Is(err, ErrAuthzUnavailable) {
		t.Fatalf("expected ErrAuthzUnavailable, got %v", err)
	}
}
