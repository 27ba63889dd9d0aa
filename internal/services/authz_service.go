package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/varmina-joyas/store/internal/repositories"
)

const adminRole = "admin"

var (
	// ErrAuthzInvalidInput indicates the caller provided an invalid argument.
	ErrAuthzInvalidInput = errors.New("authz: invalid input")
	// ErrAuthzUnavailable indicates the role lookup could not be completed.
	ErrAuthzUnavailable = errors.New("authz: role lookup unavailable")
)

// AuthzServiceDeps wires dependencies for the authorization service.
type AuthzServiceDeps struct {
	Roles  repositories.RoleRepository
	Logger func(ctx context.Context, event string, fields map[string]any)
}

type authzService struct {
	roles  repositories.RoleRepository
	logger func(context.Context, string, map[string]any)
}

// NewAuthzService constructs an AuthzService backed by the role repository.
func NewAuthzService(deps AuthzServiceDeps) (AuthzService, error) {
	if deps.Roles == nil {
		return nil, errors.New("authz service: role repository is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &authzService{roles: deps.Roles, logger: logger}, nil
}

// IsAdmin reports whether the user's profile carries the admin role.
// A missing profile is an ordinary "no": only transport failures error out,
// and the caller treats those as a denial too.
func (s *authzService) IsAdmin(ctx context.Context, userID string) (bool, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return false, fmt.Errorf("%w: user id is required", ErrAuthzInvalidInput)
	}

	role, err := s.roles.FindRole(ctx, userID)
	if err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			return false, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return false, err
		}
		s.logger(ctx, "authz.lookup_failed", map[string]any{"user_id": userID, "error": err.Error()})
		return false, fmt.Errorf("%w: %v", ErrAuthzUnavailable, err)
	}

	return strings.EqualFold(strings.TrimSpace(role), adminRole), nil
}
