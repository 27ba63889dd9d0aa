package firestore

import (
	"context"
	"errors"

	pfirestore "github.com/varmina-joyas/store/internal/platform/firestore"
	"github.com/varmina-joyas/store/internal/repositories"
)

const profilesCollection = "profiles"

// RoleRepository resolves user roles from the profiles collection.
type RoleRepository struct {
	profiles *pfirestore.BaseRepository[profileDocument]
}

// NewRoleRepository constructs a RoleRepository.
func NewRoleRepository(provider *pfirestore.Provider) (*RoleRepository, error) {
	if provider == nil {
		return nil, errors.New("role repository requires firestore provider")
	}
	return &RoleRepository{
		profiles: pfirestore.NewBaseRepository[profileDocument](provider, profilesCollection),
	}, nil
}

type profileDocument struct {
	Role string `firestore:"role"`
}

// FindRole returns the role stored on the user's profile document.
func (r *RoleRepository) FindRole(ctx context.Context, userID string) (string, error) {
	doc, err := r.profiles.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	return doc.Data.Role, nil
}

var _ repositories.RoleRepository = (*RoleRepository)(nil)
