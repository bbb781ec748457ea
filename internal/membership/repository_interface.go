package membership

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, userID string, gymID uuid.UUID, perms Permissions) (*Grant, error)
	Delete(ctx context.Context, userID string, gymID uuid.UUID) error
	ListByGym(ctx context.Context, gymID uuid.UUID, role string) ([]Member, error)
	OwnerOf(ctx context.Context, userID string) (string, error)
}
