package gym

import "context"

type Repository interface {
	Create(ctx context.Context, g *Gym) (*Gym, error)
	FindByOwner(ctx context.Context, ownerID string) (*Gym, error)
}
