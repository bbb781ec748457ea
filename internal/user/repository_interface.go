package user

import "context"

type Repository interface {
	Create(ctx context.Context, u *User) (*User, error)
	Upsert(ctx context.Context, u *User) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	Delete(ctx context.Context, id string) error
}
