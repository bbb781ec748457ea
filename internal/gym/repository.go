package gym

import (
	"context"
	"database/sql"
	"errors"

	"gymportal/internal/db"

	"github.com/jmoiron/sqlx"
)

const gymColumns = `id, owner_id, nombre, direccion, telefono, created_at, updated_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

// Create inserts a gym. ErrGymExists is returned when the owner already has one.
func (r *repository) Create(ctx context.Context, g *Gym) (*Gym, error) {
	query := `
		INSERT INTO gimnasios (owner_id, nombre, direccion, telefono)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + gymColumns

	var created Gym
	err := r.db.GetContext(ctx, &created, query, g.OwnerID, g.Name, g.Address, g.Phone)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrGymExists
		}
		return nil, err
	}
	return &created, nil
}

func (r *repository) FindByOwner(ctx context.Context, ownerID string) (*Gym, error) {
	return r.findOne(ctx, `SELECT `+gymColumns+` FROM gimnasios WHERE owner_id = $1`, ownerID)
}

func (r *repository) findOne(ctx context.Context, query string, arg interface{}) (*Gym, error) {
	var g Gym
	err := r.db.GetContext(ctx, &g, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGymNotFound
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}
