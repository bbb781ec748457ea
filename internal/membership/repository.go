package membership

import (
	"context"
	"database/sql"
	"errors"

	"gymportal/internal/db"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	ErrGrantNotFound = errors.New("membership grant not found")
	ErrGrantExists   = errors.New("user already belongs to gym")
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, userID string, gymID uuid.UUID, perms Permissions) (*Grant, error) {
	query := `
		INSERT INTO usuarios_gimnasios (usuario_id, gimnasio_id, permisos)
		VALUES ($1, $2, $3)
		RETURNING id, usuario_id, gimnasio_id, permisos, created_at
	`

	var g Grant
	err := r.db.GetContext(ctx, &g, query, userID, gymID, perms)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrGrantExists
		}
		return nil, err
	}
	return &g, nil
}

func (r *repository) Delete(ctx context.Context, userID string, gymID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM usuarios_gimnasios WHERE usuario_id = $1 AND gimnasio_id = $2`, userID, gymID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrGrantNotFound
	}
	return nil
}

// ListByGym returns the gym's members holding role, newest first.
func (r *repository) ListByGym(ctx context.Context, gymID uuid.UUID, role string) ([]Member, error) {
	query := `
		SELECT ug.usuario_id, u.email, u.nombre, u.telefono, u.rol, ug.permisos, ug.created_at
		FROM usuarios_gimnasios ug
		JOIN usuarios u ON u.id = ug.usuario_id
		WHERE ug.gimnasio_id = $1 AND u.rol = $2
		ORDER BY ug.created_at DESC
	`

	members := []Member{}
	if err := r.db.SelectContext(ctx, &members, query, gymID, role); err != nil {
		return nil, err
	}
	return members, nil
}

// OwnerOf resolves the owner of the gym the user was granted access to.
func (r *repository) OwnerOf(ctx context.Context, userID string) (string, error) {
	query := `
		SELECT g.owner_id
		FROM usuarios_gimnasios ug
		JOIN gimnasios g ON g.id = ug.gimnasio_id
		WHERE ug.usuario_id = $1
		ORDER BY ug.created_at ASC
		LIMIT 1
	`

	var ownerID string
	err := r.db.GetContext(ctx, &ownerID, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrGrantNotFound
	}
	return ownerID, err
}
