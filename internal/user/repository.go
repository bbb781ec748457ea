package user

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"
)

var ErrUserNotFound = errors.New("user not found")

const userColumns = `id, email, nombre, telefono, rol, created_at, updated_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, u *User) (*User, error) {
	query := `
		INSERT INTO usuarios (id, email, nombre, telefono, rol)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + userColumns

	var created User
	err := r.db.GetContext(ctx, &created, query, u.ID, strings.ToLower(u.Email), u.Name, u.Phone, u.Role)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// Upsert inserts the profile or refreshes it when the id already exists.
func (r *repository) Upsert(ctx context.Context, u *User) (*User, error) {
	query := `
		INSERT INTO usuarios (id, email, nombre, telefono, rol)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET email = EXCLUDED.email,
		    nombre = COALESCE(NULLIF(EXCLUDED.nombre, ''), usuarios.nombre),
		    telefono = COALESCE(EXCLUDED.telefono, usuarios.telefono),
		    rol = EXCLUDED.rol,
		    updated_at = NOW()
		RETURNING ` + userColumns

	var saved User
	err := r.db.GetContext(ctx, &saved, query, u.ID, strings.ToLower(u.Email), u.Name, u.Phone, u.Role)
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

func (r *repository) FindByID(ctx context.Context, id string) (*User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM usuarios WHERE id = $1`, id)
}

func (r *repository) findOne(ctx context.Context, query string, arg interface{}) (*User, error) {
	var u User
	err := r.db.GetContext(ctx, &u, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM usuarios WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}
