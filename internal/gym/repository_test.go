package gym

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var gymRowColumns = []string{"id", "owner_id", "nombre", "direccion", "telefono", "created_at", "updated_at"}

func setupGymMock(t *testing.T) (Repository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { sqlxDB.Close() })
	return NewRepository(sqlxDB), mock
}

func TestCreateGym(t *testing.T) {
	repo, mock := setupGymMock(t)
	id := uuid.New()
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO gimnasios (owner_id, nombre, direccion, telefono)")).
		WithArgs("owner-1", "Box Norte", nil, nil).
		WillReturnRows(sqlmock.NewRows(gymRowColumns).AddRow(id.String(), "owner-1", "Box Norte", nil, nil, now, now))

	g, err := repo.Create(context.Background(), &Gym{OwnerID: "owner-1", Name: "Box Norte"})
	require.NoError(t, err)
	assert.Equal(t, id, g.ID)
	assert.Equal(t, "Box Norte", g.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateGym_UniqueViolation(t *testing.T) {
	repo, mock := setupGymMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO gimnasios")).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "gimnasios_owner_id_key"})

	_, err := repo.Create(context.Background(), &Gym{OwnerID: "owner-1", Name: "Box"})
	assert.ErrorIs(t, err, ErrGymExists)
}

func TestFindByOwner(t *testing.T) {
	repo, mock := setupGymMock(t)
	id := uuid.New()
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, owner_id, nombre, direccion, telefono, created_at, updated_at FROM gimnasios WHERE owner_id = $1")).
		WithArgs("owner-1").
		WillReturnRows(sqlmock.NewRows(gymRowColumns).AddRow(id.String(), "owner-1", "Box", "Calle 1", nil, now, now))

	g, err := repo.FindByOwner(context.Background(), "owner-1")
	require.NoError(t, err)
	assert.Equal(t, id, g.ID)
	require.NotNil(t, g.Address)
	assert.Equal(t, "Calle 1", *g.Address)

	mock.ExpectQuery(regexp.QuoteMeta("FROM gimnasios WHERE owner_id = $1")).
		WithArgs("nobody").
		WillReturnRows(sqlmock.NewRows(gymRowColumns))

	_, err = repo.FindByOwner(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrGymNotFound)
}
