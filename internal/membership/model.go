package membership

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Permissions are the capability flags stored in usuarios_gimnasios.permisos.
type Permissions struct {
	Consultas   bool `json:"consultas"`
	Asistencias bool `json:"asistencias"`
}

func DefaultPermissions() Permissions {
	return Permissions{Consultas: true, Asistencias: true}
}

func (p Permissions) Value() (driver.Value, error) {
	return json.Marshal(p)
}

func (p *Permissions) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*p = Permissions{}
		return nil
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	default:
		return errors.New("permisos: unsupported column type")
	}
}

// Grant links a user to a gym.
type Grant struct {
	ID        uuid.UUID   `db:"id" json:"id"`
	UserID    string      `db:"usuario_id" json:"usuario_id"`
	GymID     uuid.UUID   `db:"gimnasio_id" json:"gimnasio_id"`
	Perms     Permissions `db:"permisos" json:"permisos"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
}

// Member is a grant joined with the holder's profile.
type Member struct {
	UserID    string      `db:"usuario_id" json:"id"`
	Email     string      `db:"email" json:"email"`
	Name      string      `db:"nombre" json:"nombre"`
	Phone     *string     `db:"telefono" json:"telefono,omitempty"`
	Role      string      `db:"rol" json:"rol"`
	Perms     Permissions `db:"permisos" json:"permisos"`
	GrantedAt time.Time   `db:"created_at" json:"granted_at"`
}
