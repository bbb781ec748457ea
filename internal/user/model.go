package user

import "time"

type Role string

const (
	RoleAdmin        Role = "admin"
	RoleReceptionist Role = "recepcionista"
	RoleMember       Role = "miembro"
)

// User is the profile row mirroring an identity provider account.
type User struct {
	ID        string    `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	Name      string    `db:"nombre" json:"nombre"`
	Phone     *string   `db:"telefono" json:"telefono,omitempty"`
	Role      Role      `db:"rol" json:"rol"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
