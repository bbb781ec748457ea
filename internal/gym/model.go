package gym

import (
	"time"

	"github.com/google/uuid"
)

// Gym is a row of gimnasios. Each owner has at most one gym.
type Gym struct {
	ID        uuid.UUID `db:"id" json:"id"`
	OwnerID   string    `db:"owner_id" json:"owner_id"`
	Name      string    `db:"nombre" json:"nombre"`
	Address   *string   `db:"direccion" json:"direccion,omitempty"`
	Phone     *string   `db:"telefono" json:"telefono,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

type EnsureGymRequest struct {
	Name    string `json:"nombre" binding:"omitempty,max=120,nocontrol"`
	Address string `json:"direccion" binding:"omitempty,max=200"`
	Phone   string `json:"telefono" binding:"omitempty,max=40"`
}
