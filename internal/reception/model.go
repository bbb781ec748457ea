package reception

import (
	"gymportal/internal/membership"
	"gymportal/internal/user"
)

type CreateRequest struct {
	Name        string                  `json:"name" binding:"required,max=120"`
	Email       string                  `json:"email" binding:"required,email"`
	Password    string                  `json:"password" binding:"required,min=6"`
	Phone       string                  `json:"phone" binding:"omitempty,max=40"`
	Permissions *membership.Permissions `json:"permissions"`
}

// Credentials tell the owner how the receptionist signs in. Password is only
// filled when credential echo is enabled.
type Credentials struct {
	Email    string `json:"email"`
	LoginURL string `json:"login_url"`
	Password string `json:"password,omitempty"`
}

type Result struct {
	User        *user.User             `json:"user"`
	Permissions membership.Permissions `json:"permissions"`
	Credentials Credentials            `json:"credentials"`
}
