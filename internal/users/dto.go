package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/pharmadesk/pharmadesk-backend/pkg/db/models"
)

// UserDTO is the transport shape for a user profile.
type UserDTO struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Phone       *string    `json:"phone,omitempty"`
	IsActive    bool       `json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// FromModel converts a persistence model to the external DTO.
func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Phone:       u.Phone,
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

// CreateUserDTO carries the fields required to persist a new user.
type CreateUserDTO struct {
	Email        string
	FirstName    string
	LastName     string
	Phone        *string
	PasswordHash string
}

// ToModel converts the DTO into the persistence model.
func (d CreateUserDTO) ToModel() *models.User {
	return &models.User{
		Email:        d.Email,
		FirstName:    d.FirstName,
		LastName:     d.LastName,
		Phone:        d.Phone,
		PasswordHash: d.PasswordHash,
		IsActive:     true,
	}
}
