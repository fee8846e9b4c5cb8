package auth

import (
	"github.com/pharmadesk/pharmadesk-backend/internal/staff"
	"github.com/pharmadesk/pharmadesk-backend/internal/users"
)

// LoginRequest captures the credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse contains the tokens, user profile, and pharmacy list
// produced by a successful login.
type LoginResponse struct {
	AccessToken  string                     `json:"access_token"`
	RefreshToken string                     `json:"refresh_token"`
	Pharmacies   []staff.PharmacyMembership `json:"pharmacies"`
	User         *users.UserDTO             `json:"user"`
}

// RefreshRequest carries the expired access token plus the refresh token
// that proves the session is still live.
type RefreshRequest struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshResponse returns the rotated token pair.
type RefreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
