package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pharmadesk/pharmadesk-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID           uuid.UUID
	ActivePharmacyID *uuid.UUID
	Role             enums.StaffRole
	JTI              string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID           uuid.UUID       `json:"user_id"`
	ActivePharmacyID *uuid.UUID      `json:"active_pharmacy_id,omitempty"`
	Role             enums.StaffRole `json:"role"`
	jwt.RegisteredClaims
}
