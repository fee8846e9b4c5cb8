package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/pharmadesk/pharmadesk-backend/pkg/enums"
)

// StaffRecord links a user with a pharmacy and captures their role, branch
// scope, and active flag. Records are soft-deactivated, never destroyed.
type StaffRecord struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PharmacyID uuid.UUID       `gorm:"column:pharmacy_id;type:uuid;not null"`
	UserID     uuid.UUID       `gorm:"column:user_id;type:uuid;not null"`
	Role       enums.StaffRole `gorm:"column:role;type:staff_role;not null"`
	BranchID   *uuid.UUID      `gorm:"column:branch_id;type:uuid"`
	IsActive   bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
