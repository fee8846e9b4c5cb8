package models

import (
	"time"

	"github.com/google/uuid"
)

// PermissionGrant is one explicitly granted permission key for a staff-role
// record. Owner and manager records never consult this table.
type PermissionGrant struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StaffID       uuid.UUID `gorm:"column:staff_id;type:uuid;not null;index"`
	PermissionKey string    `gorm:"column:permission_key;not null"`
	IsGranted     bool      `gorm:"column:is_granted;not null;default:true"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
