package models

import (
	"time"

	"github.com/google/uuid"
)

// Branch is one physical location of a pharmacy. Staff records may be
// scoped to a branch; a null branch on a staff record means all-branch
// (main/shared) access.
type Branch struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PharmacyID uuid.UUID `gorm:"column:pharmacy_id;type:uuid;not null"`
	Name       string    `gorm:"column:name;not null"`
	IsMain     bool      `gorm:"column:is_main;not null;default:false"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
