package models

import (
	"time"

	"github.com/google/uuid"
)

// Pharmacy is the tenant root every staff record and branch hangs off.
type Pharmacy struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	OwnerID   uuid.UUID `gorm:"column:owner_id;type:uuid;not null"`
	Phone     *string   `gorm:"column:phone"`
	Email     *string   `gorm:"column:email"`
	IsActive  bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
