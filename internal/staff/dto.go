package staff

import (
	"time"

	"github.com/google/uuid"

	"github.com/pharmadesk/pharmadesk-backend/pkg/db/models"
	"github.com/pharmadesk/pharmadesk-backend/pkg/enums"
	pkgpagination "github.com/pharmadesk/pharmadesk-backend/pkg/pagination"
	pkgpermissions "github.com/pharmadesk/pharmadesk-backend/pkg/permissions"
)

// Actor identifies the authenticated caller a service operation acts for.
type Actor struct {
	UserID     uuid.UUID
	PharmacyID uuid.UUID
}

// StaffDTO mixes a staff record with the associated user profile and the
// branch name for staff-management screens.
type StaffDTO struct {
	StaffID     uuid.UUID       `json:"staff_id"`
	PharmacyID  uuid.UUID       `json:"pharmacy_id"`
	UserID      uuid.UUID       `json:"user_id"`
	Email       string          `json:"email"`
	FirstName   string          `json:"first_name"`
	LastName    string          `json:"last_name"`
	Phone       *string         `json:"phone,omitempty"`
	Role        enums.StaffRole `json:"role"`
	BranchID    *uuid.UUID      `json:"branch_id,omitempty"`
	BranchName  *string         `json:"branch_name,omitempty"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
	LastLoginAt *time.Time      `json:"last_login_at,omitempty"`
}

// ListParams holds staff listing inputs.
type ListParams struct {
	pkgpagination.Params
}

// ListResult is one page of staff rows plus the cursor for the next.
type ListResult struct {
	Items  []StaffDTO `json:"items"`
	Cursor string     `json:"cursor"`
}

// InviteStaffInput holds everything needed to create a user plus their
// staff record in one call.
type InviteStaffInput struct {
	Email       string
	FirstName   string
	LastName    string
	Phone       *string
	Role        enums.StaffRole
	BranchID    *uuid.UUID
	Permissions []string
}

// InviteResult returns the created row together with the one-time temp
// password the inviter hands to the new hire.
type InviteResult struct {
	Staff        StaffDTO `json:"staff"`
	TempPassword string   `json:"temp_password"`
}

// GrantSetDTO is the persisted permission set of one staff record, with
// the matching template label (or a custom-set description).
type GrantSetDTO struct {
	StaffID     uuid.UUID `json:"staff_id"`
	Keys        []string  `json:"keys"`
	Description string    `json:"description"`
}

// PharmacyMembership describes one pharmacy a user works at, for login and
// pharmacy switching.
type PharmacyMembership struct {
	StaffID      uuid.UUID       `json:"staff_id"`
	PharmacyID   uuid.UUID       `json:"pharmacy_id"`
	PharmacyName string          `json:"pharmacy_name"`
	Role         enums.StaffRole `json:"role"`
	BranchID     *uuid.UUID      `json:"branch_id,omitempty"`
}

type membershipRow struct {
	ID           uuid.UUID
	PharmacyID   uuid.UUID
	Role         enums.StaffRole
	BranchID     *uuid.UUID
	PharmacyName string
}

type staffRow struct {
	ID          uuid.UUID
	PharmacyID  uuid.UUID
	UserID      uuid.UUID
	Role        enums.StaffRole
	BranchID    *uuid.UUID
	IsActive    bool
	CreatedAt   time.Time
	Email       string
	FirstName   string
	LastName    string
	Phone       *string
	LastLoginAt *time.Time
	BranchName  *string
}

func rowToDTO(row staffRow) StaffDTO {
	return StaffDTO{
		StaffID:     row.ID,
		PharmacyID:  row.PharmacyID,
		UserID:      row.UserID,
		Email:       row.Email,
		FirstName:   row.FirstName,
		LastName:    row.LastName,
		Phone:       row.Phone,
		Role:        row.Role,
		BranchID:    row.BranchID,
		BranchName:  row.BranchName,
		IsActive:    row.IsActive,
		CreatedAt:   row.CreatedAt,
		LastLoginAt: row.LastLoginAt,
	}
}

func grantSetDTO(staffID uuid.UUID, keys []pkgpermissions.Key) GrantSetDTO {
	out := GrantSetDTO{StaffID: staffID, Keys: make([]string, 0, len(keys))}
	for _, key := range keys {
		out.Keys = append(out.Keys, string(key))
	}
	out.Description = pkgpermissions.DescribeGrantSet(keys)
	return out
}

func recordAndUserToDTO(record *models.StaffRecord, user *models.User, branchName *string) StaffDTO {
	return StaffDTO{
		StaffID:     record.ID,
		PharmacyID:  record.PharmacyID,
		UserID:      record.UserID,
		Email:       user.Email,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		Phone:       user.Phone,
		Role:        record.Role,
		BranchID:    record.BranchID,
		BranchName:  branchName,
		IsActive:    record.IsActive,
		CreatedAt:   record.CreatedAt,
		LastLoginAt: user.LastLoginAt,
	}
}
