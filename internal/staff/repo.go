package staff

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pharmadesk/pharmadesk-backend/pkg/db/models"
	"github.com/pharmadesk/pharmadesk-backend/pkg/enums"
	pkgpagination "github.com/pharmadesk/pharmadesk-backend/pkg/pagination"
	pkgpermissions "github.com/pharmadesk/pharmadesk-backend/pkg/permissions"
)

// Repository exposes staff record and permission grant persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repo to the provided GORM connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// LookupActiveStaff returns the most recent active record for the
// (user, pharmacy) pair plus the count of active records, so callers can
// log when more than one exists. Returns gorm.ErrRecordNotFound when none
// is active.
func (r *Repository) LookupActiveStaff(ctx context.Context, userID, pharmacyID uuid.UUID) (*models.StaffRecord, int64, error) {
	scoped := r.db.WithContext(ctx).
		Model(&models.StaffRecord{}).
		Where("user_id = ? AND pharmacy_id = ? AND is_active = ?", userID, pharmacyID, true)

	var count int64
	if err := scoped.Count(&count).Error; err != nil {
		return nil, 0, err
	}

	var record models.StaffRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND pharmacy_id = ? AND is_active = ?", userID, pharmacyID, true).
		Order("created_at DESC").Order("id DESC").
		First(&record).Error
	if err != nil {
		return nil, 0, err
	}
	return &record, count, nil
}

// FindByID retrieves a staff record scoped to the pharmacy.
func (r *Repository) FindByID(ctx context.Context, staffID, pharmacyID uuid.UUID) (*models.StaffRecord, error) {
	var record models.StaffRecord
	err := r.db.WithContext(ctx).
		Where("id = ? AND pharmacy_id = ?", staffID, pharmacyID).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// FindBranch retrieves a branch scoped to the pharmacy.
func (r *Repository) FindBranch(ctx context.Context, branchID, pharmacyID uuid.UUID) (*models.Branch, error) {
	var branch models.Branch
	err := r.db.WithContext(ctx).
		Where("id = ? AND pharmacy_id = ?", branchID, pharmacyID).
		First(&branch).Error
	if err != nil {
		return nil, err
	}
	return &branch, nil
}

// CreateStaff persists a new staff record.
func (r *Repository) CreateStaff(ctx context.Context, record *models.StaffRecord) (*models.StaffRecord, error) {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

// UpdateRole sets the role column on the record.
func (r *Repository) UpdateRole(ctx context.Context, staffID uuid.UUID, role enums.StaffRole) error {
	return r.db.WithContext(ctx).
		Model(&models.StaffRecord{}).
		Where("id = ?", staffID).
		UpdateColumn("role", role).Error
}

// UpdateBranch sets the branch column; nil clears the pin (all-branch).
func (r *Repository) UpdateBranch(ctx context.Context, staffID uuid.UUID, branchID *uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.StaffRecord{}).
		Where("id = ?", staffID).
		UpdateColumn("branch_id", branchID).Error
}

// SetActive flips the active flag on the record.
func (r *Repository) SetActive(ctx context.Context, staffID uuid.UUID, active bool) error {
	return r.db.WithContext(ctx).
		Model(&models.StaffRecord{}).
		Where("id = ?", staffID).
		UpdateColumn("is_active", active).Error
}

// ListGrants returns every grant row for the staff record.
func (r *Repository) ListGrants(ctx context.Context, staffID uuid.UUID) ([]models.PermissionGrant, error) {
	var grants []models.PermissionGrant
	err := r.db.WithContext(ctx).
		Where("staff_id = ?", staffID).
		Order("permission_key").
		Find(&grants).Error
	if err != nil {
		return nil, err
	}
	return grants, nil
}

// ReplaceGrants swaps the staff record's grant set for the given keys in a
// single transaction, so readers never observe the zero-permission window
// between the delete and the insert.
func (r *Repository) ReplaceGrants(ctx context.Context, staffID uuid.UUID, keys []pkgpermissions.Key) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("staff_id = ?", staffID).Delete(&models.PermissionGrant{}).Error
		if err != nil {
			return err
		}
		if len(keys) == 0 {
			return nil
		}
		grants := make([]models.PermissionGrant, 0, len(keys))
		for _, key := range keys {
			grants = append(grants, models.PermissionGrant{
				StaffID:       staffID,
				PermissionKey: string(key),
				IsGranted:     true,
			})
		}
		return tx.Create(&grants).Error
	})
}

// ListUserPharmacies returns the pharmacies the user holds an active staff
// record at, newest record first. Login uses this to pick the active tenant.
func (r *Repository) ListUserPharmacies(ctx context.Context, userID uuid.UUID) ([]PharmacyMembership, error) {
	var rows []membershipRow
	err := r.db.WithContext(ctx).
		Model(&models.StaffRecord{}).
		Select("staff_records.id, staff_records.pharmacy_id, staff_records.role, staff_records.branch_id, pharmacies.name AS pharmacy_name").
		Joins("JOIN pharmacies ON pharmacies.id = staff_records.pharmacy_id").
		Where("staff_records.user_id = ? AND staff_records.is_active = ? AND pharmacies.is_active = ?", userID, true, true).
		Order("staff_records.created_at DESC").Order("staff_records.id DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	memberships := make([]PharmacyMembership, 0, len(rows))
	for _, row := range rows {
		memberships = append(memberships, PharmacyMembership{
			StaffID:      row.ID,
			PharmacyID:   row.PharmacyID,
			PharmacyName: row.PharmacyName,
			Role:         row.Role,
			BranchID:     row.BranchID,
		})
	}
	return memberships, nil
}

type listQuery struct {
	pharmacyID uuid.UUID
	limit      int
	cursor     *pkgpagination.Cursor
}

// List returns pharmacy-scoped staff rows joined with the user profile and
// branch name, using cursor pagination.
func (r *Repository) List(ctx context.Context, opts listQuery) ([]staffRow, error) {
	query := r.db.WithContext(ctx).
		Model(&models.StaffRecord{}).
		Select("staff_records.*, users.email, users.first_name, users.last_name, users.phone, users.last_login_at, branches.name AS branch_name").
		Joins("JOIN users ON users.id = staff_records.user_id").
		Joins("LEFT JOIN branches ON branches.id = staff_records.branch_id").
		Where("staff_records.pharmacy_id = ?", opts.pharmacyID)

	if opts.cursor != nil {
		query = query.Where("(staff_records.created_at < ?) OR (staff_records.created_at = ? AND staff_records.id < ?)",
			opts.cursor.CreatedAt, opts.cursor.CreatedAt, opts.cursor.ID)
	}

	query = query.Order("staff_records.created_at DESC").Order("staff_records.id DESC").Limit(opts.limit)

	var rows []staffRow
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// GetStaffWithProfile returns one joined row for the record, scoped to the
// pharmacy.
func (r *Repository) GetStaffWithProfile(ctx context.Context, staffID, pharmacyID uuid.UUID) (*StaffDTO, error) {
	var row staffRow
	err := r.db.WithContext(ctx).
		Model(&models.StaffRecord{}).
		Select("staff_records.*, users.email, users.first_name, users.last_name, users.phone, users.last_login_at, branches.name AS branch_name").
		Joins("JOIN users ON users.id = staff_records.user_id").
		Joins("LEFT JOIN branches ON branches.id = staff_records.branch_id").
		Where("staff_records.id = ? AND staff_records.pharmacy_id = ?", staffID, pharmacyID).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	dto := rowToDTO(row)
	return &dto, nil
}
