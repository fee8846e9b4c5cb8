package staff

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pharmadesk/pharmadesk-backend/pkg/db/models"
	"github.com/pharmadesk/pharmadesk-backend/pkg/enums"
	pkgpagination "github.com/pharmadesk/pharmadesk-backend/pkg/pagination"
	pkgpermissions "github.com/pharmadesk/pharmadesk-backend/pkg/permissions"
)

func setupStaffTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	tables := []string{`
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL,
  phone TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS branches (
  id TEXT PRIMARY KEY,
  pharmacy_id TEXT NOT NULL,
  name TEXT NOT NULL,
  is_main INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS staff_records (
  id TEXT PRIMARY KEY,
  pharmacy_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  role TEXT NOT NULL,
  branch_id TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS permission_grants (
  id TEXT PRIMARY KEY,
  staff_id TEXT NOT NULL,
  permission_key TEXT NOT NULL,
  is_granted INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`}
	for _, ddl := range tables {
		require.NoError(t, db.Exec(ddl).Error)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: "hash",
		FirstName:    "Test",
		LastName:     "User",
		IsActive:     true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedRecord(t *testing.T, db *gorm.DB, pharmacyID, userID uuid.UUID, role enums.StaffRole, branchID *uuid.UUID, createdAt time.Time) *models.StaffRecord {
	t.Helper()
	record := &models.StaffRecord{
		ID:         uuid.New(),
		PharmacyID: pharmacyID,
		UserID:     userID,
		Role:       role,
		BranchID:   branchID,
		IsActive:   true,
		CreatedAt:  createdAt,
	}
	require.NoError(t, db.Create(record).Error)
	return record
}

func TestLookupActiveStaffMostRecentWins(t *testing.T) {
	db := setupStaffTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	pharmacyID := uuid.New()
	user := seedUser(t, db, "dup@pharmacy.test")

	older := seedRecord(t, db, pharmacyID, user.ID, enums.StaffRoleStaff, nil, time.Now().Add(-time.Hour))
	newer := seedRecord(t, db, pharmacyID, user.ID, enums.StaffRoleManager, nil, time.Now())

	record, count, err := repo.LookupActiveStaff(ctx, user.ID, pharmacyID)
	require.NoError(t, err)
	assert.Equal(t, newer.ID, record.ID)
	assert.Equal(t, enums.StaffRoleManager, record.Role)
	assert.EqualValues(t, 2, count)

	// Deactivating the newer record flips the winner back.
	require.NoError(t, repo.SetActive(ctx, newer.ID, false))
	record, count, err = repo.LookupActiveStaff(ctx, user.ID, pharmacyID)
	require.NoError(t, err)
	assert.Equal(t, older.ID, record.ID)
	assert.EqualValues(t, 1, count)
}

func TestLookupActiveStaffNotFound(t *testing.T) {
	db := setupStaffTestDB(t)
	repo := NewRepository(db)

	_, _, err := repo.LookupActiveStaff(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestReplaceGrantsSwapsSetAtomically(t *testing.T) {
	db := setupStaffTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	pharmacyID := uuid.New()
	user := seedUser(t, db, "grants@pharmacy.test")
	record := seedRecord(t, db, pharmacyID, user.ID, enums.StaffRoleStaff, nil, time.Now())

	require.NoError(t, db.Create(&models.PermissionGrant{
		ID:            uuid.New(),
		StaffID:       record.ID,
		PermissionKey: "view_dashboard",
		IsGranted:     true,
	}).Error)

	err := repo.ReplaceGrants(ctx, record.ID, []pkgpermissions.Key{
		pkgpermissions.KeyViewOwnSales,
		pkgpermissions.KeyProcessSales,
	})
	require.NoError(t, err)

	grants, err := repo.ListGrants(ctx, record.ID)
	require.NoError(t, err)
	require.Len(t, grants, 2)
	assert.Equal(t, "process_sales", grants[0].PermissionKey)
	assert.Equal(t, "view_own_sales", grants[1].PermissionKey)
	for _, grant := range grants {
		assert.True(t, grant.IsGranted)
	}

	// An empty replacement clears the set without leaving stale rows.
	require.NoError(t, repo.ReplaceGrants(ctx, record.ID, nil))
	grants, err = repo.ListGrants(ctx, record.ID)
	require.NoError(t, err)
	assert.Empty(t, grants)
}

func TestUpdateColumnsPersist(t *testing.T) {
	db := setupStaffTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	pharmacyID := uuid.New()
	user := seedUser(t, db, "cols@pharmacy.test")
	branch := &models.Branch{ID: uuid.New(), PharmacyID: pharmacyID, Name: "North"}
	require.NoError(t, db.Create(branch).Error)
	record := seedRecord(t, db, pharmacyID, user.ID, enums.StaffRoleStaff, nil, time.Now())

	require.NoError(t, repo.UpdateRole(ctx, record.ID, enums.StaffRoleManager))
	require.NoError(t, repo.UpdateBranch(ctx, record.ID, &branch.ID))
	require.NoError(t, repo.SetActive(ctx, record.ID, false))

	got, err := repo.FindByID(ctx, record.ID, pharmacyID)
	require.NoError(t, err)
	assert.Equal(t, enums.StaffRoleManager, got.Role)
	require.NotNil(t, got.BranchID)
	assert.Equal(t, branch.ID, *got.BranchID)
	assert.False(t, got.IsActive)
}

func TestFindBranchScopedToPharmacy(t *testing.T) {
	db := setupStaffTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	branch := &models.Branch{ID: uuid.New(), PharmacyID: uuid.New(), Name: "Main", IsMain: true}
	require.NoError(t, db.Create(branch).Error)

	found, err := repo.FindBranch(ctx, branch.ID, branch.PharmacyID)
	require.NoError(t, err)
	assert.Equal(t, "Main", found.Name)

	_, err = repo.FindBranch(ctx, branch.ID, uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestListJoinsProfileAndBranch(t *testing.T) {
	db := setupStaffTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	pharmacyID := uuid.New()
	branch := &models.Branch{ID: uuid.New(), PharmacyID: pharmacyID, Name: "North"}
	require.NoError(t, db.Create(branch).Error)

	userA := seedUser(t, db, "a@pharmacy.test")
	userB := seedUser(t, db, "b@pharmacy.test")
	seedRecord(t, db, pharmacyID, userA.ID, enums.StaffRoleStaff, &branch.ID, time.Now().Add(-time.Minute))
	seedRecord(t, db, pharmacyID, userB.ID, enums.StaffRoleManager, nil, time.Now())

	// A row in another pharmacy must not leak into the page.
	userC := seedUser(t, db, "c@pharmacy.test")
	seedRecord(t, db, uuid.New(), userC.ID, enums.StaffRoleStaff, nil, time.Now())

	rows, err := repo.List(ctx, listQuery{pharmacyID: pharmacyID, limit: 10})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "b@pharmacy.test", rows[0].Email)
	assert.Nil(t, rows[0].BranchName)
	assert.Equal(t, "a@pharmacy.test", rows[1].Email)
	require.NotNil(t, rows[1].BranchName)
	assert.Equal(t, "North", *rows[1].BranchName)
}

func TestListCursorPagination(t *testing.T) {
	db := setupStaffTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	pharmacyID := uuid.New()
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		user := seedUser(t, db, uuid.NewString()+"@pharmacy.test")
		seedRecord(t, db, pharmacyID, user.ID, enums.StaffRoleStaff, nil, base.Add(time.Duration(i)*time.Minute))
	}

	first, err := repo.List(ctx, listQuery{pharmacyID: pharmacyID, limit: 2})
	require.NoError(t, err)
	require.Len(t, first, 2)

	cursor := &pkgpagination.Cursor{CreatedAt: first[1].CreatedAt, ID: first[1].ID}
	second, err := repo.List(ctx, listQuery{pharmacyID: pharmacyID, limit: 2, cursor: cursor})
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.True(t, second[0].CreatedAt.Before(first[1].CreatedAt))
}

func TestGetStaffWithProfileNotFound(t *testing.T) {
	db := setupStaffTestDB(t)
	repo := NewRepository(db)

	_, err := repo.GetStaffWithProfile(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
