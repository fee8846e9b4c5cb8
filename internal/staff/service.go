package staff

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pharmadesk/pharmadesk-backend/internal/users"
	"github.com/pharmadesk/pharmadesk-backend/pkg/config"
	"github.com/pharmadesk/pharmadesk-backend/pkg/db/models"
	"github.com/pharmadesk/pharmadesk-backend/pkg/enums"
	pkgerrors "github.com/pharmadesk/pharmadesk-backend/pkg/errors"
	"github.com/pharmadesk/pharmadesk-backend/pkg/logger"
	"github.com/pharmadesk/pharmadesk-backend/pkg/metrics"
	pkgpagination "github.com/pharmadesk/pharmadesk-backend/pkg/pagination"
	pkgpermissions "github.com/pharmadesk/pharmadesk-backend/pkg/permissions"
	"github.com/pharmadesk/pharmadesk-backend/pkg/security"
)

const tempPasswordLength = 12

type staffRepository interface {
	FindByID(ctx context.Context, staffID, pharmacyID uuid.UUID) (*models.StaffRecord, error)
	FindBranch(ctx context.Context, branchID, pharmacyID uuid.UUID) (*models.Branch, error)
	CreateStaff(ctx context.Context, record *models.StaffRecord) (*models.StaffRecord, error)
	UpdateRole(ctx context.Context, staffID uuid.UUID, role enums.StaffRole) error
	UpdateBranch(ctx context.Context, staffID uuid.UUID, branchID *uuid.UUID) error
	SetActive(ctx context.Context, staffID uuid.UUID, active bool) error
	ListGrants(ctx context.Context, staffID uuid.UUID) ([]models.PermissionGrant, error)
	ReplaceGrants(ctx context.Context, staffID uuid.UUID, keys []pkgpermissions.Key) error
	List(ctx context.Context, opts listQuery) ([]staffRow, error)
	GetStaffWithProfile(ctx context.Context, staffID, pharmacyID uuid.UUID) (*StaffDTO, error)
}

type usersRepository interface {
	Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
}

type scopeResolver interface {
	ResolveScope(ctx context.Context, userID, pharmacyID uuid.UUID) Scope
}

type accessInvalidator interface {
	Invalidate(ctx context.Context, userID, pharmacyID uuid.UUID)
}

// Service exposes staff management operations. Every mutation resolves the
// actor's scope and enforces the branch/role predicates itself, so a
// misbehaving client can never widen its authority.
type Service interface {
	ListStaff(ctx context.Context, actor Actor, params ListParams) (*ListResult, error)
	GetStaff(ctx context.Context, actor Actor, staffID uuid.UUID) (*StaffDTO, error)
	InviteStaff(ctx context.Context, actor Actor, input InviteStaffInput) (*InviteResult, error)
	UpdateStaffRole(ctx context.Context, actor Actor, staffID uuid.UUID, role enums.StaffRole) (*StaffDTO, error)
	UpdateStaffBranch(ctx context.Context, actor Actor, staffID uuid.UUID, branchID *uuid.UUID) (*StaffDTO, error)
	ToggleStaffActive(ctx context.Context, actor Actor, staffID uuid.UUID) (*StaffDTO, error)
	GetStaffPermissions(ctx context.Context, actor Actor, staffID uuid.UUID) (*GrantSetDTO, error)
	UpdateStaffPermissions(ctx context.Context, actor Actor, staffID uuid.UUID, keys []string) (*GrantSetDTO, error)
	ResetStaffPassword(ctx context.Context, actor Actor, staffID uuid.UUID) (string, error)
}

type service struct {
	repo        staffRepository
	userRepo    usersRepository
	scopes      scopeResolver
	invalidator accessInvalidator
	passwordCfg config.PasswordConfig
	logg        *logger.Logger
	authz       *metrics.AuthzMetrics
}

// NewService builds the staff service.
func NewService(repo staffRepository, userRepo usersRepository, scopes scopeResolver, invalidator accessInvalidator, passwordCfg config.PasswordConfig, logg *logger.Logger, authz *metrics.AuthzMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("staff repository required")
	}
	if userRepo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if scopes == nil {
		return nil, fmt.Errorf("scope resolver required")
	}
	if invalidator == nil {
		return nil, fmt.Errorf("access invalidator required")
	}
	return &service{
		repo:        repo,
		userRepo:    userRepo,
		scopes:      scopes,
		invalidator: invalidator,
		passwordCfg: passwordCfg,
		logg:        logg,
		authz:       authz,
	}, nil
}

func (s *service) ListStaff(ctx context.Context, actor Actor, params ListParams) (*ListResult, error) {
	if err := validateActor(actor); err != nil {
		return nil, err
	}
	scope := s.scopes.ResolveScope(ctx, actor.UserID, actor.PharmacyID)
	allowed := scope.Role.IsPrivileged()
	s.authz.ObserveDecision("staff.list", allowed)
	if !allowed {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "staff management requires owner or manager role")
	}

	cursor, err := pkgpagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit := pkgpagination.NormalizeLimit(params.Limit)

	rows, err := s.repo.List(ctx, listQuery{
		pharmacyID: actor.PharmacyID,
		limit:      limit + 1,
		cursor:     cursor,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list staff")
	}

	result := &ListResult{Items: make([]StaffDTO, 0, len(rows))}
	for i, row := range rows {
		if i == limit {
			last := rows[limit-1]
			result.Cursor = pkgpagination.EncodeCursor(pkgpagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
			break
		}
		result.Items = append(result.Items, rowToDTO(row))
	}
	return result, nil
}

func (s *service) GetStaff(ctx context.Context, actor Actor, staffID uuid.UUID) (*StaffDTO, error) {
	if err := validateActor(actor); err != nil {
		return nil, err
	}
	scope := s.scopes.ResolveScope(ctx, actor.UserID, actor.PharmacyID)
	if !scope.Role.IsPrivileged() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "staff management requires owner or manager role")
	}
	dto, err := s.repo.GetStaffWithProfile(ctx, staffID, actor.PharmacyID)
	if err != nil {
		return nil, notFoundOrInternal(err, "staff record not found", "get staff")
	}
	return dto, nil
}

func (s *service) InviteStaff(ctx context.Context, actor Actor, input InviteStaffInput) (*InviteResult, error) {
	if err := validateActor(actor); err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if strings.TrimSpace(input.FirstName) == "" || strings.TrimSpace(input.LastName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "first_name and last_name are required")
	}
	if !input.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid role %q", input.Role))
	}
	keys, err := parseGrantKeys(input.Permissions)
	if err != nil {
		return nil, err
	}

	scope := s.scopes.ResolveScope(ctx, actor.UserID, actor.PharmacyID)
	allowed := scope.CanCreateStaff() && scope.CanPromoteToRole(input.Role) && scope.CanManageStaff(input.BranchID)
	s.authz.ObserveDecision("staff.invite", allowed)
	if !allowed {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to create this staff record")
	}

	var branchName *string
	if input.BranchID != nil {
		branch, err := s.repo.FindBranch(ctx, *input.BranchID, actor.PharmacyID)
		if err != nil {
			return nil, notFoundOrInternal(err, "branch not found", "find branch")
		}
		branchName = &branch.Name
	}

	if _, err := s.userRepo.FindByEmail(ctx, email); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "a user with this email already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check existing user")
	}

	tempPassword, err := security.GenerateTempPassword(tempPasswordLength)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate temp password")
	}
	hash, err := security.HashPassword(tempPassword, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash temp password")
	}

	user, err := s.userRepo.Create(ctx, users.CreateUserDTO{
		Email:        email,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Phone:        input.Phone,
		PasswordHash: hash,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
	}

	record, err := s.repo.CreateStaff(ctx, &models.StaffRecord{
		PharmacyID: actor.PharmacyID,
		UserID:     user.ID,
		Role:       input.Role,
		BranchID:   input.BranchID,
		IsActive:   true,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create staff record")
	}

	if input.Role == enums.StaffRoleStaff && len(keys) > 0 {
		if err := s.repo.ReplaceGrants(ctx, record.ID, keys); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "seed permission grants")
		}
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"staff_id": record.ID.String(),
			"role":     record.Role.String(),
		}), "staff.invited")
	}
	return &InviteResult{
		Staff:        recordAndUserToDTO(record, user, branchName),
		TempPassword: tempPassword,
	}, nil
}

func (s *service) UpdateStaffRole(ctx context.Context, actor Actor, staffID uuid.UUID, role enums.StaffRole) (*StaffDTO, error) {
	if err := validateActor(actor); err != nil {
		return nil, err
	}
	if !role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid role %q", role))
	}

	record, err := s.repo.FindByID(ctx, staffID, actor.PharmacyID)
	if err != nil {
		return nil, notFoundOrInternal(err, "staff record not found", "find staff record")
	}
	if record.Role == enums.StaffRoleOwner {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "owner role cannot be changed")
	}

	scope := s.scopes.ResolveScope(ctx, actor.UserID, actor.PharmacyID)
	allowed := scope.CanAssignRoles() && scope.CanPromoteToRole(role) && scope.CanManageStaff(record.BranchID)
	s.authz.ObserveDecision("staff.update_role", allowed)
	if !allowed {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to assign this role")
	}

	if err := s.repo.UpdateRole(ctx, staffID, role); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update role")
	}
	s.invalidator.Invalidate(ctx, record.UserID, record.PharmacyID)
	return s.refreshed(ctx, staffID, actor.PharmacyID)
}

func (s *service) UpdateStaffBranch(ctx context.Context, actor Actor, staffID uuid.UUID, branchID *uuid.UUID) (*StaffDTO, error) {
	if err := validateActor(actor); err != nil {
		return nil, err
	}

	record, err := s.repo.FindByID(ctx, staffID, actor.PharmacyID)
	if err != nil {
		return nil, notFoundOrInternal(err, "staff record not found", "find staff record")
	}

	scope := s.scopes.ResolveScope(ctx, actor.UserID, actor.PharmacyID)
	// The actor needs authority over both the current and the target branch,
	// otherwise a scoped manager could move staff out of (or into) branches
	// they do not run.
	allowed := scope.CanManageStaff(record.BranchID) && scope.CanManageStaff(branchID)
	s.authz.ObserveDecision("staff.update_branch", allowed)
	if !allowed {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to move this staff record")
	}

	if branchID != nil {
		if _, err := s.repo.FindBranch(ctx, *branchID, actor.PharmacyID); err != nil {
			return nil, notFoundOrInternal(err, "branch not found", "find branch")
		}
	}

	if err := s.repo.UpdateBranch(ctx, staffID, branchID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update branch")
	}
	s.invalidator.Invalidate(ctx, record.UserID, record.PharmacyID)
	return s.refreshed(ctx, staffID, actor.PharmacyID)
}

func (s *service) ToggleStaffActive(ctx context.Context, actor Actor, staffID uuid.UUID) (*StaffDTO, error) {
	if err := validateActor(actor); err != nil {
		return nil, err
	}

	record, err := s.repo.FindByID(ctx, staffID, actor.PharmacyID)
	if err != nil {
		return nil, notFoundOrInternal(err, "staff record not found", "find staff record")
	}
	if record.UserID == actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cannot deactivate your own record")
	}

	scope := s.scopes.ResolveScope(ctx, actor.UserID, actor.PharmacyID)
	allowed := scope.CanDeactivateStaff(record.Role, record.BranchID)
	s.authz.ObserveDecision("staff.toggle_active", allowed)
	if !allowed {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to change this record's active state")
	}

	if err := s.repo.SetActive(ctx, staffID, !record.IsActive); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "toggle active")
	}
	s.invalidator.Invalidate(ctx, record.UserID, record.PharmacyID)
	return s.refreshed(ctx, staffID, actor.PharmacyID)
}

func (s *service) GetStaffPermissions(ctx context.Context, actor Actor, staffID uuid.UUID) (*GrantSetDTO, error) {
	if err := validateActor(actor); err != nil {
		return nil, err
	}

	record, err := s.repo.FindByID(ctx, staffID, actor.PharmacyID)
	if err != nil {
		return nil, notFoundOrInternal(err, "staff record not found", "find staff record")
	}

	scope := s.scopes.ResolveScope(ctx, actor.UserID, actor.PharmacyID)
	if !scope.CanManageStaff(record.BranchID) && record.UserID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to view this record's permissions")
	}

	grants, err := s.repo.ListGrants(ctx, staffID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list grants")
	}
	keys := make([]pkgpermissions.Key, 0, len(grants))
	for _, grant := range grants {
		if !grant.IsGranted {
			continue
		}
		key, err := pkgpermissions.ParseKey(grant.PermissionKey)
		if err != nil {
			continue
		}
		keys = append(keys, key)
	}
	dto := grantSetDTO(staffID, keys)
	return &dto, nil
}

func (s *service) UpdateStaffPermissions(ctx context.Context, actor Actor, staffID uuid.UUID, rawKeys []string) (*GrantSetDTO, error) {
	if err := validateActor(actor); err != nil {
		return nil, err
	}
	keys, err := parseGrantKeys(rawKeys)
	if err != nil {
		return nil, err
	}

	record, err := s.repo.FindByID(ctx, staffID, actor.PharmacyID)
	if err != nil {
		return nil, notFoundOrInternal(err, "staff record not found", "find staff record")
	}
	if record.Role.IsPrivileged() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "owner and manager records hold the full catalog implicitly")
	}

	scope := s.scopes.ResolveScope(ctx, actor.UserID, actor.PharmacyID)
	allowed := scope.CanManageStaff(record.BranchID)
	s.authz.ObserveDecision("staff.update_permissions", allowed)
	if !allowed {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to edit this record's permissions")
	}

	if err := s.repo.ReplaceGrants(ctx, staffID, keys); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "replace grants")
	}
	s.invalidator.Invalidate(ctx, record.UserID, record.PharmacyID)

	return s.GetStaffPermissions(ctx, actor, staffID)
}

func (s *service) ResetStaffPassword(ctx context.Context, actor Actor, staffID uuid.UUID) (string, error) {
	if err := validateActor(actor); err != nil {
		return "", err
	}

	record, err := s.repo.FindByID(ctx, staffID, actor.PharmacyID)
	if err != nil {
		return "", notFoundOrInternal(err, "staff record not found", "find staff record")
	}

	scope := s.scopes.ResolveScope(ctx, actor.UserID, actor.PharmacyID)
	allowed := scope.CanResetPasswords() && scope.CanManageStaff(record.BranchID) && record.Role != enums.StaffRoleOwner
	s.authz.ObserveDecision("staff.reset_password", allowed)
	if !allowed {
		return "", pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to reset this record's password")
	}

	tempPassword, err := security.GenerateTempPassword(tempPasswordLength)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate temp password")
	}
	hash, err := security.HashPassword(tempPassword, s.passwordCfg)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash temp password")
	}
	if err := s.userRepo.UpdatePasswordHash(ctx, record.UserID, hash); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update password hash")
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "staff_id", record.ID.String()), "staff.password_reset")
	}
	return tempPassword, nil
}

// refreshed re-reads the record after a mutation so the caller sees the
// persisted state, not an optimistic patch.
func (s *service) refreshed(ctx context.Context, staffID, pharmacyID uuid.UUID) (*StaffDTO, error) {
	dto, err := s.repo.GetStaffWithProfile(ctx, staffID, pharmacyID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload staff record")
	}
	return dto, nil
}

func validateActor(actor Actor) error {
	if actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if actor.PharmacyID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "pharmacy identity missing")
	}
	return nil
}

func parseGrantKeys(raw []string) ([]pkgpermissions.Key, error) {
	keys := make([]pkgpermissions.Key, 0, len(raw))
	seen := make(map[pkgpermissions.Key]struct{}, len(raw))
	for _, value := range raw {
		key, err := pkgpermissions.ParseKey(value)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown permission key %q", value))
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return keys, nil
}

func notFoundOrInternal(err error, notFoundMsg, internalMsg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFoundMsg)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, internalMsg)
}
