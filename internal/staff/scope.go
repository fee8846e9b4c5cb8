package staff

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pharmadesk/pharmadesk-backend/pkg/db/models"
	"github.com/pharmadesk/pharmadesk-backend/pkg/enums"
	"github.com/pharmadesk/pharmadesk-backend/pkg/logger"
)

// Scope is the management authority of one actor inside a pharmacy: their
// role plus the branch their staff record is pinned to. A nil BranchID on a
// manager means all-branch authority; the zero Scope carries no authority
// at all.
type Scope struct {
	Role     enums.StaffRole
	BranchID *uuid.UUID
}

// CanManageStaff reports whether the actor may mutate a staff record
// scoped to targetBranch. Scoped managers are confined to their own
// branch, which also rules out unscoped (nil-branch) targets.
func (s Scope) CanManageStaff(targetBranch *uuid.UUID) bool {
	switch s.Role {
	case enums.StaffRoleOwner:
		return true
	case enums.StaffRoleManager:
		if s.BranchID == nil {
			return true
		}
		return targetBranch != nil && *targetBranch == *s.BranchID
	default:
		return false
	}
}

// CanDeactivateStaff layers role protection on top of branch scope:
// owners are untouchable, managers fall only to the owner.
func (s Scope) CanDeactivateStaff(targetRole enums.StaffRole, targetBranch *uuid.UUID) bool {
	switch targetRole {
	case enums.StaffRoleOwner:
		return false
	case enums.StaffRoleManager:
		return s.Role == enums.StaffRoleOwner
	default:
		return s.CanManageStaff(targetBranch)
	}
}

// CanPromoteToRole reports whether the actor may assign the given role.
// Managers can only place people at staff level.
func (s Scope) CanPromoteToRole(role enums.StaffRole) bool {
	switch s.Role {
	case enums.StaffRoleOwner:
		return role.IsValid()
	case enums.StaffRoleManager:
		return role == enums.StaffRoleStaff
	default:
		return false
	}
}

// CanAccessBranch reports whether the actor may operate in the given
// branch context. A nil branch is the main/shared context, open to any
// manager regardless of their own pin.
func (s Scope) CanAccessBranch(branch *uuid.UUID) bool {
	switch s.Role {
	case enums.StaffRoleOwner:
		return true
	case enums.StaffRoleManager:
		if s.BranchID == nil || branch == nil {
			return true
		}
		return *branch == *s.BranchID
	default:
		return false
	}
}

// CanCreateStaff reports whether the actor may invite new staff.
func (s Scope) CanCreateStaff() bool {
	return s.Role.IsPrivileged()
}

// CanAssignRoles reports whether the actor may change roles at all.
func (s Scope) CanAssignRoles() bool {
	return s.Role.IsPrivileged()
}

// CanResetPasswords reports whether the actor may issue temp passwords.
func (s Scope) CanResetPasswords() bool {
	return s.Role.IsPrivileged()
}

type scopeLookup interface {
	LookupActiveStaff(ctx context.Context, userID, pharmacyID uuid.UUID) (*models.StaffRecord, int64, error)
}

// ScopeResolver builds a Scope from the actor's own active staff record.
type ScopeResolver struct {
	staff scopeLookup
	logg  *logger.Logger
}

// NewScopeResolver binds the resolver to the staff lookup.
func NewScopeResolver(staff scopeLookup, logg *logger.Logger) (*ScopeResolver, error) {
	if staff == nil {
		return nil, fmt.Errorf("staff lookup is required")
	}
	return &ScopeResolver{staff: staff, logg: logg}, nil
}

// ResolveScope returns the actor's management scope. A missing record or a
// failed lookup both yield the zero Scope: no record means no authority,
// and an errored lookup must never be mistaken for all-branch access. Only
// a successful read with a null branch produces an unscoped manager.
func (r *ScopeResolver) ResolveScope(ctx context.Context, userID, pharmacyID uuid.UUID) Scope {
	record, _, err := r.staff.LookupActiveStaff(ctx, userID, pharmacyID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) && r.logg != nil {
			r.logg.Error(ctx, "staff.scope_lookup_failed", err)
		}
		return Scope{}
	}
	return Scope{Role: record.Role, BranchID: record.BranchID}
}
