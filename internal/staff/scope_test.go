package staff

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pharmadesk/pharmadesk-backend/pkg/db/models"
	"github.com/pharmadesk/pharmadesk-backend/pkg/enums"
)

func ptr(id uuid.UUID) *uuid.UUID { return &id }

func TestCanManageStaff(t *testing.T) {
	branchA, branchB := uuid.New(), uuid.New()

	cases := []struct {
		name   string
		scope  Scope
		target *uuid.UUID
		want   bool
	}{
		{"owner any branch", Scope{Role: enums.StaffRoleOwner}, ptr(branchB), true},
		{"owner nil branch", Scope{Role: enums.StaffRoleOwner}, nil, true},
		{"unscoped manager any branch", Scope{Role: enums.StaffRoleManager}, ptr(branchB), true},
		{"unscoped manager nil target", Scope{Role: enums.StaffRoleManager}, nil, true},
		{"scoped manager own branch", Scope{Role: enums.StaffRoleManager, BranchID: ptr(branchA)}, ptr(branchA), true},
		{"scoped manager other branch", Scope{Role: enums.StaffRoleManager, BranchID: ptr(branchA)}, ptr(branchB), false},
		{"scoped manager unscoped target", Scope{Role: enums.StaffRoleManager, BranchID: ptr(branchA)}, nil, false},
		{"staff", Scope{Role: enums.StaffRoleStaff}, ptr(branchA), false},
		{"no authority", Scope{}, ptr(branchA), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.scope.CanManageStaff(tc.target); got != tc.want {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCanDeactivateStaff(t *testing.T) {
	branchA := uuid.New()
	owner := Scope{Role: enums.StaffRoleOwner}
	manager := Scope{Role: enums.StaffRoleManager}
	scoped := Scope{Role: enums.StaffRoleManager, BranchID: ptr(branchA)}

	if owner.CanDeactivateStaff(enums.StaffRoleOwner, nil) {
		t.Fatal("nobody may deactivate an owner")
	}
	if !owner.CanDeactivateStaff(enums.StaffRoleManager, nil) {
		t.Fatal("owner must be able to deactivate a manager")
	}
	if manager.CanDeactivateStaff(enums.StaffRoleManager, nil) {
		t.Fatal("manager must not deactivate a peer manager")
	}
	if !manager.CanDeactivateStaff(enums.StaffRoleStaff, ptr(branchA)) {
		t.Fatal("unscoped manager must reach branch staff")
	}
	if scoped.CanDeactivateStaff(enums.StaffRoleStaff, ptr(uuid.New())) {
		t.Fatal("scoped manager must not reach another branch's staff")
	}
	if !scoped.CanDeactivateStaff(enums.StaffRoleStaff, ptr(branchA)) {
		t.Fatal("scoped manager must reach own branch's staff")
	}
}

func TestCanPromoteToRole(t *testing.T) {
	owner := Scope{Role: enums.StaffRoleOwner}
	manager := Scope{Role: enums.StaffRoleManager}
	staff := Scope{Role: enums.StaffRoleStaff}

	for _, role := range []enums.StaffRole{enums.StaffRoleOwner, enums.StaffRoleManager, enums.StaffRoleStaff} {
		if !owner.CanPromoteToRole(role) {
			t.Fatalf("owner must assign %q", role)
		}
	}
	if owner.CanPromoteToRole(enums.StaffRole("superadmin")) {
		t.Fatal("owner must not assign an unknown role")
	}
	if !manager.CanPromoteToRole(enums.StaffRoleStaff) {
		t.Fatal("manager must assign staff")
	}
	if manager.CanPromoteToRole(enums.StaffRoleManager) {
		t.Fatal("manager must not mint peer managers")
	}
	if staff.CanPromoteToRole(enums.StaffRoleStaff) {
		t.Fatal("staff must not assign roles")
	}
}

func TestCanAccessBranch(t *testing.T) {
	branchA, branchB := uuid.New(), uuid.New()
	scoped := Scope{Role: enums.StaffRoleManager, BranchID: ptr(branchA)}

	if !scoped.CanAccessBranch(nil) {
		t.Fatal("main/shared context must stay open to scoped managers")
	}
	if !scoped.CanAccessBranch(ptr(branchA)) {
		t.Fatal("scoped manager must access own branch")
	}
	if scoped.CanAccessBranch(ptr(branchB)) {
		t.Fatal("scoped manager must not access another branch")
	}
	if (Scope{Role: enums.StaffRoleStaff}).CanAccessBranch(nil) {
		t.Fatal("staff hold no branch management access")
	}
	if !(Scope{Role: enums.StaffRoleOwner}).CanAccessBranch(ptr(branchB)) {
		t.Fatal("owner must access any branch")
	}
}

func TestPrivilegedOnlyPredicates(t *testing.T) {
	for _, scope := range []Scope{{Role: enums.StaffRoleOwner}, {Role: enums.StaffRoleManager}} {
		if !scope.CanCreateStaff() || !scope.CanAssignRoles() || !scope.CanResetPasswords() {
			t.Fatalf("%q must hold create/assign/reset", scope.Role)
		}
	}
	none := Scope{Role: enums.StaffRoleStaff}
	if none.CanCreateStaff() || none.CanAssignRoles() || none.CanResetPasswords() {
		t.Fatal("staff must not hold create/assign/reset")
	}
}

type stubScopeLookup struct {
	record *models.StaffRecord
	err    error
}

func (s *stubScopeLookup) LookupActiveStaff(_ context.Context, _, _ uuid.UUID) (*models.StaffRecord, int64, error) {
	if s.err != nil {
		return nil, 0, s.err
	}
	return s.record, 1, nil
}

func TestResolveScopeFailsClosedOnLookupError(t *testing.T) {
	resolver, err := NewScopeResolver(&stubScopeLookup{err: errors.New("connection refused")}, nil)
	if err != nil {
		t.Fatalf("new scope resolver: %v", err)
	}

	// An errored branch lookup must never widen into all-branch authority.
	scope := resolver.ResolveScope(context.Background(), uuid.New(), uuid.New())
	if scope.CanManageStaff(nil) || scope.CanAccessBranch(nil) {
		t.Fatal("errored lookup must carry no authority")
	}
}

func TestResolveScopeMissingRecordHasNoAuthority(t *testing.T) {
	resolver, _ := NewScopeResolver(&stubScopeLookup{err: gorm.ErrRecordNotFound}, nil)
	scope := resolver.ResolveScope(context.Background(), uuid.New(), uuid.New())
	if scope.Role.IsValid() {
		t.Fatalf("expected zero scope, got role %q", scope.Role)
	}
}

func TestResolveScopeNullBranchIsUnscopedManager(t *testing.T) {
	record := &models.StaffRecord{Role: enums.StaffRoleManager, BranchID: nil}
	resolver, _ := NewScopeResolver(&stubScopeLookup{record: record}, nil)

	scope := resolver.ResolveScope(context.Background(), uuid.New(), uuid.New())
	if !scope.CanManageStaff(ptr(uuid.New())) {
		t.Fatal("manager with null branch must be unscoped")
	}
}
