package enums

import "fmt"

// StaffRole represents a pharmacy-level authorization role.
type StaffRole string

const (
	StaffRoleOwner   StaffRole = "owner"
	StaffRoleManager StaffRole = "manager"
	StaffRoleStaff   StaffRole = "staff"
)

var validStaffRoles = []StaffRole{
	StaffRoleOwner,
	StaffRoleManager,
	StaffRoleStaff,
}

// String implements fmt.Stringer.
func (s StaffRole) String() string {
	return string(s)
}

// IsValid reports whether the value is a known StaffRole.
func (s StaffRole) IsValid() bool {
	for _, candidate := range validStaffRoles {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsPrivileged reports whether the role carries the full permission set implicitly.
func (s StaffRole) IsPrivileged() bool {
	return s == StaffRoleOwner || s == StaffRoleManager
}

// ParseStaffRole converts raw input into a StaffRole.
func ParseStaffRole(value string) (StaffRole, error) {
	for _, candidate := range validStaffRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid staff role %q", value)
}
