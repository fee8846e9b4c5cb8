package enums

import "fmt"

// PermissionCategory groups catalog permissions for display.
type PermissionCategory string

const (
	PermissionCategoryNavigation PermissionCategory = "Navigation"
	PermissionCategoryDataAccess PermissionCategory = "Data Access"
	PermissionCategoryManagement PermissionCategory = "Management"
)

var validPermissionCategories = []PermissionCategory{
	PermissionCategoryNavigation,
	PermissionCategoryDataAccess,
	PermissionCategoryManagement,
}

// String implements fmt.Stringer.
func (p PermissionCategory) String() string {
	return string(p)
}

// IsValid reports whether the value matches a known PermissionCategory.
func (p PermissionCategory) IsValid() bool {
	for _, candidate := range validPermissionCategories {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePermissionCategory converts raw input into a PermissionCategory.
func ParsePermissionCategory(value string) (PermissionCategory, error) {
	for _, candidate := range validPermissionCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid permission category %q", value)
}
