package permissions

import (
	"fmt"
	"sort"

	"github.com/pharmadesk/pharmadesk-backend/pkg/enums"
)

// Key identifies one permission in the compiled-in catalog.
type Key string

const (
	KeyViewDashboard     Key = "view_dashboard"
	KeyProcessSales      Key = "process_sales"
	KeyAccessInventory   Key = "access_inventory"
	KeyViewOwnSales      Key = "view_own_sales"
	KeyViewAllSales      Key = "view_all_sales"
	KeyViewCustomers     Key = "view_customers"
	KeyViewPrescriptions Key = "view_prescriptions"
	KeyViewReports       Key = "view_reports"
	KeyManageInventory   Key = "manage_inventory"
	KeyManageCustomers   Key = "manage_customers"
	KeyManageSuppliers   Key = "manage_suppliers"
	KeyManageMarketplace Key = "manage_marketplace"
)

// Entry carries the display metadata for one catalog permission.
type Entry struct {
	Key         Key                      `json:"key"`
	Label       string                   `json:"label"`
	Description string                   `json:"description"`
	Category    enums.PermissionCategory `json:"category"`
}

var catalog = map[Key]Entry{
	KeyViewDashboard: {
		Key:         KeyViewDashboard,
		Label:       "View Dashboard",
		Description: "Open the pharmacy dashboard and summary widgets",
		Category:    enums.PermissionCategoryNavigation,
	},
	KeyProcessSales: {
		Key:         KeyProcessSales,
		Label:       "Process Sales",
		Description: "Open the point-of-sale screen and record sales",
		Category:    enums.PermissionCategoryNavigation,
	},
	KeyAccessInventory: {
		Key:         KeyAccessInventory,
		Label:       "Access Inventory",
		Description: "Open the inventory pages and browse stock levels",
		Category:    enums.PermissionCategoryNavigation,
	},
	KeyViewOwnSales: {
		Key:         KeyViewOwnSales,
		Label:       "View Own Sales",
		Description: "See sales recorded by the signed-in staff member",
		Category:    enums.PermissionCategoryDataAccess,
	},
	KeyViewAllSales: {
		Key:         KeyViewAllSales,
		Label:       "View All Sales",
		Description: "See every sale recorded for the pharmacy",
		Category:    enums.PermissionCategoryDataAccess,
	},
	KeyViewCustomers: {
		Key:         KeyViewCustomers,
		Label:       "View Customers",
		Description: "Browse customer profiles and purchase history",
		Category:    enums.PermissionCategoryDataAccess,
	},
	KeyViewPrescriptions: {
		Key:         KeyViewPrescriptions,
		Label:       "View Prescriptions",
		Description: "Browse customer prescription records",
		Category:    enums.PermissionCategoryDataAccess,
	},
	KeyViewReports: {
		Key:         KeyViewReports,
		Label:       "View Reports",
		Description: "Open sales and inventory reports",
		Category:    enums.PermissionCategoryDataAccess,
	},
	KeyManageInventory: {
		Key:         KeyManageInventory,
		Label:       "Manage Inventory",
		Description: "Add, adjust, and write off stock",
		Category:    enums.PermissionCategoryManagement,
	},
	KeyManageCustomers: {
		Key:         KeyManageCustomers,
		Label:       "Manage Customers",
		Description: "Create and edit customer and prescription records",
		Category:    enums.PermissionCategoryManagement,
	},
	KeyManageSuppliers: {
		Key:         KeyManageSuppliers,
		Label:       "Manage Suppliers",
		Description: "Create supplier orders and receive deliveries",
		Category:    enums.PermissionCategoryManagement,
	},
	KeyManageMarketplace: {
		Key:         KeyManageMarketplace,
		Label:       "Manage Marketplace",
		Description: "Publish and edit the pharmacy's marketplace listing",
		Category:    enums.PermissionCategoryManagement,
	},
}

// legacyAliases remaps permission keys stored under retired names from
// earlier product iterations to their current catalog key.
var legacyAliases = map[string]Key{
	"access_dashboard": KeyViewDashboard,
	"access_pos":       KeyProcessSales,
	"view_sales":       KeyViewAllSales,
	"access_reports":   KeyViewReports,
	"edit_inventory":   KeyManageInventory,
}

// String implements fmt.Stringer.
func (k Key) String() string {
	return string(k)
}

// IsValid reports whether the key exists in the catalog under its current name.
// Legacy aliases are not valid keys; resolve them with ParseKey first.
func (k Key) IsValid() bool {
	_, ok := catalog[k]
	return ok
}

// ParseKey resolves raw input to a catalog key. The legacy-alias table is
// consulted before the catalog, so grants stored under retired names keep
// working. Unknown input yields an error.
func ParseKey(value string) (Key, error) {
	if alias, ok := legacyAliases[value]; ok {
		return alias, nil
	}
	if _, ok := catalog[Key(value)]; ok {
		return Key(value), nil
	}
	return "", fmt.Errorf("unknown permission key %q", value)
}

// Lookup returns the catalog entry for the key.
func Lookup(key Key) (Entry, bool) {
	entry, ok := catalog[key]
	return entry, ok
}

// AllKeys returns every catalog key in a stable order.
func AllKeys() []Key {
	keys := make([]Key, 0, len(catalog))
	for key := range catalog {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// AllEntries returns the catalog entries ordered by category then key.
func AllEntries() []Entry {
	entries := make([]Entry, 0, len(catalog))
	for _, entry := range catalog {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Category != entries[j].Category {
			return entries[i].Category < entries[j].Category
		}
		return entries[i].Key < entries[j].Key
	})
	return entries
}

// Count returns the catalog size.
func Count() int {
	return len(catalog)
}
