package permissions

import "fmt"

// Template is a named, predefined bundle of catalog keys offered as a
// shortcut when editing a staff member's grants.
type Template struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Keys  []Key  `json:"keys"`
}

var templates = []Template{
	{
		Name:  "cashier",
		Label: "Cashier",
		Keys:  []Key{KeyViewOwnSales},
	},
	{
		Name:  "pharmacist",
		Label: "Pharmacist",
		Keys: []Key{
			KeyViewDashboard,
			KeyProcessSales,
			KeyAccessInventory,
			KeyViewOwnSales,
			KeyViewCustomers,
			KeyViewPrescriptions,
		},
	},
	{
		Name:  "inventory_clerk",
		Label: "Inventory Clerk",
		Keys: []Key{
			KeyAccessInventory,
			KeyManageInventory,
			KeyManageSuppliers,
		},
	},
	{
		Name:  "shift_supervisor",
		Label: "Shift Supervisor",
		Keys: []Key{
			KeyViewDashboard,
			KeyProcessSales,
			KeyAccessInventory,
			KeyViewAllSales,
			KeyViewCustomers,
			KeyViewReports,
			KeyManageInventory,
			KeyManageCustomers,
		},
	},
}

// Templates returns the predefined role templates in display order.
func Templates() []Template {
	out := make([]Template, len(templates))
	copy(out, templates)
	return out
}

// TemplateByName finds a template by its stable name.
func TemplateByName(name string) (Template, bool) {
	for _, tpl := range templates {
		if tpl.Name == name {
			return tpl, true
		}
	}
	return Template{}, false
}

// MatchTemplate reports the template whose key set exactly equals the given
// set. Matching is by cardinality plus membership; order is irrelevant.
func MatchTemplate(keys []Key) (Template, bool) {
	granted := make(map[Key]struct{}, len(keys))
	for _, key := range keys {
		granted[key] = struct{}{}
	}
	for _, tpl := range templates {
		if len(tpl.Keys) != len(granted) {
			continue
		}
		match := true
		for _, key := range tpl.Keys {
			if _, ok := granted[key]; !ok {
				match = false
				break
			}
		}
		if match {
			return tpl, true
		}
	}
	return Template{}, false
}

// DescribeGrantSet returns the template label for an exact match, or a
// "Custom (N permissions)" description otherwise.
func DescribeGrantSet(keys []Key) string {
	if tpl, ok := MatchTemplate(keys); ok {
		return tpl.Label
	}
	if len(keys) == 1 {
		return "Custom (1 permission)"
	}
	return fmt.Sprintf("Custom (%d permissions)", len(keys))
}
