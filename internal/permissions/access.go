package permissions

import (
	"sort"

	"github.com/pharmadesk/pharmadesk-backend/pkg/enums"
	"github.com/pharmadesk/pharmadesk-backend/pkg/permissions"
)

// Access is the effective permission set computed for one (user, pharmacy)
// pair. The zero value means "no access": no staff record, or a failed
// lookup that degraded to empty.
type Access struct {
	Role enums.StaffRole
	Keys map[permissions.Key]struct{}
}

// HasRole reports whether an active staff record backed this access.
func (a Access) HasRole() bool {
	return a.Role.IsValid()
}

// HasPermission answers the hot-path authorization question. Owner and
// manager bypass the computed set entirely: even a stale or empty set never
// locks out a privileged role.
func (a Access) HasPermission(key permissions.Key) bool {
	if a.Role.IsPrivileged() {
		return true
	}
	_, ok := a.Keys[key]
	return ok
}

// KeyList returns the resolved keys in a stable order.
func (a Access) KeyList() []permissions.Key {
	keys := make([]permissions.Key, 0, len(a.Keys))
	for key := range a.Keys {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func accessWithKeys(role enums.StaffRole, keys []permissions.Key) Access {
	set := make(map[permissions.Key]struct{}, len(keys))
	for _, key := range keys {
		set[key] = struct{}{}
	}
	return Access{Role: role, Keys: set}
}

func fullAccess(role enums.StaffRole) Access {
	return accessWithKeys(role, permissions.AllKeys())
}
