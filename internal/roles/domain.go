package roles

import (
	"time"

	"github.com/nextfactory/nextfactory/internal/access"
)

// Role is a stored role row.
type Role struct {
	ID int64 `json:"id"`
	access.Role
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Grant lists the roles holding one capability.
type Grant struct {
	Capability access.Capability `json:"capability"`
	Roles      []access.RoleName `json:"roles"`
}

// Matrix pivots roles into one Grant per capability, in vocabulary order.
// Capabilities no role holds carry an empty Roles list.
func Matrix(roles []access.Role) []Grant {
	grants := make([]Grant, 0, len(access.AllCapabilities()))
	for _, c := range access.AllCapabilities() {
		g := Grant{Capability: c, Roles: []access.RoleName{}}
		for _, r := range roles {
			if r.Flags.Get(c) {
				g.Roles = append(g.Roles, r.Name)
			}
		}
		grants = append(grants, g)
	}
	return grants
}
