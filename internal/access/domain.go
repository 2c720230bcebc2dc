package access

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// RoleName identifies a role from the fixed enumeration.
type RoleName string

// Known roles.
const (
	RoleAdmin    RoleName = "admin"
	RoleManager  RoleName = "manager"
	RoleOperator RoleName = "operator"
	RoleGuest    RoleName = "guest"
	RoleAnalyst  RoleName = "analyst"
)

// RoleNames lists the enumeration in seed order.
func RoleNames() []RoleName {
	return []RoleName{RoleAdmin, RoleManager, RoleOperator, RoleGuest, RoleAnalyst}
}

// ParseRoleName resolves a role name, rejecting anything outside the enumeration.
func ParseRoleName(name string) (RoleName, error) {
	normalized := RoleName(strings.TrimSpace(strings.ToLower(name)))
	for _, known := range RoleNames() {
		if known == normalized {
			return normalized, nil
		}
	}
	return "", fmt.Errorf("%w: unknown role %q", ErrConfiguration, name)
}

// Flags is the fixed capability flag set. Every role carries the same fields.
type Flags struct {
	CanEditUsers           bool `json:"can_edit_users" yaml:"can_edit_users"`
	CanViewReports         bool `json:"can_view_reports" yaml:"can_view_reports"`
	CanManageInventory     bool `json:"can_manage_inventory" yaml:"can_manage_inventory"`
	CanAccessManufacturing bool `json:"can_access_manufacturing_modules" yaml:"can_access_manufacturing_modules"`
	CanAccessPlanning      bool `json:"can_access_planning_modules" yaml:"can_access_planning_modules"`
	CanCreateOrders        bool `json:"can_create_orders" yaml:"can_create_orders"`
	CanModifySchedule      bool `json:"can_modify_schedule" yaml:"can_modify_schedule"`
}

// Get returns the flag value for c. Unknown capabilities read as false.
func (f Flags) Get(c Capability) bool {
	switch c {
	case CapEditUsers:
		return f.CanEditUsers
	case CapViewReports:
		return f.CanViewReports
	case CapManageInventory:
		return f.CanManageInventory
	case CapAccessManufacturing:
		return f.CanAccessManufacturing
	case CapAccessPlanning:
		return f.CanAccessPlanning
	case CapCreateOrders:
		return f.CanCreateOrders
	case CapModifySchedule:
		return f.CanModifySchedule
	}
	return false
}

func (f *Flags) set(c Capability, v bool) {
	switch c {
	case CapEditUsers:
		f.CanEditUsers = v
	case CapViewReports:
		f.CanViewReports = v
	case CapManageInventory:
		f.CanManageInventory = v
	case CapAccessManufacturing:
		f.CanAccessManufacturing = v
	case CapAccessPlanning:
		f.CanAccessPlanning = v
	case CapCreateOrders:
		f.CanCreateOrders = v
	case CapModifySchedule:
		f.CanModifySchedule = v
	}
}

// Capabilities returns the set of flags that are true.
func (f Flags) Capabilities() CapabilitySet {
	held := make([]Capability, 0, len(vocabulary))
	for _, c := range vocabulary {
		if f.Get(c) {
			held = append(held, c)
		}
	}
	return NewCapabilitySet(held...)
}

// FlagsFromMap converts a name→bool mapping into Flags. Unknown names fail
// with ErrUnknownCapability; missing names default to false.
func FlagsFromMap(m map[string]bool) (Flags, error) {
	var f Flags
	for name, v := range m {
		c, err := ParseCapability(name)
		if err != nil {
			return Flags{}, err
		}
		f.set(c, v)
	}
	return f, nil
}

// FlagsOf grants exactly the listed capabilities.
func FlagsOf(caps ...Capability) Flags {
	var f Flags
	for _, c := range caps {
		f.set(c, true)
	}
	return f
}

// Role groups a display label with capability flags. Roles are shared by
// users and treated as read-only once loaded.
type Role struct {
	Name        RoleName `json:"name"`
	DisplayName string   `json:"display_name"`
	Description string   `json:"description,omitempty"`
	Flags       Flags    `json:"permissions"`
}

// Label returns the display label, defaulting to the title-cased name.
func (r Role) Label() string {
	if strings.TrimSpace(r.DisplayName) != "" {
		return r.DisplayName
	}
	return cases.Title(language.English).String(string(r.Name))
}

// User is an application account bound to exactly one Role.
type User struct {
	ID        int64      `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	IsActive  bool       `json:"is_active"`
	LastLogin *time.Time `json:"last_login,omitempty"`
	Role      *Role      `json:"role,omitempty"`
}

// DisplayName returns the full name, falling back to the username.
func (u User) DisplayName() string {
	full := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if full == "" {
		return u.Username
	}
	return full
}

// DefaultRoles returns the seed roles of the demo installation.
func DefaultRoles() []Role {
	return []Role{
		{
			Name:        RoleAdmin,
			DisplayName: "Administrator",
			Description: "Full system access including user management and configuration",
			Flags:       FlagsOf(vocabulary...),
		},
		{
			Name:        RoleManager,
			DisplayName: "Manager",
			Description: "Management oversight, reporting and planning",
			Flags: FlagsOf(CapViewReports, CapManageInventory, CapAccessManufacturing,
				CapAccessPlanning, CapCreateOrders, CapModifySchedule),
		},
		{
			Name:        RoleOperator,
			DisplayName: "Operator",
			Description: "Production floor operations and monitoring",
			Flags:       FlagsOf(CapViewReports, CapAccessManufacturing),
		},
		{
			Name:        RoleGuest,
			DisplayName: "Guest",
			Description: "Read-only access for demonstrations and tours",
			Flags:       FlagsOf(CapViewReports),
		},
		{
			Name:        RoleAnalyst,
			DisplayName: "Analyst",
			Description: "Reporting and analytics across modules",
			Flags:       FlagsOf(CapViewReports, CapAccessManufacturing, CapAccessPlanning),
		},
	}
}

// DefaultRole looks up a seed role by name.
func DefaultRole(name RoleName) (Role, bool) {
	for _, r := range DefaultRoles() {
		if r.Name == name {
			return r, true
		}
	}
	return Role{}, false
}
