package access

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Capability is a named boolean permission carried by a Role.
type Capability string

// Capability vocabulary. The set is closed; anything else is rejected.
const (
	CapEditUsers           Capability = "can_edit_users"
	CapViewReports         Capability = "can_view_reports"
	CapManageInventory     Capability = "can_manage_inventory"
	CapAccessManufacturing Capability = "can_access_manufacturing_modules"
	CapAccessPlanning      Capability = "can_access_planning_modules"
	CapCreateOrders        Capability = "can_create_orders"
	CapModifySchedule      Capability = "can_modify_schedule"
)

var vocabulary = []Capability{
	CapEditUsers,
	CapViewReports,
	CapManageInventory,
	CapAccessManufacturing,
	CapAccessPlanning,
	CapCreateOrders,
	CapModifySchedule,
}

// AllCapabilities lists the vocabulary in declaration order.
func AllCapabilities() []Capability {
	out := make([]Capability, len(vocabulary))
	copy(out, vocabulary)
	return out
}

// ParseCapability resolves a flag name to a Capability.
func ParseCapability(name string) (Capability, error) {
	normalized := Capability(strings.TrimSpace(strings.ToLower(name)))
	if rank(normalized) < 0 {
		return "", fmt.Errorf("%w: %q", ErrUnknownCapability, name)
	}
	return normalized, nil
}

// Valid reports whether c belongs to the vocabulary.
func (c Capability) Valid() bool {
	return rank(c) >= 0
}

func (c Capability) String() string {
	return string(c)
}

// UnmarshalText rejects names outside the vocabulary, so YAML and JSON
// documents fail at load time instead of silently granting nothing.
func (c *Capability) UnmarshalText(text []byte) error {
	parsed, err := ParseCapability(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func rank(c Capability) int {
	for i, v := range vocabulary {
		if v == c {
			return i
		}
	}
	return -1
}

// CapabilitySet is an unordered set of capabilities.
type CapabilitySet struct {
	bits uint8
}

// NewCapabilitySet builds a set from the given capabilities. Unknown values
// are ignored; callers parse names first.
func NewCapabilitySet(caps ...Capability) CapabilitySet {
	var s CapabilitySet
	for _, c := range caps {
		if i := rank(c); i >= 0 {
			s.bits |= 1 << i
		}
	}
	return s
}

// Contains reports membership.
func (s CapabilitySet) Contains(c Capability) bool {
	i := rank(c)
	return i >= 0 && s.bits&(1<<i) != 0
}

// ContainsAny is true when at least one of caps is present. An empty list
// is vacuously satisfied.
func (s CapabilitySet) ContainsAny(caps []Capability) bool {
	if len(caps) == 0 {
		return true
	}
	for _, c := range caps {
		if s.Contains(c) {
			return true
		}
	}
	return false
}

// ContainsAll is true when every capability in caps is present.
func (s CapabilitySet) ContainsAll(caps []Capability) bool {
	for _, c := range caps {
		if !s.Contains(c) {
			return false
		}
	}
	return true
}

// Len returns the number of capabilities held.
func (s CapabilitySet) Len() int {
	n := 0
	for i := range vocabulary {
		if s.bits&(1<<i) != 0 {
			n++
		}
	}
	return n
}

// Capabilities returns members in vocabulary order.
func (s CapabilitySet) Capabilities() []Capability {
	out := make([]Capability, 0, len(vocabulary))
	for i, c := range vocabulary {
		if s.bits&(1<<i) != 0 {
			out = append(out, c)
		}
	}
	return out
}

// Names returns member flag names in vocabulary order.
func (s CapabilitySet) Names() []string {
	caps := s.Capabilities()
	out := make([]string, len(caps))
	for i, c := range caps {
		out[i] = string(c)
	}
	return out
}

// MarshalJSON encodes the set as an ordered array of flag names.
func (s CapabilitySet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Names())
}
