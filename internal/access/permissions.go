// Package access models what an authenticated user may do: a closed
// vocabulary of capability flags attached to a role, attached to a user.
package access

import "fmt"

// CapabilitiesFor returns exactly the flags set on the user's role.
func CapabilitiesFor(user *User) (CapabilitySet, error) {
	if user == nil {
		return CapabilitySet{}, fmt.Errorf("%w: nil user", ErrConfiguration)
	}
	if user.Role == nil {
		return CapabilitySet{}, fmt.Errorf("%w: user %q has no role", ErrConfiguration, user.Username)
	}
	return user.Role.Flags.Capabilities(), nil
}

// Has reports whether the user holds the named capability. The name is
// checked against the vocabulary before the user is inspected.
func Has(user *User, name string) (bool, error) {
	c, err := ParseCapability(name)
	if err != nil {
		return false, err
	}
	set, err := CapabilitiesFor(user)
	if err != nil {
		return false, err
	}
	return set.Contains(c), nil
}
