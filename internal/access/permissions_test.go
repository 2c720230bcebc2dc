package access

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func operator() *User {
	role, _ := DefaultRole(RoleOperator)
	return &User{ID: 3, Username: "operator", IsActive: true, Role: &role}
}

func TestCapabilitiesForReturnsRoleFlags(t *testing.T) {
	set, err := CapabilitiesFor(operator())
	require.NoError(t, err)
	require.Equal(t, []string{"can_view_reports", "can_access_manufacturing_modules"}, set.Names())
	require.Equal(t, 2, set.Len())
}

func TestCapabilitiesForWithoutRole(t *testing.T) {
	_, err := CapabilitiesFor(&User{Username: "orphan"})
	require.ErrorIs(t, err, ErrConfiguration)

	_, err = CapabilitiesFor(nil)
	require.ErrorIs(t, err, ErrConfiguration)
}

func TestHas(t *testing.T) {
	u := operator()

	ok, err := Has(u, "can_access_manufacturing_modules")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = Has(u, " CAN_EDIT_USERS ")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestHasRejectsUnknownFlagBeforeRole(t *testing.T) {
	_, err := Has(&User{Username: "orphan"}, "can_fly")
	require.ErrorIs(t, err, ErrUnknownCapability)

	_, err = Has(operator(), "can_view_report")
	require.ErrorIs(t, err, ErrUnknownCapability)
}

func TestFlagsFromMap(t *testing.T) {
	flags, err := FlagsFromMap(map[string]bool{"can_create_orders": true, "can_edit_users": false})
	require.NoError(t, err)
	require.True(t, flags.CanCreateOrders)
	require.Equal(t, []Capability{CapCreateOrders}, flags.Capabilities().Capabilities())

	_, err = FlagsFromMap(map[string]bool{"can_launch_rockets": true})
	require.ErrorIs(t, err, ErrUnknownCapability)
}

func TestDefaultRolesShareFlagSet(t *testing.T) {
	roles := DefaultRoles()
	require.Len(t, roles, 5)

	admin, ok := DefaultRole(RoleAdmin)
	require.True(t, ok)
	require.Equal(t, len(AllCapabilities()), admin.Flags.Capabilities().Len())

	guest, ok := DefaultRole(RoleGuest)
	require.True(t, ok)
	require.Equal(t, []string{"can_view_reports"}, guest.Flags.Capabilities().Names())
}

func TestCapabilityUnmarshalText(t *testing.T) {
	var caps []Capability
	require.NoError(t, json.Unmarshal([]byte(`["can_create_orders"]`), &caps))
	require.Equal(t, []Capability{CapCreateOrders}, caps)

	err := json.Unmarshal([]byte(`["can_teleport"]`), &caps)
	require.ErrorIs(t, err, ErrUnknownCapability)
}

func TestCapabilitySetJSON(t *testing.T) {
	data, err := json.Marshal(NewCapabilitySet(CapModifySchedule, CapEditUsers))
	require.NoError(t, err)
	require.JSONEq(t, `["can_edit_users","can_modify_schedule"]`, string(data))

	data, err = json.Marshal(CapabilitySet{})
	require.NoError(t, err)
	require.JSONEq(t, `[]`, string(data))
}

func TestParseRoleName(t *testing.T) {
	name, err := ParseRoleName("Manager")
	require.NoError(t, err)
	require.Equal(t, RoleManager, name)

	_, err = ParseRoleName("overlord")
	require.ErrorIs(t, err, ErrConfiguration)
}

func TestRoleLabelAndDisplayName(t *testing.T) {
	require.Equal(t, "Analyst", Role{Name: RoleAnalyst}.Label())
	require.Equal(t, "Administrator", Role{Name: RoleAdmin, DisplayName: "Administrator"}.Label())

	require.Equal(t, "Ada Lovelace", User{Username: "ada", FirstName: "Ada", LastName: "Lovelace"}.DisplayName())
	require.Equal(t, "ada", User{Username: "ada"}.DisplayName())
}
