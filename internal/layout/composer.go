// Package layout decides which application sections a user can see and
// which controls inside a section are enabled.
//
// Section visibility uses OR over the section's flags: there are several
// ways into a section. Control enablement uses AND over the control's own
// flags and does not consult the section's flags. Both are pure functions
// of the user and the static table. Compose and CanSee only report
// controls of visible sections.
package layout

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/nextfactory/nextfactory/internal/access"
)

// VisibleSections returns the ids of sections the user may see, in the
// table's declaration order. Inactive users see nothing.
func VisibleSections(user *access.User, table *Table) ([]string, error) {
	if table == nil {
		return nil, errNilTable
	}
	caps, err := access.CapabilitiesFor(user)
	if err != nil {
		return nil, err
	}
	visible := make([]string, 0, len(table.sections))
	if !user.IsActive {
		return visible, nil
	}
	for _, s := range table.sections {
		if caps.ContainsAny(s.AnyOf) {
			visible = append(visible, s.ID)
		}
	}
	return visible, nil
}

// EnabledControls returns the controls of sectionID whose flags the user
// holds in full, in declaration order. Section visibility is not checked.
func EnabledControls(user *access.User, sectionID string, table *Table) ([]string, error) {
	if table == nil {
		return nil, errNilTable
	}
	section, ok := table.Lookup(sectionID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSection, sectionID)
	}
	caps, err := access.CapabilitiesFor(user)
	if err != nil {
		return nil, err
	}
	return enabledIn(section, caps), nil
}

func enabledIn(section Section, caps access.CapabilitySet) []string {
	enabled := make([]string, 0, len(section.Controls))
	for _, c := range section.Controls {
		if caps.ContainsAll(c.AllOf) {
			enabled = append(enabled, c.ID)
		}
	}
	return enabled
}

// Compose builds the full view for a user.
func Compose(user *access.User, table *Table) (View, error) {
	if table == nil {
		return View{}, errNilTable
	}
	caps, err := access.CapabilitiesFor(user)
	if err != nil {
		return View{}, err
	}
	view := View{
		User:     user.Username,
		Role:     string(user.Role.Name),
		Sections: make([]SectionView, 0, len(table.sections)),
	}
	if !user.IsActive {
		return view, nil
	}
	for _, s := range table.sections {
		if !caps.ContainsAny(s.AnyOf) {
			continue
		}
		view.Sections = append(view.Sections, SectionView{
			ID:       s.ID,
			Label:    s.Label,
			Controls: enabledIn(s, caps),
		})
	}
	return view, nil
}

var errNilTable = fmt.Errorf("%w: nil section table", access.ErrConfiguration)

type cacheKey struct {
	role  access.RoleName
	flags access.Flags
}

// Composer composes views against one table and memoises the result per
// role. Roles are immutable once loaded, so a view depends only on the
// role and the table.
type Composer struct {
	table *Table
	cache *lru.Cache[cacheKey, View]
}

// NewComposer builds a Composer holding at most size cached views.
func NewComposer(table *Table, size int) (*Composer, error) {
	if table == nil {
		return nil, errNilTable
	}
	if size <= 0 {
		size = 32
	}
	cache, err := lru.New[cacheKey, View](size)
	if err != nil {
		return nil, err
	}
	return &Composer{table: table, cache: cache}, nil
}

// Table exposes the composer's section table.
func (c *Composer) Table() *Table {
	return c.table
}

// Compose returns the view for the user, serving repeat roles from cache.
func (c *Composer) Compose(user *access.User) (View, error) {
	if _, err := access.CapabilitiesFor(user); err != nil {
		return View{}, err
	}
	if !user.IsActive {
		return Compose(user, c.table)
	}
	key := cacheKey{role: user.Role.Name, flags: user.Role.Flags}
	if cached, ok := c.cache.Get(key); ok {
		return withUser(cached, user.Username), nil
	}
	view, err := Compose(user, c.table)
	if err != nil {
		return View{}, err
	}
	c.cache.Add(key, withUser(view, ""))
	return withUser(view, user.Username), nil
}

// CanSee reports whether the section is visible to the user.
func (c *Composer) CanSee(user *access.User, sectionID string) (bool, error) {
	if _, ok := c.table.Lookup(sectionID); !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownSection, sectionID)
	}
	view, err := c.Compose(user)
	if err != nil {
		return false, err
	}
	for _, s := range view.Sections {
		if s.ID == sectionID {
			return true, nil
		}
	}
	return false, nil
}

// EnabledControls is EnabledControls bound to the composer's table.
func (c *Composer) EnabledControls(user *access.User, sectionID string) ([]string, error) {
	return EnabledControls(user, sectionID, c.table)
}

func withUser(v View, username string) View {
	out := View{User: username, Role: v.Role, Sections: make([]SectionView, len(v.Sections))}
	for i, s := range v.Sections {
		controls := make([]string, len(s.Controls))
		copy(controls, s.Controls)
		out.Sections[i] = SectionView{ID: s.ID, Label: s.Label, Controls: controls}
	}
	return out
}
