package layout

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/nextfactory/nextfactory/internal/access"
)

//go:embed sections.yaml
var defaultTableYAML []byte

// Table is the static section requirement table. It is immutable after
// construction and safe for concurrent use.
type Table struct {
	sections []Section
	index    map[string]int
}

// NewTable validates sections and builds a Table. Every id in required must
// be mapped, otherwise the table is rejected with access.ErrConfiguration.
func NewTable(sections []Section, required ...string) (*Table, error) {
	t := &Table{
		sections: make([]Section, 0, len(sections)),
		index:    make(map[string]int, len(sections)),
	}
	for _, s := range sections {
		id := strings.TrimSpace(s.ID)
		if id == "" {
			return nil, fmt.Errorf("%w: section without id", access.ErrConfiguration)
		}
		if _, dup := t.index[id]; dup {
			return nil, fmt.Errorf("%w: duplicate section %q", access.ErrConfiguration, id)
		}
		if err := checkCapabilities(s.AnyOf); err != nil {
			return nil, fmt.Errorf("section %q: %w", id, err)
		}
		controls := make([]Control, 0, len(s.Controls))
		seen := make(map[string]struct{}, len(s.Controls))
		for _, c := range s.Controls {
			cid := strings.TrimSpace(c.ID)
			if cid == "" {
				return nil, fmt.Errorf("%w: section %q has a control without id", access.ErrConfiguration, id)
			}
			if _, dup := seen[cid]; dup {
				return nil, fmt.Errorf("%w: duplicate control %q in section %q", access.ErrConfiguration, cid, id)
			}
			seen[cid] = struct{}{}
			if err := checkCapabilities(c.AllOf); err != nil {
				return nil, fmt.Errorf("control %q in section %q: %w", cid, id, err)
			}
			controls = append(controls, Control{ID: cid, Label: c.Label, AllOf: cloneCaps(c.AllOf)})
		}
		t.index[id] = len(t.sections)
		t.sections = append(t.sections, Section{ID: id, Label: s.Label, AnyOf: cloneCaps(s.AnyOf), Controls: controls})
	}
	if err := t.Require(required...); err != nil {
		return nil, err
	}
	return t, nil
}

// Require fails with access.ErrConfiguration when any id is unmapped.
func (t *Table) Require(ids ...string) error {
	var missing []string
	for _, id := range ids {
		if _, ok := t.index[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: unmapped sections %s", access.ErrConfiguration, strings.Join(missing, ", "))
	}
	return nil
}

// Sections returns a copy of the declared sections in order.
func (t *Table) Sections() []Section {
	out := make([]Section, len(t.sections))
	copy(out, t.sections)
	return out
}

// IDs returns section ids in declaration order.
func (t *Table) IDs() []string {
	ids := make([]string, len(t.sections))
	for i, s := range t.sections {
		ids[i] = s.ID
	}
	return ids
}

// Lookup returns the section with the given id.
func (t *Table) Lookup(id string) (Section, bool) {
	i, ok := t.index[id]
	if !ok {
		return Section{}, false
	}
	return t.sections[i], true
}

func checkCapabilities(caps []access.Capability) error {
	for _, c := range caps {
		if !c.Valid() {
			return fmt.Errorf("%w: %q", access.ErrUnknownCapability, string(c))
		}
	}
	return nil
}

func cloneCaps(caps []access.Capability) []access.Capability {
	if len(caps) == 0 {
		return nil
	}
	out := make([]access.Capability, len(caps))
	copy(out, caps)
	return out
}

type tableDocument struct {
	Sections []sectionDocument `yaml:"sections" validate:"required,min=1,dive"`
}

type sectionDocument struct {
	ID       string            `yaml:"id" validate:"required"`
	Label    string            `yaml:"label" validate:"required"`
	AnyOf    []string          `yaml:"any_of"`
	Controls []controlDocument `yaml:"controls" validate:"dive"`
}

type controlDocument struct {
	ID    string   `yaml:"id" validate:"required"`
	Label string   `yaml:"label" validate:"required"`
	AllOf []string `yaml:"all_of"`
}

var validate = validator.New()

// LoadTable decodes a YAML table document and builds a Table.
func LoadTable(r io.Reader, required ...string) (*Table, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var doc tableDocument
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty section table", access.ErrConfiguration)
		}
		return nil, fmt.Errorf("%w: decode section table: %v", access.ErrConfiguration, err)
	}
	if err := validate.Struct(doc); err != nil {
		return nil, fmt.Errorf("%w: section table: %v", access.ErrConfiguration, err)
	}
	sections := make([]Section, 0, len(doc.Sections))
	for _, sd := range doc.Sections {
		anyOf, err := parseCapabilities(sd.AnyOf)
		if err != nil {
			return nil, fmt.Errorf("section %q: %w", sd.ID, err)
		}
		section := Section{ID: sd.ID, Label: sd.Label, AnyOf: anyOf}
		for _, cd := range sd.Controls {
			allOf, err := parseCapabilities(cd.AllOf)
			if err != nil {
				return nil, fmt.Errorf("control %q in section %q: %w", cd.ID, sd.ID, err)
			}
			section.Controls = append(section.Controls, Control{ID: cd.ID, Label: cd.Label, AllOf: allOf})
		}
		sections = append(sections, section)
	}
	return NewTable(sections, required...)
}

// LoadTableFile reads a YAML table from disk.
func LoadTableFile(path string, required ...string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("layout: open table: %w", err)
	}
	defer f.Close()
	return LoadTable(f, required...)
}

// DefaultTable returns the embedded NextFactory section table.
func DefaultTable() (*Table, error) {
	return LoadTable(bytes.NewReader(defaultTableYAML), ShellSections()...)
}

func parseCapabilities(names []string) ([]access.Capability, error) {
	caps := make([]access.Capability, 0, len(names))
	for _, n := range names {
		c, err := access.ParseCapability(n)
		if err != nil {
			return nil, err
		}
		caps = append(caps, c)
	}
	return caps, nil
}
