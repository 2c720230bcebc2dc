package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nextfactory/nextfactory/internal/access"
	"github.com/nextfactory/nextfactory/internal/layout"
)

// ViewsOptions defines the flags of the views command.
type ViewsOptions struct {
	Role       string
	TablePath  string
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// ViewsCommand composes the view of each seed role, or of one role, and
// prints it. It needs no database.
func ViewsCommand(opts ViewsOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	table, err := loadTable(opts.TablePath)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "views: %v\n", err)
		return 1
	}

	roles := access.DefaultRoles()
	if opts.Role != "" {
		role, ok := access.DefaultRole(access.RoleName(strings.ToLower(opts.Role)))
		if !ok {
			_, _ = fmt.Fprintf(opts.Stderr, "views: unknown role %q\n", opts.Role)
			return 1
		}
		roles = []access.Role{role}
	}

	views := make([]layout.View, 0, len(roles))
	for i := range roles {
		user := &access.User{Username: string(roles[i].Name), IsActive: true, Role: &roles[i]}
		view, err := layout.Compose(user, table)
		if err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "views: compose %s: %v\n", roles[i].Name, err)
			return 1
		}
		views = append(views, view)
	}

	if opts.JSONOutput {
		enc := json.NewEncoder(opts.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(views); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "views: encode json: %v\n", err)
			return 1
		}
		return 0
	}
	for i, view := range views {
		renderView(opts.Stdout, roles[i], view)
	}
	return 0
}

func loadTable(path string) (*layout.Table, error) {
	if path == "" {
		return layout.DefaultTable()
	}
	return layout.LoadTableFile(path, layout.ShellSections()...)
}

func renderView(out io.Writer, role access.Role, view layout.View) {
	_, _ = fmt.Fprintf(out, "%s: %d section(s)\n", role.Label(), len(view.Sections))
	for _, section := range view.Sections {
		controls := "-"
		if len(section.Controls) > 0 {
			controls = strings.Join(section.Controls, ", ")
		}
		_, _ = fmt.Fprintf(out, "  %-24s %s\n", section.ID, controls)
	}
}
