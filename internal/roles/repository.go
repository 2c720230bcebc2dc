package roles

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nextfactory/nextfactory/internal/access"
)

// Querier is satisfied by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	db Querier
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx pgx.Tx) *Repository {
	return &Repository{db: tx}
}

const roleColumns = `id, name, display_name, COALESCE(description, ''),
	can_edit_users, can_view_reports, can_manage_inventory,
	can_access_manufacturing_modules, can_access_planning_modules,
	can_create_orders, can_modify_schedule, created_at, updated_at`

// ListRoles returns all roles.
func (r *Repository) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := r.db.Query(ctx, `SELECT `+roleColumns+` FROM roles ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("roles: list: %w", err)
	}
	roles, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Role, error) {
		return scanRole(row)
	})
	if err != nil {
		return nil, fmt.Errorf("roles: scan: %w", err)
	}
	return roles, nil
}

// UpsertRole inserts or refreshes a role keyed by name.
func (r *Repository) UpsertRole(ctx context.Context, role access.Role) (Role, error) {
	f := role.Flags
	row := r.db.QueryRow(ctx, `INSERT INTO roles (name, display_name, description,
		can_edit_users, can_view_reports, can_manage_inventory,
		can_access_manufacturing_modules, can_access_planning_modules,
		can_create_orders, can_modify_schedule)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (name) DO UPDATE SET
		display_name = EXCLUDED.display_name,
		description = EXCLUDED.description,
		can_edit_users = EXCLUDED.can_edit_users,
		can_view_reports = EXCLUDED.can_view_reports,
		can_manage_inventory = EXCLUDED.can_manage_inventory,
		can_access_manufacturing_modules = EXCLUDED.can_access_manufacturing_modules,
		can_access_planning_modules = EXCLUDED.can_access_planning_modules,
		can_create_orders = EXCLUDED.can_create_orders,
		can_modify_schedule = EXCLUDED.can_modify_schedule,
		updated_at = NOW()
	RETURNING `+roleColumns,
		string(role.Name), role.Label(), role.Description,
		f.CanEditUsers, f.CanViewReports, f.CanManageInventory,
		f.CanAccessManufacturing, f.CanAccessPlanning,
		f.CanCreateOrders, f.CanModifySchedule,
	)
	stored, err := scanRole(row)
	if err != nil {
		return Role{}, fmt.Errorf("roles: upsert %s: %w", role.Name, err)
	}
	return stored, nil
}

func scanRole(row pgx.Row) (Role, error) {
	var (
		role Role
		name string
		f    = &role.Flags
	)
	err := row.Scan(&role.ID, &name, &role.DisplayName, &role.Description,
		&f.CanEditUsers, &f.CanViewReports, &f.CanManageInventory,
		&f.CanAccessManufacturing, &f.CanAccessPlanning,
		&f.CanCreateOrders, &f.CanModifySchedule,
		&role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		return Role{}, err
	}
	role.Name, err = access.ParseRoleName(name)
	if err != nil {
		return Role{}, err
	}
	return role, nil
}
