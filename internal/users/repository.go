package users

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nextfactory/nextfactory/internal/access"
	"github.com/nextfactory/nextfactory/internal/auth"
	"github.com/nextfactory/nextfactory/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const listUsers = `SELECT u.id, u.username, u.email, '' AS password_hash, u.first_name, u.last_name,
	u.is_active, u.last_login,
	r.name, r.display_name, r.description,
	r.can_edit_users, r.can_view_reports, r.can_manage_inventory,
	r.can_access_manufacturing_modules, r.can_access_planning_modules,
	r.can_create_orders, r.can_modify_schedule
FROM users u
LEFT JOIN roles r ON r.id = u.role_id
ORDER BY u.username`

// ListUsers returns all users with their roles.
func (r *Repository) ListUsers(ctx context.Context) ([]access.User, error) {
	rows, err := r.pool.Query(ctx, listUsers)
	if err != nil {
		return nil, fmt.Errorf("users: list: %w", err)
	}
	users, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (access.User, error) {
		user, _, err := auth.ScanUser(row)
		if err != nil {
			return access.User{}, err
		}
		return *user, nil
	})
	if err != nil {
		return nil, fmt.Errorf("users: scan: %w", err)
	}
	return users, nil
}

// SetActive flips the account's active flag.
func (r *Repository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("users: set active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFoundf("user %d", id)
	}
	return nil
}

// Account is the seed form of a user.
type Account struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
	Password  string
	Role      access.RoleName
}

// UpsertAccount inserts or refreshes a user keyed by username, binding it to
// the named role. It runs inside tx so roles and users land together.
func UpsertAccount(ctx context.Context, tx pgx.Tx, account Account) (int64, error) {
	hash, err := auth.HashPassword(account.Password)
	if err != nil {
		return 0, err
	}
	var id int64
	err = tx.QueryRow(ctx, `INSERT INTO users (username, email, password_hash, first_name, last_name, role_id, is_active)
	VALUES ($1, $2, $3, $4, $5, (SELECT id FROM roles WHERE name = $6), TRUE)
	ON CONFLICT (username) DO UPDATE SET
		email = EXCLUDED.email,
		password_hash = EXCLUDED.password_hash,
		first_name = EXCLUDED.first_name,
		last_name = EXCLUDED.last_name,
		role_id = EXCLUDED.role_id,
		is_active = TRUE,
		updated_at = NOW()
	RETURNING id`,
		account.Username, account.Email, hash, account.FirstName, account.LastName, string(account.Role),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("users: upsert %s: %w", account.Username, err)
	}
	return id, nil
}
