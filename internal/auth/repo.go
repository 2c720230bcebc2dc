package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nextfactory/nextfactory/internal/access"
	"github.com/nextfactory/nextfactory/internal/shared"
)

// Repository defines persistence operations for the auth module.
type Repository interface {
	// FindByUsername returns the account, its role when one is bound, and
	// the stored bcrypt hash.
	FindByUsername(ctx context.Context, username string) (*access.User, string, error)
	TouchLastLogin(ctx context.Context, userID int64, at time.Time) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const findByUsername = `SELECT u.id, u.username, u.email, u.password_hash, u.first_name, u.last_name,
	u.is_active, u.last_login,
	r.name, r.display_name, r.description,
	r.can_edit_users, r.can_view_reports, r.can_manage_inventory,
	r.can_access_manufacturing_modules, r.can_access_planning_modules,
	r.can_create_orders, r.can_modify_schedule
FROM users u
LEFT JOIN roles r ON r.id = u.role_id
WHERE u.username = $1`

// FindByUsername fetches a user and its role by username.
func (r *PGRepository) FindByUsername(ctx context.Context, username string) (*access.User, string, error) {
	user, hash, err := ScanUser(r.pool.QueryRow(ctx, findByUsername, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", shared.NotFoundf("user %q", username)
		}
		return nil, "", err
	}
	return user, hash, nil
}

// TouchLastLogin stamps the user's last successful login.
func (r *PGRepository) TouchLastLogin(ctx context.Context, userID int64, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET last_login = $2, updated_at = NOW() WHERE id = $1`, userID, at.UTC())
	if err != nil {
		return fmt.Errorf("auth: touch last login: %w", err)
	}
	return nil
}

// ScanUser reads the column layout of findByUsername. A user row without a
// role yields User.Role == nil.
func ScanUser(row pgx.Row) (*access.User, string, error) {
	var (
		user        access.User
		hash        string
		lastLogin   pgtype.Timestamptz
		roleName    pgtype.Text
		displayName pgtype.Text
		description pgtype.Text
		flags       [7]pgtype.Bool
	)
	err := row.Scan(&user.ID, &user.Username, &user.Email, &hash, &user.FirstName, &user.LastName,
		&user.IsActive, &lastLogin,
		&roleName, &displayName, &description,
		&flags[0], &flags[1], &flags[2], &flags[3], &flags[4], &flags[5], &flags[6])
	if err != nil {
		return nil, "", err
	}
	if lastLogin.Valid {
		at := lastLogin.Time
		user.LastLogin = &at
	}
	if roleName.Valid {
		name, err := access.ParseRoleName(roleName.String)
		if err != nil {
			return nil, "", err
		}
		user.Role = &access.Role{
			Name:        name,
			DisplayName: displayName.String,
			Description: description.String,
			Flags: access.Flags{
				CanEditUsers:           flags[0].Bool,
				CanViewReports:         flags[1].Bool,
				CanManageInventory:     flags[2].Bool,
				CanAccessManufacturing: flags[3].Bool,
				CanAccessPlanning:      flags[4].Bool,
				CanCreateOrders:        flags[5].Bool,
				CanModifySchedule:      flags[6].Bool,
			},
		}
	}
	return &user, hash, nil
}

var _ Repository = (*PGRepository)(nil)
