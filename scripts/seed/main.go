package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/nextfactory/nextfactory/internal/access"
	"github.com/nextfactory/nextfactory/internal/app"
	"github.com/nextfactory/nextfactory/internal/platform/db"
	"github.com/nextfactory/nextfactory/internal/roles"
	"github.com/nextfactory/nextfactory/internal/users"
)

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PoolOptions("nextfactory-seed"))
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	err = db.WithTx(ctx, pool, func(tx pgx.Tx) error {
		fmt.Println("→ Seeding roles...")
		if err := seedRoles(ctx, tx); err != nil {
			return fmt.Errorf("seed roles: %w", err)
		}
		fmt.Println("→ Seeding users...")
		if err := seedUsers(ctx, tx); err != nil {
			return fmt.Errorf("seed users: %w", err)
		}
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("✓ Seed complete at", time.Now().Format(time.RFC3339))
}

func seedRoles(ctx context.Context, tx pgx.Tx) error {
	repo := roles.NewRepository(nil).WithTx(tx)
	for _, role := range access.DefaultRoles() {
		saved, err := repo.UpsertRole(ctx, role)
		if err != nil {
			return fmt.Errorf("%s: %w", role.Name, err)
		}
		fmt.Printf("  role %-8s id=%d caps=%v\n", saved.Name, saved.ID, saved.Flags.Capabilities().Names())
	}
	return nil
}

// demoAccounts pairs every seed role with a user whose password is the
// username followed by 123.
func demoAccounts() []users.Account {
	people := map[access.RoleName][2]string{
		access.RoleAdmin:    {"Ada", "Admin"},
		access.RoleManager:  {"Mona", "Manager"},
		access.RoleOperator: {"Otto", "Operator"},
		access.RoleGuest:    {"Gus", "Guest"},
		access.RoleAnalyst:  {"Ana", "Analyst"},
	}
	accounts := make([]users.Account, 0, len(people))
	for _, name := range access.RoleNames() {
		username := string(name)
		accounts = append(accounts, users.Account{
			Username:  username,
			Email:     username + "@nextfactory.local",
			FirstName: people[name][0],
			LastName:  people[name][1],
			Password:  username + "123",
			Role:      name,
		})
	}
	return accounts
}

func seedUsers(ctx context.Context, tx pgx.Tx) error {
	for _, account := range demoAccounts() {
		id, err := users.UpsertAccount(ctx, tx, account)
		if err != nil {
			return fmt.Errorf("%s: %w", account.Username, err)
		}
		fmt.Printf("  user %-8s id=%d role=%s\n", account.Username, id, account.Role)
	}
	return nil
}
