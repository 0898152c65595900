// Command seed loads the workflow step catalog and a starter user
// directory into the database. It is idempotent and safe to re-run.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tarakiga/ccas/internal/catalog"
	"github.com/tarakiga/ccas/internal/repository"
	"github.com/tarakiga/ccas/pkg/config"
	"github.com/tarakiga/ccas/pkg/database"
)

type seedUser struct {
	Email      string `db:"email"`
	FullName   string `db:"full_name"`
	Department string `db:"department"`
	Role       string `db:"role"`
}

var starterUsers = []seedUser{
	{"ppr.business@ccas.local", "Business Unit PPR", "BusinessUnit", "PPR"},
	{"apr.business@ccas.local", "Business Unit APR", "BusinessUnit", "APR"},
	{"ppr.finance@ccas.local", "Finance PPR", "Finance", "PPR"},
	{"apr.finance@ccas.local", "Finance APR", "Finance", "APR"},
	{"ppr.customs@ccas.local", "Customs and Clearance PPR", "C&C", "PPR"},
	{"apr.customs@ccas.local", "Customs and Clearance APR", "C&C", "APR"},
	{"ppr.stores@ccas.local", "Stores PPR", "Stores", "PPR"},
	{"ppr.audit@ccas.local", "Internal Audit PPR", "IA", "PPR"},
	{"manager@ccas.local", "Clearance Manager", "BusinessUnit", "Manager"},
	{"admin@ccas.local", "System Admin", "BusinessUnit", "Admin"},
}

func main() {
	var (
		skipUsers   bool
		seedTimeout time.Duration
	)
	flag.BoolVar(&skipUsers, "skip-users", false, "seed only the step catalog")
	flag.DurationVar(&seedTimeout, "timeout", 30*time.Second, "overall timeout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), seedTimeout)
	defer cancel()

	templates := catalog.Default()
	if err := repository.NewTemplateRepository(db).Seed(ctx, templates); err != nil {
		log.Fatalf("seed step catalog: %v", err)
	}
	log.Printf("seeded %d workflow step templates", len(templates))

	if skipUsers {
		return
	}
	if err := seedUsers(ctx, db); err != nil {
		log.Fatalf("seed users: %v", err)
	}
	log.Printf("seeded %d starter users", len(starterUsers))
}

func seedUsers(ctx context.Context, db *sqlx.DB) error {
	const upsert = `INSERT INTO users (email, full_name, department, role, is_active, created_at, updated_at)
		VALUES (:email, :full_name, :department, :role, TRUE, now(), now())
		ON CONFLICT (email) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			department = EXCLUDED.department,
			role = EXCLUDED.role,
			is_active = TRUE,
			updated_at = now()`
	_, err := sqlx.NamedExecContext(ctx, db, upsert, starterUsers)
	return err
}
