// Command migrate is the CLI driver: a thin cobra tree (internal/migratecli)
// around the engine in internal/migrate, demonstrated here against a sqlite
// database using the ncruces/go-sqlite3 driver. Real deployments swap
// newBuilder for their own migrations and state backend.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/opsmigrate/migrate/internal/migrate"
	"github.com/opsmigrate/migrate/internal/migratecli"
	"github.com/opsmigrate/migrate/internal/migrateconfig"
	"github.com/opsmigrate/migrate/internal/migratestate/filestate"
)

type dbCtx struct {
	db     *sql.DB
	commit bool
}

func (c dbCtx) exec(ctx context.Context, label, query string) error {
	if !c.commit {
		fmt.Printf("[no-commit] would run: %s\n", label)
		return nil
	}
	_, err := c.db.ExecContext(ctx, query)
	return err
}

type dbCtxProvider struct{ db *sql.DB }

func (p *dbCtxProvider) CommitModeCreate(context.Context) (dbCtx, error) {
	return dbCtx{db: p.db, commit: true}, nil
}

func (p *dbCtxProvider) NoCommitModeCreate(context.Context) (dbCtx, error) {
	return dbCtx{db: p.db, commit: false}, nil
}

type createUsersTable struct{}

func (createUsersTable) Up(ctx context.Context, c dbCtx) error {
	return c.exec(ctx, "create_users_table.up", `CREATE TABLE users (id INTEGER PRIMARY KEY, email TEXT NOT NULL UNIQUE)`)
}

func (createUsersTable) Down(ctx context.Context, c dbCtx) error {
	return c.exec(ctx, "create_users_table.down", `DROP TABLE users`)
}

func newBuilder(_ context.Context, cfg *migrateconfig.Config) (*migrate.PlanBuilder, error) {
	if cfg.StateBackend() != "file" {
		return nil, fmt.Errorf("unsupported state backend %q (only \"file\" is built in)", cfg.StateBackend())
	}

	db, err := sql.Open("sqlite3", cfg.StatePath()+".db")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	lock := filestate.New(cfg.StatePath(), cfg.LockTimeout())
	builder := migrate.NewPlanBuilder(lock).
		Migration(migrate.NewMigrationEntry[dbCtx]("create_users_table", createUsersTable{}))
	migrate.CtxProvider[dbCtx](builder, &dbCtxProvider{db: db})
	return builder, nil
}

func main() {
	root := migratecli.NewRootCommand("migrate", newBuilder)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
