package application

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// moduleSchema is one module's embedded goose migration directory.
type moduleSchema struct {
	module string
	fsys   embed.FS
	dir    string
}

// MigrationRegistry collects per-module embedded schemas and applies them
// with goose. Each module gets its own version table so module version
// numbers never collide.
type MigrationRegistry struct {
	schemas []moduleSchema
}

func newMigrationRegistry() *MigrationRegistry {
	return &MigrationRegistry{}
}

func (r *MigrationRegistry) Add(module string, fsys embed.FS, dir string) {
	r.schemas = append(r.schemas, moduleSchema{module: module, fsys: fsys, dir: dir})
}

// Up applies all pending migrations module by module, in registration order.
func (r *MigrationRegistry) Up(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer func() { _ = db.Close() }()

	for _, schema := range r.schemas {
		if err := r.apply(ctx, db, schema); err != nil {
			return fmt.Errorf("migrate module %s: %w", schema.module, err)
		}
	}
	return nil
}

func (r *MigrationRegistry) apply(ctx context.Context, db *sql.DB, schema moduleSchema) error {
	sub, err := fs.Sub(schema.fsys, schema.dir)
	if err != nil {
		return err
	}
	goose.SetBaseFS(sub)
	goose.SetTableName("goose_" + schema.module)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}
