// Package migration applies SQL schema migrations from paired
// *.up.sql / *.down.sql files, recording applied ids in a tracking table.
package migration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/azaynul10/CarbonPro-AI/pkg/logger"
	"github.com/azaynul10/CarbonPro-AI/pkg/postgresql"
	"github.com/jackc/pgx/v5"
)

// Migration is one schema change, identified by its file base name.
type Migration struct {
	ID      string
	Name    string
	UpSQL   string
	DownSQL string
}

// Config for the migration runner.
type Config struct {
	MigrationDir string
	TableName    string // tracking table, default schema_migrations
}

// Runner loads and applies migrations against a PostgreSQL database.
type Runner struct {
	client *postgresql.Client
	logger logger.Interface
	dir    string
	table  string
}

// NewRunner creates a migration runner.
func NewRunner(client *postgresql.Client, log logger.Interface, cfg Config) *Runner {
	if cfg.TableName == "" {
		cfg.TableName = "schema_migrations"
	}
	return &Runner{
		client: client,
		logger: log,
		dir:    cfg.MigrationDir,
		table:  cfg.TableName,
	}
}

// EnsureTable creates the tracking table if it does not exist.
func (r *Runner) EnsureTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id VARCHAR(255) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)`, r.table)

	_, err := r.client.Exec(ctx, query)
	return err
}

// Load reads every migration pair from the migration directory, sorted by
// id.
func (r *Runner) Load() ([]Migration, error) {
	upFiles, err := filepath.Glob(filepath.Join(r.dir, "*.up.sql"))
	if err != nil {
		return nil, err
	}
	sort.Strings(upFiles)

	var migrations []Migration
	for _, upFile := range upFiles {
		m, err := r.parse(upFile)
		if err != nil {
			return nil, fmt.Errorf("failed to parse migration %s: %w", upFile, err)
		}
		migrations = append(migrations, m)
	}
	return migrations, nil
}

func (r *Runner) parse(upFile string) (Migration, error) {
	upSQL, err := os.ReadFile(upFile)
	if err != nil {
		return Migration{}, err
	}

	id := strings.TrimSuffix(filepath.Base(upFile), ".up.sql")
	name := id
	if parts := strings.SplitN(id, "_", 2); len(parts) == 2 {
		name = parts[1]
	}

	m := Migration{
		ID:    id,
		Name:  name,
		UpSQL: strings.TrimSpace(string(upSQL)),
	}

	downFile := strings.Replace(upFile, ".up.sql", ".down.sql", 1)
	if downSQL, err := os.ReadFile(downFile); err == nil {
		m.DownSQL = strings.TrimSpace(string(downSQL))
	}
	return m, nil
}

func (r *Runner) applied(ctx context.Context) (map[string]bool, error) {
	rows, err := r.client.Query(ctx,
		fmt.Sprintf("SELECT id FROM %s ORDER BY applied_at", r.table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		applied[id] = true
	}
	return applied, rows.Err()
}

// Up applies pending migrations, each in its own transaction. steps <= 0
// applies all.
func (r *Runner) Up(ctx context.Context, steps int) error {
	migrations, err := r.Load()
	if err != nil {
		return err
	}
	applied, err := r.applied(ctx)
	if err != nil {
		return err
	}

	var pending []Migration
	for _, m := range migrations {
		if !applied[m.ID] {
			pending = append(pending, m)
		}
	}
	if steps > 0 && len(pending) > steps {
		pending = pending[:steps]
	}

	for _, m := range pending {
		err := r.client.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, m.UpSQL); err != nil {
				return err
			}
			_, err := tx.Exec(ctx,
				fmt.Sprintf("INSERT INTO %s (id, name) VALUES ($1, $2)", r.table),
				m.ID, m.Name)
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", m.ID, err)
		}
		r.logger.Info("migration applied", logger.Field{Key: "id", Value: m.ID})
	}
	return nil
}

// Down reverts the newest applied migrations. steps must be positive; a
// migration without a down file cannot be reverted.
func (r *Runner) Down(ctx context.Context, steps int) error {
	if steps <= 0 {
		return fmt.Errorf("steps must be greater than 0 for down migrations")
	}

	migrations, err := r.Load()
	if err != nil {
		return err
	}
	applied, err := r.applied(ctx)
	if err != nil {
		return err
	}

	var toRevert []Migration
	for i := len(migrations) - 1; i >= 0 && len(toRevert) < steps; i-- {
		if applied[migrations[i].ID] {
			toRevert = append(toRevert, migrations[i])
		}
	}

	for _, m := range toRevert {
		if m.DownSQL == "" {
			return fmt.Errorf("no down SQL for migration %s", m.ID)
		}
		err := r.client.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, m.DownSQL); err != nil {
				return err
			}
			_, err := tx.Exec(ctx,
				fmt.Sprintf("DELETE FROM %s WHERE id = $1", r.table), m.ID)
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to revert migration %s: %w", m.ID, err)
		}
		r.logger.Info("migration reverted", logger.Field{Key: "id", Value: m.ID})
	}
	return nil
}
