package records

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/gear6io/promptvalley/pkg/errors"
	"github.com/gear6io/promptvalley/server/records/migrations"
	"github.com/rs/zerolog"
	"github.com/uptrace/bun"
)

// Migration interface that all migration files must implement
type Migration interface {
	Version() int
	Name() string
	Description() string
	Up(ctx context.Context, tx bun.Tx) error
}

// MigrationStatus represents the status of a migration
type MigrationStatus struct {
	Version     int    `json:"version"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      string `json:"status"`
	AppliedAt   string `json:"applied_at"`
}

// MigrationManager applies the catalog schema migrations
type MigrationManager struct {
	db     *bun.DB
	logger zerolog.Logger
}

// NewMigrationManager creates a migration manager for db
func NewMigrationManager(db *bun.DB, logger zerolog.Logger) *MigrationManager {
	return &MigrationManager{
		db:     db,
		logger: logger.With().Str("component", "migrations").Logger(),
	}
}

// availableMigrations returns all migrations in version order
func availableMigrations() []Migration {
	return []Migration{
		&migrations.Migration001{},
		&migrations.Migration002{},
	}
}

// MigrateToLatest runs all pending migrations in a single transaction;
// either all of them apply or none do
func (m *MigrationManager) MigrateToLatest(ctx context.Context) error {
	currentVersion, err := m.CurrentVersion(ctx)
	if err != nil {
		return err
	}

	var pending []Migration
	for _, migration := range availableMigrations() {
		if migration.Version() > currentVersion {
			pending = append(pending, migration)
		}
	}

	if len(pending) == 0 {
		m.logger.Debug().Int("version", currentVersion).Msg("No pending migrations")
		return nil
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.New(ErrMigrationFailed, "failed to begin transaction for migrations", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC().Format(time.RFC3339)
	for _, migration := range pending {
		m.logger.Info().
			Int("version", migration.Version()).
			Str("name", migration.Name()).
			Msg("Running migration")

		if err := migration.Up(ctx, tx); err != nil {
			return errors.New(ErrMigrationFailed, "migration failed", err).
				AddContext("version", strconv.Itoa(migration.Version())).
				AddContext("name", migration.Name())
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)`,
			migration.Version(), migration.Name(), now); err != nil {
			return errors.New(ErrMigrationFailed, "failed to record migration", err).
				AddContext("version", strconv.Itoa(migration.Version()))
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.New(ErrMigrationFailed, "failed to commit migrations", err)
	}

	m.logger.Info().Int("applied", len(pending)).Msg("Migrations completed")
	return nil
}

// CurrentVersion returns the highest applied migration version
func (m *MigrationManager) CurrentVersion(ctx context.Context) (int, error) {
	if err := m.createMigrationsTable(ctx); err != nil {
		return 0, errors.New(ErrMigrationFailed, "failed to create migrations table", err)
	}

	var version int
	err := m.db.NewSelect().
		ColumnExpr("COALESCE(MAX(version), 0)").
		Table("schema_migrations").
		Scan(ctx, &version)
	if err != nil && err != sql.ErrNoRows {
		return 0, errors.New(ErrMigrationFailed, "failed to get current version", err)
	}
	return version, nil
}

func (m *MigrationManager) createMigrationsTable(ctx context.Context) error {
	_, err := m.db.NewCreateTable().
		Model(&struct {
			bun.BaseModel `bun:"table:schema_migrations"`
			Version       int    `bun:"version,pk,type:integer"`
			Name          string `bun:"name,type:text,notnull"`
			AppliedAt     string `bun:"applied_at,type:text,notnull"`
		}{}).
		IfNotExists().
		Exec(ctx)
	return err
}

// Status lists applied migrations oldest first
func (m *MigrationManager) Status(ctx context.Context) ([]MigrationStatus, error) {
	var applied []struct {
		Version   int    `bun:"version"`
		Name      string `bun:"name"`
		AppliedAt string `bun:"applied_at"`
	}

	if err := m.db.NewSelect().
		Column("version", "name", "applied_at").
		Table("schema_migrations").
		Order("version ASC").
		Scan(ctx, &applied); err != nil {
		return nil, errors.New(ErrMigrationFailed, "failed to query migrations", err)
	}

	descriptions := make(map[int]string)
	for _, migration := range availableMigrations() {
		descriptions[migration.Version()] = migration.Description()
	}

	status := make([]MigrationStatus, len(applied))
	for i, a := range applied {
		status[i] = MigrationStatus{
			Version:     a.Version,
			Name:        a.Name,
			Description: descriptions[a.Version],
			Status:      "applied",
			AppliedAt:   a.AppliedAt,
		}
	}
	return status, nil
}
