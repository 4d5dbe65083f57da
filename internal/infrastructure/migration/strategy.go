package migration

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
	"gorm.io/gorm"

	"github.com/orris-inc/billing/internal/shared/logger"
)

//go:embed scripts
var scripts embed.FS

// Strategy defines the interface for different migration strategies
type Strategy interface {
	// Migrate executes the migration strategy
	Migrate(ctx context.Context, db *gorm.DB, models ...interface{}) error
	// GetName returns the strategy name
	GetName() string
}

// GormAutoMigrateStrategy derives the schema from the persistence models.
type GormAutoMigrateStrategy struct {
	logger logger.Interface
}

func NewGormAutoMigrateStrategy() Strategy {
	return &GormAutoMigrateStrategy{logger: logger.WithComponent("migration.auto-migrate")}
}

func (s *GormAutoMigrateStrategy) Migrate(ctx context.Context, db *gorm.DB, models ...interface{}) error {
	s.logger.Infow("starting gorm auto migrate", "models_count", len(models))
	if err := db.WithContext(ctx).AutoMigrate(models...); err != nil {
		return fmt.Errorf("failed to auto migrate: %w", err)
	}
	return nil
}

func (s *GormAutoMigrateStrategy) GetName() string {
	return "gorm_auto_migrate"
}

// MigrationStatus is one row of the goose status table.
type MigrationStatus struct {
	Version int64
	Source  string
	Applied bool
}

// GooseStrategy applies the versioned SQL scripts embedded in the binary.
// The script set is picked from the gorm dialector.
type GooseStrategy struct {
	logger logger.Interface
}

func NewGooseStrategy() *GooseStrategy {
	return &GooseStrategy{logger: logger.WithComponent("migration.goose")}
}

func (s *GooseStrategy) GetName() string {
	return "goose"
}

func (s *GooseStrategy) provider(db *gorm.DB) (*goose.Provider, error) {
	var (
		dialect goose.Dialect
		dir     string
	)
	switch name := db.Dialector.Name(); name {
	case "mysql":
		dialect, dir = goose.DialectMySQL, "scripts/mysql"
	case "sqlite":
		dialect, dir = goose.DialectSQLite3, "scripts/sqlite"
	default:
		return nil, fmt.Errorf("no migration scripts for dialect %q", name)
	}

	fsys, err := fs.Sub(scripts, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open migration scripts: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	provider, err := goose.NewProvider(dialect, sqlDB, fsys)
	if err != nil {
		return nil, fmt.Errorf("failed to create goose provider: %w", err)
	}
	return provider, nil
}

// Migrate applies every pending migration. models are ignored; the schema
// lives in the SQL scripts.
func (s *GooseStrategy) Migrate(ctx context.Context, db *gorm.DB, _ ...interface{}) error {
	provider, err := s.provider(db)
	if err != nil {
		return err
	}

	currentVersion, err := provider.GetDBVersion(ctx)
	if err != nil {
		s.logger.Errorw("failed to get current version", "error", err)
		return fmt.Errorf("failed to get current version: %w", err)
	}

	s.logger.Infow("current migration status",
		"version", currentVersion)

	results, err := provider.Up(ctx)
	if err != nil {
		s.logger.Errorw("migration failed", "error", err)
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	finalVersion, err := provider.GetDBVersion(ctx)
	if err != nil {
		s.logger.Errorw("failed to get final version", "error", err)
		return fmt.Errorf("failed to get final version: %w", err)
	}

	s.logger.Infow("migration completed successfully",
		"from_version", currentVersion,
		"to_version", finalVersion,
		"applied", len(results))

	return nil
}

func (s *GooseStrategy) MigrateDown(ctx context.Context, db *gorm.DB, steps int) error {
	s.logger.Infow("starting down migration", "steps", steps)

	provider, err := s.provider(db)
	if err != nil {
		return err
	}

	for i := 0; i < steps; i++ {
		if _, err := provider.Down(ctx); err != nil {
			s.logger.Errorw("down migration failed", "error", err)
			return fmt.Errorf("failed to run down migration: %w", err)
		}
	}

	s.logger.Infow("down migration completed successfully")
	return nil
}

func (s *GooseStrategy) GetVersion(ctx context.Context, db *gorm.DB) (int64, error) {
	provider, err := s.provider(db)
	if err != nil {
		return 0, err
	}

	version, err := provider.GetDBVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get version: %w", err)
	}

	return version, nil
}

func (s *GooseStrategy) Status(ctx context.Context, db *gorm.DB) ([]MigrationStatus, error) {
	provider, err := s.provider(db)
	if err != nil {
		return nil, err
	}

	results, err := provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get status: %w", err)
	}

	statuses := make([]MigrationStatus, 0, len(results))
	for _, r := range results {
		statuses = append(statuses, MigrationStatus{
			Version: r.Source.Version,
			Source:  r.Source.Path,
			Applied: r.State == goose.StateApplied,
		})
	}
	return statuses, nil
}
