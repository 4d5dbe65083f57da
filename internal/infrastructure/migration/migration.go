package migration

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/orris-inc/billing/internal/infrastructure/persistence/models"
	"github.com/orris-inc/billing/internal/shared/constants"
	"github.com/orris-inc/billing/internal/shared/logger"
)

// Manager handles database migrations with different strategies
type Manager struct {
	strategy Strategy
	logger   logger.Interface
}

// NewManager creates a new migration manager
func NewManager(environment string) *Manager {
	var strategy Strategy

	// Choose strategy based on environment
	switch strings.ToLower(environment) {
	case constants.EnvDevelopment:
		strategy = NewGormAutoMigrateStrategy()
	default:
		strategy = NewGooseStrategy()
	}

	return NewManagerWithStrategy(strategy)
}

// NewManagerWithStrategy creates a new migration manager with a specific strategy
func NewManagerWithStrategy(strategy Strategy) *Manager {
	return &Manager{
		strategy: strategy,
		logger:   logger.WithComponent("migration.manager"),
	}
}

// Migrate executes the configured migration strategy
func (m *Manager) Migrate(ctx context.Context, db *gorm.DB) error {
	m.logger.Infow("starting database migration", "strategy", m.strategy.GetName())

	if err := m.strategy.Migrate(ctx, db, models.All()...); err != nil {
		m.logger.Errorw("migration failed", "strategy", m.strategy.GetName(), "error", err)
		return fmt.Errorf("migration failed with strategy %s: %w", m.strategy.GetName(), err)
	}

	m.logger.Infow("database migration completed successfully", "strategy", m.strategy.GetName())
	return nil
}

// Down rolls back steps versioned migrations. Only the goose strategy
// supports it.
func (m *Manager) Down(ctx context.Context, db *gorm.DB, steps int) error {
	goose, ok := m.strategy.(*GooseStrategy)
	if !ok {
		return fmt.Errorf("strategy %s does not support down migrations", m.strategy.GetName())
	}
	return goose.MigrateDown(ctx, db, steps)
}

func (m *Manager) Status(ctx context.Context, db *gorm.DB) ([]MigrationStatus, error) {
	goose, ok := m.strategy.(*GooseStrategy)
	if !ok {
		return nil, fmt.Errorf("strategy %s does not track versions", m.strategy.GetName())
	}
	return goose.Status(ctx, db)
}

// GetStrategy returns the current migration strategy
func (m *Manager) GetStrategy() Strategy {
	return m.strategy
}
