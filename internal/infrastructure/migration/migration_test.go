package migration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orris-inc/billing/internal/infrastructure/database"
	"github.com/orris-inc/billing/internal/shared/constants"
)

func TestNewManager_StrategyByEnvironment(t *testing.T) {
	assert.Equal(t, "gorm_auto_migrate", NewManager(constants.EnvDevelopment).GetStrategy().GetName())
	assert.Equal(t, "goose", NewManager(constants.EnvProduction).GetStrategy().GetName())
	assert.Equal(t, "goose", NewManager(constants.EnvTest).GetStrategy().GetName())
}

func TestGooseStrategy_UpStatusDown(t *testing.T) {
	ctx := context.Background()
	gormDB, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)

	manager := NewManagerWithStrategy(NewGooseStrategy())
	require.NoError(t, manager.Migrate(ctx, gormDB))

	for _, table := range []string{
		constants.TableUsers,
		constants.TablePlans,
		constants.TableSubscriptions,
		constants.TableOrders,
		constants.TablePlanChanges,
	} {
		assert.True(t, gormDB.Migrator().HasTable(table), table)
	}

	statuses, err := manager.Status(ctx, gormDB)
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.Equal(t, int64(1), statuses[0].Version)
	assert.True(t, statuses[0].Applied)

	// Applying again is a no-op.
	require.NoError(t, manager.Migrate(ctx, gormDB))

	require.NoError(t, manager.Down(ctx, gormDB, 1))
	assert.False(t, gormDB.Migrator().HasTable(constants.TableSubscriptions))
}

func TestGooseStrategy_RejectsHalfScheduledChange(t *testing.T) {
	ctx := context.Background()
	gormDB, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, NewManagerWithStrategy(NewGooseStrategy()).Migrate(ctx, gormDB))

	err = gormDB.Exec(`INSERT INTO subscriptions
		(sid, user_id, plan_id, status, starts_at, expires_at, next_renewal_at, scheduled_plan_id, currency, created_at, updated_at)
		VALUES ('sub_x', 1, 1, 'active', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP, 2, 'USD', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`).Error
	assert.Error(t, err)
}

func TestAutoMigrateStrategy(t *testing.T) {
	gormDB, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)

	require.NoError(t, NewManager(constants.EnvDevelopment).Migrate(context.Background(), gormDB))
	assert.True(t, gormDB.Migrator().HasTable(constants.TablePlanChanges))

	_, err = NewManager(constants.EnvDevelopment).Status(context.Background(), gormDB)
	assert.Error(t, err)
}
