package bootstrap

import (
	"context"
	"testing"

	"farmcast/internal/cache"
	"farmcast/internal/config"
	"farmcast/internal/database"
	"farmcast/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	cache.SetClient(nil)
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))
	return db
}

func countUsers(t *testing.T, db *gorm.DB) int64 {
	var n int64
	require.NoError(t, db.Model(&models.User{}).Count(&n).Error)
	return n
}

func TestEnsureDemoData(t *testing.T) {
	ctx := context.Background()

	t.Run("skipped outside development", func(t *testing.T) {
		db := setupSQLite(t)
		require.NoError(t, EnsureDemoData(ctx, &config.Config{Env: "production"}, db))
		assert.Zero(t, countUsers(t, db))
	})

	t.Run("seeds an empty development database once", func(t *testing.T) {
		if testing.Short() {
			t.Skip("bcrypt hashing is slow")
		}
		db := setupSQLite(t)
		cfg := &config.Config{Env: "development"}

		require.NoError(t, EnsureDemoData(ctx, cfg, db))
		seeded := countUsers(t, db)
		assert.Positive(t, seeded)

		require.NoError(t, EnsureDemoData(ctx, cfg, db))
		assert.Equal(t, seeded, countUsers(t, db))
	})
}
