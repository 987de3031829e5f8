package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"farmcast/internal/config"
	"farmcast/internal/middleware"

	"gorm.io/gorm"
)

// Schema modes accepted in DB_SCHEMA_MODE.
//
//	sql     embedded SQL migrations only
//	auto    GORM AutoMigrate only (development and test)
//	hybrid  SQL migrations, then AutoMigrate outside production
const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// SchemaStatus describes what ApplySchema would do for the current configuration.
type SchemaStatus struct {
	Mode               string
	Environment        string
	WillRunSQL         bool
	WillRunAutoMigrate bool
	AppliedVersions    []int
	PendingMigrations  []Migration
}

// protectedEnv reports environments where AutoMigrate may silently alter live tables.
func protectedEnv(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod", "staging":
		return true
	}
	return false
}

func schemaMode(cfg *config.Config) string {
	if mode := strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode)); mode != "" {
		return mode
	}
	return SchemaModeHybrid
}

func schemaPolicy(cfg *config.Config) (runSQL, runAuto bool, err error) {
	mode := schemaMode(cfg)
	protected := protectedEnv(cfg.Env)

	switch mode {
	case SchemaModeSQL:
		runSQL = true
	case SchemaModeAuto:
		if protected {
			return false, false, fmt.Errorf("DB_SCHEMA_MODE=auto is not allowed in %q", cfg.Env)
		}
		runAuto = true
	case SchemaModeHybrid:
		runSQL, runAuto = true, !protected
	default:
		return false, false, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", mode)
	}
	return runSQL, runAuto, nil
}

// ApplySchema brings the database schema up to date according to DB_SCHEMA_MODE.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	runSQL, runAuto, err := schemaPolicy(cfg)
	if err != nil {
		return err
	}

	if runSQL {
		n, err := RunMigrations(ctx, db)
		if err != nil {
			return fmt.Errorf("sql migrations: %w", err)
		}
		if n > 0 {
			middleware.Logger.Info("schema migrated", slog.Int("applied", n))
		}
	}
	if runAuto {
		middleware.Logger.Debug("running AutoMigrate", slog.String("mode", schemaMode(cfg)))
		if err := db.WithContext(ctx).AutoMigrate(PersistentModels()...); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
	}
	return nil
}

// GetSchemaStatus reports the schema policy and pending migrations without changing anything.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	runSQL, runAuto, err := schemaPolicy(cfg)
	if err != nil {
		return nil, err
	}

	status := &SchemaStatus{
		Mode:               schemaMode(cfg),
		Environment:        cfg.Env,
		WillRunSQL:         runSQL,
		WillRunAutoMigrate: runAuto,
	}
	if !runSQL {
		return status, nil
	}

	mig := NewMigrator(db, migrations)
	applied, err := mig.Applied(ctx)
	if err != nil {
		return nil, err
	}
	for _, row := range applied {
		status.AppliedVersions = append(status.AppliedVersions, row.Version)
	}
	if status.PendingMigrations, err = mig.Pending(ctx); err != nil {
		return nil, err
	}
	return status, nil
}
