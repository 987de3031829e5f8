package database

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"farmcast/internal/middleware"

	"gorm.io/gorm"
)

// SchemaMigration is the bookkeeping row written for every applied migration.
type SchemaMigration struct {
	Version   int    `gorm:"primaryKey;autoIncrement:false"`
	Name      string `gorm:"size:255;not null"`
	Checksum  string `gorm:"size:64;not null"`
	AppliedAt time.Time
}

// TableName keeps the bookkeeping table name stable across refactors.
func (SchemaMigration) TableName() string {
	return "schema_migrations"
}

// Migrator applies a fixed, ordered set of SQL migrations to one database.
type Migrator struct {
	db  *gorm.DB
	set []Migration
}

// NewMigrator returns a Migrator for set, which must be sorted by version.
func NewMigrator(db *gorm.DB, set []Migration) *Migrator {
	return &Migrator{db: db, set: set}
}

// RunMigrations applies every pending embedded migration and returns how many ran.
func RunMigrations(ctx context.Context, db *gorm.DB) (int, error) {
	return NewMigrator(db, migrations).Up(ctx)
}

// RollbackMigration reverts one embedded migration.
func RollbackMigration(ctx context.Context, db *gorm.DB, version int) error {
	return NewMigrator(db, migrations).Down(ctx, version)
}

func (m *Migrator) ensureTable(ctx context.Context) error {
	if err := m.db.WithContext(ctx).AutoMigrate(&SchemaMigration{}); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	return nil
}

// Applied lists the recorded migrations in version order. A database that was
// never migrated has none.
func (m *Migrator) Applied(ctx context.Context) ([]SchemaMigration, error) {
	if !m.db.Migrator().HasTable(&SchemaMigration{}) {
		return nil, nil
	}
	var rows []SchemaMigration
	if err := m.db.WithContext(ctx).Order("version").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}
	return rows, nil
}

// Pending returns the migrations of the set that have not been recorded yet.
func (m *Migrator) Pending(ctx context.Context) ([]Migration, error) {
	applied, err := m.Applied(ctx)
	if err != nil {
		return nil, err
	}
	done := make(map[int]bool, len(applied))
	for _, row := range applied {
		done[row.Version] = true
	}
	var pending []Migration
	for _, mig := range m.set {
		if !done[mig.Version] {
			pending = append(pending, mig)
		}
	}
	return pending, nil
}

// Up applies pending migrations in order, each in its own transaction, and
// returns how many ran. It refuses to run when the recorded history does not
// match the set: unknown versions or edited scripts.
func (m *Migrator) Up(ctx context.Context) (int, error) {
	if err := m.ensureTable(ctx); err != nil {
		return 0, err
	}
	applied, err := m.Applied(ctx)
	if err != nil {
		return 0, err
	}
	if err := m.verify(applied); err != nil {
		return 0, err
	}
	pending, err := m.Pending(ctx)
	if err != nil {
		return 0, err
	}

	for i, mig := range pending {
		middleware.Logger.Info("applying migration", slog.String("migration", mig.String()))
		err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(mig.UpScript).Error; err != nil {
				return err
			}
			return tx.Create(&SchemaMigration{
				Version:   mig.Version,
				Name:      mig.Name,
				Checksum:  mig.Checksum(),
				AppliedAt: time.Now().UTC(),
			}).Error
		})
		if err != nil {
			return i, fmt.Errorf("migration %s: %w", mig.String(), err)
		}
	}
	return len(pending), nil
}

// Down runs the down script of version and forgets it.
func (m *Migrator) Down(ctx context.Context, version int) error {
	mig := m.find(version)
	if mig == nil {
		return fmt.Errorf("migration version %d not found", version)
	}

	applied, err := m.Applied(ctx)
	if err != nil {
		return err
	}
	recorded := false
	for _, row := range applied {
		if row.Version == version {
			recorded = true
			break
		}
	}
	if !recorded {
		return fmt.Errorf("migration %s has not been applied", mig.String())
	}

	middleware.Logger.Info("rolling back migration", slog.String("migration", mig.String()))
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(mig.DownScript).Error; err != nil {
			return fmt.Errorf("rollback %s: %w", mig.String(), err)
		}
		return tx.Delete(&SchemaMigration{}, "version = ?", version).Error
	})
}

func (m *Migrator) find(version int) *Migration {
	for i := range m.set {
		if m.set[i].Version == version {
			return &m.set[i]
		}
	}
	return nil
}

func (m *Migrator) verify(applied []SchemaMigration) error {
	var unknown, edited []string
	for _, row := range applied {
		mig := m.find(row.Version)
		switch {
		case mig == nil:
			unknown = append(unknown, fmt.Sprintf("%06d", row.Version))
		case row.Checksum != "" && row.Checksum != mig.Checksum():
			edited = append(edited, mig.String())
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("schema_migrations contains versions unknown to this build: %s", strings.Join(unknown, ", "))
	}
	if len(edited) > 0 {
		return fmt.Errorf("applied migrations were modified after release: %s", strings.Join(edited, ", "))
	}
	return nil
}
