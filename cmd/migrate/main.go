// Command migrate manages the farmcast database schema.
//
//	migrate up               apply pending SQL migrations
//	migrate auto             run GORM AutoMigrate (refused in production)
//	migrate status           print schema mode and pending migrations
//	migrate down <version>   roll back one migration
//	migrate recount          rebuild users_attributes counters from rows
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"farmcast/internal/config"
	"farmcast/internal/database"
	"farmcast/internal/repository"

	"gorm.io/gorm"
)

type command func(ctx context.Context, db *gorm.DB, cfg *config.Config, args []string) error

var commands = map[string]command{
	"up":      up,
	"auto":    auto,
	"status":  status,
	"down":    down,
	"recount": recount,
}

var errUsage = errors.New("usage: migrate <up|auto|status|down <version>|recount>")

func main() {
	flag.Parse()
	if err := run(flag.Args()); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		log.Fatal(err)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, ok := commands[strings.ToLower(strings.TrimSpace(args[0]))]
	if !ok {
		return errUsage
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: false})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() { _ = database.Close(db) }()

	return cmd(context.Background(), db, cfg, args[1:])
}

func up(ctx context.Context, db *gorm.DB, _ *config.Config, _ []string) error {
	n, err := database.RunMigrations(ctx, db)
	if err != nil {
		return err
	}
	log.Printf("✅ applied %d migration(s)", n)
	return nil
}

func auto(ctx context.Context, db *gorm.DB, cfg *config.Config, _ []string) error {
	cfg.DBSchemaMode = database.SchemaModeAuto
	if err := database.ApplySchema(ctx, db, cfg); err != nil {
		return err
	}
	log.Println("✅ AutoMigrate finished")
	return nil
}

func status(ctx context.Context, db *gorm.DB, cfg *config.Config, _ []string) error {
	st, err := database.GetSchemaStatus(ctx, db, cfg)
	if err != nil {
		return err
	}
	log.Printf("mode=%s env=%s sql=%t auto=%t applied=%d pending=%d",
		st.Mode, st.Environment, st.WillRunSQL, st.WillRunAutoMigrate, len(st.AppliedVersions), len(st.PendingMigrations))
	for _, m := range st.PendingMigrations {
		log.Printf("  pending %s", m.String())
	}
	return nil
}

func down(ctx context.Context, db *gorm.DB, _ *config.Config, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	version, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid version %q: %w", args[0], err)
	}
	if err := database.RollbackMigration(ctx, db, version); err != nil {
		return err
	}
	log.Printf("↩️  rolled back %06d", version)
	return nil
}

func recount(ctx context.Context, db *gorm.DB, _ *config.Config, _ []string) error {
	n, err := repository.NewUserRepository(db).Recount(ctx)
	if err != nil {
		return err
	}
	log.Printf("✅ recounted attributes of %d user(s)", n)
	return nil
}
