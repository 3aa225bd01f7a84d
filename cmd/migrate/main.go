package main

import (
	"flag"

	"go.uber.org/zap"

	"anchor/internal/config"
	"anchor/internal/logger"
	"anchor/internal/store"
	"anchor/migrations"
)

// Migrate applies or rolls back the schema.
//
//	migrate            apply all pending migrations
//	migrate -steps -1  roll back one migration
func main() {
	steps := flag.Int("steps", 0, "migrate n steps (negative rolls back); 0 applies everything")
	flag.Parse()

	cfg := config.Load()
	log := logger.New(cfg).Named("migrate")
	defer func() { _ = log.Sync() }()

	m, err := store.NewMigrator(cfg.DatabaseURL, migrations.FS)
	if err != nil {
		log.Fatal("migrator init failed", zap.Error(err))
	}
	defer func() { _ = m.Close() }()

	if *steps == 0 {
		err = m.Up()
	} else {
		err = m.Steps(*steps)
	}
	if err != nil {
		log.Fatal("migration failed", zap.Error(err))
	}

	version, dirty, err := m.Version()
	if err != nil {
		log.Fatal("read schema version failed", zap.Error(err))
	}
	log.Info("schema migrated", zap.Uint("version", version), zap.Bool("dirty", dirty))
}
