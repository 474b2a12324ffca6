package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/the-nook/nook-api/internal/config"
	"github.com/the-nook/nook-api/internal/database"
	"github.com/the-nook/nook-api/pkg/logger"
)

var (
	direction = flag.String("direction", "up", "up, down (one step) or goto")
	version   = flag.Uint("version", 0, "target version for -direction=goto")
)

func main() {
	flag.Parse()
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	path := cfg.Database.MigrationsPath
	switch *direction {
	case "up":
		err = db.RunMigrations(path)
	case "down":
		err = db.MigrateDown(path)
	case "goto":
		err = db.MigrateToVersion(path, *version)
	default:
		fmt.Fprintf(os.Stderr, "unknown direction %q\n", *direction)
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatal().Err(err).Str("direction", *direction).Msg("Migration failed")
	}
}
