// Command migrate applies the embedded schema migrations with goose.
//
//	migrate [up|down|status|redo|reset|version]
package main

import (
	"context"
	"database/sql"
	"os"

	"orderflow/internal/adapters/out/postgres/migrations"
	"orderflow/internal/pkg/logger"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func main() {
	log := logger.New(logger.Options{ServiceName: "orderflow-migrate", Format: logger.FormatConsole})

	_ = godotenv.Load(".env")
	dsn := os.Getenv("ORDERFLOW_STORE_DSN")
	if dsn == "" {
		log.Fatal().Msg("ORDERFLOW_STORE_DSN is not set")
	}

	command := "up"
	var args []string
	if len(os.Args) > 1 {
		command, args = os.Args[1], os.Args[2:]
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()

	if err := migrations.Run(context.Background(), db, command, args...); err != nil {
		log.Error().Err(err).Str("command", command).Msg("migration failed")
		os.Exit(1)
	}
	log.Info().Str("command", command).Msg("migrations done")
}
