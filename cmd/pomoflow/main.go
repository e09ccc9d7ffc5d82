package main

import (
	"log"
	"os"

	"github.com/seantiz/pomoflow/internal/api"
	"github.com/seantiz/pomoflow/internal/clock"
	"github.com/seantiz/pomoflow/internal/config"
	"github.com/seantiz/pomoflow/internal/engine"
	"github.com/seantiz/pomoflow/internal/store"
)

func main() {
	cfg := config.Load()
	logger := config.NewLoggerFromConfig(os.Stdout, cfg)

	logger.Info("pomoflow: starting",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
	)

	db, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	// Audio is the browser's job here; clients get cue events over SSE and
	// WebSocket.
	eng := engine.NewEngine(db, clock.System, engine.NopCue{}, logger)
	defer eng.Close()

	srv := api.NewServer(cfg.ListenAddr, db, eng, cfg.AllowedOrigins, logger)

	if err := srv.Run(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
