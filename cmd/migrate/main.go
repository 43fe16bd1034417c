// Command migrate runs schema operations. The server auto-migrates outside production;
// production deployments run "migrate up" explicitly.
package main

import (
	"flag"
	"fmt"
	"log"
	"strings"

	"skillswap/internal/config"
	"skillswap/internal/database"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func usage() error {
	return fmt.Errorf("usage: go run ./cmd/migrate <up|status>")
}

func run() error {
	flag.Parse()
	if flag.NArg() < 1 {
		return usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() { _ = database.Close(db) }()

	switch strings.ToLower(strings.TrimSpace(flag.Arg(0))) {
	case "up":
		if err := database.Migrate(db); err != nil {
			return err
		}
		log.Println("migrations applied")
	case "status":
		pending := 0
		for _, model := range database.PersistentModels() {
			stmt := db.Model(model).Statement
			if err := stmt.Parse(model); err != nil {
				return fmt.Errorf("parse %T: %w", model, err)
			}
			present := db.Migrator().HasTable(model)
			if !present {
				pending++
			}
			log.Printf("%-24s present=%t", stmt.Schema.Table, present)
		}
		log.Printf("env=%s driver=%s missing_tables=%d", cfg.Env, db.Dialector.Name(), pending)
	default:
		return usage()
	}
	return nil
}
