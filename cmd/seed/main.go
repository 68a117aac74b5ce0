package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"go.uber.org/zap"

	"github.com/botbridge/routecore/internal/store/seed"
	"github.com/botbridge/routecore/internal/store/sqlite"
)

func main() {
	dsn := flag.String("dsn", "file:routecore.db?cache=shared&mode=rwc&_journal_mode=WAL", "SQLite DSN to seed")
	file := flag.String("file", "config/routing.yaml", "Seed bundle to apply")
	flag.Parse()

	repo, err := sqlite.NewSQLiteStorage(*dsn, zap.NewNop())
	if err != nil {
		log.Fatal(err)
	}
	defer repo.Close()

	bundle, err := seed.Load(*file)
	if err != nil {
		log.Fatalf("Loading %s: %v", *file, err)
	}

	if err := seed.Apply(context.Background(), repo, bundle); err != nil {
		log.Fatalf("Applying seed: %v", err)
	}

	fmt.Printf("Seeded %s from %s\n", *dsn, *file)
	fmt.Printf("  tags:       %d\n", len(bundle.Tags))
	fmt.Printf("  strategies: %d\n", len(bundle.Strategies))
	fmt.Printf("  chains:     %d\n", len(bundle.Chains))
	fmt.Printf("  models:     %d\n", len(bundle.Models))
}
