package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/samirrijal/pinmap/internal/pkg/config"
)

const migrationsDir = "migrations"

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: migrate <up|down>")
	}

	cfg, err := config.Load("pinmap-migrate")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	switch os.Args[1] {
	case "up":
		apply(ctx, pool, "up", false)
	case "down":
		apply(ctx, pool, "down", true)
	default:
		log.Fatalf("unknown command: %s", os.Args[1])
	}
}

// apply runs every migrations/*.<direction>.sql file in name order, or in
// reverse order when rolling back.
func apply(ctx context.Context, pool *pgxpool.Pool, direction string, reverse bool) {
	files, err := filepath.Glob(filepath.Join(migrationsDir, "*."+direction+".sql"))
	if err != nil {
		log.Fatalf("list migrations: %v", err)
	}
	if len(files) == 0 {
		log.Fatalf("no %s migrations in %s", direction, migrationsDir)
	}
	sort.Strings(files)
	if reverse {
		sort.Sort(sort.Reverse(sort.StringSlice(files)))
	}

	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			log.Fatalf("read %s: %v", f, err)
		}

		if _, err := pool.Exec(ctx, string(data)); err != nil {
			log.Fatalf("exec %s: %v", f, err)
		}

		fmt.Printf("OK  %s\n", strings.TrimPrefix(f, migrationsDir+string(filepath.Separator)))
	}

	log.Printf("all %s migrations applied", direction)
}
