package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"facturante.ar/internal/migrate"
)

func main() {
	log.SetFlags(0)
	var (
		dsn            = flag.String("dsn", os.Getenv("FACT_PG_DSN"), "PostgreSQL DSN")
		migrationsPath = flag.String("migrations", "", "Override: directory with SQL migrations")
		seedsPath      = flag.String("seeds", "", "Override: directory with SQL seeds")
	)
	flag.Parse()

	if *dsn == "" {
		log.Fatal("missing DSN: provide via -dsn or FACT_PG_DSN")
	}
	if len(flag.Args()) == 0 {
		log.Fatal("usage: migrate [up|down|seed|status]")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	// embedded SQL by default; on-disk directories when overridden
	mgr := migrate.NewEmbedded(db)
	if *migrationsPath != "" || *seedsPath != "" {
		if *migrationsPath == "" || *seedsPath == "" {
			log.Fatal("provide both -migrations and -seeds when overriding")
		}
		mgr = migrate.NewManager(db, os.DirFS("."), *migrationsPath, *seedsPath)
	}

	switch flag.Arg(0) {
	case "up":
		err = mgr.Up(ctx)
	case "down":
		err = mgr.Down(ctx)
	case "seed":
		err = mgr.Seed(ctx)
	case "status":
		var history []string
		history, err = mgr.Status(ctx)
		if err == nil {
			for _, item := range history {
				fmt.Println(item)
			}
		}
	default:
		log.Fatalf("unknown command %q", flag.Arg(0))
	}
	if err != nil {
		log.Fatalf("migrate %s: %v", flag.Arg(0), err)
	}
}
