// prune-sessions deletes expired rows from the postgres session table.
//
// Usage:
//
//	go run ./cmd/prune-sessions --dry-run
//	go run ./cmd/prune-sessions --confirm
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
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load(".env.local")

	dsn := flag.String("dsn", os.Getenv("DATABASE_URL"), "postgres connection URL")
	dryRun := flag.Bool("dry-run", false, "count expired sessions without deleting")
	confirm := flag.Bool("confirm", false, "required to delete")
	flag.Parse()

	if *dsn == "" {
		log.Fatal("DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("ping: %v", err)
	}

	now := time.Now().UTC()
	var expired int64
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM portal_sessions WHERE expires_at <= $1`, now,
	).Scan(&expired); err != nil {
		log.Fatalf("count: %v", err)
	}
	fmt.Printf("%d expired sessions\n", expired)

	if *dryRun || expired == 0 {
		return
	}
	if !*confirm {
		log.Fatal("Refusing to delete without --confirm. Add --dry-run to preview.")
	}

	res, err := db.ExecContext(ctx, `DELETE FROM portal_sessions WHERE expires_at <= $1`, now)
	if err != nil {
		log.Fatalf("delete: %v", err)
	}
	n, _ := res.RowsAffected()
	fmt.Printf("✓ Deleted %d expired sessions\n", n)
}
