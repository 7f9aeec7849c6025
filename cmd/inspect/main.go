package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"kiosk-ingest/internal/config"
	"kiosk-ingest/internal/domain/event"

	"github.com/jackc/pgx/v5"
)

func main() {
	recent := flag.Int("recent", 5, "number of latest rows to print per table")
	flag.Parse()

	cfg, err := config.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to load config: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, cfg.Postgres.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close(ctx)

	for _, table := range []event.Table{event.RequestTable, event.RatingTable} {
		if err := printTable(ctx, conn, table, *recent); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", table.Name, err)
		}
	}
}

func printTable(ctx context.Context, conn *pgx.Conn, table event.Table, recent int) error {
	name := pgx.Identifier{table.Name}.Sanitize()
	id := pgx.Identifier{table.IDColumn}.Sanitize()
	value := pgx.Identifier{table.ValueColumn}.Sanitize()

	var rows, maxID int64
	err := conn.QueryRow(ctx,
		fmt.Sprintf("SELECT COUNT(*), COALESCE(MAX(%s), -1) FROM %s", id, name),
	).Scan(&rows, &maxID)
	if err != nil {
		return fmt.Errorf("count rows: %w", err)
	}
	fmt.Printf("--- %s --- rows: %d | max id: %d\n", table.Name, rows, maxID)

	latest, err := conn.Query(ctx,
		fmt.Sprintf("SELECT %s, event_at, exhibition_id, %s FROM %s ORDER BY %s DESC LIMIT $1", id, value, name, id),
		recent,
	)
	if err != nil {
		return fmt.Errorf("query latest rows: %w", err)
	}
	defer latest.Close()

	for latest.Next() {
		var (
			rowID, exhibition, v int64
			at                   time.Time
		)
		if err := latest.Scan(&rowID, &at, &exhibition, &v); err != nil {
			return fmt.Errorf("scan row: %w", err)
		}
		fmt.Printf("ID: %d | At: %s | Exhibition: %d | %s: %d\n", rowID, at.Format(time.RFC3339), exhibition, table.ValueColumn, v)
	}
	return latest.Err()
}
