package catalog

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/mohammad-safakhou/pathfinder/models"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate applies the embedded schema migrations. steps 0 means all.
func Migrate(dsn, direction string, steps int) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("migrations source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return fmt.Errorf("migrate init: %w", err)
	}
	defer m.Close()

	switch direction {
	case "", "up":
		if steps > 0 {
			err = m.Steps(steps)
		} else {
			err = m.Up()
		}
	case "down":
		if steps > 0 {
			err = m.Steps(-steps)
		} else {
			err = m.Down()
		}
	default:
		return fmt.Errorf("unknown direction: %s", direction)
	}
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}

// PostgresStore keeps one row per source URL; inserts never overwrite.
type PostgresStore struct {
	DB *sql.DB
}

// NewPostgresStore connects, pings and brings the schema up to date.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	if err := Migrate(dsn, "up", 0); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PostgresStore{DB: db}, nil
}

func (s *PostgresStore) Load(ctx context.Context) ([]models.EventRecord, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT record FROM events ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []models.EventRecord
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var r models.EventRecord
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		out = append(out, r.Normalize())
	}
	return out, rows.Err()
}

func (s *PostgresStore) MergeAndPersist(ctx context.Context, records []models.EventRecord) (MergeStats, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return MergeStats{}, err
	}
	defer func() { _ = tx.Rollback() }()

	fresh, skipped := newOnly(records, map[string]struct{}{})
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO events (source_url, title, event_type, start_date, record, processed_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (source_url) DO NOTHING`)
	if err != nil {
		return MergeStats{}, err
	}
	defer stmt.Close()

	var stats MergeStats
	for _, r := range fresh {
		raw, err := json.Marshal(r)
		if err != nil {
			return MergeStats{}, err
		}
		var processed sql.NullTime
		if !r.ProcessedAt.IsZero() {
			processed = sql.NullTime{Time: r.ProcessedAt, Valid: true}
		}
		res, err := stmt.ExecContext(ctx, r.SourceURL, r.Title, string(r.EventType), r.Date.Start, raw, processed)
		if err != nil {
			return MergeStats{}, fmt.Errorf("insert %s: %w", r.SourceURL, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			stats.Added++
		} else {
			skipped++
		}
	}
	if err := tx.QueryRowContext(ctx, `SELECT count(*) FROM events`).Scan(&stats.Total); err != nil {
		return MergeStats{}, err
	}
	if err := tx.Commit(); err != nil {
		return MergeStats{}, err
	}
	stats.Skipped = skipped
	return stats, nil
}

func (s *PostgresStore) Close() error { return s.DB.Close() }
