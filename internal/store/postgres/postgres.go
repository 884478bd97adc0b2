package postgres

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/observatoire/observatoire/internal/domain"
	"github.com/observatoire/observatoire/internal/store"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store is a Repository backed by a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

var (
	_ store.Repository = (*Store)(nil)
	_ store.Seeder     = (*Store)(nil)
)

// Connect opens a pool for dsn and verifies it with a ping.
func Connect(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse dsn: %w", err)
	}
	cfg.MaxConns = 10
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases every pooled connection.
func (s *Store) Close() { s.pool.Close() }

// Migrate applies all pending embedded migrations.
func (s *Store) Migrate(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(s.pool)
	defer db.Close()

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	return nil
}

// ReadAll returns every agency ordered by insertion position.
func (s *Store) ReadAll(ctx context.Context) ([]domain.Agency, error) {
	const op = "postgres.read"

	rows, err := s.pool.Query(ctx, `
        SELECT name, url, latest_audit
        FROM agencies
        ORDER BY position
    `)
	if err != nil {
		return nil, domain.Wrap(op, domain.KindIO, err, "could not query agencies")
	}
	defer rows.Close()

	out := []domain.Agency{}
	for rows.Next() {
		var (
			a   domain.Agency
			raw []byte
		)
		if err := rows.Scan(&a.Name, &a.URL, &raw); err != nil {
			return nil, domain.Wrap(op, domain.KindIO, err, "could not scan agency row")
		}
		if raw != nil {
			var audit domain.AuditResult
			if err := json.Unmarshal(raw, &audit); err != nil {
				return nil, domain.Wrap(op, domain.KindIO, err, "stored audit for "+a.URL+" is not valid")
			}
			a.LatestAudit = &audit
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Wrap(op, domain.KindIO, err, "could not read agencies")
	}
	return out, nil
}

// UpdateByURL replaces latest_audit on the row whose url matches exactly.
func (s *Store) UpdateByURL(ctx context.Context, url string, audit domain.AuditResult) error {
	const op = "postgres.update"

	doc, err := json.Marshal(audit)
	if err != nil {
		return domain.Wrap(op, domain.KindIO, err, "could not encode audit")
	}

	tag, err := s.pool.Exec(ctx, `
        UPDATE agencies
        SET latest_audit = $2::jsonb, updated_at = now()
        WHERE url = $1
    `, url, string(doc))
	if err != nil {
		return domain.Wrap(op, domain.KindIO, err, "failed to write agency audit")
	}
	if tag.RowsAffected() == 0 {
		return store.NotFound(op, url)
	}
	return nil
}

// Seed inserts agencies whose url is not present yet, in slice order.
func (s *Store) Seed(ctx context.Context, agencies []domain.Agency) (int, error) {
	const op = "postgres.seed"

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, domain.Wrap(op, domain.KindIO, err, "could not begin transaction")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	inserted := 0
	for _, a := range agencies {
		if a.URL == "" {
			continue
		}
		var doc any
		if a.LatestAudit != nil {
			b, err := json.Marshal(a.LatestAudit)
			if err != nil {
				return 0, domain.Wrap(op, domain.KindIO, err, "could not encode audit")
			}
			doc = string(b)
		}
		tag, err := tx.Exec(ctx, `
            INSERT INTO agencies (name, url, latest_audit)
            VALUES ($1, $2, $3::jsonb)
            ON CONFLICT (url) DO NOTHING
        `, a.Name, a.URL, doc)
		if err != nil {
			return 0, domain.Wrap(op, domain.KindIO, err, "could not insert "+a.URL)
		}
		inserted += int(tag.RowsAffected())
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, domain.Wrap(op, domain.KindIO, err, "could not commit seed")
	}
	return inserted, nil
}
