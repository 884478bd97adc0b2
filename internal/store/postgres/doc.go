// Package postgres is the PostgreSQL Repository backend. Each agency is one
// row; the latest audit is kept as a JSONB document and the serial position
// column preserves insertion order. Schema changes ship as embedded goose
// migrations applied by Migrate.
package postgres
