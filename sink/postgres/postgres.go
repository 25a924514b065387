// Copyright (c) 2025 BVK Chaitanya

// Package postgres records opportunity events in a PostgreSQL table.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/bvk/triarb/gobs"
	"github.com/bvk/triarb/sink"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sugawarayuuta/sonnet"
)

type Options struct {
	DSN string

	// Table is the table name, optionally schema qualified.
	Table string

	MaxConns int32
}

func (v *Options) setDefaults() {
	if len(v.Table) == 0 {
		v.Table = "triarb_opportunities"
	}
}

type Sink struct {
	opts Options

	pool *pgxpool.Pool

	insertSQL string
}

var _ sink.Sink = &Sink{}

// New connects to the database and creates the table when it doesn't exist.
func New(ctx context.Context, opts *Options) (*Sink, error) {
	s := &Sink{opts: *opts}
	s.opts.setDefaults()

	poolCfg, err := pgxpool.ParseConfig(s.opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("could not parse postgres dsn: %w", err)
	}
	if s.opts.MaxConns > 0 {
		poolCfg.MaxConns = s.opts.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("could not create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("could not ping postgres: %w", err)
	}
	s.pool = pool

	table := tableIdentifier(s.opts.Table)
	if _, err := pool.Exec(ctx, createTableSQL(table)); err != nil {
		pool.Close()
		return nil, fmt.Errorf("could not create table %s: %w", table, err)
	}
	s.insertSQL = insertSQL(table)
	return s, nil
}

func (s *Sink) Name() string {
	return "postgres"
}

func (s *Sink) Close() error {
	s.pool.Close()
	return nil
}

func (s *Sink) Publish(ctx context.Context, ev *gobs.OpportunityEvent) error {
	pathJSON, err := sonnet.Marshal(ev.Path)
	if err != nil {
		return fmt.Errorf("could not json-encode path: %w", err)
	}
	_, err = s.pool.Exec(ctx, s.insertSQL, insertArgs(ev, pathJSON)...)
	if err != nil {
		return fmt.Errorf("could not insert opportunity %s: %w", ev.ID, err)
	}
	return nil
}

// tableIdentifier returns the sanitized, possibly schema qualified, table
// name.
func tableIdentifier(name string) string {
	return pgx.Identifier(strings.Split(name, ".")).Sanitize()
}

func createTableSQL(table string) string {
	return `CREATE TABLE IF NOT EXISTS ` + table + ` (
	id               UUID PRIMARY KEY,
	path_seq         INTEGER NOT NULL,
	operation        TEXT NOT NULL,
	symbols          TEXT[] NOT NULL,
	trigger_symbol   TEXT NOT NULL,
	initial_quantity NUMERIC NOT NULL,
	final_quantity   NUMERIC NOT NULL,
	profit           NUMERIC NOT NULL,
	profit_asset     TEXT NOT NULL,
	path             JSONB NOT NULL,
	detected_at      TIMESTAMPTZ NOT NULL
)`
}

func insertSQL(table string) string {
	return `INSERT INTO ` + table + ` (
	id, path_seq, operation, symbols, trigger_symbol,
	initial_quantity, final_quantity, profit, profit_asset,
	path, detected_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (id) DO NOTHING`
}

// insertArgs returns the insert statement arguments. Decimal values are
// passed as strings for the NUMERIC columns.
func insertArgs(ev *gobs.OpportunityEvent, pathJSON []byte) []any {
	symbols := ev.Path.Symbols()
	return []any{
		ev.ID.String(),
		ev.Path.SequenceNumber,
		ev.Path.Operation,
		symbols[:],
		ev.Trigger,
		ev.InitialQuantity.String(),
		ev.FinalQuantity.String(),
		ev.Profit.String(),
		ev.ProfitAsset,
		string(pathJSON),
		ev.DetectedAt,
	}
}
