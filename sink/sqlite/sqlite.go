// Copyright (c) 2025 BVK Chaitanya

// Package sqlite records opportunity events in a local SQLite database file.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bvk/triarb/gobs"
	"github.com/bvk/triarb/sink"
	"github.com/bvk/triarb/timerange"
	"github.com/sugawarayuuta/sonnet"

	_ "github.com/mattn/go-sqlite3"
)

const createTable = `CREATE TABLE IF NOT EXISTS opportunities (
	id               TEXT PRIMARY KEY,
	path_seq         INTEGER NOT NULL,
	operation        TEXT NOT NULL,
	symbols          TEXT NOT NULL,
	trigger_symbol   TEXT NOT NULL,
	initial_quantity TEXT NOT NULL,
	final_quantity   TEXT NOT NULL,
	profit           TEXT NOT NULL,
	profit_asset     TEXT NOT NULL,
	path             TEXT NOT NULL,
	detected_at      INTEGER NOT NULL
)`

const insertRow = `INSERT OR IGNORE INTO opportunities (
	id, path_seq, operation, symbols, trigger_symbol,
	initial_quantity, final_quantity, profit, profit_asset,
	path, detected_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

type Sink struct {
	db *sql.DB

	insert *sql.Stmt
}

var _ sink.Sink = &Sink{}

// New opens or creates the database file and the opportunities table.
func New(ctx context.Context, file string) (*Sink, error) {
	db, err := sql.Open("sqlite3", file)
	if err != nil {
		return nil, fmt.Errorf("could not open sqlite database %q: %w", file, err)
	}
	// Single writer avoids "database is locked" errors.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not create opportunities table: %w", err)
	}
	insert, err := db.PrepareContext(ctx, insertRow)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("could not prepare insert statement: %w", err)
	}
	return &Sink{db: db, insert: insert}, nil
}

func (s *Sink) Name() string {
	return "sqlite"
}

func (s *Sink) Close() error {
	s.insert.Close()
	return s.db.Close()
}

func (s *Sink) Publish(ctx context.Context, ev *gobs.OpportunityEvent) error {
	pathJSON, err := sonnet.Marshal(ev.Path)
	if err != nil {
		return fmt.Errorf("could not json-encode path: %w", err)
	}
	symbols := ev.Path.Symbols()
	_, err = s.insert.ExecContext(ctx,
		ev.ID.String(), ev.Path.SequenceNumber, ev.Path.Operation,
		strings.Join(symbols[:], ","), ev.Trigger,
		ev.InitialQuantity.String(), ev.FinalQuantity.String(), ev.Profit.String(), ev.ProfitAsset,
		string(pathJSON), ev.DetectedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("could not insert opportunity %s: %w", ev.ID, err)
	}
	return nil
}

// Record is one row of the opportunities table.
type Record struct {
	ID          string
	PathSeq     int
	Operation   string
	Symbols     []string
	Trigger     string
	Profit      string
	ProfitAsset string
	DetectedAt  time.Time
}

// Recent returns up to limit most recently detected opportunities.
func (s *Sink) Recent(ctx context.Context, limit int) ([]*Record, error) {
	return s.RecentIn(ctx, nil, limit)
}

// RecentIn returns up to limit most recent opportunities detected in the time
// range. Nil range selects all opportunities.
func (s *Sink) RecentIn(ctx context.Context, period *timerange.Range, limit int) ([]*Record, error) {
	begin, end := int64(0), int64(math.MaxInt64)
	if !period.IsZero() {
		if !period.Begin.IsZero() {
			begin = period.Begin.UnixMilli()
		}
		if !period.End.IsZero() {
			end = period.End.UnixMilli()
		}
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, path_seq, operation, symbols, trigger_symbol, profit, profit_asset, detected_at
FROM opportunities WHERE detected_at >= ? AND detected_at < ? ORDER BY detected_at DESC, rowid DESC LIMIT ?`, begin, end, limit)
	if err != nil {
		return nil, fmt.Errorf("could not query opportunities: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var symbols string
		var millis int64
		r := new(Record)
		if err := rows.Scan(&r.ID, &r.PathSeq, &r.Operation, &symbols, &r.Trigger, &r.Profit, &r.ProfitAsset, &millis); err != nil {
			return nil, fmt.Errorf("could not scan opportunity row: %w", err)
		}
		r.Symbols = strings.Split(symbols, ",")
		r.DetectedAt = time.UnixMilli(millis)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
