// Package store persists simulation runs to SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"prosumer-sim/internal/backtest"
	"prosumer-sim/internal/model"
)

var ErrNotFound = errors.New("run not found")

// RunSummary is the stored headline of one run.
type RunSummary struct {
	ID        string
	CreatedAt time.Time
	Start     time.Time
	Slot      time.Duration
	Steps     int
	Battery   string

	Gains        [model.NumMarkets]decimal.Decimal
	GridGains    decimal.Decimal
	GridCost     decimal.Decimal
	Net          decimal.Decimal
	FinalBattery float64

	ViolationCount       int
	InfeasibleRebalances int
	OpenContracts        int
}

// SQLite records runs, their per-slot rows and their action logs.
type SQLite struct {
	db  *sql.DB
	mu  sync.Mutex
	log *zap.Logger
}

// Open opens (or creates) the database at path and runs migrations.
func Open(path string, log *zap.Logger) (*SQLite, error) {
	if log == nil {
		log = zap.NewNop()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL so API reads do not block on a run being saved.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLite{db: db, log: log}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info("sqlite store opened", zap.String("path", path))
	return s, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id                    TEXT PRIMARY KEY,
			created_at            INTEGER NOT NULL,
			start                 INTEGER NOT NULL,
			slot_seconds          INTEGER NOT NULL,
			steps                 INTEGER NOT NULL,
			battery               TEXT,
			gains_da              TEXT NOT NULL,
			gains_ia              TEXT NOT NULL,
			gains_ic              TEXT NOT NULL,
			grid_gains            TEXT NOT NULL,
			grid_cost             TEXT NOT NULL,
			net                   TEXT NOT NULL,
			final_battery         REAL,
			violations            INTEGER,
			infeasible_rebalances INTEGER,
			open_contracts        INTEGER
		)`,

		`CREATE TABLE IF NOT EXISTS steps (
			run_id      TEXT NOT NULL REFERENCES runs(id),
			idx         INTEGER NOT NULL,
			timestamp   INTEGER NOT NULL,
			action      TEXT,
			load        REAL,
			pv          REAL,
			battery     REAL,
			charge      REAL,
			discharge   REAL,
			grid_demand REAL,
			grid_supply REAL,
			delivered   REAL,
			net         TEXT,
			violations  INTEGER,
			PRIMARY KEY (run_id, idx)
		)`,

		`CREATE TABLE IF NOT EXISTS actions (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id    TEXT NOT NULL REFERENCES runs(id),
			timestamp INTEGER NOT NULL,
			kind      TEXT NOT NULL,
			market    TEXT NOT NULL,
			delivery  INTEGER NOT NULL,
			quantity  REAL,
			price     REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_actions_run ON actions(run_id, timestamp)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

// SaveRun stores res in a single transaction.
func (s *SQLite) SaveRun(ctx context.Context, res *backtest.Result, battery string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO runs
		(id, created_at, start, slot_seconds, steps, battery,
		 gains_da, gains_ia, gains_ic, grid_gains, grid_cost, net,
		 final_battery, violations, infeasible_rebalances, open_contracts)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		res.ID, time.Now().Unix(), res.Start.Unix(), int64(res.Slot/time.Second), len(res.Steps), battery,
		res.Gains[model.DayAhead].String(), res.Gains[model.IntradayAuction].String(), res.Gains[model.IntradayContinuous].String(),
		res.GridGains.String(), res.GridCost.String(), res.Net().String(),
		res.FinalBattery, res.ViolationCount, res.InfeasibleRebalances, res.OpenContracts,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stepStmt, err := tx.PrepareContext(ctx, `INSERT INTO steps
		(run_id, idx, timestamp, action, load, pv, battery, charge, discharge,
		 grid_demand, grid_supply, delivered, net, violations)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stepStmt.Close()
	for _, r := range res.Steps {
		if _, err := stepStmt.ExecContext(ctx,
			res.ID, r.Index, r.Time.Unix(), string(r.Action), r.Load, r.PV, r.Battery,
			r.Charge, r.Discharge, r.GridDemand, r.GridSupply, r.Delivered,
			r.Net().String(), r.Violations,
		); err != nil {
			return fmt.Errorf("insert step %d: %w", r.Index, err)
		}
	}

	actStmt, err := tx.PrepareContext(ctx, `INSERT INTO actions
		(run_id, timestamp, kind, market, delivery, quantity, price)
		VALUES (?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer actStmt.Close()
	for _, a := range res.Actions {
		if _, err := actStmt.ExecContext(ctx,
			res.ID, a.Time.Unix(), string(a.Kind), a.Market.String(), a.DeliveryTime.Unix(), a.Quantity, a.Price,
		); err != nil {
			return fmt.Errorf("insert action: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	s.log.Debug("run saved", zap.String("run_id", res.ID), zap.Int("steps", len(res.Steps)), zap.Int("actions", len(res.Actions)))
	return nil
}

// Run loads the summary of a stored run.
func (s *SQLite) Run(ctx context.Context, id string) (*RunSummary, error) {
	row := s.db.QueryRowContext(ctx, `SELECT
		id, created_at, start, slot_seconds, steps, battery,
		gains_da, gains_ia, gains_ic, grid_gains, grid_cost, net,
		final_battery, violations, infeasible_rebalances, open_contracts
		FROM runs WHERE id = ?`, id)

	var (
		rs                  RunSummary
		created, start      int64
		slotSeconds         int64
		battery             sql.NullString
		da, ia, ic          string
		gridGains, gridCost string
		net                 string
	)
	err := row.Scan(&rs.ID, &created, &start, &slotSeconds, &rs.Steps, &battery,
		&da, &ia, &ic, &gridGains, &gridCost, &net,
		&rs.FinalBattery, &rs.ViolationCount, &rs.InfeasibleRebalances, &rs.OpenContracts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	rs.CreatedAt = time.Unix(created, 0).UTC()
	rs.Start = time.Unix(start, 0).UTC()
	rs.Slot = time.Duration(slotSeconds) * time.Second
	rs.Battery = battery.String

	amounts := []struct {
		raw string
		dst *decimal.Decimal
	}{
		{da, &rs.Gains[model.DayAhead]},
		{ia, &rs.Gains[model.IntradayAuction]},
		{ic, &rs.Gains[model.IntradayContinuous]},
		{gridGains, &rs.GridGains},
		{gridCost, &rs.GridCost},
		{net, &rs.Net},
	}
	for _, a := range amounts {
		v, err := decimal.NewFromString(a.raw)
		if err != nil {
			return nil, fmt.Errorf("run %s: %w", id, err)
		}
		*a.dst = v
	}
	return &rs, nil
}

// Actions returns the action log of a run in the order it was recorded.
func (s *SQLite) Actions(ctx context.Context, id string) ([]backtest.ActionRow, error) {
	if _, err := s.Run(ctx, id); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT timestamp, kind, market, delivery, quantity, price
		FROM actions WHERE run_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []backtest.ActionRow{}
	for rows.Next() {
		var (
			ts, delivery int64
			kind, market string
			a            backtest.ActionRow
		)
		if err := rows.Scan(&ts, &kind, &market, &delivery, &a.Quantity, &a.Price); err != nil {
			return nil, err
		}
		m, err := model.ParseMarket(market)
		if err != nil {
			return nil, err
		}
		a.Time = time.Unix(ts, 0).UTC()
		a.Kind = model.ActionKind(kind)
		a.Market = m
		a.DeliveryTime = time.Unix(delivery, 0).UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}
