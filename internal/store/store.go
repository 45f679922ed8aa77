// Package store persists the latest accepted price set.
//
// The set is only ever replaced as a whole, inside one transaction, so
// readers see either the previous complete set or the new one.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"fuelprice/internal/aggregate"
	"fuelprice/internal/fuel"
)

const DefaultMinCoverage = 0.5

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

var (
	// ErrInsufficientCoverage matches every *InsufficientCoverageError.
	ErrInsufficientCoverage = errors.New("insufficient coverage")
	// ErrEmpty is returned by readers that need at least one row.
	ErrEmpty = errors.New("no fuel prices stored")
)

// InsufficientCoverageError rejects a batch that covered too few pairs.
type InsufficientCoverageError struct {
	Ratio    float64     `json:"coverage"`
	Accepted int         `json:"accepted"`
	Total    int         `json:"total"`
	Failed   []fuel.Pair `json:"failed"`
}

func (e *InsufficientCoverageError) Error() string {
	return fmt.Sprintf("%s: %d/%d pairs (%.1f%%), %d failed",
		ErrInsufficientCoverage, e.Accepted, e.Total, e.Ratio*100, len(e.Failed))
}

func (e *InsufficientCoverageError) Is(target error) bool { return target == ErrInsufficientCoverage }

// Batch is the outcome of one acquisition sweep.
type Batch struct {
	Total  int
	Quotes []fuel.Quote
	Failed []fuel.Pair
}

// Coverage is accepted pairs over attempted pairs.
func (b Batch) Coverage() float64 {
	if b.Total <= 0 {
		return 0
	}
	return float64(len(b.Quotes)) / float64(b.Total)
}

// Store is the aggregate price table.
type Store struct {
	db          *sqlx.DB
	loc         *time.Location
	minCoverage float64
}

// Option configures a Store.
type Option func(*Store)

// WithLocation sets the zone that defines a calendar day for IsFreshToday.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithMinCoverage sets the commit threshold.
func WithMinCoverage(ratio float64) Option {
	return func(s *Store) {
		if ratio > 0 && ratio <= 1 {
			s.minCoverage = ratio
		}
	}
}

// New wraps an open database.
func New(db *sqlx.DB, opts ...Option) *Store {
	s := &Store{db: db, loc: time.UTC, minCoverage: DefaultMinCoverage}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Open connects with driver "sqlite" or "pgx" and creates the schema.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*Store, error) {
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == "sqlite" {
		// one connection serializes readers behind an open replace
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(time.Hour)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	s := New(db, opts...)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

var schema = []string{
	`CREATE TABLE IF NOT EXISTS fuel_prices (
		city         TEXT NOT NULL,
		fuel_type    TEXT NOT NULL,
		price        DOUBLE PRECISION NOT NULL,
		last_updated TIMESTAMP NOT NULL,
		PRIMARY KEY (city, fuel_type)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_fuel_prices_last_updated ON fuel_prices (last_updated)`,
}

// Migrate creates the table and index when missing.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Commit installs b as the new price set when its coverage meets the
// threshold, stamping every quote with at. Otherwise nothing is written and
// an *InsufficientCoverageError is returned.
func (s *Store) Commit(ctx context.Context, b Batch, at time.Time) error {
	ratio := b.Coverage()
	if len(b.Quotes) == 0 || ratio < s.minCoverage {
		return &InsufficientCoverageError{Ratio: ratio, Accepted: len(b.Quotes), Total: b.Total, Failed: b.Failed}
	}
	return s.replace(ctx, b.Quotes, at.UTC())
}

func (s *Store) replace(ctx context.Context, quotes []fuel.Quote, at time.Time) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM fuel_prices`); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	stmt, err := tx.PreparexContext(ctx, tx.Rebind(
		`INSERT INTO fuel_prices (city, fuel_type, price, last_updated) VALUES (?, ?, ?, ?)`))
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	seen := make(map[string]struct{}, len(quotes))
	for _, q := range quotes {
		key := q.City + "\x00" + string(q.Fuel)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if _, err := stmt.ExecContext(ctx, q.City, string(q.Fuel), q.Price, at); err != nil {
			return fmt.Errorf("insert %s/%s: %w", q.City, q.Fuel, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

const selectQuotes = `SELECT city, fuel_type, price, last_updated FROM fuel_prices`

// All returns every stored quote ordered by city, then fuel.
func (s *Store) All(ctx context.Context) ([]fuel.Quote, error) {
	var out []fuel.Quote
	if err := s.db.SelectContext(ctx, &out, selectQuotes+` ORDER BY city, fuel_type`); err != nil {
		return nil, fmt.Errorf("select all: %w", err)
	}
	return normalize(out), nil
}

// ByCity returns the quotes of one city, matched case-insensitively.
func (s *Store) ByCity(ctx context.Context, city string) ([]fuel.Quote, error) {
	var out []fuel.Quote
	q := s.db.Rebind(selectQuotes + ` WHERE LOWER(city) = ? ORDER BY fuel_type`)
	if err := s.db.SelectContext(ctx, &out, q, strings.ToLower(strings.TrimSpace(city))); err != nil {
		return nil, fmt.Errorf("select city %s: %w", city, err)
	}
	return normalize(out), nil
}

// Get returns the quote for (city, kind).
func (s *Store) Get(ctx context.Context, city string, kind fuel.Kind) (fuel.Quote, bool, error) {
	var out fuel.Quote
	q := s.db.Rebind(selectQuotes + ` WHERE city = ? AND fuel_type = ?`)
	err := s.db.GetContext(ctx, &out, q, city, string(kind))
	if errors.Is(err, sql.ErrNoRows) {
		return fuel.Quote{}, false, nil
	}
	if err != nil {
		return fuel.Quote{}, false, fmt.Errorf("get %s/%s: %w", city, kind, err)
	}
	out.ObservedAt = out.ObservedAt.UTC()
	return out, true, nil
}

// Average returns the store-wide mean price for kind.
func (s *Store) Average(ctx context.Context, kind fuel.Kind) (float64, bool, error) {
	var avg sql.NullFloat64
	q := s.db.Rebind(`SELECT AVG(price) FROM fuel_prices WHERE fuel_type = ?`)
	if err := s.db.GetContext(ctx, &avg, q, string(kind)); err != nil {
		return 0, false, fmt.Errorf("average %s: %w", kind, err)
	}
	if !avg.Valid {
		return 0, false, nil
	}
	return avg.Float64, true, nil
}

// Averages returns the mean price per kind rounded to two decimals.
func (s *Store) Averages(ctx context.Context) (map[fuel.Kind]float64, error) {
	var rows []struct {
		Fuel string  `db:"fuel_type"`
		Avg  float64 `db:"avg_price"`
	}
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT fuel_type, AVG(price) AS avg_price FROM fuel_prices GROUP BY fuel_type ORDER BY fuel_type`); err != nil {
		return nil, fmt.Errorf("averages: %w", err)
	}
	out := make(map[fuel.Kind]float64, len(rows))
	for _, r := range rows {
		out[fuel.Kind(r.Fuel)] = aggregate.Round2(r.Avg)
	}
	return out, nil
}

// LastUpdate returns the newest stamp, or ErrEmpty.
func (s *Store) LastUpdate(ctx context.Context) (time.Time, error) {
	var ts time.Time
	err := s.db.GetContext(ctx, &ts, `SELECT last_updated FROM fuel_prices ORDER BY last_updated DESC LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, ErrEmpty
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("last update: %w", err)
	}
	return ts.UTC(), nil
}

// IsFreshToday reports whether the newest stamp falls on now's calendar day
// in the store's location.
func (s *Store) IsFreshToday(ctx context.Context, now time.Time) (bool, error) {
	last, err := s.LastUpdate(ctx)
	if errors.Is(err, ErrEmpty) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return sameDay(last.In(s.loc), now.In(s.loc)), nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func normalize(qs []fuel.Quote) []fuel.Quote {
	for i := range qs {
		qs[i].ObservedAt = qs[i].ObservedAt.UTC()
	}
	return qs
}
