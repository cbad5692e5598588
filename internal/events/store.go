package events

import (
	"context"
	"database/sql"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"github.com/woxinfeixang/strategic-space-sub001/internal/logger"
	"github.com/woxinfeixang/strategic-space-sub001/internal/types"
	"github.com/woxinfeixang/strategic-space-sub001/pkg/errors"
)

// Store is the economic calendar contract the engine and the universe
// resolver consume.
type Store interface {
	// FilterEvents returns events whose calendar date falls within
	// [start, end], inclusive on both ends, with importance >= minImportance,
	// ordered by time ascending.
	FilterEvents(ctx context.Context, start time.Time, end time.Time, minImportance int) ([]types.EconomicEvent, error)
	// Close releases the underlying database.
	Close() error
}

// SQLiteStore reads the calendar from a SQLite database file with an
// economic_events table.
type SQLiteStore struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) the calendar database at dbPath.
func NewSQLiteStore(dbPath string, log *logger.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeEventStoreFailed, "failed to open event database", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: log,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}, nil
}

// Migrate creates the economic_events table when it does not exist.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS economic_events (
			time TEXT NOT NULL,
			currency TEXT NOT NULL,
			symbol TEXT,
			importance INTEGER NOT NULL DEFAULT 0,
			actual REAL,
			forecast REAL,
			previous REAL
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeEventStoreFailed, "failed to create economic_events table", err)
	}

	return nil
}

// SaveEvent inserts one calendar entry. Timestamps are stored as RFC3339
// UTC strings.
func (s *SQLiteStore) SaveEvent(ctx context.Context, event types.EconomicEvent) error {
	query, args, err := s.sq.
		Insert("economic_events").
		Columns("time", "currency", "symbol", "importance", "actual", "forecast", "previous").
		Values(
			event.Time.UTC().Format(time.RFC3339),
			event.Currency,
			optionalString(event.Symbol),
			event.Importance,
			optionalFloat(event.Actual),
			optionalFloat(event.Forecast),
			optionalFloat(event.Previous),
		).
		ToSql()
	if err != nil {
		return errors.Wrap(errors.ErrCodeEventStoreFailed, "failed to build insert", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(errors.ErrCodeEventStoreFailed, "failed to insert event", err)
	}

	return nil
}

// FilterEvents implements Store. The date filter is inclusive on both
// calendar dates: an end date of 2023-06-15 includes every event on that
// day regardless of time.
func (s *SQLiteStore) FilterEvents(ctx context.Context, start time.Time, end time.Time, minImportance int) ([]types.EconomicEvent, error) {
	dayStart := time.Date(start.UTC().Year(), start.UTC().Month(), start.UTC().Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := time.Date(end.UTC().Year(), end.UTC().Month(), end.UTC().Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)

	query, args, err := s.sq.
		Select("time", "currency", "symbol", "importance", "actual", "forecast", "previous").
		From("economic_events").
		Where(squirrel.And{
			squirrel.GtOrEq{"time": dayStart.Format(time.RFC3339)},
			squirrel.Lt{"time": dayEnd.Format(time.RFC3339)},
			squirrel.GtOrEq{"importance": minImportance},
		}).
		OrderBy("time ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeEventStoreFailed, "failed to build query", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeEventStoreFailed, "failed to query events", err)
	}
	defer rows.Close()

	var events []types.EconomicEvent

	for rows.Next() {
		var (
			rawTime                    string
			currency                   string
			symbol                     sql.NullString
			importance                 int
			actual, forecast, previous sql.NullFloat64
		)

		if err := rows.Scan(&rawTime, &currency, &symbol, &importance, &actual, &forecast, &previous); err != nil {
			return nil, errors.Wrap(errors.ErrCodeEventStoreFailed, "failed to scan event", err)
		}

		timestamp, err := time.Parse(time.RFC3339, rawTime)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeEventStoreFailed, err, "invalid event timestamp %q", rawTime)
		}

		events = append(events, types.EconomicEvent{
			Time:       timestamp.UTC(),
			Currency:   currency,
			Symbol:     optionalFromNullString(symbol),
			Importance: importance,
			Actual:     optionalFromNullFloat(actual),
			Forecast:   optionalFromNullFloat(forecast),
			Previous:   optionalFromNullFloat(previous),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeEventStoreFailed, "error iterating events", err)
	}

	s.logger.Debug("filtered events",
		zap.Time("start", dayStart),
		zap.Time("end", dayEnd),
		zap.Int("min_importance", minImportance),
		zap.Int("count", len(events)),
	)

	return events, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}

	return nil
}

func optionalString(v optional.Option[string]) any {
	if v.IsSome() {
		return v.Unwrap()
	}

	return nil
}

func optionalFloat(v optional.Option[float64]) any {
	if v.IsSome() {
		return v.Unwrap()
	}

	return nil
}

func optionalFromNullString(v sql.NullString) optional.Option[string] {
	if v.Valid && v.String != "" {
		return optional.Some(v.String)
	}

	return optional.None[string]()
}

func optionalFromNullFloat(v sql.NullFloat64) optional.Option[float64] {
	if v.Valid {
		return optional.Some(v.Float64)
	}

	return optional.None[float64]()
}
