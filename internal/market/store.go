package market

import (
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/woxinfeixang/strategic-space-sub001/internal/logger"
	"github.com/woxinfeixang/strategic-space-sub001/internal/types"
	"github.com/woxinfeixang/strategic-space-sub001/pkg/errors"
)

// LoadStatus tags the outcome of a series load. Expected "no data"
// outcomes are variants, not errors; only transport and parsing failures
// surface as errors.
type LoadStatus int

const (
	// LoadFound means the slice contains at least one bar.
	LoadFound LoadStatus = iota
	// LoadNotFound means no underlying series exists for the pair.
	LoadNotFound
	// LoadEmpty means the series exists but the requested range is empty.
	LoadEmpty
)

// LoadResult is the tagged outcome of HistoryStore.Load.
type LoadResult struct {
	Status LoadStatus
	Series types.Series
}

// DataProvider is the data-provider contract the simulation engine
// consumes. HistoryStore is the production implementation; tests plug in
// fakes.
type DataProvider interface {
	// Load returns the bars for (symbol, timeframe) sliced to
	// [start, end]. Unset bounds leave that side open.
	Load(symbol string, tf types.Timeframe, start optional.Option[time.Time], end optional.Option[time.Time]) (LoadResult, error)
}

// HistoryStore loads per-symbol, per-timeframe OHLCV series from parquet
// files through DuckDB. The underlying series for a pair is read, UTC
// normalized, and sorted exactly once per store instance; range queries
// slice the cached copy. Construct one store per run or process; there
// is no package-level state.
type HistoryStore struct {
	db      *sql.DB
	dataDir string
	logger  *logger.Logger
	sq      squirrel.StatementBuilderType
	cache   map[string][]types.MarketBar
}

var _ DataProvider = (*HistoryStore)(nil)

// NewHistoryStore opens an in-memory DuckDB instance over the parquet
// files in dataDir. Files are named <SYMBOL>_<TIMEFRAME>.parquet.
func NewHistoryStore(dataDir string, log *logger.Logger) (*HistoryStore, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to open duckdb", err)
	}

	return &HistoryStore{
		db:      db,
		dataDir: dataDir,
		logger:  log,
		sq:      squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		cache:   make(map[string][]types.MarketBar),
	}, nil
}

// Load implements DataProvider.
func (s *HistoryStore) Load(symbol string, tf types.Timeframe, start optional.Option[time.Time], end optional.Option[time.Time]) (LoadResult, error) {
	if strings.TrimSpace(symbol) == "" {
		return LoadResult{}, errors.New(errors.ErrCodeInvalidParameter, "symbol must not be empty")
	}

	if strings.TrimSpace(string(tf)) == "" {
		return LoadResult{}, errors.New(errors.ErrCodeInvalidParameter, "timeframe must not be empty")
	}

	if start.IsSome() && end.IsSome() && start.Unwrap().After(end.Unwrap()) {
		return LoadResult{}, errors.Newf(errors.ErrCodeInvalidParameter,
			"start %s is after end %s", start.Unwrap(), end.Unwrap())
	}

	bars, found, err := s.fullSeries(symbol, tf)
	if err != nil {
		return LoadResult{}, err
	}

	if !found {
		s.logger.Warn("no underlying series",
			zap.String("symbol", symbol),
			zap.String("timeframe", string(tf)),
		)

		return LoadResult{Status: LoadNotFound}, nil
	}

	sliced := sliceRange(bars, start, end)
	if len(sliced) == 0 {
		return LoadResult{Status: LoadEmpty, Series: types.Series{Symbol: symbol, Timeframe: tf}}, nil
	}

	return LoadResult{
		Status: LoadFound,
		Series: types.Series{Symbol: symbol, Timeframe: tf, Bars: sliced},
	}, nil
}

// Symbols lists the distinct symbols present in the data directory.
func (s *HistoryStore) Symbols() ([]string, error) {
	files, err := filepath.Glob(filepath.Join(s.dataDir, "*.parquet"))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to list data directory", err)
	}

	seen := make(map[string]struct{})

	var symbols []string

	for _, file := range files {
		name := strings.TrimSuffix(filepath.Base(file), ".parquet")

		idx := strings.LastIndex(name, "_")
		if idx <= 0 {
			continue
		}

		symbol := name[:idx]
		if _, ok := seen[symbol]; !ok {
			seen[symbol] = struct{}{}

			symbols = append(symbols, symbol)
		}
	}

	sort.Strings(symbols)

	return symbols, nil
}

// Close releases the DuckDB connection.
func (s *HistoryStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}

	return nil
}

// fullSeries reads, normalizes, and caches the complete series for
// (symbol, timeframe). The second return value reports whether an
// underlying series exists at all.
func (s *HistoryStore) fullSeries(symbol string, tf types.Timeframe) ([]types.MarketBar, bool, error) {
	key := cacheKey(symbol, tf)
	if cached, ok := s.cache[key]; ok {
		return cached, true, nil
	}

	path := filepath.Join(s.dataDir, fmt.Sprintf("%s_%s.parquet", symbol, tf))
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}

		return nil, false, errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to stat %s", path)
	}

	s.logger.Debug("reading series",
		zap.String("symbol", symbol),
		zap.String("timeframe", string(tf)),
		zap.String("path", path),
	)

	query, _, err := s.sq.
		Select("time", "open", "high", "low", "close", "volume").
		From(fmt.Sprintf("read_parquet('%s')", path)).
		OrderBy("time ASC").
		ToSql()
	if err != nil {
		return nil, false, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build query", err)
	}

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, false, errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to read %s", path)
	}
	defer rows.Close()

	var bars []types.MarketBar

	for rows.Next() {
		var (
			timestamp                      time.Time
			open, high, low, close, volume sql.NullFloat64
		)

		if err := rows.Scan(&timestamp, &open, &high, &low, &close, &volume); err != nil {
			return nil, false, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan bar", err)
		}

		bars = append(bars, types.MarketBar{
			Symbol:    symbol,
			Timeframe: tf,
			// Naive timestamps are stored as UTC; zoned ones convert.
			// Normalization happens exactly once, here.
			Time:   timestamp.UTC(),
			Open:   nullableFloat(open),
			High:   nullableFloat(high),
			Low:    nullableFloat(low),
			Close:  nullableFloat(close),
			Volume: volumeOrZero(volume),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, false, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating bars", err)
	}

	s.cache[key] = bars

	return bars, true, nil
}

func cacheKey(symbol string, tf types.Timeframe) string {
	return symbol + "|" + string(tf)
}

func nullableFloat(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}

	return v.Float64
}

func volumeOrZero(v sql.NullFloat64) float64 {
	if !v.Valid {
		return 0
	}

	return v.Float64
}

// sliceRange returns the sub-slice of bars within [start, end]. Bars are
// sorted ascending, so both bounds are binary searches.
func sliceRange(bars []types.MarketBar, start optional.Option[time.Time], end optional.Option[time.Time]) []types.MarketBar {
	lo := 0
	if start.IsSome() {
		from := start.Unwrap()
		lo = sort.Search(len(bars), func(i int) bool {
			return !bars[i].Time.Before(from)
		})
	}

	hi := len(bars)
	if end.IsSome() {
		until := end.Unwrap()
		hi = sort.Search(len(bars), func(i int) bool {
			return bars[i].Time.After(until)
		})
	}

	if lo >= hi {
		return nil
	}

	return bars[lo:hi]
}
