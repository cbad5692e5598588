package universe

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/woxinfeixang/strategic-space-sub001/internal/logger"
	"github.com/woxinfeixang/strategic-space-sub001/internal/types"
	"github.com/woxinfeixang/strategic-space-sub001/pkg/errors"
)

// Resolver derives the set of symbols a run simulates. Sources are
// consulted in priority order: explicit per-event symbols, then the
// configured symbol list, then the currency-to-symbol mapping.
type Resolver struct {
	logger *logger.Logger
}

func NewResolver(log *logger.Logger) *Resolver {
	return &Resolver{logger: log}
}

// Resolve returns the sorted, de-duplicated trading universe. The same
// inputs always produce the same universe.
func (r *Resolver) Resolve(events []types.EconomicEvent, configured []string, currencyMap map[string]string) ([]string, error) {
	seen := make(map[string]struct{})

	var symbols []string

	add := func(symbol string) {
		if _, ok := seen[symbol]; ok {
			return
		}

		seen[symbol] = struct{}{}

		symbols = append(symbols, symbol)
	}

	// 1. Explicit symbols attached to events.
	for _, event := range events {
		if event.Symbol.IsSome() {
			add(event.Symbol.Unwrap())
		}
	}

	if len(symbols) > 0 {
		sort.Strings(symbols)

		r.logger.Info("universe resolved from event symbols",
			zap.Strings("symbols", symbols),
		)

		return symbols, nil
	}

	// 2. Configured symbol list, verbatim.
	for _, symbol := range configured {
		add(symbol)
	}

	if len(symbols) > 0 {
		sort.Strings(symbols)

		r.logger.Info("universe resolved from configuration",
			zap.Strings("symbols", symbols),
		)

		return symbols, nil
	}

	// 3. Map event currencies to symbols, case-insensitively. Currencies
	// without a mapping are logged and skipped.
	normalized := make(map[string]string, len(currencyMap))
	for currency, symbol := range currencyMap {
		normalized[strings.ToUpper(currency)] = symbol
	}

	for _, event := range events {
		symbol, ok := normalized[strings.ToUpper(event.Currency)]
		if !ok {
			r.logger.Warn("no symbol mapping for event currency",
				zap.String("currency", event.Currency),
				zap.Time("event_time", event.Time),
			)

			continue
		}

		add(symbol)
	}

	if len(symbols) == 0 {
		return nil, errors.New(errors.ErrCodeUniverseResolution,
			"universe resolution produced no symbols: no event symbols, no configured symbols, and no usable currency mappings")
	}

	sort.Strings(symbols)

	r.logger.Info("universe resolved from currency mapping",
		zap.Strings("symbols", symbols),
	)

	return symbols, nil
}
