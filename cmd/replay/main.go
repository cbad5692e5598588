package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"

	"github.com/woxinfeixang/strategic-space-sub001/internal/analytics"
	baseengine "github.com/woxinfeixang/strategic-space-sub001/internal/engine"
	enginev1 "github.com/woxinfeixang/strategic-space-sub001/internal/engine/engine_v1"
	"github.com/woxinfeixang/strategic-space-sub001/internal/events"
	"github.com/woxinfeixang/strategic-space-sub001/internal/logger"
	"github.com/woxinfeixang/strategic-space-sub001/internal/market"
	"github.com/woxinfeixang/strategic-space-sub001/internal/strategy"
	"github.com/woxinfeixang/strategic-space-sub001/internal/types"
)

// replayAction wires the engine from CLI flags and runs every requested
// strategy against the same configuration.
func replayAction(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")
	dataDir := cmd.String("data")
	eventsPath := cmd.String("events")
	resultsFolder := cmd.String("results")
	strategyNames := cmd.StringSlice("strategy")
	strategyConfigPath := cmd.String("strategy-config")

	configYAML, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	strategyConfig := ""

	if strategyConfigPath != "" {
		content, err := os.ReadFile(strategyConfigPath)
		if err != nil {
			return fmt.Errorf("failed to read strategy config: %w", err)
		}

		strategyConfig = string(content)
	}

	appLog, err := logger.NewLogger()
	if err != nil {
		return err
	}

	store, err := market.NewHistoryStore(dataDir, appLog)
	if err != nil {
		return err
	}
	defer store.Close()

	eventStore, err := events.NewSQLiteStore(eventsPath, appLog)
	if err != nil {
		return err
	}
	defer eventStore.Close()

	if err := eventStore.Migrate(ctx); err != nil {
		return err
	}

	registry := strategy.NewRegistry()
	if err := strategy.RegisterBuiltins(registry); err != nil {
		return err
	}

	sim := enginev1.NewSimulationEngineV1()
	if err := sim.Initialize(string(configYAML)); err != nil {
		return err
	}

	if err := sim.SetDataSource(store); err != nil {
		return err
	}

	if err := sim.SetEventStore(eventStore); err != nil {
		return err
	}

	if err := sim.SetStrategyRegistry(registry); err != nil {
		return err
	}

	if err := sim.SetAnalytics(analytics.NewBasicAnalytics()); err != nil {
		return err
	}

	if err := sim.SetResultsFolder(resultsFolder); err != nil {
		return err
	}

	for _, name := range strategyNames {
		if err := sim.LoadStrategy(name, strategyConfig); err != nil {
			return err
		}
	}

	var bar *progressbar.ProgressBar

	onRunStart := baseengine.OnRunStartCallback(func(runID, strategyName string, universe []string, totalTicks int) error {
		fmt.Printf("run %s: strategy %s over %d symbols, %d ticks\n", runID, strategyName, len(universe), totalTicks)
		bar = progressbar.Default(int64(totalTicks))

		return nil
	})
	onTick := baseengine.OnTickCallback(func(current, total int) error {
		if bar != nil {
			_ = bar.Set(current)
		}

		return nil
	})
	onRunEnd := baseengine.OnRunEndCallback(func(runID string, result types.RunResult) {
		if bar != nil {
			_ = bar.Finish()

			bar = nil
		}

		fmt.Printf("run %s: %s (final equity %.2f, %d trades)\n",
			runID, result.Status, result.FinalEquity, result.TradeCount)

		if result.Error != "" {
			fmt.Printf("run %s: %s\n", runID, result.Error)
		}
	})

	results, err := sim.Run(ctx, baseengine.LifecycleCallbacks{
		OnRunStart: &onRunStart,
		OnTick:     &onTick,
		OnRunEnd:   &onRunEnd,
	})
	if err != nil {
		return err
	}

	completed, failed := 0, 0

	for _, result := range results {
		if result.Status == types.RunStatusCompleted {
			completed++
		} else {
			failed++
		}
	}

	fmt.Printf("%d completed, %d failed, records in %s\n", completed, failed, resultsFolder)

	if failed > 0 {
		return fmt.Errorf("%d of %d runs failed", failed, len(results))
	}

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "replay",
		Usage: "Replay historical market data and calendar events through strategies",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "config",
				Aliases:  []string{"c"},
				Usage:    "Path to the simulation configuration YAML",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "data",
				Aliases: []string{"d"},
				Usage:   "Directory containing <SYMBOL>_<TIMEFRAME>.parquet files",
				Value:   "data",
			},
			&cli.StringFlag{
				Name:    "events",
				Aliases: []string{"e"},
				Usage:   "Path to the economic calendar SQLite database",
				Value:   "events.db",
			},
			&cli.StringFlag{
				Name:    "results",
				Aliases: []string{"r"},
				Usage:   "Directory run records are written to",
				Value:   "results",
			},
			&cli.StringSliceFlag{
				Name:    "strategy",
				Aliases: []string{"s"},
				Usage:   "Strategy name to run; repeat to run several",
				Value:   []string{"news-momentum"},
			},
			&cli.StringFlag{
				Name:  "strategy-config",
				Usage: "Path to a strategy configuration YAML applied to every strategy",
			},
		},
		Action: replayAction,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
