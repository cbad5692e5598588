package types

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/woxinfeixang/strategic-space-sub001/pkg/errors"
)

// RunStatus is the terminal status of a simulation run.
type RunStatus string

const (
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// RunResult is the canonical terminal record of one run. Exactly one
// RunResult is produced per run, at the engine's single exit point,
// whether the run completed or failed at any stage.
type RunResult struct {
	// RunID is the unique identifier for this run.
	RunID string `yaml:"run_id"`
	// Strategy is the registered name of the strategy that ran.
	Strategy string `yaml:"strategy"`
	// Status is completed or failed.
	Status RunStatus `yaml:"status"`
	// InitialEquity is the configured starting capital.
	InitialEquity float64 `yaml:"initial_equity"`
	// FinalEquity is the last sampled equity (or the initial capital if
	// the run failed before the first sample).
	FinalEquity float64 `yaml:"final_equity"`
	// TotalReturn is (final - initial) / initial, or 0 when initial is 0.
	TotalReturn float64 `yaml:"total_return"`
	// TradeCount is the number of executed trades.
	TradeCount int `yaml:"trade_count"`
	// Error describes the failure. Empty for completed runs.
	Error string `yaml:"error,omitempty"`
	// FailedAt is the simulated timestamp at which the failure occurred,
	// when the failure happened inside the timestamp loop.
	FailedAt *time.Time `yaml:"failed_at,omitempty"`
	// FailedTick is the 1-based tick index of the failure, when known.
	FailedTick *int `yaml:"failed_tick,omitempty"`
}

// RunRecord is the persisted document for one run: the RunResult payload
// plus everything needed to inspect the run without logs.
type RunRecord struct {
	Result RunResult `yaml:"result"`
	// CreatedAt is the wall-clock time the record was produced.
	CreatedAt time.Time `yaml:"created_at"`
	// ConfigSnapshot is the engine configuration YAML the run used.
	ConfigSnapshot string `yaml:"config_snapshot"`
	// Universe is the resolved symbol set, sorted ascending.
	Universe []string `yaml:"universe"`
	// EquityCurve has one point per simulated timestamp processed.
	EquityCurve []EquityPoint `yaml:"equity_curve"`
	// Trades is the venue trade history collected before termination.
	Trades []Trade `yaml:"trades,omitempty"`
	// Metrics is the analytics collaborator output. Nil when unavailable.
	Metrics map[string]float64 `yaml:"metrics,omitempty"`
	// MetricsError labels why metrics are unavailable; a failing
	// analytics collaborator does not fail a completed run.
	MetricsError string `yaml:"metrics_error,omitempty"`
}

// WriteRunRecord writes the record to path as a YAML document.
func WriteRunRecord(path string, record RunRecord) error {
	data, err := yaml.Marshal(record)
	if err != nil {
		return errors.Wrap(errors.ErrCodeResultPersistence, "failed to marshal run record", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(errors.ErrCodeResultPersistence, "failed to write run record", err)
	}

	return nil
}

// ReadRunRecord reads a YAML run record from path.
func ReadRunRecord(path string) (RunRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RunRecord{}, errors.Wrap(errors.ErrCodeResultPersistence, "failed to read run record", err)
	}

	var record RunRecord
	if err := yaml.Unmarshal(data, &record); err != nil {
		return RunRecord{}, errors.Wrap(errors.ErrCodeResultPersistence, "failed to parse run record", err)
	}

	return record, nil
}
