package config

import (
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
	"gopkg.in/yaml.v3"

	"github.com/woxinfeixang/strategic-space-sub001/internal/risk"
	"github.com/woxinfeixang/strategic-space-sub001/internal/types"
	"github.com/woxinfeixang/strategic-space-sub001/pkg/errors"
)

const (
	// DefaultMaxGapMultiple tolerates known session gaps (weekends,
	// holidays) while still catching broken feeds. Deliberately
	// permissive; revisit per deployment rather than assuming policy.
	DefaultMaxGapMultiple = 100.0
	// DefaultMinRows is the row count below which a series only warns.
	DefaultMinRows = 50
)

// QualityConfig tunes the series quality gate.
type QualityConfig struct {
	// MaxGapMultiple is the fatal gap bound as a multiple of the
	// timeframe's expected bar interval.
	MaxGapMultiple float64 `yaml:"max_gap_multiple" json:"max_gap_multiple" jsonschema:"title=Max Gap Multiple,description=Fatal gap bound as a multiple of the expected bar interval,minimum=1" validate:"gte=1"`
	// MinRows is the non-fatal minimum row count.
	MinRows int `yaml:"min_rows" json:"min_rows" jsonschema:"title=Min Rows,description=Series shorter than this produce a warning,minimum=0" validate:"gte=0"`
}

// SimulationConfig is the engine configuration for one batch of runs.
type SimulationConfig struct {
	InitialCapital float64 `yaml:"initial_capital" json:"initial_capital" jsonschema:"title=Initial Capital,description=Starting capital for the simulation,minimum=0" validate:"required,gt=0"`
	// Currency is the account currency equity is reported in.
	Currency string `yaml:"currency" json:"currency" jsonschema:"title=Currency,description=Account currency"`
	// PrimaryTimeframe drives the simulation clock and the default
	// event-visibility window.
	PrimaryTimeframe types.Timeframe `yaml:"primary_timeframe" json:"primary_timeframe" jsonschema:"title=Primary Timeframe,description=Bar interval label driving the simulation clock (e.g. M30)" validate:"required"`
	// ExtraTimeframes are additionally loaded for every universe symbol.
	ExtraTimeframes []types.Timeframe `yaml:"extra_timeframes" json:"extra_timeframes" jsonschema:"title=Extra Timeframes"`
	// Symbols is the explicit universe. Optional; see the resolver's
	// priority order.
	Symbols []string `yaml:"symbols" json:"symbols" jsonschema:"title=Symbols,description=Explicit universe symbols"`
	// CurrencySymbolMap maps event currencies to tradable symbols for
	// universe inference. Keys are case-insensitive.
	CurrencySymbolMap map[string]string `yaml:"currency_symbol_map" json:"currency_symbol_map" jsonschema:"title=Currency Symbol Map"`
	// MinImportance filters calendar events below this importance.
	MinImportance int `yaml:"min_importance" json:"min_importance" jsonschema:"title=Min Importance,minimum=0" validate:"gte=0"`
	// LookbackBars extends each series slice this many bars before the
	// run start so strategies have warm-up history.
	LookbackBars int `yaml:"lookback_bars" json:"lookback_bars" jsonschema:"title=Lookback Bars,minimum=0" validate:"gte=0"`

	StartTime optional.Option[time.Time] `yaml:"start_time" json:"start_time" jsonschema:"title=Start Time"`
	EndTime   optional.Option[time.Time] `yaml:"end_time" json:"end_time" jsonschema:"title=End Time"`
	// EventWindow overrides the event-visibility window. Defaults to the
	// primary timeframe's duration when unset.
	EventWindow optional.Option[time.Duration] `yaml:"event_window" json:"event_window" jsonschema:"title=Event Window,description=Event recency window (e.g. 30m); defaults to the primary timeframe duration"`

	Quality QualityConfig `yaml:"quality" json:"quality" jsonschema:"title=Quality Gate"`
	Risk    risk.Config   `yaml:"risk" json:"risk" jsonschema:"title=Risk Gate"`
}

// UnmarshalYAML implements custom unmarshaling so optional fields and
// absent blocks pick up their defaults.
func (c *SimulationConfig) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type raw struct {
		InitialCapital    float64           `yaml:"initial_capital"`
		Currency          string            `yaml:"currency"`
		PrimaryTimeframe  types.Timeframe   `yaml:"primary_timeframe"`
		ExtraTimeframes   []types.Timeframe `yaml:"extra_timeframes"`
		Symbols           []string          `yaml:"symbols"`
		CurrencySymbolMap map[string]string `yaml:"currency_symbol_map"`
		MinImportance     int               `yaml:"min_importance"`
		LookbackBars      int               `yaml:"lookback_bars"`
		StartTime         *time.Time        `yaml:"start_time"`
		EndTime           *time.Time        `yaml:"end_time"`
		EventWindow       string            `yaml:"event_window"`
		Quality           *QualityConfig    `yaml:"quality"`
		Risk              *risk.Config      `yaml:"risk"`
	}

	var parsed raw
	if err := unmarshal(&parsed); err != nil {
		return err
	}

	c.InitialCapital = parsed.InitialCapital
	c.Currency = parsed.Currency
	c.PrimaryTimeframe = parsed.PrimaryTimeframe
	c.ExtraTimeframes = parsed.ExtraTimeframes
	c.Symbols = parsed.Symbols
	c.CurrencySymbolMap = parsed.CurrencySymbolMap
	c.MinImportance = parsed.MinImportance
	c.LookbackBars = parsed.LookbackBars

	if c.Currency == "" {
		c.Currency = "USD"
	}

	if parsed.StartTime != nil {
		c.StartTime = optional.Some(parsed.StartTime.UTC())
	}

	if parsed.EndTime != nil {
		c.EndTime = optional.Some(parsed.EndTime.UTC())
	}

	if parsed.EventWindow != "" {
		window, err := time.ParseDuration(parsed.EventWindow)
		if err != nil {
			return errors.Wrapf(errors.ErrCodeConfiguration, err, "invalid event_window %q", parsed.EventWindow)
		}

		c.EventWindow = optional.Some(window)
	}

	if parsed.Quality != nil {
		c.Quality = *parsed.Quality
	} else {
		c.Quality = QualityConfig{MaxGapMultiple: DefaultMaxGapMultiple, MinRows: DefaultMinRows}
	}

	if parsed.Risk != nil {
		c.Risk = *parsed.Risk
	} else {
		c.Risk = risk.DefaultConfig()
	}

	return nil
}

// Validate checks the configuration for structural and semantic errors.
func (c *SimulationConfig) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeConfiguration, "invalid simulation config", err)
	}

	if _, err := c.PrimaryTimeframe.Duration(); err != nil {
		return errors.Wrapf(errors.ErrCodeConfiguration, err, "invalid primary timeframe %q", c.PrimaryTimeframe)
	}

	for _, tf := range c.ExtraTimeframes {
		if _, err := tf.Duration(); err != nil {
			return errors.Wrapf(errors.ErrCodeConfiguration, err, "invalid extra timeframe %q", tf)
		}
	}

	if c.StartTime.IsSome() && c.EndTime.IsSome() && c.StartTime.Unwrap().After(c.EndTime.Unwrap()) {
		return errors.New(errors.ErrCodeConfiguration, "start_time is after end_time")
	}

	return nil
}

// ParseSimulationConfig parses and validates a config YAML document.
func ParseSimulationConfig(configYAML string) (SimulationConfig, error) {
	var config SimulationConfig
	if err := yaml.Unmarshal([]byte(configYAML), &config); err != nil {
		return SimulationConfig{}, errors.Wrap(errors.ErrCodeConfiguration, "failed to parse simulation config", err)
	}

	if err := config.Validate(); err != nil {
		return SimulationConfig{}, err
	}

	return config, nil
}

// EmptyConfig returns a zero-value config with defaults applied, useful
// before Initialize has run.
func EmptyConfig() SimulationConfig {
	return SimulationConfig{
		Currency: "USD",
		Quality:  QualityConfig{MaxGapMultiple: DefaultMaxGapMultiple, MinRows: DefaultMinRows},
		Risk:     risk.DefaultConfig(),
	}
}

// TestConfig returns a ready-to-run config for tests.
func TestConfig(start time.Time, end time.Time) SimulationConfig {
	config := EmptyConfig()
	config.InitialCapital = 10000
	config.PrimaryTimeframe = types.TimeframeM30
	config.StartTime = optional.Some(start.UTC())
	config.EndTime = optional.Some(end.UTC())

	return config
}

// GenerateSchema generates a JSON schema for the SimulationConfig.
func (c *SimulationConfig) GenerateSchema() (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t.String() == "optional.Option[time.Time]" {
				return &jsonschema.Schema{
					Type:   "string",
					Format: "date-time",
				}
			}
			if t.String() == "optional.Option[time.Duration]" {
				return &jsonschema.Schema{
					Type: "string",
				}
			}
			if strings.Contains(t.String(), "types.Timeframe") {
				return &jsonschema.Schema{
					Type: "string",
				}
			}

			return nil
		},
	}

	schema := reflector.Reflect(c)
	schema.Title = "simulation-config"
	schema.Description = "Configuration schema for the temporal simulation engine"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema, nil
}

// GenerateSchemaJSON returns the JSON schema as an indented JSON string.
func (c *SimulationConfig) GenerateSchemaJSON() (string, error) {
	schema, err := c.GenerateSchema()
	if err != nil {
		return "", err
	}

	data, err := schema.MarshalJSON()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeConfiguration, "failed to marshal config schema", err)
	}

	return string(data), nil
}
