package config

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type MergeTestSuite struct {
	suite.Suite
}

func TestMergeSuite(t *testing.T) {
	suite.Run(t, new(MergeTestSuite))
}

func (suite *MergeTestSuite) TestEmptyInput() {
	suite.Empty(MergeLayers())
	suite.Empty(MergeLayers(nil, nil))
}

func (suite *MergeTestSuite) TestLaterLayerWins() {
	defaults := map[string]any{"trade_size": 100.0, "min_importance": 2}
	overrides := map[string]any{"trade_size": 250.0}

	merged := MergeLayers(defaults, overrides)

	suite.Equal(250.0, merged["trade_size"])
	suite.Equal(2, merged["min_importance"])
}

func (suite *MergeTestSuite) TestNestedMapsMergeRecursively() {
	defaults := map[string]any{
		"signals": map[string]any{
			"surprise_threshold": 0.1,
			"direction":          "both",
		},
	}
	fileLayer := map[string]any{
		"signals": map[string]any{
			"surprise_threshold": 0.25,
		},
	}
	runLayer := map[string]any{
		"signals": map[string]any{
			"direction": "long",
		},
	}

	merged := MergeLayers(defaults, fileLayer, runLayer)

	signals, ok := merged["signals"].(map[string]any)
	suite.True(ok)
	suite.Equal(0.25, signals["surprise_threshold"])
	suite.Equal("long", signals["direction"])
}

func (suite *MergeTestSuite) TestNonMapReplacesWholesale() {
	defaults := map[string]any{"timeframes": []string{"M30", "H1"}}
	overrides := map[string]any{"timeframes": []string{"H4"}}

	merged := MergeLayers(defaults, overrides)

	suite.Equal([]string{"H4"}, merged["timeframes"])
}

func (suite *MergeTestSuite) TestMapReplacesScalarAndViceVersa() {
	base := map[string]any{"risk": 0.5}
	layered := map[string]any{"risk": map[string]any{"max_fraction": 0.25}}

	merged := MergeLayers(base, layered)
	nested, ok := merged["risk"].(map[string]any)
	suite.True(ok)
	suite.Equal(0.25, nested["max_fraction"])

	backToScalar := MergeLayers(layered, base)
	suite.Equal(0.5, backToScalar["risk"])
}

func (suite *MergeTestSuite) TestInputsNotMutated() {
	defaults := map[string]any{
		"signals": map[string]any{"surprise_threshold": 0.1},
	}
	overrides := map[string]any{
		"signals": map[string]any{"surprise_threshold": 0.9},
	}

	_ = MergeLayers(defaults, overrides)

	inner := defaults["signals"].(map[string]any)
	suite.Equal(0.1, inner["surprise_threshold"])
}
