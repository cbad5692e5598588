package types

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type ResultTestSuite struct {
	suite.Suite
}

func TestResultSuite(t *testing.T) {
	suite.Run(t, new(ResultTestSuite))
}

func (suite *ResultTestSuite) TestWriteAndReadRunRecord() {
	dir := suite.T().TempDir()
	path := filepath.Join(dir, "run.yaml")

	failedAt := time.Date(2023, 6, 15, 10, 0, 0, 0, time.UTC)
	failedTick := 50

	record := RunRecord{
		Result: RunResult{
			RunID:         "run-1",
			Strategy:      "news-momentum",
			Status:        RunStatusFailed,
			InitialEquity: 10000,
			FinalEquity:   10050,
			TotalReturn:   0.005,
			TradeCount:    3,
			Error:         "strategy tick failed",
			FailedAt:      &failedAt,
			FailedTick:    &failedTick,
		},
		CreatedAt:      time.Date(2023, 6, 16, 0, 0, 0, 0, time.UTC),
		ConfigSnapshot: "initial_capital: 10000\n",
		Universe:       []string{"EURUSD", "GBPUSD"},
		EquityCurve: []EquityPoint{
			{Time: failedAt.Add(-time.Hour), Equity: 10000},
			{Time: failedAt, Equity: 10050},
		},
		MetricsError: "analytics unavailable",
	}

	suite.NoError(WriteRunRecord(path, record))

	loaded, err := ReadRunRecord(path)
	suite.NoError(err)
	suite.Equal(record.Result.RunID, loaded.Result.RunID)
	suite.Equal(RunStatusFailed, loaded.Result.Status)
	suite.Equal(record.Result.Error, loaded.Result.Error)
	suite.NotNil(loaded.Result.FailedAt)
	suite.True(failedAt.Equal(*loaded.Result.FailedAt))
	suite.NotNil(loaded.Result.FailedTick)
	suite.Equal(50, *loaded.Result.FailedTick)
	suite.Equal(record.Universe, loaded.Universe)
	suite.Len(loaded.EquityCurve, 2)
	suite.Equal("analytics unavailable", loaded.MetricsError)
}

func (suite *ResultTestSuite) TestReadRunRecordMissingFile() {
	_, err := ReadRunRecord(filepath.Join(suite.T().TempDir(), "absent.yaml"))
	suite.Error(err)
}

func (suite *ResultTestSuite) TestCompletedResultOmitsFailureFields() {
	dir := suite.T().TempDir()
	path := filepath.Join(dir, "run.yaml")

	record := RunRecord{
		Result: RunResult{
			RunID:         "run-2",
			Strategy:      "news-momentum",
			Status:        RunStatusCompleted,
			InitialEquity: 10000,
			FinalEquity:   10100,
			TotalReturn:   0.01,
		},
		CreatedAt: time.Now().UTC(),
		Universe:  []string{"EURUSD"},
		Metrics:   map[string]float64{"max_drawdown": 0.002},
	}

	suite.NoError(WriteRunRecord(path, record))

	loaded, err := ReadRunRecord(path)
	suite.NoError(err)
	suite.Equal(RunStatusCompleted, loaded.Result.Status)
	suite.Nil(loaded.Result.FailedAt)
	suite.Nil(loaded.Result.FailedTick)
	suite.Empty(loaded.Result.Error)
	suite.Equal(0.002, loaded.Metrics["max_drawdown"])
}
