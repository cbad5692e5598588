package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ErrorTestSuite struct {
	suite.Suite
}

func TestErrorSuite(t *testing.T) {
	suite.Run(t, new(ErrorTestSuite))
}

func (suite *ErrorTestSuite) TestNewError() {
	err := New(ErrCodeConfiguration, "missing initial capital")
	suite.NotNil(err)
	suite.Equal(ErrCodeConfiguration, err.Code)
	suite.Equal("missing initial capital", err.Message)
	suite.Nil(err.Cause)
}

func (suite *ErrorTestSuite) TestNewfError() {
	err := Newf(ErrCodeDataNotFound, "no series for symbol %s", "EURUSD")
	suite.NotNil(err)
	suite.Equal(ErrCodeDataNotFound, err.Code)
	suite.Equal("no series for symbol EURUSD", err.Message)
	suite.Nil(err.Cause)
}

func (suite *ErrorTestSuite) TestWrapError() {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeQueryFailed, "failed to execute query", cause)
	suite.NotNil(err)
	suite.Equal(ErrCodeQueryFailed, err.Code)
	suite.Equal("failed to execute query", err.Message)
	suite.Equal(cause, err.Cause)
}

func (suite *ErrorTestSuite) TestWrapfError() {
	cause := errors.New("underlying error")
	err := Wrapf(ErrCodeDataEmpty, cause, "empty slice for %s %s", "EURUSD", "M30")
	suite.NotNil(err)
	suite.Equal(ErrCodeDataEmpty, err.Code)
	suite.Equal("empty slice for EURUSD M30", err.Message)
	suite.Equal(cause, err.Cause)
}

func (suite *ErrorTestSuite) TestErrorString() {
	err := New(ErrCodeConfiguration, "missing initial capital")
	suite.Equal("[100] missing initial capital", err.Error())
}

func (suite *ErrorTestSuite) TestErrorStringWithCause() {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeDataNotFound, "data not found", cause)
	suite.Equal("[200] data not found: underlying error", err.Error())
}

func (suite *ErrorTestSuite) TestUnwrap() {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeDataNotFound, "data not found", cause)
	suite.Equal(cause, err.Unwrap())
}

func (suite *ErrorTestSuite) TestUnwrapNil() {
	err := New(ErrCodeConfiguration, "missing parameter")
	suite.Nil(err.Unwrap())
}

func (suite *ErrorTestSuite) TestGetCode() {
	err := New(ErrCodeUniverseResolution, "no symbols determinable")
	suite.Equal(ErrCodeUniverseResolution, GetCode(err))
}

func (suite *ErrorTestSuite) TestGetCodeFromWrapped() {
	inner := New(ErrCodeSimulationRuntime, "strategy tick failed")
	outer := fmt.Errorf("run aborted: %w", inner)
	suite.Equal(ErrCodeSimulationRuntime, GetCode(outer))
}

func (suite *ErrorTestSuite) TestGetCodeNonStructured() {
	err := errors.New("plain error")
	suite.Equal(ErrCodeUnknown, GetCode(err))
}

func (suite *ErrorTestSuite) TestHasCode() {
	err := New(ErrCodeDataQualityRejected, "high below low")
	suite.True(HasCode(err, ErrCodeDataQualityRejected))
	suite.False(HasCode(err, ErrCodeDataNotFound))
}

func (suite *ErrorTestSuite) TestIsFatal() {
	suite.True(IsFatal(New(ErrCodeStrategyInit, "bad config")))
	suite.False(IsFatal(errors.New("plain error")))
}

func (suite *ErrorTestSuite) TestErrorsIsThroughChain() {
	cause := New(ErrCodeDataEmpty, "empty slice")
	wrapped := Wrap(ErrCodeSimulationRuntime, "run failed", cause)
	suite.True(Is(wrapped, cause))

	var target *Error
	suite.True(As(wrapped, &target))
	suite.Equal(ErrCodeSimulationRuntime, target.Code)
}
