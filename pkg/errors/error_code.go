package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Configuration errors (100-199)
	ErrCodeConfiguration    ErrorCode = 100
	ErrCodeInvalidParameter ErrorCode = 101
	ErrCodeMissingParameter ErrorCode = 102

	// Data errors (200-299)
	ErrCodeDataNotFound        ErrorCode = 200
	ErrCodeDataEmpty           ErrorCode = 201
	ErrCodeDataQualityRejected ErrorCode = 202
	ErrCodeQueryFailed         ErrorCode = 203
	ErrCodeEventStoreFailed    ErrorCode = 204

	// Universe errors (300-399)
	ErrCodeUniverseResolution ErrorCode = 300

	// Strategy errors (400-499)
	ErrCodeStrategyInit        ErrorCode = 400
	ErrCodeStrategyNotFound    ErrorCode = 401
	ErrCodeStrategyDuplicate   ErrorCode = 402
	ErrCodeStrategyConfigError ErrorCode = 403

	// Simulation errors (500-599)
	ErrCodeSimulationRuntime  ErrorCode = 500
	ErrCodeSimulationCanceled ErrorCode = 501
	ErrCodeCallbackFailed     ErrorCode = 502

	// Trading errors (600-699)
	ErrCodeOrderRejected     ErrorCode = 600
	ErrCodeInsufficientFunds ErrorCode = 601
	ErrCodeRiskRejected      ErrorCode = 602

	// Persistence errors (700-799)
	ErrCodeResultPersistence ErrorCode = 700
)
