package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidOrder         ErrorCode = 102
	ErrCodeInvalidBar           ErrorCode = 103
	ErrCodeInvalidPeriod        ErrorCode = 104
	ErrCodeInsufficientData     ErrorCode = 105
	ErrCodeDataValidation       ErrorCode = 106

	// Data/Resource errors (200-299)
	ErrCodeDataNotFound      ErrorCode = 200
	ErrCodeMarketDataUnavail ErrorCode = 201
	ErrCodeQueryFailed       ErrorCode = 202

	// Indicator errors (300-399)
	ErrCodeIndicatorCalculation ErrorCode = 300
	ErrCodeAllValuesUndefined   ErrorCode = 301

	// Engine errors (400-499)
	ErrCodeEngineInitFailed ErrorCode = 400
	ErrCodeEngineNotRunning ErrorCode = 401

	// Trading errors (500-599)
	ErrCodeOrderFailed       ErrorCode = 500
	ErrCodePositionNotFound  ErrorCode = 501
	ErrCodeBrokerUnavailable ErrorCode = 502

	// Journal errors (600-699)
	ErrCodeJournalInitFailed  ErrorCode = 600
	ErrCodeJournalWriteFailed ErrorCode = 601
)
