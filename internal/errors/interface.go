package errors

// ErrorCode identifies a class of failure. Codes are stable strings so they
// can be logged, compared, and mapped to recovery behavior.
type ErrorCode string

// Error is a domain error carrying a code and an optional wrapped cause.
type Error interface {
	error
	Code() ErrorCode
	WithMessage(msg string) Error
	Unwrap() error
}

// Factory creates domain errors.
type Factory interface {
	New(code ErrorCode) Error
	Wrap(code ErrorCode, err error) Error
	WithMessage(code ErrorCode, msg string) Error
}
