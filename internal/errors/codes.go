package errors

// Error codes
const (
	// Startup errors
	ErrAlreadyRunning ErrorCode = "already_running"
	ErrBindFlags      ErrorCode = "bind_flags_failed"
	ErrPIDFile        ErrorCode = "pid_file_failed"

	// Connection errors
	ErrConnect     ErrorCode = "connect_failed"
	ErrWrite       ErrorCode = "write_failed"
	ErrReadTimeout ErrorCode = "read_timeout"
	ErrRead        ErrorCode = "read_failed"
	ErrDisconnect  ErrorCode = "disconnect_failed"
)

// Error messages
var errorMessages = map[ErrorCode]string{
	ErrAlreadyRunning: "another instance is already running",
	ErrBindFlags:      "failed to parse command line flags",
	ErrPIDFile:        "failed to manage pid file",
	ErrConnect:        "failed to connect",
	ErrWrite:          "failed to send command",
	ErrReadTimeout:    "no response received within timeout",
	ErrRead:           "failed to read response",
	ErrDisconnect:     "failed to close connection",
}

// GetErrorMessage returns the predefined message for an error code
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}

	return "unknown error"
}
