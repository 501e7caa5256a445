package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Availability errors (retryable)
const (
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrCodeConnectionFailed   ErrorCode = "CONNECTION_FAILED"
	ErrCodeTimeout            ErrorCode = "TIMEOUT"
	ErrCodeRateLimited        ErrorCode = "RATE_LIMITED"
)

// Resource and input errors
const (
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeConflict     ErrorCode = "CONFLICT"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// Topology and replication errors
const (
	// ErrCodeConfigRead means configuration could not be read or converted.
	ErrCodeConfigRead ErrorCode = "CONFIG_READ_ERROR"
	// ErrCodePeerConstruction means a replication client for a peer could not be built.
	ErrCodePeerConstruction ErrorCode = "PEER_CONSTRUCTION_FAILED"
	// ErrCodeReplicationFailed means a mutation could not be pushed to a peer.
	ErrCodeReplicationFailed ErrorCode = "REPLICATION_FAILED"
)

// Internal errors
const (
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeServiceUnavailable: true,
	ErrCodeConnectionFailed:   true,
	ErrCodeTimeout:            true,
	ErrCodeRateLimited:        true,
	ErrCodeReplicationFailed:  true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
