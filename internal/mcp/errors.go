package mcp

import "fmt"

// ProtocolCode is the shared JSON-RPC error vocabulary used by every
// transport (§4.1).
type ProtocolCode string

const (
	CodeInvalidParams      ProtocolCode = "invalid_params"
	CodeSessionNotFound    ProtocolCode = "session_not_found"
	CodeServerShuttingDown ProtocolCode = "server_shutting_down"
	CodeMethodNotAllowed   ProtocolCode = "method_not_allowed"
	CodeInternalError      ProtocolCode = "internal_error"
)

// httpStatus maps each protocol code to the HTTP status the transport should
// return alongside the JSON-RPC error envelope.
var httpStatus = map[ProtocolCode]int{
	CodeInvalidParams:      400,
	CodeSessionNotFound:    404,
	CodeServerShuttingDown: 503,
	CodeMethodNotAllowed:   405,
	CodeInternalError:      500,
}

// ProtocolError is the shared error envelope returned to callers for
// transport-level failures. RequestID is nil for notifications.
type ProtocolError struct {
	Code      ProtocolCode
	Message   string
	RequestID any
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// HTTPStatus returns the HTTP status code this protocol error should be
// surfaced with.
func (e *ProtocolError) HTTPStatus() int {
	if s, ok := httpStatus[e.Code]; ok {
		return s
	}
	return 500
}

// NewProtocolError builds a [ProtocolError] carrying the original request id.
func NewProtocolError(code ProtocolCode, msg string, requestID any) *ProtocolError {
	return &ProtocolError{Code: code, Message: msg, RequestID: requestID}
}
