package trackengine

import "fmt"

// ErrorKind classifies a control-plane failure so callers can branch on it
// without parsing the message.
type ErrorKind string

const (
	ErrNotInitialized    ErrorKind = "not_initialized"
	ErrInvalidArgument   ErrorKind = "invalid_argument"
	ErrInvalidState      ErrorKind = "invalid_state"
	ErrTrackNotFound     ErrorKind = "track_not_found"
	ErrTrackLimitReached ErrorKind = "track_limit_reached"
	ErrUnsupportedFormat ErrorKind = "unsupported_format"
	ErrDecoderOpenFailed ErrorKind = "decoder_open_failed"
	ErrSeekFailed        ErrorKind = "seek_failed"
	ErrStreamError       ErrorKind = "stream_error"
	ErrRecordingFailed   ErrorKind = "recording_failed"
	ErrExtractionFailed  ErrorKind = "extraction_failed"
	ErrPermissionDenied  ErrorKind = "permission_denied"
)

// Error is the concrete error type returned by every control-plane
// operation. It carries the kind so callers can switch on it, and an
// optional wrapped cause for diagnostics.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func newError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the ErrorKind from err, or "" if err is not one of ours.
func KindOf(err error) ErrorKind {
	var e *Error
	if as(err, &e) {
		return e.Kind
	}
	return ""
}

func as(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// ErrorHandler receives every control-plane failure synchronously, on the
// control thread that triggered it. Implementations must not retain the
// engine or block for long — the caller is waiting on the same goroutine.
type ErrorHandler interface {
	HandleError(*Error)
}

// ErrorHandlerFunc adapts a plain function to ErrorHandler.
type ErrorHandlerFunc func(*Error)

func (f ErrorHandlerFunc) HandleError(err *Error) { f(err) }

// LoggingErrorHandler wraps another handler and additionally logs every
// error before forwarding it.
type LoggingErrorHandler struct {
	underlying ErrorHandler
	logger     func(*Error)
}

// NewLoggingErrorHandler creates a handler that logs then forwards to underlying.
func NewLoggingErrorHandler(underlying ErrorHandler, logger func(*Error)) *LoggingErrorHandler {
	return &LoggingErrorHandler{underlying: underlying, logger: logger}
}

func (h *LoggingErrorHandler) HandleError(err *Error) {
	if h.logger != nil {
		h.logger(err)
	}
	if h.underlying != nil {
		h.underlying.HandleError(err)
	}
}
