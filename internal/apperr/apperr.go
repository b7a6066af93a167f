// Package apperr defines the error taxonomy shared by the validator, the
// transport client and the job poller.
package apperr

import (
	"errors"
	"fmt"
)

// Kind tags an Error. Callers switch on KindOf(err) instead of matching
// message text.
type Kind int

const (
	KindUnknown Kind = iota
	// KindValidation: the request was rejected locally and never sent.
	KindValidation
	// KindNetwork: the service could not be reached (refused, DNS, timeout).
	KindNetwork
	// KindHTTP: the service answered with a non-2xx status.
	KindHTTP
	// KindJobNotFound: the service has no record of the job id.
	KindJobNotFound
	// KindGenerationFailed: the service accepted the job and later marked it errored.
	KindGenerationFailed
	// KindDecode: the service answered 2xx with a body that could not be decoded.
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNetwork:
		return "network"
	case KindHTTP:
		return "http"
	case KindJobNotFound:
		return "job_not_found"
	case KindGenerationFailed:
		return "generation_failed"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is. Any *Error of the same kind matches.
var (
	ErrValidation       = &Error{Kind: KindValidation}
	ErrNetwork          = &Error{Kind: KindNetwork}
	ErrHTTP             = &Error{Kind: KindHTTP}
	ErrJobNotFound      = &Error{Kind: KindJobNotFound}
	ErrGenerationFailed = &Error{Kind: KindGenerationFailed}
	ErrDecode           = &Error{Kind: KindDecode}
)

// Error is the single error type returned across package boundaries.
// Status is set only for KindHTTP.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	JobID   string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	switch {
	case e.Kind == KindHTTP:
		msg = fmt.Sprintf("http %d: %s", e.Status, msg)
	case e.JobID != "":
		msg = fmt.Sprintf("%s (job %s)", msg, e.JobID)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same Kind, so the package sentinels work
// with errors.Is regardless of message or cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Validation builds a KindValidation error.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Network wraps a transport-level failure.
func Network(err error) *Error {
	return &Error{Kind: KindNetwork, Message: "service unreachable", Err: err}
}

// HTTP builds a non-2xx error carrying the server's message.
func HTTP(status int, message string) *Error {
	return &Error{Kind: KindHTTP, Status: status, Message: message}
}

// Decode wraps a body decoding failure on an otherwise successful response.
func Decode(err error) *Error {
	return &Error{Kind: KindDecode, Message: "malformed service response", Err: err}
}

// JobNotFound reports a job id the server does not know.
func JobNotFound(jobID string) *Error {
	return &Error{Kind: KindJobNotFound, Message: "job not found", JobID: jobID}
}

// GenerationFailed reports a job the server marked as errored.
func GenerationFailed(jobID string) *Error {
	return &Error{Kind: KindGenerationFailed, Message: "generation failed", JobID: jobID}
}
