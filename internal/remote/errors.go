package remote

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed remote call. Only network and server
// failures are worth retrying; the rest need a different fix (new
// credentials, a corrected payload, operator attention).
type ErrorKind string

const (
	KindNetwork    ErrorKind = "network"
	KindAuth       ErrorKind = "auth"
	KindValidation ErrorKind = "validation"
	KindServer     ErrorKind = "server"
	KindConflict   ErrorKind = "conflict"
	KindUnknown    ErrorKind = "unknown"
)

// Error is the discriminated failure result of any remote call. Status
// is zero when the request never reached the remote store.
type Error struct {
	Kind    ErrorKind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("remote %s error (status %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("remote %s error: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether repeating the same call can succeed.
func (e *Error) Retryable() bool {
	return e.Kind == KindNetwork || e.Kind == KindServer
}

func classifyStatus(status int) ErrorKind {
	switch {
	case status == 401 || status == 403:
		return KindAuth
	case status == 409:
		return KindConflict
	case status == 400 || status == 404 || status == 422:
		return KindValidation
	case status >= 500:
		return KindServer
	default:
		return KindUnknown
	}
}

func networkError(err error) *Error {
	return &Error{Kind: KindNetwork, Message: err.Error(), Err: err}
}

// Kind extracts the classification from any error, KindUnknown when the
// error did not come from the client.
func Kind(err error) ErrorKind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindUnknown
}
