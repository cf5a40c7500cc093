// Package perr defines the pipeline's error taxonomy (spec §7): each kind
// controls how the orchestrator reacts, from "skip the item and log" to
// "abort the tick". Mirrors the teacher's sentinel-error style in
// internal/storage/sqlite/errors.go, generalized across phases instead of
// just the storage layer.
package perr

import "errors"

// Kind identifies one of the six error categories from spec §7.
type Kind string

const (
	KindTransientUpstream Kind = "transient_upstream"
	KindParse             Kind = "parse_error"
	KindStorage           Kind = "storage_error"
	KindValidation        Kind = "validation_error"
	KindNotFound          Kind = "not_found"
	KindAuth              Kind = "auth_error"
)

// Error is a typed pipeline error carrying its §7 kind alongside the cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op + ": " + string(e.Kind)
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err as the given kind, tagged with op for logging.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// IsStorage reports whether err is (or wraps) a StorageError -- the only kind
// that aborts a phase rather than skipping the offending item.
func IsStorage(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == KindStorage
	}
	return false
}

// IsKind reports whether err is (or wraps) a perr.Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
