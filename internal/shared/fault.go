package shared

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// FaultKind classifies pipeline failures so callers can choose between retrying,
// asking for corrected input, or re-authenticating.
type FaultKind int

const (
	FaultUnknown FaultKind = iota
	FaultAuthorization
	FaultValidation
	FaultCompleteness
	FaultRemoteCall
	FaultUnsupported
)

func (k FaultKind) String() string {
	switch k {
	case FaultAuthorization:
		return "authorization"
	case FaultValidation:
		return "validation"
	case FaultCompleteness:
		return "completeness"
	case FaultRemoteCall:
		return "remote_call"
	case FaultUnsupported:
		return "unsupported_operation"
	default:
		return "unknown"
	}
}

func (k FaultKind) sentinel() error {
	switch k {
	case FaultAuthorization:
		return ErrNotAuthenticated
	case FaultValidation:
		return ErrInvalidInput
	case FaultCompleteness:
		return ErrIncomplete
	case FaultRemoteCall:
		return ErrAPIRequest
	case FaultUnsupported:
		return ErrNotImplemented
	default:
		return nil
	}
}

// Retryable reports whether repeating the same request may succeed.
func (k FaultKind) Retryable() bool { return k == FaultRemoteCall || k == FaultCompleteness }

// NeedsInput reports whether the caller must change the request.
func (k FaultKind) NeedsInput() bool { return k == FaultValidation || k == FaultUnsupported }

// NeedsAuth reports whether the caller must (re-)authenticate.
func (k FaultKind) NeedsAuth() bool { return k == FaultAuthorization }

// Fault is the structured outcome of a failed pipeline stage.
//
// Page and Index are 1-based and zero when they don't apply. Index names the insert
// that failed during materialization.
type Fault struct {
	Kind  FaultKind
	Op    string
	Page  int
	Index int
	Err   error
}

// NewFault wraps err in a [Fault] of the given kind.
func NewFault(kind FaultKind, op string, err error) *Fault {
	return &Fault{Kind: kind, Op: op, Err: err}
}

// Faultf builds a [Fault] whose cause is formatted with [fmt.Errorf], so %w is honored.
func Faultf(kind FaultKind, op, format string, args ...any) *Fault {
	return &Fault{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

func (f *Fault) Error() string {
	var b strings.Builder
	b.WriteString(f.Kind.String())
	if f.Op != "" {
		b.WriteString(" fault in ")
		b.WriteString(f.Op)
	}
	if f.Page > 0 {
		fmt.Fprintf(&b, " (page %d)", f.Page)
	}
	if f.Index > 0 {
		fmt.Fprintf(&b, " (item %d)", f.Index)
	}
	if f.Err != nil {
		b.WriteString(": ")
		b.WriteString(f.Err.Error())
	}
	return b.String()
}

func (f *Fault) Unwrap() error { return f.Err }

// Is matches the sentinel error associated with the fault's kind.
func (f *Fault) Is(target error) bool {
	s := f.Kind.sentinel()
	return s != nil && target == s
}

// AsFault extracts the first [Fault] in err's chain.
func AsFault(err error) (*Fault, bool) {
	var f *Fault
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// KindOf returns the kind of the first [Fault] in err's chain, or [FaultUnknown].
func KindOf(err error) FaultKind {
	if f, ok := AsFault(err); ok {
		return f.Kind
	}
	return FaultUnknown
}

// HTTPStatus maps an error to the status code the JSON API responds with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case FaultValidation:
		return http.StatusBadRequest
	case FaultAuthorization:
		return http.StatusUnauthorized
	case FaultCompleteness:
		return http.StatusConflict
	case FaultUnsupported:
		return http.StatusNotImplemented
	case FaultRemoteCall:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
