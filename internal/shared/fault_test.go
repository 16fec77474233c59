package shared

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestFault(t *testing.T) {
	t.Run("matches kind sentinel", func(t *testing.T) {
		tc := []struct {
			kind     FaultKind
			sentinel error
			status   int
		}{
			{FaultAuthorization, ErrNotAuthenticated, http.StatusUnauthorized},
			{FaultValidation, ErrInvalidInput, http.StatusBadRequest},
			{FaultCompleteness, ErrIncomplete, http.StatusConflict},
			{FaultRemoteCall, ErrAPIRequest, http.StatusBadGateway},
			{FaultUnsupported, ErrNotImplemented, http.StatusNotImplemented},
		}

		for _, tt := range tc {
			t.Run(tt.kind.String(), func(t *testing.T) {
				err := fmt.Errorf("outer: %w", NewFault(tt.kind, "op", errors.New("boom")))
				if !errors.Is(err, tt.sentinel) {
					t.Errorf("expected %v to match %v", err, tt.sentinel)
				}
				if KindOf(err) != tt.kind {
					t.Errorf("expected kind %v, got %v", tt.kind, KindOf(err))
				}
				if HTTPStatus(err) != tt.status {
					t.Errorf("expected status %d, got %d", tt.status, HTTPStatus(err))
				}
			})
		}
	})

	t.Run("unwraps cause", func(t *testing.T) {
		cause := errors.New("quota exceeded")
		f := NewFault(FaultRemoteCall, "playlistItems.insert", cause)
		f.Index = 2

		if !errors.Is(f, cause) {
			t.Error("expected cause to be reachable")
		}
		msg := f.Error()
		if !strings.Contains(msg, "remote_call") || !strings.Contains(msg, "item 2") || !strings.Contains(msg, "quota exceeded") {
			t.Errorf("unexpected message %q", msg)
		}
	})

	t.Run("Faultf honors wrapping verbs", func(t *testing.T) {
		f := Faultf(FaultValidation, "sort", "%w: sort_by", ErrMissingArgument)
		if !errors.Is(f, ErrMissingArgument) || !errors.Is(f, ErrInvalidInput) {
			t.Errorf("expected both sentinels to match, got %v", f)
		}
	})

	t.Run("kind predicates", func(t *testing.T) {
		if !FaultRemoteCall.Retryable() || !FaultCompleteness.Retryable() || FaultValidation.Retryable() {
			t.Error("unexpected Retryable")
		}
		if !FaultUnsupported.NeedsInput() || FaultAuthorization.NeedsInput() {
			t.Error("unexpected NeedsInput")
		}
		if !FaultAuthorization.NeedsAuth() {
			t.Error("expected authorization to need auth")
		}
	})

	t.Run("plain errors", func(t *testing.T) {
		err := errors.New("plain")
		if KindOf(err) != FaultUnknown {
			t.Error("expected unknown kind")
		}
		if HTTPStatus(err) != http.StatusInternalServerError {
			t.Error("expected 500")
		}
		if _, ok := AsFault(err); ok {
			t.Error("expected no fault")
		}
	})
}
