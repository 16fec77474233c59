package shared

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestFormatDuration(t *testing.T) {
	tc := []struct {
		name    string
		seconds int
		want    string
	}{
		{name: "zero", seconds: 0, want: "0:00"},
		{name: "negative", seconds: -5, want: "0:00"},
		{name: "under a minute", seconds: 9, want: "0:09"},
		{name: "minutes", seconds: 253, want: "4:13"},
		{name: "hours", seconds: 3723, want: "1:02:03"},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatDuration(tt.seconds); got != tt.want {
				t.Errorf("FormatDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseISODuration(t *testing.T) {
	t.Run("parses minutes and seconds", func(t *testing.T) {
		got, err := ParseISODuration("PT4M13S")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != 253 {
			t.Errorf("expected 253, got %d", got)
		}
	})

	t.Run("parses hours", func(t *testing.T) {
		got, err := ParseISODuration("PT1H0M1S")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != 3601 {
			t.Errorf("expected 3601, got %d", got)
		}
	})

	t.Run("empty is zero", func(t *testing.T) {
		if got, err := ParseISODuration(""); err != nil || got != 0 {
			t.Errorf("expected 0 and no error, got %d %v", got, err)
		}
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := ParseISODuration("four minutes")
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestTruncate(t *testing.T) {
	if got := Truncate("héllo world", 5); got != "héll…" {
		t.Errorf("unexpected truncation %q", got)
	}
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("unexpected truncation %q", got)
	}
	if got := Truncate("abc", 1); got != "…" {
		t.Errorf("unexpected truncation %q", got)
	}
}

func TestLogger(t *testing.T) {
	t.Run("NewLogger writes key values", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf)
		WithLogger(logger, "playlist", "PL1").Info("fetched")

		out := buf.String()
		if !strings.Contains(out, "fetched") || !strings.Contains(out, "playlist=PL1") {
			t.Errorf("unexpected log output %q", out)
		}
	})

	t.Run("ParseLogLevel", func(t *testing.T) {
		if ParseLogLevel("DEBUG") != log.DebugLevel {
			t.Error("expected debug level")
		}
		if ParseLogLevel("nonsense") != log.InfoLevel {
			t.Error("expected info fallback")
		}
	})

	t.Run("NewFileLogger creates directories", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "ytsort.log")
		logger, err := NewFileLogger(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		SetLogLevel(logger, log.WarnLevel)
		if logger.GetLevel() != log.WarnLevel {
			t.Error("expected warn level")
		}
	})
}

func TestGenerateState(t *testing.T) {
	a, err := GenerateState()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, _ := GenerateState()
	if a == "" || a == b {
		t.Errorf("expected unique non-empty states, got %q and %q", a, b)
	}
	if GenerateID() == GenerateID() {
		t.Error("expected unique ids")
	}
}

func TestOpenBrowser(t *testing.T) {
	orig := openURL
	defer func() { openURL = orig }()

	t.Run("passes url through", func(t *testing.T) {
		var got string
		openURL = func(u string) error { got = u; return nil }

		if err := OpenBrowser("https://example.com"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "https://example.com" {
			t.Errorf("expected url to be opened, got %q", got)
		}
	})

	t.Run("wraps failure", func(t *testing.T) {
		openURL = func(string) error { return errors.New("no display") }

		err := OpenBrowser("https://example.com")
		if err == nil || !strings.Contains(err.Error(), "failed to open browser") {
			t.Errorf("expected wrapped error, got %v", err)
		}
	})
}
