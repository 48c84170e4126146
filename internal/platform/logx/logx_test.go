package logx

import (
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Level
	}{
		{name: "debug", in: "debug", want: LevelDebug},
		{name: "dbg alias", in: "dbg", want: LevelDebug},
		{name: "info", in: "info", want: LevelInfo},
		{name: "empty defaults to info", in: "", want: LevelInfo},
		{name: "warn", in: "warn", want: LevelWarn},
		{name: "warning alias", in: "warning", want: LevelWarn},
		{name: "error", in: "error", want: LevelError},
		{name: "unknown defaults to info", in: "verbose", want: LevelInfo},
		{name: "case insensitive", in: "DEBUG", want: LevelDebug},
		{name: "trims whitespace", in: "  warn  ", want: LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseLevel(tt.in); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestKVPairs(t *testing.T) {
	t.Run("even pairs", func(t *testing.T) {
		got := kvPairs("a", 1, "b", "x")
		if len(got) != 2 || got[0] != "a=1" || got[1] != "b=x" {
			t.Errorf("unexpected pairs: %v", got)
		}
	})

	t.Run("odd pairs get placeholder", func(t *testing.T) {
		got := kvPairs("a")
		if len(got) != 1 || got[0] != "a=(missing)" {
			t.Errorf("unexpected pairs: %v", got)
		}
	})
}

func TestWithScopesLogger(t *testing.T) {
	base := NewSilent()
	scoped := base.With("component", "scheduler")
	if scoped == nil {
		t.Fatal("With returned nil logger")
	}
	// Err with nil must be a no-op and must not panic.
	scoped.Err(nil)
}
