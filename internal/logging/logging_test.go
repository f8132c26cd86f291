package logging

import (
	"log/slog"
	"testing"
)

func TestForFormat(t *testing.T) {
	t.Parallel()

	if _, ok := ForFormat("json", "info").Handler().(*slog.JSONHandler); !ok {
		t.Error("format json must select the JSON handler")
	}
	if _, ok := ForFormat("JSON", "info").Handler().(*slog.JSONHandler); !ok {
		t.Error("format matching is case-insensitive")
	}
	if _, ok := ForFormat("text", "info").Handler().(*slog.TextHandler); !ok {
		t.Error("format text must select the text handler")
	}
	if _, ok := ForFormat("", "info").Handler().(*slog.TextHandler); !ok {
		t.Error("empty format defaults to text")
	}
}

func TestLevelFromString(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want slog.Level
	}{
		{"error", slog.LevelError},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"INFO", slog.LevelInfo},
		{" info ", slog.LevelInfo},
		{"", slog.LevelDebug},
		{"garbage", slog.LevelDebug},
	}
	for _, tc := range cases {
		if got := levelFromString(tc.in); got != tc.want {
			t.Errorf("levelFromString(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
