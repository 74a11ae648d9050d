package model

import "testing"

func TestNormalizeLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"ERROR", LevelError},
		{"error", LevelError},
		{"Err", LevelError},
		{" warn ", LevelWarn},
		{"WARNING", LevelWarn},
		{"info", LevelInfo},
		{"DEBUG", LevelDebug},
		{"trace", Level("TRACE")},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := NormalizeLevel(tt.in); got != tt.want {
				t.Errorf("NormalizeLevel(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	if l, ok := ParseLevel("warning"); !ok || l != LevelWarn {
		t.Errorf("ParseLevel(warning) = %q, %v", l, ok)
	}
	if _, ok := ParseLevel("FATAL"); ok {
		t.Error("FATAL should not be a known level")
	}
}

func TestRank(t *testing.T) {
	if !(LevelError.Rank() > LevelWarn.Rank() &&
		LevelWarn.Rank() > LevelInfo.Rank() &&
		LevelInfo.Rank() > LevelDebug.Rank() &&
		LevelDebug.Rank() > Level("TRACE").Rank()) {
		t.Error("ranks are not strictly descending by severity")
	}
	if LevelError.Rank() != 4 || LevelDebug.Rank() != 1 {
		t.Errorf("unexpected rank values: ERROR=%d DEBUG=%d", LevelError.Rank(), LevelDebug.Rank())
	}
}
