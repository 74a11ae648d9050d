package engine

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/coffersTech/logdash/internal/model"
)

func levels(ls ...model.Level) []model.LogRecord {
	out := make([]model.LogRecord, len(ls))
	for i, l := range ls {
		out[i] = rec(i+1, l, "m")
	}
	return out
}

func TestCountsByLevel(t *testing.T) {
	records := levels(
		model.LevelDebug, model.LevelInfo, model.LevelError,
		model.LevelDebug, model.LevelInfo, model.LevelDebug,
		model.LevelWarn, model.LevelInfo, model.LevelError,
	)

	want := LevelCounts{
		model.LevelError: 2,
		model.LevelWarn:  1,
		model.LevelInfo:  3,
		model.LevelDebug: 3,
	}
	if diff := cmp.Diff(want, CountsByLevel(records)); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestCountsByLevelEmpty(t *testing.T) {
	got := CountsByLevel(nil)
	want := LevelCounts{model.LevelError: 0, model.LevelWarn: 0, model.LevelInfo: 0, model.LevelDebug: 0}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestCountsIgnoreView(t *testing.T) {
	c := NewCollection("a.log", levels(model.LevelError, model.LevelInfo, model.LevelInfo))
	if _, err := ComputeView(c.Records(), NewViewState().WithLevel(model.LevelError)); err != nil {
		t.Fatal(err)
	}
	if got := c.Counts()[model.LevelInfo]; got != 2 {
		t.Errorf("INFO count = %d, want 2", got)
	}
}

func TestSystemHealth(t *testing.T) {
	tests := []struct {
		name   string
		counts LevelCounts
		want   int
	}{
		{"empty", CountsByLevel(nil), 100},
		{"no errors", LevelCounts{model.LevelInfo: 4}, 100},
		{"two of nine", CountsByLevel(levels(
			model.LevelError, model.LevelError, model.LevelWarn,
			model.LevelInfo, model.LevelInfo, model.LevelInfo,
			model.LevelDebug, model.LevelDebug, model.LevelDebug)), 78},
		{"all errors", LevelCounts{model.LevelError: 3}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SystemHealth(tt.counts); got != tt.want {
				t.Errorf("SystemHealth = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	prev := NewCollection("a.log", levels(model.LevelError, model.LevelWarn, model.LevelWarn))
	cur := NewCollection("b.log", levels(model.LevelError, model.LevelError, model.LevelError, model.LevelInfo))

	s := Summarize(cur, prev)
	if s.Total != 4 || s.SystemHealth != 25 {
		t.Errorf("total=%d health=%d", s.Total, s.SystemHealth)
	}

	want := []StatCard{
		{Label: "Total Errors", Value: "3", Trend: "↑ 2 from previous upload", TrendDirection: TrendUp},
		{Label: "Warnings", Value: "0", Trend: "↓ 2 from previous upload", TrendDirection: TrendDown},
		{Label: "Total Logs", Value: "4", Trend: "3 in previous upload", TrendDirection: TrendNeutral},
		{Label: "System Health", Value: "25%", Trend: "Needs attention", TrendDirection: TrendDown},
	}
	if diff := cmp.Diff(want, s.Cards); diff != "" {
		t.Errorf("cards (-want +got):\n%s", diff)
	}
}

func TestSummarizeWithoutPrevious(t *testing.T) {
	s := Summarize(nil, nil)
	if s.Total != 0 || s.SystemHealth != 100 {
		t.Errorf("total=%d health=%d", s.Total, s.SystemHealth)
	}
	if s.Cards[0].Trend != "No previous upload" || s.Cards[3].TrendDirection != TrendUp {
		t.Errorf("unexpected cards: %+v", s.Cards)
	}
}
