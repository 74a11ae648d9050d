package engine

import (
	"fmt"
	"math"

	"github.com/coffersTech/logdash/internal/model"
)

// LevelCounts maps a level to the number of records carrying it.
type LevelCounts map[model.Level]int

func (lc LevelCounts) clone() LevelCounts {
	out := make(LevelCounts, len(lc))
	for k, v := range lc {
		out[k] = v
	}
	return out
}

// Total sums every level, known or not.
func (lc LevelCounts) Total() int {
	n := 0
	for _, v := range lc {
		n += v
	}
	return n
}

// CountsByLevel counts exact log_level matches in one pass.
// The four known levels are always present, possibly with zero.
func CountsByLevel(records []model.LogRecord) LevelCounts {
	counts := make(LevelCounts, len(model.Levels))
	for _, l := range model.Levels {
		counts[l] = 0
	}
	for i := range records {
		counts[records[i].LogLevel]++
	}
	return counts
}

// Trend directions for stat cards.
const (
	TrendUp      = "up"
	TrendDown    = "down"
	TrendNeutral = "neutral"
)

// StatCard is one tile of the summary row.
type StatCard struct {
	Label          string `json:"label"`
	Value          string `json:"value"`
	Trend          string `json:"trend"`
	TrendDirection string `json:"trend_direction"`
}

// Summary is the stats payload for the dashboard header.
type Summary struct {
	Counts       LevelCounts `json:"counts"`
	Total        int         `json:"total"`
	SystemHealth int         `json:"system_health"`
	Cards        []StatCard  `json:"cards"`
}

// SystemHealth is the share of non-error records, in whole percent.
// An empty collection is 100% healthy.
func SystemHealth(counts LevelCounts) int {
	total := counts.Total()
	if total == 0 {
		return 100
	}
	return int(math.Round((1 - float64(counts[model.LevelError])/float64(total)) * 100))
}

// Summarize builds the stat cards for current, comparing against previous.
// previous may be nil, in which case no trend is shown.
func Summarize(current, previous *Collection) Summary {
	counts := current.Counts()
	total := current.Len()
	health := SystemHealth(counts)

	var prevCounts LevelCounts
	if previous.Len() > 0 {
		prevCounts = previous.Counts()
	}

	healthDir := TrendDown
	healthText := "Needs attention"
	if health > 80 {
		healthDir = TrendUp
		healthText = "Optimal performance"
	}

	cards := []StatCard{
		countCard("Total Errors", counts[model.LevelError], prevCounts, func(c LevelCounts) int { return c[model.LevelError] }),
		countCard("Warnings", counts[model.LevelWarn], prevCounts, func(c LevelCounts) int { return c[model.LevelWarn] }),
		{
			Label:          "Total Logs",
			Value:          fmt.Sprint(total),
			Trend:          totalTrend(previous),
			TrendDirection: TrendNeutral,
		},
		{
			Label:          "System Health",
			Value:          fmt.Sprintf("%d%%", health),
			Trend:          healthText,
			TrendDirection: healthDir,
		},
	}

	return Summary{
		Counts:       counts,
		Total:        total,
		SystemHealth: health,
		Cards:        cards,
	}
}

func countCard(label string, value int, prev LevelCounts, pick func(LevelCounts) int) StatCard {
	card := StatCard{
		Label:          label,
		Value:          fmt.Sprint(value),
		Trend:          "No previous upload",
		TrendDirection: TrendNeutral,
	}
	if prev == nil {
		return card
	}

	diff := value - pick(prev)
	switch {
	case diff > 0:
		card.Trend = fmt.Sprintf("↑ %d from previous upload", diff)
		card.TrendDirection = TrendUp
	case diff < 0:
		card.Trend = fmt.Sprintf("↓ %d from previous upload", -diff)
		card.TrendDirection = TrendDown
	default:
		card.Trend = "No change from previous upload"
	}
	return card
}

func totalTrend(previous *Collection) string {
	if previous.Len() == 0 {
		return "Latest upload"
	}
	return fmt.Sprintf("%d in previous upload", previous.Len())
}
