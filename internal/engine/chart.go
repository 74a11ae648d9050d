package engine

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/coffersTech/logdash/internal/model"
)

// Granularity is the width of one trend bucket.
type Granularity string

const (
	GranularitySecond Granularity = "second"
	GranularityMinute Granularity = "minute"
	GranularityHour   Granularity = "hour"
)

// Step returns the bucket width.
func (g Granularity) Step() time.Duration {
	switch g {
	case GranularitySecond:
		return time.Second
	case GranularityHour:
		return time.Hour
	default:
		return time.Minute
	}
}

func (g Granularity) layout() string {
	switch g {
	case GranularitySecond:
		return "15:04:05"
	case GranularityHour:
		return "15:00"
	default:
		return "15:04"
	}
}

// ParseGranularity accepts second, minute and hour.
func ParseGranularity(s string) (Granularity, error) {
	switch g := Granularity(strings.ToLower(s)); g {
	case GranularitySecond, GranularityMinute, GranularityHour:
		return g, nil
	case "":
		return GranularityMinute, nil
	default:
		return "", fmt.Errorf("invalid chart granularity %q", s)
	}
}

// ChartOptions controls bucketing and the empty-chart placeholder.
type ChartOptions struct {
	Granularity      Granularity
	PlaceholderSlots int
	Now              func() time.Time
}

const defaultPlaceholderSlots = 7

// TrendDataset is one line of the trend chart.
type TrendDataset struct {
	Label           string  `json:"label"`
	Level           string  `json:"level"`
	Data            []int   `json:"data"`
	BorderColor     string  `json:"borderColor"`
	BackgroundColor string  `json:"backgroundColor"`
	Tension         float64 `json:"tension"`
	Fill            bool    `json:"fill"`
}

// TrendChart is a labelled time axis with one aligned series per level.
type TrendChart struct {
	Labels      []string       `json:"labels"`
	Datasets    []TrendDataset `json:"datasets"`
	Placeholder bool           `json:"placeholder"`
}

// DistributionDataset holds one value per level.
type DistributionDataset struct {
	Label           string   `json:"label"`
	Data            []int    `json:"data"`
	BackgroundColor []string `json:"backgroundColor"`
}

// DistributionChart is the per-level share of the collection.
type DistributionChart struct {
	Labels   []string              `json:"labels"`
	Datasets []DistributionDataset `json:"datasets"`
}

// Charts is everything the charting front end needs.
type Charts struct {
	Trend        TrendChart        `json:"trend"`
	Distribution DistributionChart `json:"distribution"`
}

type levelStyle struct {
	label  string
	border string
	fill   string
	slice  string
}

var levelStyles = map[model.Level]levelStyle{
	model.LevelError: {"Errors", "#ff3b30", "rgba(255, 59, 48, 0.1)", "rgba(255, 59, 48, 0.7)"},
	model.LevelWarn:  {"Warnings", "#ffcc00", "rgba(255, 204, 0, 0.1)", "rgba(255, 204, 0, 0.7)"},
	model.LevelInfo:  {"Info", "#007aff", "rgba(0, 122, 255, 0.1)", "rgba(0, 122, 255, 0.7)"},
	model.LevelDebug: {"Debug", "#af52de", "rgba(175, 82, 222, 0.1)", "rgba(175, 82, 222, 0.7)"},
}

// Accepted layouts for the time column, most specific first.
var timeLayouts = []string{
	"15:04:05.000000",
	"15:04:05.000",
	"15:04:05,000",
	"15:04:05",
	"15:04",
}

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"02.01.2006",
}

// recordTime combines date and time columns. A missing or unparseable date
// falls back to the zero date so time-only logs still bucket.
func recordTime(date, clock string) (time.Time, bool) {
	var t time.Time
	parsed := false
	clock = strings.TrimSpace(clock)
	for _, layout := range timeLayouts {
		if v, err := time.Parse(layout, clock); err == nil {
			t, parsed = v, true
			break
		}
	}
	if !parsed {
		return time.Time{}, false
	}

	date = strings.TrimSpace(date)
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, date); err == nil {
			return time.Date(d.Year(), d.Month(), d.Day(),
				t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC), true
		}
	}
	return t, true
}

// BuildCharts produces the trend and distribution charts for records.
func BuildCharts(records []model.LogRecord, opts ChartOptions) Charts {
	return Charts{
		Trend:        buildTrend(records, opts),
		Distribution: buildDistribution(CountsByLevel(records)),
	}
}

func buildTrend(records []model.LogRecord, opts ChartOptions) TrendChart {
	step := opts.Granularity.Step()

	type point struct {
		at    time.Time
		level model.Level
	}
	points := make([]point, 0, len(records))
	skipped := 0
	for i := range records {
		t, ok := recordTime(records[i].Date, records[i].Time)
		if !ok {
			skipped++
			continue
		}
		points = append(points, point{at: t.Truncate(step), level: records[i].LogLevel})
	}
	if skipped > 0 {
		log.Debugf("Trend chart: %d records with unparseable time left out", skipped)
	}

	if len(points) == 0 {
		return placeholderTrend(opts)
	}

	sort.SliceStable(points, func(i, j int) bool {
		return points[i].at.Before(points[j].at)
	})

	var buckets []time.Time
	index := make(map[time.Time]int)
	for _, p := range points {
		if _, ok := index[p.at]; !ok {
			index[p.at] = len(buckets)
			buckets = append(buckets, p.at)
		}
	}

	series := make(map[model.Level][]int, len(model.Levels))
	for _, l := range model.Levels {
		series[l] = make([]int, len(buckets))
	}
	for _, p := range points {
		if s, ok := series[p.level]; ok {
			s[index[p.at]]++
		}
	}

	return TrendChart{
		Labels:   bucketLabels(buckets, opts.Granularity),
		Datasets: trendDatasets(series),
	}
}

// placeholderTrend synthesizes the most recent slots so an empty chart
// still has a valid axis.
func placeholderTrend(opts ChartOptions) TrendChart {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	slots := opts.PlaceholderSlots
	if slots <= 0 {
		slots = defaultPlaceholderSlots
	}

	step := opts.Granularity.Step()
	end := now().Truncate(step)
	buckets := make([]time.Time, slots)
	for i := range buckets {
		buckets[i] = end.Add(-time.Duration(slots-1-i) * step)
	}

	series := make(map[model.Level][]int, len(model.Levels))
	for _, l := range model.Levels {
		series[l] = make([]int, slots)
	}

	return TrendChart{
		Labels:      bucketLabels(buckets, opts.Granularity),
		Datasets:    trendDatasets(series),
		Placeholder: true,
	}
}

func bucketLabels(buckets []time.Time, g Granularity) []string {
	layout := g.layout()
	if len(buckets) > 0 {
		first, last := buckets[0], buckets[len(buckets)-1]
		if first.YearDay() != last.YearDay() || first.Year() != last.Year() {
			layout = "01-02 " + layout
		}
	}

	labels := make([]string, len(buckets))
	for i, b := range buckets {
		labels[i] = b.Format(layout)
	}
	return labels
}

func trendDatasets(series map[model.Level][]int) []TrendDataset {
	out := make([]TrendDataset, 0, len(model.Levels))
	for _, l := range model.Levels {
		style := levelStyles[l]
		out = append(out, TrendDataset{
			Label:           style.label,
			Level:           string(l),
			Data:            series[l],
			BorderColor:     style.border,
			BackgroundColor: style.fill,
			Tension:         0.4,
			Fill:            true,
		})
	}
	return out
}

func buildDistribution(counts LevelCounts) DistributionChart {
	labels := make([]string, 0, len(model.Levels))
	data := make([]int, 0, len(model.Levels))
	colors := make([]string, 0, len(model.Levels))
	for _, l := range model.Levels {
		labels = append(labels, string(l))
		data = append(data, counts[l])
		colors = append(colors, levelStyles[l].slice)
	}

	return DistributionChart{
		Labels: labels,
		Datasets: []DistributionDataset{{
			Label:           "Distribution",
			Data:            data,
			BackgroundColor: colors,
		}},
	}
}
