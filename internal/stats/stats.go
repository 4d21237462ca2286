// Package stats computes the dashboard document from pre-aggregated store
// rows. The store does the grouping in SQL; this package does the in-process
// math and the shaping the API and CLI render.
package stats

import (
	"time"

	"github.com/montanaflynn/stats"
	"github.com/rotisserie/eris"

	"github.com/feasai/viability-engine/internal/model"
)

const (
	// bucketHigh and bucketViable split overall scores into the dashboard
	// distribution: high >= 75, medium 50-74, low < 50. Viable means >= 50.
	bucketHigh   = 75.0
	bucketViable = 50.0

	dailyWindowDays   = 7
	summaryWindowDays = 30
)

// DayPoint is one day in the trailing activity series.
type DayPoint struct {
	Day   string `json:"day"` // YYYY-MM-DD
	Count int    `json:"count"`
}

// CategoryCount is the number of analyses filed under one category.
type CategoryCount struct {
	Category model.Category `json:"category"`
	Count    int            `json:"count"`
}

// UserCount is one requester's analysis volume.
type UserCount struct {
	User  string `json:"user"`
	Count int    `json:"count"`
}

// Distribution holds the share of analyses per viability bucket, as
// percentages rounded to one decimal.
type Distribution struct {
	High   float64 `json:"high"`
	Medium float64 `json:"medium"`
	Low    float64 `json:"low"`
}

// Summary describes the overall scores of the trailing 30 days.
type Summary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Dashboard is the complete statistics document.
type Dashboard struct {
	TotalAnalyses  int             `json:"total_analyses"`
	Daily          []DayPoint      `json:"daily"`
	Distribution   Distribution    `json:"distribution"`
	ConversionRate float64         `json:"conversion_rate"`
	Categories     []CategoryCount `json:"categories"`
	TopUsers       []UserCount     `json:"top_users"`
	Summary        Summary         `json:"summary"`
}

// Input carries the raw store aggregates the dashboard is computed from.
// DailyCounts is keyed by YYYY-MM-DD and may omit empty days; AllScores
// covers every stored analysis, RecentScores only the summary window.
type Input struct {
	Total        int
	DailyCounts  map[string]int
	Categories   []CategoryCount
	TopUsers     []UserCount
	AllScores    []float64
	RecentScores []float64
	Now          time.Time
}

// BuildDashboard computes the dashboard document. An empty store yields a
// zeroed document, not an error.
func BuildDashboard(in Input) (*Dashboard, error) {
	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	d := &Dashboard{
		TotalAnalyses: in.Total,
		Daily:         dailySeries(in.DailyCounts, now),
		Categories:    in.Categories,
		TopUsers:      in.TopUsers,
	}

	var high, medium, low, viable int
	for _, s := range in.AllScores {
		switch {
		case s >= bucketHigh:
			high++
			viable++
		case s >= bucketViable:
			medium++
			viable++
		default:
			low++
		}
	}
	if n := len(in.AllScores); n > 0 {
		d.Distribution = Distribution{
			High:   percent(high, n),
			Medium: percent(medium, n),
			Low:    percent(low, n),
		}
		d.ConversionRate = percent(viable, n)
	}

	summary, err := summarize(in.RecentScores)
	if err != nil {
		return nil, err
	}
	d.Summary = summary

	return d, nil
}

// dailySeries zero-fills the trailing window so the chart always has one
// point per day, oldest first.
func dailySeries(counts map[string]int, now time.Time) []DayPoint {
	out := make([]DayPoint, 0, dailyWindowDays)
	for i := dailyWindowDays - 1; i >= 0; i-- {
		day := now.AddDate(0, 0, -i).Format("2006-01-02")
		out = append(out, DayPoint{Day: day, Count: counts[day]})
	}
	return out
}

func summarize(scores []float64) (Summary, error) {
	if len(scores) == 0 {
		return Summary{}, nil
	}

	mean, err := stats.Mean(scores)
	if err != nil {
		return Summary{}, eris.Wrap(err, "stats: mean")
	}
	median, err := stats.Median(scores)
	if err != nil {
		return Summary{}, eris.Wrap(err, "stats: median")
	}
	min, err := stats.Min(scores)
	if err != nil {
		return Summary{}, eris.Wrap(err, "stats: min")
	}
	max, err := stats.Max(scores)
	if err != nil {
		return Summary{}, eris.Wrap(err, "stats: max")
	}

	return Summary{
		Count:  len(scores),
		Mean:   round1(mean),
		Median: round1(median),
		Min:    min,
		Max:    max,
	}, nil
}

func percent(part, total int) float64 {
	return round1(float64(part) / float64(total) * 100)
}

func round1(v float64) float64 {
	r, _ := stats.Round(v, 1)
	return r
}
