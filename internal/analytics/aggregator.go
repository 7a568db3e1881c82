package analytics

import (
	"SnapLink-Backend/internal/domain"
	"SnapLink-Backend/internal/repository"
	"context"
	"fmt"
	"net/url"
	"sort"
	"time"

	"go.uber.org/zap"
)

// IST is the fixed UTC+5:30 offset used for all time bucketing. This is a
// design constant of the product, not a deployment setting: dashboards always
// show Indian Standard Time regardless of server or visitor locale.
var IST = time.FixedZone("IST", 5*3600+30*60)

// Period selects the analytics window.
type Period string

const (
	Period7Days  Period = "7d"
	Period30Days Period = "30d"
	Period90Days Period = "90d"
	PeriodAll    Period = "all"
)

// ParsePeriod maps the query parameter to a Period. Empty defaults to the
// 7-day window; anything unrecognized falls back to all-time.
func ParsePeriod(s string) Period {
	switch s {
	case "", string(Period7Days):
		return Period7Days
	case string(Period30Days):
		return Period30Days
	case string(Period90Days):
		return Period90Days
	default:
		return PeriodAll
	}
}

// WindowStart returns the inclusive lower bound of the window, or nil for
// all-time.
func (p Period) WindowStart(now time.Time) *time.Time {
	var days int
	switch p {
	case Period7Days:
		days = 7
	case Period30Days:
		days = 30
	case Period90Days:
		days = 90
	default:
		return nil
	}
	since := now.Add(-time.Duration(days) * 24 * time.Hour)
	return &since
}

// ChartPoint is one named slice of a breakdown chart.
type ChartPoint struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

// DayCount is one IST calendar day bucket.
type DayCount struct {
	Date   string `json:"date"` // YYYY-MM-DD in IST
	Clicks int64  `json:"clicks"`
}

// HourCount is one full hour-level bucket.
type HourCount struct {
	Datetime string `json:"datetime"` // YYYY-MM-DD HH:00 in IST
	Hour     int    `json:"hour"`
	Clicks   int64  `json:"clicks"`
}

// WeekCount is one ISO week bucket.
type WeekCount struct {
	Week   string `json:"week"` // YYYY-Www
	Clicks int64  `json:"clicks"`
}

// PeakHour is the hour-of-day histogram entry used for "peak hours".
type PeakHour struct {
	Hour   int   `json:"hour"`
	Clicks int64 `json:"clicks"`
}

// Summary is the full analytics payload for one link and window.
type Summary struct {
	TotalClicks    int64        `json:"totalClicks"`
	UniqueVisitors int64        `json:"uniqueVisitors"`
	Period         Period       `json:"period"`
	DailyClicks    []DayCount   `json:"dailyClicks"`
	HourlyClicks   []HourCount  `json:"hourlyClicks"`
	WeeklyClicks   []WeekCount  `json:"weeklyClicks"`
	PeakHours      []PeakHour   `json:"peakHours"`
	Devices        []ChartPoint `json:"devices"`
	Browsers       []ChartPoint `json:"browsers"`
	OS             []ChartPoint `json:"os"`
	Countries      []ChartPoint `json:"countries"`
	Referrers      []ChartPoint `json:"referrers"`
}

const maxReferrers = 10

// Aggregator computes windowed grouped counts over a link's click events.
// Dimension breakdowns are grouped in the store; time buckets and referrer
// normalization are computed here so the IST rules live in one place.
type Aggregator struct {
	storage repository.Storage
	log     *zap.Logger
	now     func() time.Time
}

func NewAggregator(storage repository.Storage, log *zap.Logger) *Aggregator {
	return &Aggregator{
		storage: storage,
		log:     log,
		now:     time.Now,
	}
}

// Summarize builds the Summary for one link and period.
func (a *Aggregator) Summarize(ctx context.Context, urlID int64, period Period) (*Summary, error) {
	since := period.WindowStart(a.now())

	total, err := a.storage.CountClicks(ctx, urlID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to count clicks: %w", err)
	}

	unique, err := a.storage.CountUniqueIPs(ctx, urlID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to count unique visitors: %w", err)
	}

	summary := &Summary{
		TotalClicks:    total,
		UniqueVisitors: unique,
		Period:         period,
	}

	for _, dim := range []struct {
		name string
		dst  *[]ChartPoint
	}{
		{repository.DimDevice, &summary.Devices},
		{repository.DimBrowser, &summary.Browsers},
		{repository.DimOS, &summary.OS},
		{repository.DimCountry, &summary.Countries},
	} {
		grouped, err := a.storage.GroupClicks(ctx, urlID, dim.name, since)
		if err != nil {
			return nil, fmt.Errorf("failed to group by %s: %w", dim.name, err)
		}
		*dim.dst = toChartPoints(grouped, 0)
	}

	clicks, err := a.storage.ListClicks(ctx, urlID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list clicks: %w", err)
	}

	a.bucketTimes(summary, clicks)
	summary.Referrers = referrerChart(clicks)

	return summary, nil
}

// bucketTimes fills the day / hour / week / peak-hour charts. Every bucket key
// is derived from the click timestamp converted to IST.
func (a *Aggregator) bucketTimes(summary *Summary, clicks []*domain.Click) {
	days := make(map[string]int64)
	hours := make(map[string]int64)
	hourOf := make(map[string]int)
	weeks := make(map[string]int64)
	peak := make(map[int]int64)

	for _, click := range clicks {
		t := click.ClickedAt.In(IST)

		days[t.Format("2006-01-02")]++

		hourKey := t.Format("2006-01-02 15:00")
		hours[hourKey]++
		hourOf[hourKey] = t.Hour()

		year, week := t.ISOWeek()
		weeks[fmt.Sprintf("%d-W%02d", year, week)]++

		peak[t.Hour()]++
	}

	for day, n := range days {
		summary.DailyClicks = append(summary.DailyClicks, DayCount{Date: day, Clicks: n})
	}
	sort.Slice(summary.DailyClicks, func(i, j int) bool {
		return summary.DailyClicks[i].Date < summary.DailyClicks[j].Date
	})

	for hour, n := range hours {
		summary.HourlyClicks = append(summary.HourlyClicks, HourCount{
			Datetime: hour,
			Hour:     hourOf[hour],
			Clicks:   n,
		})
	}
	sort.Slice(summary.HourlyClicks, func(i, j int) bool {
		return summary.HourlyClicks[i].Datetime < summary.HourlyClicks[j].Datetime
	})

	for week, n := range weeks {
		summary.WeeklyClicks = append(summary.WeeklyClicks, WeekCount{Week: week, Clicks: n})
	}
	sort.Slice(summary.WeeklyClicks, func(i, j int) bool {
		return summary.WeeklyClicks[i].Week < summary.WeeklyClicks[j].Week
	})

	for hour, n := range peak {
		summary.PeakHours = append(summary.PeakHours, PeakHour{Hour: hour, Clicks: n})
	}
	sort.Slice(summary.PeakHours, func(i, j int) bool {
		return summary.PeakHours[i].Hour < summary.PeakHours[j].Hour
	})
}

// NormalizeReferrer maps a raw Referer header to a chart label: empty means a
// direct visit, a parseable http(s) URL is reduced to its host, anything else
// is unknown.
func NormalizeReferrer(referer string) string {
	if referer == "" {
		return "Direct"
	}

	u, err := url.Parse(referer)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "Unknown"
	}

	return u.Host
}

func referrerChart(clicks []*domain.Click) []ChartPoint {
	grouped := make(map[string]int64)
	for _, click := range clicks {
		referer := ""
		if click.Referer != nil {
			referer = *click.Referer
		}
		grouped[NormalizeReferrer(referer)]++
	}
	return toChartPoints(grouped, maxReferrers)
}

// toChartPoints sorts a grouped count map into descending chart slices,
// optionally truncated to limit entries.
func toChartPoints(grouped map[string]int64, limit int) []ChartPoint {
	points := make([]ChartPoint, 0, len(grouped))
	for name, value := range grouped {
		points = append(points, ChartPoint{Name: name, Value: value})
	}
	sort.Slice(points, func(i, j int) bool {
		if points[i].Value != points[j].Value {
			return points[i].Value > points[j].Value
		}
		return points[i].Name < points[j].Name
	})
	if limit > 0 && len(points) > limit {
		points = points[:limit]
	}
	return points
}
