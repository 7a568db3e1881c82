package analytics

import (
	"SnapLink-Backend/internal/domain"
	"SnapLink-Backend/internal/repository/memory"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func seedLink(t *testing.T, storage *memory.MemStorage) *domain.URL {
	t.Helper()
	link := &domain.URL{
		ShortCode:   "aggtest1",
		OriginalURL: "https://example.com",
		IsActive:    true,
	}
	require.NoError(t, storage.SaveURL(context.Background(), link))
	return link
}

func seedClick(t *testing.T, storage *memory.MemStorage, urlID int64, at time.Time, mutate func(*domain.Click)) {
	t.Helper()
	click := &domain.Click{
		URLID:     urlID,
		IP:        "203.0.113.1",
		Device:    "desktop",
		Browser:   "Chrome",
		OS:        "Windows",
		Country:   "Unknown",
		ClickedAt: at,
	}
	if mutate != nil {
		mutate(click)
	}
	require.NoError(t, storage.SaveClick(context.Background(), click))
}

func TestParsePeriod(t *testing.T) {
	assert.Equal(t, Period7Days, ParsePeriod(""))
	assert.Equal(t, Period7Days, ParsePeriod("7d"))
	assert.Equal(t, Period30Days, ParsePeriod("30d"))
	assert.Equal(t, Period90Days, ParsePeriod("90d"))
	assert.Equal(t, PeriodAll, ParsePeriod("all"))
	assert.Equal(t, PeriodAll, ParsePeriod("bogus"))
}

func TestWindowStart(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	since := Period7Days.WindowStart(now)
	require.NotNil(t, since)
	assert.Equal(t, now.Add(-7*24*time.Hour), *since)

	assert.Nil(t, PeriodAll.WindowStart(now))
}

func TestSummarize_DailyBucketsUseIST(t *testing.T) {
	storage := memory.New()
	link := seedLink(t, storage)

	// 10:00 and 10:30 UTC are 15:30 and 16:00 IST, same calendar day.
	// 20:00 UTC is already 01:30 IST the next day.
	seedClick(t, storage, link.ID, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), nil)
	seedClick(t, storage, link.ID, time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC), nil)
	seedClick(t, storage, link.ID, time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC), nil)

	agg := NewAggregator(storage, zap.NewNop())
	summary, err := agg.Summarize(context.Background(), link.ID, PeriodAll)
	require.NoError(t, err)

	assert.Equal(t, int64(3), summary.TotalClicks)
	require.Len(t, summary.DailyClicks, 2)
	assert.Equal(t, DayCount{Date: "2024-01-01", Clicks: 2}, summary.DailyClicks[0])
	assert.Equal(t, DayCount{Date: "2024-01-02", Clicks: 1}, summary.DailyClicks[1])
}

func TestSummarize_HourlyAndPeakHours(t *testing.T) {
	storage := memory.New()
	link := seedLink(t, storage)

	// 04:30 UTC is exactly 10:00 IST.
	seedClick(t, storage, link.ID, time.Date(2024, 1, 1, 4, 30, 0, 0, time.UTC), nil)
	seedClick(t, storage, link.ID, time.Date(2024, 1, 1, 4, 45, 0, 0, time.UTC), nil)

	agg := NewAggregator(storage, zap.NewNop())
	summary, err := agg.Summarize(context.Background(), link.ID, PeriodAll)
	require.NoError(t, err)

	require.Len(t, summary.HourlyClicks, 1)
	assert.Equal(t, "2024-01-01 10:00", summary.HourlyClicks[0].Datetime)
	assert.Equal(t, 10, summary.HourlyClicks[0].Hour)
	assert.Equal(t, int64(2), summary.HourlyClicks[0].Clicks)

	require.Len(t, summary.PeakHours, 1)
	assert.Equal(t, PeakHour{Hour: 10, Clicks: 2}, summary.PeakHours[0])
}

func TestSummarize_WeeklyBucketsUseISOWeeks(t *testing.T) {
	storage := memory.New()
	link := seedLink(t, storage)

	// Monday of ISO week 1 and Monday of ISO week 2 of 2024.
	seedClick(t, storage, link.ID, time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC), nil)
	seedClick(t, storage, link.ID, time.Date(2024, 1, 8, 12, 0, 0, 0, time.UTC), nil)

	agg := NewAggregator(storage, zap.NewNop())
	summary, err := agg.Summarize(context.Background(), link.ID, PeriodAll)
	require.NoError(t, err)

	require.Len(t, summary.WeeklyClicks, 2)
	assert.Equal(t, WeekCount{Week: "2024-W01", Clicks: 1}, summary.WeeklyClicks[0])
	assert.Equal(t, WeekCount{Week: "2024-W02", Clicks: 1}, summary.WeeklyClicks[1])
}

func TestSummarize_UniqueVisitors(t *testing.T) {
	storage := memory.New()
	link := seedLink(t, storage)

	now := time.Now()
	seedClick(t, storage, link.ID, now, func(c *domain.Click) { c.IP = "203.0.113.1" })
	seedClick(t, storage, link.ID, now, func(c *domain.Click) { c.IP = "203.0.113.1" })
	seedClick(t, storage, link.ID, now, func(c *domain.Click) { c.IP = "203.0.113.2" })

	agg := NewAggregator(storage, zap.NewNop())
	summary, err := agg.Summarize(context.Background(), link.ID, PeriodAll)
	require.NoError(t, err)

	assert.Equal(t, int64(3), summary.TotalClicks)
	assert.Equal(t, int64(2), summary.UniqueVisitors)
}

func TestSummarize_WindowExcludesOldClicks(t *testing.T) {
	storage := memory.New()
	link := seedLink(t, storage)

	now := time.Now()
	seedClick(t, storage, link.ID, now.Add(-time.Hour), nil)
	seedClick(t, storage, link.ID, now.Add(-30*24*time.Hour), nil)

	agg := NewAggregator(storage, zap.NewNop())

	week, err := agg.Summarize(context.Background(), link.ID, Period7Days)
	require.NoError(t, err)
	assert.Equal(t, int64(1), week.TotalClicks)

	all, err := agg.Summarize(context.Background(), link.ID, PeriodAll)
	require.NoError(t, err)
	assert.Equal(t, int64(2), all.TotalClicks)
}

func TestSummarize_DeviceBreakdown(t *testing.T) {
	storage := memory.New()
	link := seedLink(t, storage)

	now := time.Now()
	seedClick(t, storage, link.ID, now, func(c *domain.Click) { c.Device = "mobile" })
	seedClick(t, storage, link.ID, now, func(c *domain.Click) { c.Device = "mobile" })
	seedClick(t, storage, link.ID, now, func(c *domain.Click) { c.Device = "desktop" })

	agg := NewAggregator(storage, zap.NewNop())
	summary, err := agg.Summarize(context.Background(), link.ID, PeriodAll)
	require.NoError(t, err)

	require.Len(t, summary.Devices, 2)
	assert.Equal(t, ChartPoint{Name: "mobile", Value: 2}, summary.Devices[0])
	assert.Equal(t, ChartPoint{Name: "desktop", Value: 1}, summary.Devices[1])
}

func TestNormalizeReferrer(t *testing.T) {
	tests := []struct {
		referer string
		want    string
	}{
		{"", "Direct"},
		{"https://www.google.com/search?q=x", "www.google.com"},
		{"http://t.co/abc", "t.co"},
		{"android-app://com.example", "Unknown"},
		{"not a url", "Unknown"},
		{"https://", "Unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeReferrer(tt.referer), "referer %q", tt.referer)
	}
}

func TestSummarize_ReferrersTopTen(t *testing.T) {
	storage := memory.New()
	link := seedLink(t, storage)

	now := time.Now()
	hosts := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l"}
	for _, host := range hosts {
		ref := "https://" + host + ".example.com/"
		seedClick(t, storage, link.ID, now, func(c *domain.Click) { c.Referer = &ref })
	}
	// Direct visits dominate and must survive truncation.
	seedClick(t, storage, link.ID, now, nil)
	seedClick(t, storage, link.ID, now, nil)

	agg := NewAggregator(storage, zap.NewNop())
	summary, err := agg.Summarize(context.Background(), link.ID, PeriodAll)
	require.NoError(t, err)

	require.Len(t, summary.Referrers, maxReferrers)
	assert.Equal(t, ChartPoint{Name: "Direct", Value: 2}, summary.Referrers[0])
}
