package http

import (
	"SnapLink-Backend/internal/analytics"
	"SnapLink-Backend/internal/auth"
	"SnapLink-Backend/internal/domain"
	"SnapLink-Backend/internal/repository"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// AnalyticsHandler serves per-link click analytics and the account-wide
// dashboard overview.
type AnalyticsHandler struct {
	storage    repository.Storage
	aggregator *analytics.Aggregator
	log        *zap.Logger
}

func NewAnalyticsHandler(storage repository.Storage, aggregator *analytics.Aggregator, log *zap.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		storage:    storage,
		aggregator: aggregator,
		log:        log,
	}
}

// URLAnalyticsResponse wraps the aggregated summary with link identity.
type URLAnalyticsResponse struct {
	URLID       int64              `json:"urlId"`
	ShortCode   string             `json:"shortCode"`
	OriginalURL string             `json:"originalUrl"`
	*analytics.Summary
}

// OverviewURL is one entry in the dashboard lists.
type OverviewURL struct {
	ID          int64  `json:"id"`
	ShortCode   string `json:"shortCode"`
	OriginalURL string `json:"originalUrl"`
	Clicks      int64  `json:"clicks"`
	CreatedAt   string `json:"createdAt"`
}

type OverviewResponse struct {
	TotalURLs       int64         `json:"totalUrls"`
	TotalClicks     int64         `json:"totalClicks"`
	AvgClicksPerURL float64       `json:"avgClicksPerUrl"`
	TopPerforming   []OverviewURL `json:"topPerforming"`
	RecentActivity  []OverviewURL `json:"recentActivity"`
}

// GetURLAnalytics serves GET /api/analytics/{id}?period=7d|30d|90d|all.
func (h *AnalyticsHandler) GetURLAnalytics(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		h.writeError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	idStr := strings.TrimPrefix(r.URL.Path, "/api/analytics/")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		h.writeError(w, "Invalid URL ID", http.StatusBadRequest)
		return
	}

	link, err := h.storage.GetURLByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			h.writeError(w, "URL not found", http.StatusNotFound)
			return
		}
		h.log.Error("failed to get url for analytics", zap.Int64("url_id", id), zap.Error(err))
		h.writeError(w, "Failed to retrieve URL", http.StatusInternalServerError)
		return
	}
	if link.UserID == nil || *link.UserID != userID {
		h.writeError(w, "Access denied", http.StatusForbidden)
		return
	}

	period := analytics.ParsePeriod(r.URL.Query().Get("period"))
	summary, err := h.aggregator.Summarize(r.Context(), link.ID, period)
	if err != nil {
		h.log.Error("failed to aggregate analytics", zap.Int64("url_id", link.ID), zap.Error(err))
		h.writeError(w, "Failed to compute analytics", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, URLAnalyticsResponse{
		URLID:       link.ID,
		ShortCode:   link.ShortCode,
		OriginalURL: link.OriginalURL,
		Summary:     summary,
	}, http.StatusOK)
}

// GetOverview serves GET /api/analytics/overview: counts, average and the top
// and most recent links for the signed-in user.
func (h *AnalyticsHandler) GetOverview(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		h.writeError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	urls, total, err := h.storage.ListUserURLs(r.Context(), userID, 0, 0)
	if err != nil {
		h.log.Error("failed to list urls for overview", zap.Int64("user_id", userID), zap.Error(err))
		h.writeError(w, "Failed to compute overview", http.StatusInternalServerError)
		return
	}

	var totalClicks int64
	for _, link := range urls {
		totalClicks += link.Clicks
	}

	avg := 0.0
	if total > 0 {
		avg = math.Round(float64(totalClicks)/float64(total)*10) / 10
	}

	// ListUserURLs returns newest first, so the recent list is a prefix.
	recent := make([]OverviewURL, 0, 5)
	for _, link := range urls {
		if len(recent) == 5 {
			break
		}
		recent = append(recent, overviewEntry(link))
	}

	byClicks := make([]*domain.URL, len(urls))
	copy(byClicks, urls)
	sort.SliceStable(byClicks, func(i, j int) bool {
		return byClicks[i].Clicks > byClicks[j].Clicks
	})
	top := make([]OverviewURL, 0, 5)
	for _, link := range byClicks {
		if len(top) == 5 {
			break
		}
		top = append(top, overviewEntry(link))
	}

	h.writeJSON(w, OverviewResponse{
		TotalURLs:       total,
		TotalClicks:     totalClicks,
		AvgClicksPerURL: avg,
		TopPerforming:   top,
		RecentActivity:  recent,
	}, http.StatusOK)
}

func overviewEntry(link *domain.URL) OverviewURL {
	return OverviewURL{
		ID:          link.ID,
		ShortCode:   link.ShortCode,
		OriginalURL: link.OriginalURL,
		Clicks:      link.Clicks,
		CreatedAt:   link.CreatedAt.Format(time.RFC3339),
	}
}

func (h *AnalyticsHandler) writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func (h *AnalyticsHandler) writeError(w http.ResponseWriter, message string, statusCode int) {
	h.writeJSON(w, map[string]string{"error": message}, statusCode)
}
