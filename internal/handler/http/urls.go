package http

import (
	"SnapLink-Backend/internal/auth"
	"SnapLink-Backend/internal/domain"
	"SnapLink-Backend/internal/repository"
	"SnapLink-Backend/internal/service"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// URLsHandler serves link management: creation, listing, details, deletion and
// QR regeneration.
type URLsHandler struct {
	storage      repository.Storage
	urlShortener *service.URLShortenerService
	log          *zap.Logger
}

func NewURLsHandler(storage repository.Storage, urlShortener *service.URLShortenerService, log *zap.Logger) *URLsHandler {
	return &URLsHandler{
		storage:      storage,
		urlShortener: urlShortener,
		log:          log,
	}
}

type CreateURLRequest struct {
	OriginalURL string   `json:"originalUrl"`
	CustomAlias string   `json:"customAlias,omitempty"`
	ExpiresAt   string   `json:"expiresAt,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Password    string   `json:"password,omitempty"`
}

type CreateURLResponse struct {
	ID            int64    `json:"id"`
	ShortURL      string   `json:"shortUrl"`
	ShortCode     string   `json:"shortCode"`
	OriginalURL   string   `json:"originalUrl"`
	QRCode        string   `json:"qrCode,omitempty"`
	AISuggestions string   `json:"aiSuggestions,omitempty"`
	RiskLevel     string   `json:"riskLevel"`
	Tags          []string `json:"tags,omitempty"`
	ExpiresAt     string   `json:"expiresAt,omitempty"`
	CreatedAt     string   `json:"createdAt"`
	IsDuplicate   bool     `json:"isDuplicate,omitempty"`
}

type URLInfo struct {
	ID          int64    `json:"id"`
	ShortCode   string   `json:"shortCode"`
	CustomAlias string   `json:"customAlias,omitempty"`
	OriginalURL string   `json:"originalUrl"`
	Title       string   `json:"title,omitempty"`
	Clicks      int64    `json:"clicks"`
	IsActive    bool     `json:"isActive"`
	HasPassword bool     `json:"hasPassword"`
	RiskLevel   string   `json:"riskLevel"`
	Tags        []string `json:"tags,omitempty"`
	QRCode      string   `json:"qrCode,omitempty"`
	ExpiresAt   string   `json:"expiresAt,omitempty"`
	LastClicked string   `json:"lastClicked,omitempty"`
	CreatedAt   string   `json:"createdAt"`
}

type ListURLsResponse struct {
	URLs  []URLInfo `json:"urls"`
	Total int64     `json:"total"`
	Page  int       `json:"page"`
	Limit int       `json:"limit"`
}

// CreateURL serves POST /api/urls. Anonymous creation is allowed but the
// account-bound features (alias, password, expiration) require a signed-in
// caller.
func (h *URLsHandler) CreateURL(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CreateURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Debug("invalid create request", zap.Error(err))
		h.writeError(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	var userID *int64
	if id, ok := auth.GetUserIDFromContext(r.Context()); ok {
		userID = &id
	}

	if userID == nil && (req.CustomAlias != "" || req.Password != "" || req.ExpiresAt != "") {
		h.writeError(w, "Please sign in to use custom aliases, passwords or expiration dates", http.StatusUnauthorized)
		return
	}

	var expiresAt *time.Time
	if req.ExpiresAt != "" {
		parsed, err := time.Parse(time.RFC3339, req.ExpiresAt)
		if err != nil {
			h.writeError(w, "Invalid expiresAt format. Use RFC3339 format", http.StatusBadRequest)
			return
		}
		expiresAt = &parsed
	}

	result, err := h.urlShortener.Create(r.Context(), service.CreateURLInput{
		OriginalURL: req.OriginalURL,
		CustomAlias: req.CustomAlias,
		ExpiresAt:   expiresAt,
		Tags:        req.Tags,
		Password:    req.Password,
		UserID:      userID,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidURL):
			h.writeError(w, "Please provide a valid HTTP or HTTPS URL", http.StatusBadRequest)
		case errors.Is(err, service.ErrSuspiciousURL):
			h.writeError(w, "This URL is not allowed", http.StatusBadRequest)
		case errors.Is(err, repository.ErrCodeTaken):
			h.writeError(w, "Custom alias is already taken", http.StatusBadRequest)
		default:
			h.log.Error("failed to create url", zap.Error(err))
			h.writeError(w, "Failed to create short URL", http.StatusInternalServerError)
		}
		return
	}

	status := http.StatusCreated
	if result.IsDuplicate {
		status = http.StatusOK
	}
	h.writeJSON(w, buildCreateResponse(result), status)
}

func buildCreateResponse(result *service.CreateURLResult) CreateURLResponse {
	link := result.URL
	resp := CreateURLResponse{
		ID:          link.ID,
		ShortURL:    result.ShortURL,
		ShortCode:   link.ShortCode,
		OriginalURL: link.OriginalURL,
		RiskLevel:   link.RiskLevel,
		Tags:        link.Tags,
		CreatedAt:   link.CreatedAt.Format(time.RFC3339),
		IsDuplicate: result.IsDuplicate,
	}
	if link.QRCode != nil {
		resp.QRCode = *link.QRCode
	}
	if link.AISuggestions != nil {
		resp.AISuggestions = *link.AISuggestions
	}
	if link.ExpiresAt != nil {
		resp.ExpiresAt = link.ExpiresAt.Format(time.RFC3339)
	}
	return resp
}

// ListURLs serves GET /api/urls with page/limit pagination, newest first.
func (h *URLsHandler) ListURLs(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		h.writeError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	page := parsePositiveInt(r.URL.Query().Get("page"), 1)
	limit := parsePositiveInt(r.URL.Query().Get("limit"), defaultPageSize)
	if limit > maxPageSize {
		limit = maxPageSize
	}

	urls, total, err := h.storage.ListUserURLs(r.Context(), userID, (page-1)*limit, limit)
	if err != nil {
		h.log.Error("failed to list urls", zap.Int64("user_id", userID), zap.Error(err))
		h.writeError(w, "Failed to retrieve URLs", http.StatusInternalServerError)
		return
	}

	infos := make([]URLInfo, len(urls))
	for i, link := range urls {
		infos[i] = buildURLInfo(link)
	}

	h.writeJSON(w, ListURLsResponse{
		URLs:  infos,
		Total: total,
		Page:  page,
		Limit: limit,
	}, http.StatusOK)
}

// GetURL serves GET /api/urls/{id}.
func (h *URLsHandler) GetURL(w http.ResponseWriter, r *http.Request) {
	link, ok := h.ownedURL(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, buildURLInfo(link), http.StatusOK)
}

// DeleteURL serves DELETE /api/urls/{id}. The link's click history goes with
// it.
func (h *URLsHandler) DeleteURL(w http.ResponseWriter, r *http.Request) {
	link, ok := h.ownedURL(w, r)
	if !ok {
		return
	}

	if err := h.storage.DeleteURL(r.Context(), link.ID); err != nil {
		h.log.Error("failed to delete url", zap.Int64("url_id", link.ID), zap.Error(err))
		h.writeError(w, "Failed to delete URL", http.StatusInternalServerError)
		return
	}

	h.log.Info("deleted url", zap.Int64("url_id", link.ID), zap.String("short_code", link.ShortCode))
	h.writeJSON(w, map[string]string{"message": "URL deleted successfully"}, http.StatusOK)
}

// RegenerateQR serves POST /api/urls/{id}/qr.
func (h *URLsHandler) RegenerateQR(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	link, ok := h.ownedURL(w, r)
	if !ok {
		return
	}

	shortURL := h.urlShortener.ShortURLFor(link.ShortCode)
	qr, err := service.GenerateQRCode(shortURL)
	if err != nil {
		h.log.Error("failed to generate qr code", zap.Int64("url_id", link.ID), zap.Error(err))
		h.writeError(w, "Failed to generate QR code", http.StatusInternalServerError)
		return
	}

	if err := h.storage.UpdateQRCode(r.Context(), link.ID, qr); err != nil {
		h.log.Error("failed to store qr code", zap.Int64("url_id", link.ID), zap.Error(err))
		h.writeError(w, "Failed to save QR code", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, map[string]string{"qrCode": qr}, http.StatusOK)
}

// ownedURL extracts the link ID from the path, loads the record and checks
// ownership. On failure it writes the response itself and returns ok=false.
func (h *URLsHandler) ownedURL(w http.ResponseWriter, r *http.Request) (*domain.URL, bool) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		h.writeError(w, "Authentication required", http.StatusUnauthorized)
		return nil, false
	}

	id, err := urlIDFromPath(r.URL.Path)
	if err != nil {
		h.writeError(w, "Invalid URL ID", http.StatusBadRequest)
		return nil, false
	}

	link, err := h.storage.GetURLByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			h.writeError(w, "URL not found", http.StatusNotFound)
			return nil, false
		}
		h.log.Error("failed to get url", zap.Int64("url_id", id), zap.Error(err))
		h.writeError(w, "Failed to retrieve URL", http.StatusInternalServerError)
		return nil, false
	}

	if link.UserID == nil || *link.UserID != userID {
		h.writeError(w, "Access denied", http.StatusForbidden)
		return nil, false
	}
	return link, true
}

// urlIDFromPath pulls the numeric ID out of /api/urls/{id} or
// /api/urls/{id}/qr.
func urlIDFromPath(path string) (int64, error) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	// parts: ["api", "urls", "{id}", ...]
	if len(parts) < 3 || parts[2] == "" {
		return 0, errors.New("missing url id")
	}
	return strconv.ParseInt(parts[2], 10, 64)
}

func buildURLInfo(link *domain.URL) URLInfo {
	info := URLInfo{
		ID:          link.ID,
		ShortCode:   link.ShortCode,
		OriginalURL: link.OriginalURL,
		Clicks:      link.Clicks,
		IsActive:    link.IsActive,
		HasPassword: link.Protected(),
		RiskLevel:   link.RiskLevel,
		Tags:        link.Tags,
		CreatedAt:   link.CreatedAt.Format(time.RFC3339),
	}
	if link.CustomAlias != nil {
		info.CustomAlias = *link.CustomAlias
	}
	if link.Title != nil {
		info.Title = *link.Title
	}
	if link.QRCode != nil {
		info.QRCode = *link.QRCode
	}
	if link.ExpiresAt != nil {
		info.ExpiresAt = link.ExpiresAt.Format(time.RFC3339)
	}
	if link.LastClicked != nil {
		info.LastClicked = link.LastClicked.Format(time.RFC3339)
	}
	return info
}

func parsePositiveInt(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

func (h *URLsHandler) writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func (h *URLsHandler) writeError(w http.ResponseWriter, message string, statusCode int) {
	h.writeJSON(w, map[string]string{"error": message}, statusCode)
}
