package http

import (
	"SnapLink-Backend/internal/analytics"
	"SnapLink-Backend/internal/service"
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// RedirectHandler serves the public redirect path and its JSON counterpart.
// Both share one resolver; they differ only in how dispositions are presented.
type RedirectHandler struct {
	resolver *service.Resolver
	recorder *analytics.Recorder
	log      *zap.Logger
}

func NewRedirectHandler(resolver *service.Resolver, recorder *analytics.Recorder, log *zap.Logger) *RedirectHandler {
	return &RedirectHandler{
		resolver: resolver,
		recorder: recorder,
		log:      log,
	}
}

// HandleRedirect serves GET /{code}. Every non-success disposition becomes a
// redirect to a frontend page; the disabled state is indistinguishable from a
// missing link on this surface.
func (h *RedirectHandler) HandleRedirect(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimPrefix(r.URL.Path, "/")
	if code == "" || strings.ContainsRune(code, '/') || isSystemPath(r.URL.Path) {
		http.NotFound(w, r)
		return
	}

	res, err := h.resolver.Resolve(r.Context(), code, r.URL.Query().Get("password"))
	if err != nil {
		h.log.Error("failed to resolve short code", zap.String("code", code), zap.Error(err))
		http.Redirect(w, r, "/error", http.StatusFound)
		return
	}

	switch res.Disposition {
	case service.DispositionNotFound, service.DispositionDisabled:
		http.Redirect(w, r, "/404", http.StatusFound)
	case service.DispositionExpired:
		http.Redirect(w, r, "/expired", http.StatusFound)
	case service.DispositionPasswordRequired:
		http.Redirect(w, r, "/password/"+url.PathEscape(code), http.StatusFound)
	case service.DispositionPasswordInvalid:
		http.Redirect(w, r, "/password/"+url.PathEscape(code)+"?error=invalid", http.StatusFound)
	case service.DispositionRedirect:
		h.submitClick(r, res.URL.ID)
		h.log.Info("redirect",
			zap.String("code", code),
			zap.Int64("url_id", res.URL.ID),
			zap.String("ip", clientIP(r)))
		http.Redirect(w, r, res.URL.OriginalURL, http.StatusFound)
	default:
		http.Redirect(w, r, "/error", http.StatusFound)
	}
}

// HandleResolve serves GET /api/redirect/{code}. Clients that render their own
// pages get machine-readable dispositions instead of page redirects.
func (h *RedirectHandler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimPrefix(r.URL.Path, "/api/redirect/")
	if code == "" || strings.ContainsRune(code, '/') {
		h.writeError(w, "Short code is required", http.StatusBadRequest)
		return
	}

	res, err := h.resolver.Resolve(r.Context(), code, r.URL.Query().Get("password"))
	if err != nil {
		h.log.Error("failed to resolve short code", zap.String("code", code), zap.Error(err))
		h.writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	switch res.Disposition {
	case service.DispositionNotFound:
		h.writeError(w, "Short URL not found", http.StatusNotFound)
	case service.DispositionDisabled:
		h.writeError(w, "This link has been disabled", http.StatusForbidden)
	case service.DispositionExpired:
		h.writeError(w, "This link has expired", http.StatusGone)
	case service.DispositionPasswordRequired:
		h.writeJSON(w, map[string]interface{}{
			"requiresPassword": true,
			"error":            "Password required",
		}, http.StatusUnauthorized)
	case service.DispositionPasswordInvalid:
		h.writeJSON(w, map[string]interface{}{
			"requiresPassword": true,
			"error":            "Invalid password",
		}, http.StatusUnauthorized)
	case service.DispositionRedirect:
		h.submitClick(r, res.URL.ID)
		h.writeJSON(w, map[string]interface{}{
			"originalUrl": res.URL.OriginalURL,
		}, http.StatusOK)
	default:
		h.writeError(w, "Internal server error", http.StatusInternalServerError)
	}
}

// submitClick queues the click for background recording. The redirect never
// waits on, or fails because of, analytics.
func (h *RedirectHandler) submitClick(r *http.Request, urlID int64) {
	click := &analytics.ClickData{
		URLID:     urlID,
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
		Referer:   r.Referer(),
		ClickedAt: time.Now(),
	}
	if err := h.recorder.Submit(click); err != nil {
		h.log.Warn("failed to submit click", zap.Int64("url_id", urlID), zap.Error(err))
	}
}

func (h *RedirectHandler) writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func (h *RedirectHandler) writeError(w http.ResponseWriter, message string, statusCode int) {
	h.writeJSON(w, map[string]string{"error": message}, statusCode)
}

// clientIP resolves the caller's address: the connection's remote host first,
// then proxy headers, then a fixed placeholder.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	return "unknown"
}
