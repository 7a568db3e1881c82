package http

import (
	"SnapLink-Backend/internal/analytics"
	"SnapLink-Backend/internal/auth"
	"SnapLink-Backend/internal/config"
	"SnapLink-Backend/internal/domain"
	"SnapLink-Backend/internal/repository/memory"
	"SnapLink-Backend/internal/service"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEnv struct {
	server   http.Handler
	storage  *memory.MemStorage
	recorder *analytics.Recorder
	jwt      *auth.JWTService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	storage := memory.New()
	log := zap.NewNop()

	shortenerCfg := &config.URLShortener{BaseURL: "http://localhost:8080", CodeLength: 8}
	urlShortener := service.NewURLShortener(storage, service.NewHeuristicAnalyzer(), shortenerCfg, log)
	resolver := service.NewResolver(storage, log)
	aggregator := analytics.NewAggregator(storage, log)

	recorder := analytics.NewRecorder(storage, log, analytics.RecorderConfig{
		WorkerCount:     1,
		BufferSize:      100,
		RetryAttempts:   1,
		RetryDelay:      time.Millisecond,
		ShutdownTimeout: 5 * time.Second,
	})
	require.NoError(t, recorder.Start())
	t.Cleanup(func() { recorder.Stop() })

	authCfg := &config.Auth{
		SecretKey:            "test-secret",
		AccessTokenDuration:  15 * time.Minute,
		RefreshTokenDuration: 24 * time.Hour,
		Issuer:               "SnapLink-Backend",
	}
	jwtService := auth.NewJWTService(authCfg)
	passwordService := auth.NewPasswordServiceWithCost(4)

	rateLimits := &config.RateLimit{CreatePerMinute: 1000, RegisterPerMinute: 1000}

	srv := NewServer(storage, nil, urlShortener, resolver, recorder, aggregator,
		jwtService, passwordService, rateLimits, log)

	return &testEnv{
		server:   srv.SetupRoutes(),
		storage:  storage,
		recorder: recorder,
		jwt:      jwtService,
	}
}

func (e *testEnv) createUser(t *testing.T, email string) (*domain.User, string) {
	t.Helper()
	user := &domain.User{
		Name:         "Test User",
		Email:        email,
		PasswordHash: "irrelevant",
		Role:         "user",
		IsActive:     true,
	}
	require.NoError(t, e.storage.CreateUser(context.Background(), user))
	token, err := e.jwt.GenerateAccessToken(user.ID, user.Email)
	require.NoError(t, err)
	return user, token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.server.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestCreateURL_Anonymous(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/urls", "", map[string]string{
		"originalUrl": "https://example.com/page",
	})

	require.Equal(t, http.StatusCreated, w.Code)
	body := decodeBody(t, w)
	assert.Len(t, body["shortCode"], 8)
	assert.Equal(t, "https://example.com/page", body["originalUrl"])
	assert.Contains(t, body["shortUrl"], body["shortCode"])
	assert.NotEmpty(t, body["qrCode"])
}

func TestCreateURL_AnonymousRestrictedFeatures(t *testing.T) {
	env := newTestEnv(t)

	for _, req := range []map[string]string{
		{"originalUrl": "https://example.com", "customAlias": "mine"},
		{"originalUrl": "https://example.com", "password": "secret"},
		{"originalUrl": "https://example.com", "expiresAt": time.Now().Add(time.Hour).Format(time.RFC3339)},
	} {
		w := env.do(t, http.MethodPost, "/api/urls", "", req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}
}

func TestCreateURL_SignedInWithAlias(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, "alias@example.com")

	w := env.do(t, http.MethodPost, "/api/urls", token, map[string]string{
		"originalUrl": "https://example.com",
		"customAlias": "my-brand",
	})

	require.Equal(t, http.StatusCreated, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "my-brand", body["shortCode"])

	// Second take on the same alias by anyone is rejected.
	_, token2 := env.createUser(t, "other@example.com")
	w = env.do(t, http.MethodPost, "/api/urls", token2, map[string]string{
		"originalUrl": "https://other.example.com",
		"customAlias": "my-brand",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateURL_DuplicateReturnsExisting(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, "dup@example.com")

	first := env.do(t, http.MethodPost, "/api/urls", token, map[string]string{
		"originalUrl": "https://example.com/same",
	})
	require.Equal(t, http.StatusCreated, first.Code)
	firstBody := decodeBody(t, first)

	second := env.do(t, http.MethodPost, "/api/urls", token, map[string]string{
		"originalUrl": "https://example.com/same",
	})
	require.Equal(t, http.StatusOK, second.Code)
	secondBody := decodeBody(t, second)

	assert.Equal(t, firstBody["shortCode"], secondBody["shortCode"])
	assert.Equal(t, true, secondBody["isDuplicate"])
}

func TestCreateURL_InvalidURL(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/urls", "", map[string]string{
		"originalUrl": "not-a-url",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/urls", "", map[string]string{
		"originalUrl": "https://bit.ly/nested",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListURLs_RequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/urls", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListURLs_Pagination(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, "list@example.com")

	for _, u := range []string{"https://a.example.com", "https://b.example.com", "https://c.example.com"} {
		w := env.do(t, http.MethodPost, "/api/urls", token, map[string]string{"originalUrl": u})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := env.do(t, http.MethodGet, "/api/urls?page=1&limit=2", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp ListURLsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(3), resp.Total)
	assert.Len(t, resp.URLs, 2)
	assert.Equal(t, 1, resp.Page)
}

func TestDeleteURL_OwnershipEnforced(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, "owner@example.com")
	_, otherToken := env.createUser(t, "intruder@example.com")

	w := env.do(t, http.MethodPost, "/api/urls", token, map[string]string{
		"originalUrl": "https://example.com",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	id := int64(decodeBody(t, w)["id"].(float64))

	w = env.do(t, http.MethodDelete, urlItemPath(id), otherToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodDelete, urlItemPath(id), token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, urlItemPath(id), token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func urlItemPath(id int64) string {
	return "/api/urls/" + jsonNumber(id)
}

func jsonNumber(id int64) string {
	raw, _ := json.Marshal(id)
	return string(raw)
}

func TestRedirect_Public(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/urls", "", map[string]string{
		"originalUrl": "https://example.com/landing",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	code := decodeBody(t, w)["shortCode"].(string)

	resp := env.do(t, http.MethodGet, "/"+code, "", nil)
	assert.Equal(t, http.StatusFound, resp.Code)
	assert.Equal(t, "https://example.com/landing", resp.Header().Get("Location"))
}

func TestRedirect_RecordsClick(t *testing.T) {
	env := newTestEnv(t)

	link := &domain.URL{ShortCode: "track001", OriginalURL: "https://example.com", IsActive: true}
	require.NoError(t, env.storage.SaveURL(context.Background(), link))

	resp := env.do(t, http.MethodGet, "/track001", "", nil)
	require.Equal(t, http.StatusFound, resp.Code)

	assert.Eventually(t, func() bool {
		got, err := env.storage.GetURLByID(context.Background(), link.ID)
		return err == nil && got.Clicks == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRedirect_DisabledLooksLikeMissing(t *testing.T) {
	env := newTestEnv(t)

	link := &domain.URL{ShortCode: "offline1", OriginalURL: "https://example.com", IsActive: false}
	require.NoError(t, env.storage.SaveURL(context.Background(), link))

	resp := env.do(t, http.MethodGet, "/offline1", "", nil)
	assert.Equal(t, http.StatusFound, resp.Code)
	assert.Equal(t, "/404", resp.Header().Get("Location"))

	missing := env.do(t, http.MethodGet, "/nosuchcode", "", nil)
	assert.Equal(t, "/404", missing.Header().Get("Location"))
}

func TestRedirect_ExpiredAndPasswordPages(t *testing.T) {
	env := newTestEnv(t)

	past := time.Now().Add(-time.Hour)
	require.NoError(t, env.storage.SaveURL(context.Background(), &domain.URL{
		ShortCode: "gone0001", OriginalURL: "https://example.com", IsActive: true, ExpiresAt: &past,
	}))
	secret := "letmein"
	require.NoError(t, env.storage.SaveURL(context.Background(), &domain.URL{
		ShortCode: "safe0001", OriginalURL: "https://example.com", IsActive: true, Password: &secret,
	}))

	resp := env.do(t, http.MethodGet, "/gone0001", "", nil)
	assert.Equal(t, "/expired", resp.Header().Get("Location"))

	resp = env.do(t, http.MethodGet, "/safe0001", "", nil)
	assert.Equal(t, "/password/safe0001", resp.Header().Get("Location"))

	resp = env.do(t, http.MethodGet, "/safe0001?password=wrong", "", nil)
	assert.Equal(t, "/password/safe0001?error=invalid", resp.Header().Get("Location"))

	resp = env.do(t, http.MethodGet, "/safe0001?password=letmein", "", nil)
	assert.Equal(t, "https://example.com", resp.Header().Get("Location"))
}

func TestResolveJSON_Dispositions(t *testing.T) {
	env := newTestEnv(t)

	past := time.Now().Add(-time.Hour)
	secret := "letmein"
	require.NoError(t, env.storage.SaveURL(context.Background(), &domain.URL{
		ShortCode: "live0001", OriginalURL: "https://example.com/ok", IsActive: true,
	}))
	require.NoError(t, env.storage.SaveURL(context.Background(), &domain.URL{
		ShortCode: "dead0001", OriginalURL: "https://example.com", IsActive: false,
	}))
	require.NoError(t, env.storage.SaveURL(context.Background(), &domain.URL{
		ShortCode: "gone0001", OriginalURL: "https://example.com", IsActive: true, ExpiresAt: &past,
	}))
	require.NoError(t, env.storage.SaveURL(context.Background(), &domain.URL{
		ShortCode: "safe0001", OriginalURL: "https://example.com", IsActive: true, Password: &secret,
	}))

	tests := []struct {
		path       string
		wantStatus int
	}{
		{"/api/redirect/missing0", http.StatusNotFound},
		{"/api/redirect/dead0001", http.StatusForbidden},
		{"/api/redirect/gone0001", http.StatusGone},
		{"/api/redirect/safe0001", http.StatusUnauthorized},
		{"/api/redirect/safe0001?password=wrong", http.StatusUnauthorized},
		{"/api/redirect/safe0001?password=letmein", http.StatusOK},
		{"/api/redirect/live0001", http.StatusOK},
	}
	for _, tt := range tests {
		w := env.do(t, http.MethodGet, tt.path, "", nil)
		assert.Equal(t, tt.wantStatus, w.Code, "path %s", tt.path)
	}

	w := env.do(t, http.MethodGet, "/api/redirect/live0001", "", nil)
	body := decodeBody(t, w)
	assert.Equal(t, "https://example.com/ok", body["originalUrl"])

	w = env.do(t, http.MethodGet, "/api/redirect/safe0001", "", nil)
	body = decodeBody(t, w)
	assert.Equal(t, true, body["requiresPassword"])
}

func TestAnalytics_RequiresOwnership(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, "stats@example.com")
	_, otherToken := env.createUser(t, "nosy@example.com")

	w := env.do(t, http.MethodPost, "/api/urls", token, map[string]string{
		"originalUrl": "https://example.com",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	id := int64(decodeBody(t, w)["id"].(float64))

	w = env.do(t, http.MethodGet, "/api/analytics/"+jsonNumber(id), otherToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodGet, "/api/analytics/"+jsonNumber(id)+"?period=30d", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "30d", body["period"])
}

func TestAnalytics_Overview(t *testing.T) {
	env := newTestEnv(t)
	user, token := env.createUser(t, "overview@example.com")

	require.NoError(t, env.storage.SaveURL(context.Background(), &domain.URL{
		ShortCode: "ovw00001", OriginalURL: "https://a.example.com", IsActive: true, UserID: &user.ID, Clicks: 10,
	}))
	require.NoError(t, env.storage.SaveURL(context.Background(), &domain.URL{
		ShortCode: "ovw00002", OriginalURL: "https://b.example.com", IsActive: true, UserID: &user.ID, Clicks: 5,
	}))

	w := env.do(t, http.MethodGet, "/api/analytics/overview", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp OverviewResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(2), resp.TotalURLs)
	assert.Equal(t, int64(15), resp.TotalClicks)
	assert.Equal(t, 7.5, resp.AvgClicksPerURL)
	require.NotEmpty(t, resp.TopPerforming)
	assert.Equal(t, "ovw00001", resp.TopPerforming[0].ShortCode)
}

func TestRegisterLogin_Flow(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name":     "New User",
		"email":    "new@example.com",
		"password": "Passw0rd",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	body := decodeBody(t, w)
	assert.NotEmpty(t, body["access_token"])
	assert.NotEmpty(t, body["refresh_token"])

	// Duplicate registration is rejected.
	w = env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name":     "New User",
		"email":    "new@example.com",
		"password": "Passw0rd",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "new@example.com",
		"password": "Passw0rd",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "new@example.com",
		"password": "WrongPass1",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegister_WeakPasswordRejected(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name":     "Weak",
		"email":    "weak@example.com",
		"password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegenerateQR(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, "qr@example.com")

	w := env.do(t, http.MethodPost, "/api/urls", token, map[string]string{
		"originalUrl": "https://example.com",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	id := int64(decodeBody(t, w)["id"].(float64))

	w = env.do(t, http.MethodPost, urlItemPath(id)+"/qr", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Contains(t, body["qrCode"], "data:image/png;base64,")
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimit_Register(t *testing.T) {
	storage := memory.New()
	log := zap.NewNop()
	shortenerCfg := &config.URLShortener{BaseURL: "http://localhost:8080", CodeLength: 8}
	urlShortener := service.NewURLShortener(storage, nil, shortenerCfg, log)
	resolver := service.NewResolver(storage, log)
	aggregator := analytics.NewAggregator(storage, log)
	recorder := analytics.NewRecorder(storage, log, analytics.DefaultRecorderConfig())
	require.NoError(t, recorder.Start())
	t.Cleanup(func() { recorder.Stop() })

	authCfg := &config.Auth{
		SecretKey:           "test-secret",
		AccessTokenDuration: time.Minute, RefreshTokenDuration: time.Hour,
		Issuer: "SnapLink-Backend",
	}
	srv := NewServer(storage, nil, urlShortener, resolver, recorder, aggregator,
		auth.NewJWTService(authCfg), auth.NewPasswordServiceWithCost(4),
		&config.RateLimit{CreatePerMinute: 10, RegisterPerMinute: 2}, log)
	handler := srv.SetupRoutes()

	register := func() int {
		body, _ := json.Marshal(map[string]string{
			"name": "U", "email": "rl@example.com", "password": "Passw0rd",
		})
		req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader(body))
		req.RemoteAddr = "198.51.100.7:12345"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Code
	}

	first := register()
	assert.NotEqual(t, http.StatusTooManyRequests, first)
	second := register()
	assert.NotEqual(t, http.StatusTooManyRequests, second)
	third := register()
	assert.Equal(t, http.StatusTooManyRequests, third)
}
