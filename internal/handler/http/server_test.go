package http

import (
	"Synctra-Backend/internal/analytics"
	"Synctra-Backend/internal/attribution"
	"Synctra-Backend/internal/config"
	"Synctra-Backend/internal/deferred"
	"Synctra-Backend/internal/domain"
	"Synctra-Backend/internal/repository/memory"
	"Synctra-Backend/internal/service"
	"Synctra-Backend/pkg/useragent"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testUAAndroid = "Mozilla/5.0 (Linux; Android 13; Pixel 7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/114.0.0.0 Mobile Safari/537.36"
	testUADesktop = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/114.0.0.0 Safari/537.36"
)

var trackingIDPattern = regexp.MustCompile(`var trackingId = '([^']+)'`)

type serverFixture struct {
	storage  *memory.MemStorage
	contexts *deferred.MemoryStore
	router   http.Handler
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()

	log := zap.NewNop()
	storage := memory.New()
	contexts := deferred.NewMemoryStore(time.Hour)

	accessor, err := service.NewLinkAccessor(storage,
		&config.LinkCache{TTL: time.Hour, MaxSizeMB: 16, CounterSize: 1000},
		&config.Resolver{LookupTimeout: 250 * time.Millisecond},
		log)
	require.NoError(t, err)
	t.Cleanup(accessor.Close)

	recorder := analytics.NewRecorder(storage, log, analytics.RecorderConfig{
		WorkerCount:     1,
		BufferSize:      16,
		RetryAttempts:   1,
		RetryDelay:      10 * time.Millisecond,
		ShutdownTimeout: time.Second,
		WriteTimeout:    time.Second,
	})
	require.NoError(t, recorder.Start())
	t.Cleanup(func() { _ = recorder.Stop() })

	matcher := attribution.NewMatcher(storage, 30*time.Minute, 100, log)
	resolver := service.NewResolver(accessor, storage, contexts, recorder, useragent.Default(), log)
	server := NewServer(storage, resolver, contexts, recorder, matcher, log)

	return &serverFixture{
		storage:  storage,
		contexts: contexts,
		router:   server.SetupRoutes(),
	}
}

func (f *serverFixture) do(method, target, userAgent string, body []byte) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func seedTestLink(f *serverFixture) (*domain.Project, *domain.Link) {
	project := &domain.Project{
		ID:        uuid.New(),
		ProjectID: "demo",
		Name:      "Demo",
	}
	link := &domain.Link{
		ID:          uuid.New(),
		ProjectID:   project.ID,
		ShortCode:   "abc123",
		OriginalURL: "https://example.com/page",
		IsActive:    true,
	}
	f.storage.AddProject(project)
	f.storage.AddLink(link)
	return project, link
}

func strPtr(s string) *string {
	return &s
}

func TestRedirectUnknownCode(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(http.MethodGet, "/nothing-here", testUADesktop, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRedirectReservedPaths(t *testing.T) {
	f := newServerFixture(t)
	seedTestLink(f)

	for _, path := range []string{"/favicon.ico", "/robots.txt", "/docs", "/api/v1/links"} {
		rec := f.do(http.MethodGet, path, testUADesktop, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}

func TestRedirectExpiredLink(t *testing.T) {
	f := newServerFixture(t)
	_, link := seedTestLink(f)
	expired := time.Now().Add(-time.Hour)
	link.ExpiresAt = &expired

	rec := f.do(http.MethodGet, "/abc123", testUADesktop, nil)
	assert.Equal(t, http.StatusGone, rec.Code)
}

func TestRedirectDesktop(t *testing.T) {
	f := newServerFixture(t)
	_, link := seedTestLink(f)
	link.UTMSource = strPtr("mail")

	rec := f.do(http.MethodGet, "/abc123", testUADesktop, nil)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://example.com/page?utm_source=mail", rec.Header().Get("Location"))
}

func TestDeferredFlowEndToEnd(t *testing.T) {
	f := newServerFixture(t)
	_, link := seedTestLink(f)
	link.AndroidPackage = strPtr("com.x.app")
	link.UTMSource = strPtr("mail")

	// Шаг 1: клик на Android без установленного приложения — интерстициал
	rec := f.do(http.MethodGet, "/abc123", testUAAndroid, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")

	matches := trackingIDPattern.FindStringSubmatch(rec.Body.String())
	require.Len(t, matches, 2, "interstitial must embed the tracking id")
	trackingID := matches[1]

	// Шаг 2: SDK читает контекст неразрушающе
	rec = f.do(http.MethodGet, "/context/"+trackingID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var peeked struct {
		Success bool             `json:"success"`
		Context deferred.Context `json:"context"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &peeked))
	assert.True(t, peeked.Success)
	assert.Equal(t, "abc123", peeked.Context.ShortCode)
	assert.Equal(t, "https://example.com/page?utm_source=mail", peeked.Context.DestinationURL)

	// Клик пишется асинхронно; дожидаемся перед конверсией
	require.Eventually(t, func() bool {
		_, ok := f.storage.GetClick(peeked.Context.ClickID)
		return ok
	}, time.Second, 10*time.Millisecond)

	// Шаг 3: первый запуск приложения потребляет контекст
	body, _ := json.Marshal(map[string]string{"tracking_id": trackingID})
	rec = f.do(http.MethodPost, "/app-opened", "", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var opened struct {
		Success     bool              `json:"success"`
		OriginalURL string            `json:"original_url"`
		UTMParams   map[string]string `json:"utm_params"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &opened))
	assert.True(t, opened.Success)
	assert.Equal(t, "https://example.com/page?utm_source=mail", opened.OriginalURL)
	assert.Equal(t, map[string]string{"utm_source": "mail"}, opened.UTMParams)

	click, ok := f.storage.GetClick(peeked.Context.ClickID)
	require.True(t, ok)
	assert.True(t, click.Converted)

	// Шаг 4: повторный запуск не находит контекст
	rec = f.do(http.MethodPost, "/app-opened", "", body)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(http.MethodGet, "/context/"+trackingID, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAppOpenedHeuristicMatch(t *testing.T) {
	f := newServerFixture(t)
	project, _ := seedTestLink(f)

	click := &domain.ClickEvent{
		ID:                  uuid.New(),
		ProjectID:           &project.ID,
		Platform:            strPtr("android"),
		NativeAttemptFailed: true,
		ClickedAt:           time.Now().Add(-5 * time.Minute),
	}
	require.NoError(t, f.storage.SaveClick(context.Background(), click))

	body, _ := json.Marshal(map[string]string{
		"platform":   "android",
		"project_id": project.ID.String(),
	})
	rec := f.do(http.MethodPost, "/app-opened", "", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var matched struct {
		Matched bool   `json:"matched"`
		ClickID string `json:"click_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &matched))
	assert.True(t, matched.Matched)
	assert.Equal(t, click.ID.String(), matched.ClickID)

	got, ok := f.storage.GetClick(click.ID)
	require.True(t, ok)
	assert.True(t, got.Converted)
}

func TestAppOpenedNoSignal(t *testing.T) {
	f := newServerFixture(t)

	body, _ := json.Marshal(map[string]string{})
	rec := f.do(http.MethodPost, "/app-opened", "", body)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAppOpenedMethodNotAllowed(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(http.MethodGet, "/app-opened", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestInstallStatus(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(http.MethodGet, "/install-status/unknown-id", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var status struct {
		Installed bool `json:"installed"`
		Expired   bool `json:"expired"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.False(t, status.Installed)
	assert.True(t, status.Expired)

	trackingID, err := f.contexts.Create(context.Background(), &deferred.Context{ShortCode: "abc123"})
	require.NoError(t, err)

	rec = f.do(http.MethodGet, "/install-status/"+trackingID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.False(t, status.Expired)
}

func TestTrackWebContinueKeepsContext(t *testing.T) {
	f := newServerFixture(t)

	trackingID, err := f.contexts.Create(context.Background(), &deferred.Context{ShortCode: "abc123"})
	require.NoError(t, err)

	body, _ := json.Marshal(map[string]string{"tracking_id": trackingID})
	rec := f.do(http.MethodPost, "/track-web-continue", "", body)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Выбор web не потребляет контекст
	_, err = f.contexts.Peek(context.Background(), trackingID)
	assert.NoError(t, err)
}

func TestWellKnownDocuments(t *testing.T) {
	f := newServerFixture(t)

	assetLinks := `[{"relation":["delegate_permission/common.handle_all_urls"]}]`
	appleDoc := `{"applinks":{"apps":[],"details":[]}}`
	f.storage.AddProject(&domain.Project{
		ID:                      uuid.New(),
		ProjectID:               "demo",
		CustomDomain:            strPtr("links.example.com"),
		AssetLinksJSON:          strPtr(assetLinks),
		AppleAppSiteAssociation: strPtr(appleDoc),
	})

	rec := f.do(http.MethodGet, "http://links.example.com/.well-known/assetlinks.json", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, assetLinks, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	for _, path := range []string{"/.well-known/apple-app-site-association", "/apple-app-site-association"} {
		rec = f.do(http.MethodGet, "http://links.example.com"+path, "", nil)
		require.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, appleDoc, rec.Body.String(), path)
	}

	// Неизвестный хост — документа нет
	rec = f.do(http.MethodGet, "http://other.example.com/.well-known/assetlinks.json", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
