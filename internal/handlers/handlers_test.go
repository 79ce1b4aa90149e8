package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"real-estate-site/internal/contact"
	"real-estate-site/internal/i18n"
	"real-estate-site/internal/models"
	"real-estate-site/internal/ratelimit"
	"real-estate-site/internal/scheduler"
	"real-estate-site/internal/source"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubCatalog struct {
	properties []models.Property
	changes    []models.PropertyChange
	getErr     error
}

func (s *stubCatalog) Properties() []models.Property {
	out := make([]models.Property, len(s.properties))
	copy(out, s.properties)
	return out
}

func (s *stubCatalog) Get(_ context.Context, id int) (*models.Property, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	for _, p := range s.properties {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, source.ErrNotFound
}

func (s *stubCatalog) Status() source.CatalogStatus {
	return source.CatalogStatus{Count: len(s.properties), Loaded: true}
}

func (s *stubCatalog) RecentChanges(limit int) []models.PropertyChange {
	if limit > len(s.changes) {
		limit = len(s.changes)
	}
	return s.changes[:limit]
}

func fixture() []models.Property {
	return []models.Property{
		{ID: 1, Title: "Riad Dar Salam", Location: "Marrakech", Price: 2_500_000, Bedrooms: 4, Type: "riad", Description: "Courtyard and fountain",
			Images: []models.PropertyImage{{ID: 1, Image: "/media/1a.jpg"}, {ID: 2, Image: "/media/1b.jpg", IsMain: true}}},
		{ID: 2, Title: "Sea view apartment", Location: "Tangier", Price: 900_000, Bedrooms: 2, Type: "apartment"},
		{ID: 3, Title: "Family villa", Location: "marrakech", Price: 6_000_000, Bedrooms: 5, Type: "villa"},
		{ID: 4, Title: "Studio downtown", Location: "Casablanca", Price: 450_000, Bedrooms: 1, Type: "apartment"},
		{ID: 5, Title: "Kasbah retreat", Location: "Ouarzazate", Price: 1_200_000, Bedrooms: 3, Type: "villa"},
	}
}

type stubSubmitter struct {
	got []contact.Message
	err error
}

func (s *stubSubmitter) Submit(_ context.Context, msg contact.Message) error {
	s.got = append(s.got, msg)
	return s.err
}

type stubRunner struct {
	runs       atomic.Int32
	refreshing atomic.Bool
}

func (r *stubRunner) RunNow(context.Context) error {
	r.runs.Add(1)
	return nil
}

func (r *stubRunner) Status() scheduler.Status {
	return scheduler.Status{Spec: "*/15 * * * *", Refreshing: r.refreshing.Load()}
}

type stubIndexer struct {
	indexed []models.Property
	err     error
}

func (i *stubIndexer) IndexProperties(properties []models.Property) (int64, error) {
	i.indexed = properties
	return 7, i.err
}

type testEnv struct {
	router    *gin.Engine
	catalog   *stubCatalog
	submitter *stubSubmitter
	runner    *stubRunner
	indexer   *stubIndexer
	breaker   *source.Breaker
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dicts, err := i18n.Load()
	require.NoError(t, err)

	env := &testEnv{
		catalog:   &stubCatalog{properties: fixture()},
		submitter: &stubSubmitter{},
		runner:    &stubRunner{},
		indexer:   &stubIndexer{},
		breaker:   source.NewBreaker(2, time.Hour, quietLogger()),
	}

	r := gin.New()
	r.Use(RequestLogger(quietLogger()))
	RegisterRoutes(r,
		NewSiteHandler(env.catalog, dicts, 2, 3, quietLogger()),
		NewContactHandler(env.submitter, ratelimit.NewLimiter(ratelimit.Limits{PerMinute: 2}, true), quietLogger()),
		NewAdminHandler(env.catalog, env.runner, env.indexer, quietLogger()).WithBreaker(env.breaker),
	)
	env.router = r
	return env
}

func (e *testEnv) do(t *testing.T, method, target string, body []byte) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var decoded map[string]interface{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded), w.Body.String())
	}
	return w, decoded
}

func propertyIDs(t *testing.T, resp map[string]interface{}, key string) []int {
	t.Helper()
	items, ok := resp[key].([]interface{})
	require.True(t, ok, "missing %s", key)
	ids := make([]int, 0, len(items))
	for _, it := range items {
		ids = append(ids, int(it.(map[string]interface{})["id"].(float64)))
	}
	return ids
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	w, resp := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", resp["status"])
	assert.NotEmpty(t, w.Header().Get(TraceIDHeader))
}

func TestRequestLoggerKeepsValidTraceID(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(TraceIDHeader, "0b8f0c52-0a76-4d0b-9a51-9f0f3c9a1e2d")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, "0b8f0c52-0a76-4d0b-9a51-9f0f3c9a1e2d", w.Header().Get(TraceIDHeader))
}

func TestHomeFeaturesFirstThree(t *testing.T) {
	env := newTestEnv(t)
	w, resp := env.do(t, http.MethodGet, "/api/fr/home", nil)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, "fr", resp["locale"])
	assert.Equal(t, "ltr", resp["dir"])
	assert.Equal(t, []int{1, 2, 3}, propertyIDs(t, resp, "featured"))

	locations := resp["locations"].([]interface{})
	require.Len(t, locations, len(i18n.Locations))
	assert.Equal(t, "casablanca", locations[0].(map[string]interface{})["slug"])

	featured := resp["featured"].([]interface{})
	first := featured[0].(map[string]interface{})
	assert.Equal(t, "/media/1b.jpg", first["primary_image"])
	assert.Contains(t, first["formatted_price"], "MAD")
}

func TestUnknownLocaleFallsBackToEnglish(t *testing.T) {
	env := newTestEnv(t)
	_, resp := env.do(t, http.MethodGet, "/api/xx/about", nil)
	assert.Equal(t, "en", resp["locale"])

	_, resp = env.do(t, http.MethodGet, "/api/ar/contact", nil)
	assert.Equal(t, "ar", resp["locale"])
	assert.Equal(t, "rtl", resp["dir"])
}

func TestPropertiesDefaultsShowEverything(t *testing.T) {
	env := newTestEnv(t)
	w, resp := env.do(t, http.MethodGet, "/api/en/properties?page_size=10", nil)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, float64(5), resp["total"])
	assert.Equal(t, float64(5), resp["filtered_count"])
	assert.Equal(t, false, resp["has_active_filters"])
	assert.Equal(t, "MAD 0 - MAD 20,000,000", resp["price_range_label"])
	assert.Equal(t, []int{5, 4, 3, 2, 1}, propertyIDs(t, resp, "properties"))
}

func TestPropertiesFilterByLocation(t *testing.T) {
	env := newTestEnv(t)
	_, resp := env.do(t, http.MethodGet, "/api/en/properties?location=marrakech&sort=priceAsc", nil)

	assert.Equal(t, float64(2), resp["filtered_count"])
	assert.Equal(t, true, resp["has_active_filters"])
	assert.Equal(t, []int{1, 3}, propertyIDs(t, resp, "properties"))
}

func TestPropertiesPaging(t *testing.T) {
	env := newTestEnv(t)
	_, resp := env.do(t, http.MethodGet, "/api/en/properties?page=2", nil)

	assert.Equal(t, float64(2), resp["page"])
	assert.Equal(t, float64(3), resp["pages"])
	assert.Equal(t, []int{3, 2}, propertyIDs(t, resp, "properties"))

	_, resp = env.do(t, http.MethodGet, "/api/en/properties?page=9", nil)
	assert.Empty(t, propertyIDs(t, resp, "properties"))
}

func TestPropertiesInvalidRangeFailsOpen(t *testing.T) {
	env := newTestEnv(t)
	_, resp := env.do(t, http.MethodGet, "/api/en/properties?min_price=5000000&max_price=100&page_size=10", nil)

	validation := resp["validation"].(map[string]interface{})
	assert.Equal(t, false, validation["is_valid"])
	assert.Equal(t, []interface{}{"maximum price must be greater than minimum price"}, validation["errors"])
	assert.Equal(t, float64(5), resp["filtered_count"])
}

func TestPropertiesIgnoresNonFinitePrices(t *testing.T) {
	env := newTestEnv(t)
	for _, query := range []string{"max_price=Inf", "min_price=NaN", "min_price=-Infinity&max_price=100"} {
		t.Run(query, func(t *testing.T) {
			w, resp := env.do(t, http.MethodGet, "/api/en/properties?page_size=10&"+query, nil)
			require.Equal(t, http.StatusOK, w.Code)
			require.NotEmpty(t, resp)

			criteria := resp["criteria"].(map[string]interface{})
			assert.NotNil(t, criteria["price_range"])
			assert.Equal(t, true, resp["validation"].(map[string]interface{})["is_valid"])
		})
	}

	_, resp := env.do(t, http.MethodGet, "/api/en/properties?max_price=Inf&page_size=10", nil)
	assert.Equal(t, float64(5), resp["filtered_count"])
	assert.Equal(t, false, resp["has_active_filters"])
}

func TestPropertiesBedroomsAndSearch(t *testing.T) {
	env := newTestEnv(t)
	_, resp := env.do(t, http.MethodGet, "/api/en/properties?bedrooms=3&page_size=10", nil)
	assert.Equal(t, []int{5, 3, 1}, propertyIDs(t, resp, "properties"))

	_, resp = env.do(t, http.MethodGet, "/api/en/properties?search=FOUNTAIN", nil)
	assert.Equal(t, []int{1}, propertyIDs(t, resp, "properties"))
}

func TestPropertyDetail(t *testing.T) {
	env := newTestEnv(t)
	w, resp := env.do(t, http.MethodGet, "/api/en/properties/2", nil)
	require.Equal(t, http.StatusOK, w.Code)

	property := resp["property"].(map[string]interface{})
	assert.Equal(t, "Sea view apartment", property["title"])
	assert.Equal(t, "MAD 900,000", property["formatted_price"])

	w, _ = env.do(t, http.MethodGet, "/api/en/properties/42", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = env.do(t, http.MethodGet, "/api/en/properties/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	env.catalog.getErr = source.ErrUnavailable
	w, _ = env.do(t, http.MethodGet, "/api/en/properties/2", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestPropertyDetailKeepsUnknownCity(t *testing.T) {
	env := newTestEnv(t)
	_, resp := env.do(t, http.MethodGet, "/api/fr/properties/5", nil)
	property := resp["property"].(map[string]interface{})
	assert.Equal(t, "Ouarzazate", property["location_label"])
}

func contactBody(t *testing.T) []byte {
	body, err := json.Marshal(contact.Message{Name: "Amina", Email: "amina@example.com", Message: "Hello"})
	require.NoError(t, err)
	return body
}

func TestContactSubmit(t *testing.T) {
	env := newTestEnv(t)
	w, resp := env.do(t, http.MethodPost, "/api/contact?lang=fr", contactBody(t))
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "sent", resp["status"])
	require.Len(t, env.submitter.got, 1)
	assert.Equal(t, "fr", env.submitter.got[0].Locale)
}

func TestContactErrors(t *testing.T) {
	env := newTestEnv(t)

	w, _ := env.do(t, http.MethodPost, "/api/contact", []byte("{"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	env.submitter.err = &contact.ValidationError{Fields: []contact.FieldError{{Field: "email", Rule: "email"}}}
	w, resp := env.do(t, http.MethodPost, "/api/contact", contactBody(t))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotNil(t, resp["fields"])

	// the limiter allows two posts a minute per client
	env.submitter.err = nil
	w, resp = env.do(t, http.MethodPost, "/api/contact", contactBody(t))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotNil(t, resp["stats"])
	assert.Len(t, env.submitter.got, 1)
}

func TestContactUpstreamError(t *testing.T) {
	env := newTestEnv(t)
	env.submitter.err = &contact.UpstreamError{Sink: "contact api", StatusCode: 500}
	w, _ := env.do(t, http.MethodPost, "/api/contact", contactBody(t))
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestAdminStats(t *testing.T) {
	env := newTestEnv(t)
	w, resp := env.do(t, http.MethodGet, "/admin/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)

	locations := resp["locations"].([]interface{})
	top := locations[0].(map[string]interface{})
	assert.Equal(t, "marrakech", top["key"])
	assert.Equal(t, float64(2), top["count"])

	_, resp = env.do(t, http.MethodGet, "/admin/price-distribution", nil)
	buckets := resp["price_distribution"].([]interface{})
	counts := make([]int, 0, len(buckets))
	for _, b := range buckets {
		counts = append(counts, int(b.(map[string]interface{})["count"].(float64)))
	}
	assert.Equal(t, []int{1, 1, 1, 1, 1, 0}, counts)
}

func TestAdminStatsReportBreaker(t *testing.T) {
	env := newTestEnv(t)
	_, resp := env.do(t, http.MethodGet, "/admin/stats", nil)
	breaker := resp["breaker"].(map[string]interface{})
	assert.Equal(t, false, breaker["open"])

	env.breaker.RecordFailure(http.StatusBadGateway)
	env.breaker.RecordFailure(http.StatusBadGateway)

	_, resp = env.do(t, http.MethodGet, "/admin/stats", nil)
	breaker = resp["breaker"].(map[string]interface{})
	assert.Equal(t, true, breaker["open"])
	assert.Equal(t, float64(2), breaker["consecutive_failures"])
}

func TestAdminRecentChanges(t *testing.T) {
	env := newTestEnv(t)
	env.catalog.changes = []models.PropertyChange{
		{PropertyID: 2, ChangeType: models.ChangeTypePrice, OldValue: "950000", NewValue: "900000"},
		{PropertyID: 6, ChangeType: models.ChangeTypeRemoved},
	}

	w, resp := env.do(t, http.MethodGet, "/admin/changes?limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), resp["count"])
	first := resp["changes"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "price_changed", first["change_type"])

	_, resp = env.do(t, http.MethodGet, "/admin/changes?limit=abc", nil)
	assert.Equal(t, float64(2), resp["count"])
}

func TestAdminRefreshAndReindex(t *testing.T) {
	env := newTestEnv(t)

	w, _ := env.do(t, http.MethodPost, "/admin/refresh", nil)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Eventually(t, func() bool { return env.runner.runs.Load() == 1 }, time.Second, 10*time.Millisecond)

	env.runner.refreshing.Store(true)
	w, _ = env.do(t, http.MethodPost, "/admin/refresh", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, int32(1), env.runner.runs.Load())

	w, resp := env.do(t, http.MethodPost, "/admin/reindex", nil)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, float64(7), resp["task_uid"])
	assert.Len(t, env.indexer.indexed, 5)

	env.indexer.err = errors.New("meilisearch down")
	w, _ = env.do(t, http.MethodPost, "/admin/reindex", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}
