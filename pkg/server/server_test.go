package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flowrank/flowrank/internal/collector"
	"github.com/flowrank/flowrank/internal/snapshot"
	"github.com/flowrank/flowrank/pkg/source"
)

// blockingSource keeps a collection cycle alive until released, so tests can
// observe the in-progress state.
type blockingSource struct {
	release chan struct{}
}

func (b *blockingSource) Name() source.SourceType { return source.SourceYouTube }
func (b *blockingSource) Regional() bool          { return true }

func (b *blockingSource) Fetch(ctx context.Context, region string) source.Result {
	<-b.release
	return source.Result{}
}

func newTestServer(store *snapshot.Store, sources ...source.Source) *Server {
	coll := collector.New(sources, []string{"US"}, store)
	return New(store, coll, 8000, nil, true)
}

func seedStore(t *testing.T) *snapshot.Store {
	t.Helper()
	store := snapshot.NewStore()
	store.Publish(&snapshot.Snapshot{
		Records: []source.Record{
			{
				Workflow: "Top video",
				Source:   source.SourceYouTube,
				Region:   "US",
				Metrics:  source.Metrics{Views: 1000, EngagementScore: 90},
			},
			{
				Workflow: "Busy topic",
				Source:   source.SourceForum,
				Region:   "US",
				Metrics:  source.Metrics{Views: 500, EngagementScore: 60},
			},
			{
				Workflow: "Video IN",
				Source:   source.SourceYouTube,
				Region:   "IN",
				Metrics:  source.Metrics{Views: 200, EngagementScore: 30},
			},
		},
		LastRefresh: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	})
	return store
}

func doRequest(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealthBeforeFirstRefresh(t *testing.T) {
	srv := newTestServer(snapshot.NewStore())
	rec := doRequest(t, srv.Router(), http.MethodGet, "/api/health")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, "healthy", body["status"])
	require.Equal(t, true, body["youtube_api_configured"])
	require.Equal(t, float64(0), body["workflows_cached"])
	require.Equal(t, "never", body["last_sync"])
}

func TestKeepAlive(t *testing.T) {
	srv := newTestServer(snapshot.NewStore())
	rec := doRequest(t, srv.Router(), http.MethodGet, "/keep-alive")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "alive", decodeBody(t, rec)["status"])
}

func TestWorkflowsReturnsRankedSnapshot(t *testing.T) {
	srv := newTestServer(seedStore(t))
	rec := doRequest(t, srv.Router(), http.MethodGet, "/api/workflows")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, float64(3), body["total_workflows"])
	require.Equal(t, "2026-03-01T12:00:00Z", body["last_sync"])

	data := body["data"].([]any)
	require.Len(t, data, 3)
	require.Equal(t, "Top video", data[0].(map[string]any)["workflow"])

	require.Equal(t, map[string]any{"youtube": float64(2), "forum": float64(1)}, body["platforms"])
	require.Equal(t, map[string]any{"US": float64(2), "IN": float64(1)}, body["countries"])
}

func TestWorkflowsFilterKeepsFullBreakdowns(t *testing.T) {
	srv := newTestServer(seedStore(t))
	rec := doRequest(t, srv.Router(), http.MethodGet, "/api/workflows?platform=forum")

	body := decodeBody(t, rec)
	require.Equal(t, float64(1), body["total_workflows"])
	require.Equal(t, "Busy topic", body["data"].([]any)[0].(map[string]any)["workflow"])

	// Breakdowns describe the whole snapshot, not the filtered view.
	require.Equal(t, map[string]any{"youtube": float64(2), "forum": float64(1)}, body["platforms"])
}

func TestWorkflowsLimitAndCountry(t *testing.T) {
	srv := newTestServer(seedStore(t))

	body := decodeBody(t, doRequest(t, srv.Router(), http.MethodGet, "/api/workflows?limit=1"))
	require.Equal(t, float64(1), body["total_workflows"])

	body = decodeBody(t, doRequest(t, srv.Router(), http.MethodGet, "/api/workflows?country=in"))
	require.Equal(t, float64(1), body["total_workflows"])
	require.Equal(t, "Video IN", body["data"].([]any)[0].(map[string]any)["workflow"])
}

func TestWorkflowsPathFilters(t *testing.T) {
	srv := newTestServer(seedStore(t))

	body := decodeBody(t, doRequest(t, srv.Router(), http.MethodGet, "/api/workflows/platform/youtube"))
	require.Equal(t, float64(2), body["total_workflows"])

	body = decodeBody(t, doRequest(t, srv.Router(), http.MethodGet, "/api/workflows/country/US"))
	require.Equal(t, float64(2), body["total_workflows"])
}

func TestWorkflowsEmptyMatchIsEmptyArray(t *testing.T) {
	srv := newTestServer(seedStore(t))
	rec := doRequest(t, srv.Router(), http.MethodGet, "/api/workflows?platform=trends")

	body := decodeBody(t, rec)
	require.Equal(t, float64(0), body["total_workflows"])
	require.Equal(t, []any{}, body["data"])
}

func TestSyncTriggersRefresh(t *testing.T) {
	store := snapshot.NewStore()
	srv := newTestServer(store, &staticSource{})
	rec := doRequest(t, srv.Router(), http.MethodPost, "/api/sync")

	require.Equal(t, http.StatusAccepted, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, "processing", body["status"])
	require.NotEmpty(t, body["refresh_id"])

	require.Eventually(t, func() bool {
		return store.Get().Refreshed()
	}, time.Second, time.Millisecond)
}

func TestSyncConflictsWhileRunning(t *testing.T) {
	release := make(chan struct{})
	srv := newTestServer(snapshot.NewStore(), &blockingSource{release: release})
	router := srv.Router()

	first := doRequest(t, router, http.MethodPost, "/api/sync")
	require.Equal(t, http.StatusAccepted, first.Code)

	require.Eventually(t, srv.collector.Running, time.Second, time.Millisecond)

	second := doRequest(t, router, http.MethodPost, "/api/sync")
	require.Equal(t, http.StatusConflict, second.Code)
	require.Equal(t, "already_running", decodeBody(t, second)["status"])

	close(release)
}

func TestStatsEmpty(t *testing.T) {
	srv := newTestServer(snapshot.NewStore())
	rec := doRequest(t, srv.Router(), http.MethodGet, "/api/stats")

	body := decodeBody(t, rec)
	require.Equal(t, "no_data", body["status"])
	require.Equal(t, float64(0), body["total_workflows"])
	require.Equal(t, "never", body["last_sync"])
}

func TestStatsAggregatesPerPlatform(t *testing.T) {
	srv := newTestServer(seedStore(t))
	rec := doRequest(t, srv.Router(), http.MethodGet, "/api/stats")

	body := decodeBody(t, rec)
	require.Equal(t, float64(3), body["total_workflows"])
	require.Equal(t, "Top video", body["top_workflow"])

	platforms := body["platforms"].(map[string]any)
	yt := platforms["youtube"].(map[string]any)
	require.Equal(t, float64(2), yt["count"])
	require.Equal(t, float64(1200), yt["total_views"])
	require.Equal(t, 60.0, yt["avg_engagement"]) // (90+30)/2
}

func TestExportFormats(t *testing.T) {
	srv := newTestServer(seedStore(t))
	router := srv.Router()

	rec := doRequest(t, router, http.MethodGet, "/api/export")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var snap snapshot.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	require.Len(t, snap.Records, 3)

	rec = doRequest(t, router, http.MethodGet, "/api/export?format=text")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "3 workflows")
	require.Contains(t, rec.Body.String(), "Top video")

	rec = doRequest(t, router, http.MethodGet, "/api/export?format=xml")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(snapshot.NewStore())
	rec := doRequest(t, srv.Router(), http.MethodGet, "/metrics")

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), "flowrank_") ||
		strings.Contains(rec.Body.String(), "go_goroutines"))
}

// staticSource emits one record immediately.
type staticSource struct{}

func (staticSource) Name() source.SourceType { return source.SourceTrends }
func (staticSource) Regional() bool          { return true }

func (staticSource) Fetch(ctx context.Context, region string) source.Result {
	return source.Result{Records: []source.Record{{
		Workflow: "static",
		Source:   source.SourceTrends,
		Region:   region,
		Metrics:  source.Metrics{EngagementScore: 1},
	}}}
}
