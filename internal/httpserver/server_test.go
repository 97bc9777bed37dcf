package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/pinboard/internal/config"
	"github.com/MrSnakeDoc/pinboard/internal/domain"
	"github.com/MrSnakeDoc/pinboard/internal/httpserver/deps"
	"github.com/MrSnakeDoc/pinboard/internal/index"
	"github.com/MrSnakeDoc/pinboard/internal/logger"
	"github.com/MrSnakeDoc/pinboard/internal/metrics"
	redisstore "github.com/MrSnakeDoc/pinboard/internal/store/redis"
)

type fixture struct {
	deps    deps.Deps
	handler http.Handler
}

func newFixture(t *testing.T, cidrs ...string) *fixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	idx := index.NewMemoryIndex()
	start := time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC)

	d := deps.Deps{
		Logger:        logger.NewNop(),
		StartTime:     start,
		Version:       "test",
		TimeNow:       func() time.Time { return start.Add(90 * time.Second) },
		AllowedCIDRS:  cidrs,
		StoreBackend:  config.StoreRedis,
		RedisClient:   client,
		MemoryIndex:   idx,
		Jobs:          redisstore.NewJobQueue(client),
		Metrics:       metrics.New().Handler(),
		ReloadTrigger: make(chan struct{}, 1),
	}

	return &fixture{deps: d, handler: NewRouter(d.Logger, d)}
}

func (f *fixture) do(method, path, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "redis", body["store"])
	assert.InDelta(t, 90, body["uptime_seconds"], 0.001)
}

func TestReadyz(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code, "no catalog loaded yet")
	assert.Contains(t, rec.Body.String(), "catalog not loaded")

	f.deps.MemoryIndex.UpdatePosts(map[string]string{"p1": "t1"})
	rec = f.do(http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	down := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 200 * time.Millisecond, MaxRetries: -1})
	t.Cleanup(func() { _ = down.Close() })
	d := f.deps
	d.RedisClient = down
	rec = httptest.NewRecorder()
	NewRouter(d.Logger, d).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "redis")
}

func TestInfra(t *testing.T) {
	f := newFixture(t)
	f.deps.MemoryIndex.UpdatePosts(map[string]string{"p1": "t1", "p2": "t1"})

	_, err := f.deps.Jobs.(*redisstore.JobQueue).EnqueueAt(context.Background(),
		time.Now().Add(time.Hour), domain.ReminderJobType, domain.JobPayload{BookmarkID: "b1"})
	require.NoError(t, err)

	rec := f.do(http.MethodGet, "/ops/infra", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status     string `json:"status"`
		Components map[string]struct {
			OK          bool   `json:"ok"`
			PostsLoaded *int   `json:"posts_loaded"`
			PendingJobs *int64 `json:"pending_jobs"`
		} `json:"components"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, "operational", body.Status)
	require.NotNil(t, body.Components["catalog"].PostsLoaded)
	assert.Equal(t, 2, *body.Components["catalog"].PostsLoaded)
	require.NotNil(t, body.Components["reminders"].PendingJobs)
	assert.Equal(t, int64(1), *body.Components["reminders"].PendingJobs)
}

func TestCatalogReloadTrigger(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/ops/catalog/reload", "")
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = f.do(http.MethodPost, "/ops/catalog/reload", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code, "second trigger while one is pending")

	<-f.deps.ReloadTrigger
	rec = f.do(http.MethodPost, "/ops/catalog/reload", "")
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestOpsRoutesCIDRFilter(t *testing.T) {
	f := newFixture(t, "10.0.0.0/8")

	assert.Equal(t, http.StatusForbidden, f.do(http.MethodGet, "/ops/infra", "192.0.2.1:4000").Code)
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodGet, "/metrics", "192.0.2.1:4000").Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/ops/infra", "10.1.1.1:4000").Code)

	// Liveness is never filtered
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/healthz", "192.0.2.1:4000").Code)
}

func TestMetricsRoute(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "pinboard_bookmarks_destroyed_total"))
}
