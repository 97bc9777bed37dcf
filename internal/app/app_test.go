package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/pinboard/internal/bookmarks"
	"github.com/MrSnakeDoc/pinboard/internal/config"
	"github.com/MrSnakeDoc/pinboard/internal/domain"
	"github.com/MrSnakeDoc/pinboard/internal/logger"
)

func testConfig(t *testing.T, store string) *config.Config {
	t.Helper()

	catalog := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(catalog, []byte(`topics:
  - id: t1
    posts: [p1, p2]
`), 0o644))

	return &config.Config{
		ListenPort:            "127.0.0.1:0",
		ShutdownTimeout:       time.Second,
		Store:                 store,
		CatalogFile:           catalog,
		CatalogReloadInterval: time.Hour,
		DispatchInterval:      time.Hour,
		DispatchBatch:         10,
		ReminderRetryDelay:    time.Minute,
	}
}

func newTestApp(t *testing.T, store string) *App {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	a := build(testConfig(t, store), logger.NewNop(), client)
	require.NoError(t, a.reloader.Reload(context.Background()))
	return a
}

func TestAppReminderLifecycle(t *testing.T) {
	for _, store := range []string{config.StoreRedis, config.StoreMemory} {
		t.Run(store, func(t *testing.T) {
			ctx := context.Background()
			a := newTestApp(t, store)
			actor := domain.Actor{ID: "u1"}

			at := time.Now().Add(time.Hour).UTC()
			res, err := a.Bookmarks().Create(ctx, actor, bookmarks.CreateParams{
				PostID:       "p1",
				ReminderType: domain.ReminderCustom,
				ReminderAt:   &at,
			})
			require.NoError(t, err)
			require.True(t, res.OK(), "errors: %v", res.Errors)

			payload := domain.JobPayload{BookmarkID: res.Bookmark.ID}
			pending, err := a.jobs.ScheduledFor(ctx, domain.ReminderJobType, payload)
			require.NoError(t, err)
			require.Len(t, pending, 1)

			// Pull the job into the past so the dispatcher sees it as due
			_, err = a.jobs.EnqueueAt(ctx, time.Now().Add(-time.Second), domain.ReminderJobType, payload)
			require.NoError(t, err)

			claimed, err := a.dispatcher.Dispatch(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, claimed)

			count, err := a.jobs.Pending(ctx, domain.ReminderJobType)
			require.NoError(t, err)
			assert.Zero(t, count)

			require.NoError(t, a.Bookmarks().Destroy(ctx, actor, res.Bookmark.ID))
			_, err = a.Bookmarks().Create(ctx, actor, bookmarks.CreateParams{PostID: "p1"})
			require.NoError(t, err, "post can be bookmarked again after destroy")
		})
	}
}

func TestAppDestroyCancelsPendingReminder(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t, config.StoreRedis)
	actor := domain.Actor{ID: "u1"}

	at := time.Now().Add(24 * time.Hour).UTC()
	for _, post := range []string{"p1", "p2"} {
		res, err := a.Bookmarks().Create(ctx, actor, bookmarks.CreateParams{
			PostID:       post,
			ReminderType: domain.ReminderTomorrow,
			ReminderAt:   &at,
		})
		require.NoError(t, err)
		require.True(t, res.OK())
	}

	count, err := a.jobs.Pending(ctx, domain.ReminderJobType)
	require.NoError(t, err)
	require.Equal(t, int64(2), count)

	require.NoError(t, a.Bookmarks().DestroyForTopic(ctx, actor, "t1"))

	count, err = a.jobs.Pending(ctx, domain.ReminderJobType)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestAppRunStopsOnCancel(t *testing.T) {
	a := newTestApp(t, config.StoreMemory)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
