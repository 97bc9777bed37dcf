package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/pinboard/internal/config"
	"github.com/MrSnakeDoc/pinboard/internal/domain"
	"github.com/MrSnakeDoc/pinboard/internal/httpserver/deps"
)

type componentStatus struct {
	OK             bool   `json:"ok"`
	PostsLoaded    *int   `json:"posts_loaded,omitempty"`
	BookmarksInMem *int   `json:"bookmarks_in_memory,omitempty"`
	PendingJobs    *int64 `json:"pending_jobs,omitempty"`
	LastReload     string `json:"last_reload,omitempty"`
	Mode           string `json:"mode,omitempty"`
	Impact         string `json:"impact,omitempty"`
	Error          string `json:"error,omitempty"`
}

type infraResponse struct {
	Status     string                     `json:"status"`
	Components map[string]componentStatus `json:"components"`
}

func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		components := map[string]componentStatus{
			"catalog":   checkCatalog(d),
			"redis":     checkRedis(ctx, d),
			"reminders": checkReminders(ctx, d),
			"store":     checkStore(d),
		}

		writeJSON(w, http.StatusOK, infraResponse{
			Status:     overallStatus(components),
			Components: components,
		})
	}
}

func overallStatus(components map[string]componentStatus) string {
	// Without Redis no reminder can be scheduled
	if redis, ok := components["redis"]; ok && !redis.OK {
		return "critical"
	}
	// Without a catalog every create fails post lookup
	if catalog, ok := components["catalog"]; ok && !catalog.OK {
		return "critical"
	}
	if reminders, ok := components["reminders"]; ok && !reminders.OK {
		return "degraded"
	}
	return "operational"
}

func checkCatalog(d deps.Deps) componentStatus {
	if d.MemoryIndex == nil {
		return componentStatus{OK: false, Error: "index not initialized"}
	}

	posts := d.MemoryIndex.PostCount()
	lastReload := "never"
	if t := d.MemoryIndex.GetLastReload(); !t.IsZero() {
		lastReload = t.UTC().Format(time.RFC3339)
	}

	return componentStatus{
		OK:          posts > 0,
		PostsLoaded: &posts,
		LastReload:  lastReload,
	}
}

func checkStore(d deps.Deps) componentStatus {
	status := componentStatus{OK: true, Mode: d.StoreBackend}
	if d.StoreBackend == config.StoreMemory {
		status.Impact = "bookmarks-lost-on-restart"
		if d.MemoryIndex != nil {
			n := d.MemoryIndex.BookmarkCount()
			status.BookmarksInMem = &n
		}
	}
	return status
}

func checkReminders(ctx context.Context, d deps.Deps) componentStatus {
	if d.Jobs == nil {
		return componentStatus{OK: false, Error: "queue not initialized"}
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	pending, err := d.Jobs.Pending(ctx, domain.ReminderJobType)
	if err != nil {
		return componentStatus{OK: false, Impact: "reminders-delayed", Error: err.Error()}
	}
	return componentStatus{OK: true, PendingJobs: &pending}
}

func checkRedis(ctx context.Context, d deps.Deps) componentStatus {
	if d.RedisClient == nil {
		return componentStatus{
			OK:     false,
			Impact: "reminders-disabled",
			Error:  "client not initialized",
		}
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := d.RedisClient.Ping(ctx).Err(); err != nil {
		return componentStatus{
			OK:     false,
			Impact: "reminders-disabled",
			Error:  "unreachable",
		}
	}

	return componentStatus{OK: true}
}
