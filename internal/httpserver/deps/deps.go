package deps

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/pinboard/internal/index"
	"github.com/MrSnakeDoc/pinboard/internal/logger"
)

// PendingCounter reports how many jobs of a type are scheduled
type PendingCounter interface {
	Pending(ctx context.Context, jobType string) (int64, error)
}

type Deps struct {
	Logger        logger.Logger
	StartTime     time.Time
	Version       string
	Commit        string
	BuildDate     string
	GoVersion     string
	TimeNow       func() time.Time   // for testing, defaults to time.Now
	AllowedCIDRS  []string           // networks allowed on the ops endpoints
	TrustProxy    bool               // true if running behind a trusted reverse proxy
	StoreBackend  string             // "redis" or "memory"
	RedisClient   *redis.Client      // Redis client connection
	MemoryIndex   *index.MemoryIndex // post catalog (and bookmarks in memory mode)
	Jobs          PendingCounter     // reminder job queue
	Metrics       http.Handler       // Prometheus exposition handler
	ReloadTrigger chan struct{}      // Channel to trigger a manual catalog reload
}
