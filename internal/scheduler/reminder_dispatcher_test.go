package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/pinboard/internal/domain"
	"github.com/MrSnakeDoc/pinboard/internal/index"
	"github.com/MrSnakeDoc/pinboard/internal/logger"
	redisstore "github.com/MrSnakeDoc/pinboard/internal/store/redis"
)

type outcomeCounter map[string]int

func (c outcomeCounter) ReminderFired(outcome string) { c[outcome]++ }

func newTestQueue(t *testing.T) *redisstore.JobQueue {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return redisstore.NewJobQueue(client)
}

func enqueue(t *testing.T, q *redisstore.JobQueue, at time.Time, bookmarkID string) {
	t.Helper()
	_, err := q.EnqueueAt(context.Background(), at, domain.ReminderJobType, domain.JobPayload{BookmarkID: bookmarkID})
	if err != nil {
		t.Fatalf("EnqueueAt failed: %v", err)
	}
}

func TestReminderDispatcher_Dispatch(t *testing.T) {
	ctx := context.Background()
	queue := newTestQueue(t)
	now := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)

	enqueue(t, queue, now.Add(-time.Hour), "b1")
	enqueue(t, queue, now, "b2")
	enqueue(t, queue, now.Add(time.Hour), "b3")

	var ran []string
	handler := func(_ context.Context, job domain.JobHandle) error {
		ran = append(ran, job.Payload.BookmarkID)
		return nil
	}

	counter := outcomeCounter{}
	rd := NewReminderDispatcher(queue, handler, counter, logger.NewNop(), time.Minute, 10, time.Minute)
	rd.now = func() time.Time { return now }

	claimed, err := rd.Dispatch(ctx)
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if claimed != 2 {
		t.Errorf("claimed = %d, want 2", claimed)
	}
	if len(ran) != 2 || ran[0] != "b1" || ran[1] != "b2" {
		t.Errorf("handler ran %v, want [b1 b2]", ran)
	}
	if counter[OutcomeDelivered] != 2 {
		t.Errorf("delivered = %d, want 2", counter[OutcomeDelivered])
	}

	pending, err := queue.Pending(ctx, domain.ReminderJobType)
	if err != nil {
		t.Fatalf("Pending failed: %v", err)
	}
	if pending != 1 {
		t.Errorf("pending = %d, want 1 (future job untouched)", pending)
	}

	// A second pass finds nothing new
	claimed, err = rd.Dispatch(ctx)
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if claimed != 0 {
		t.Errorf("second dispatch claimed %d, want 0", claimed)
	}
}

func TestReminderDispatcher_RetryOnFailure(t *testing.T) {
	ctx := context.Background()
	queue := newTestQueue(t)
	now := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	retryDelay := 5 * time.Minute

	enqueue(t, queue, now.Add(-time.Minute), "b1")

	handler := func(context.Context, domain.JobHandle) error {
		return errors.New("mailer down")
	}

	counter := outcomeCounter{}
	rd := NewReminderDispatcher(queue, handler, counter, logger.NewNop(), time.Minute, 10, retryDelay)
	rd.now = func() time.Time { return now }

	if _, err := rd.Dispatch(ctx); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if counter[OutcomeRetried] != 1 {
		t.Errorf("retried = %d, want 1", counter[OutcomeRetried])
	}

	handles, err := queue.ScheduledFor(ctx, domain.ReminderJobType, domain.JobPayload{BookmarkID: "b1"})
	if err != nil {
		t.Fatalf("ScheduledFor failed: %v", err)
	}
	if len(handles) != 1 {
		t.Fatalf("expected job to be re-enqueued, got %d handles", len(handles))
	}
	if !handles[0].RunAt.Equal(now.Add(retryDelay)) {
		t.Errorf("retry at %v, want %v", handles[0].RunAt, now.Add(retryDelay))
	}
}

func TestReminderDispatcher_DropJob(t *testing.T) {
	ctx := context.Background()
	queue := newTestQueue(t)
	now := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)

	enqueue(t, queue, now.Add(-time.Minute), "gone")

	// Bookmark "gone" does not exist in the store
	handler := NewReminderHandler(index.NewMemoryIndex(), logger.NewNop())

	counter := outcomeCounter{}
	rd := NewReminderDispatcher(queue, handler, counter, logger.NewNop(), time.Minute, 10, time.Minute)
	rd.now = func() time.Time { return now }

	if _, err := rd.Dispatch(ctx); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if counter[OutcomeDropped] != 1 {
		t.Errorf("dropped = %d, want 1", counter[OutcomeDropped])
	}

	pending, err := queue.Pending(ctx, domain.ReminderJobType)
	if err != nil {
		t.Fatalf("Pending failed: %v", err)
	}
	if pending != 0 {
		t.Errorf("pending = %d, want 0", pending)
	}
}

func TestReminderHandler_ExistingBookmark(t *testing.T) {
	ctx := context.Background()
	store := index.NewMemoryIndex()

	at := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	b, err := store.Create(ctx, &domain.Bookmark{
		UserID:       "u1",
		PostID:       "p1",
		TopicID:      "t1",
		ReminderType: domain.ReminderCustom,
		ReminderAt:   &at,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	handler := NewReminderHandler(store, logger.NewNop())
	err = handler(ctx, domain.JobHandle{
		JobType: domain.ReminderJobType,
		Payload: domain.JobPayload{BookmarkID: b.ID},
		RunAt:   at,
	})
	if err != nil {
		t.Errorf("handler returned %v, want nil", err)
	}

	err = handler(ctx, domain.JobHandle{
		JobType: domain.ReminderJobType,
		Payload: domain.JobPayload{BookmarkID: "missing"},
	})
	if !errors.Is(err, ErrDropJob) {
		t.Errorf("handler returned %v, want ErrDropJob", err)
	}
}

func TestReminderDispatcher_StartRequiresInterval(t *testing.T) {
	rd := NewReminderDispatcher(nil, nil, nil, logger.NewNop(), 0, 10, time.Minute)
	if err := rd.Start(context.Background()); err == nil {
		t.Error("Start with zero interval should fail")
	}
}
