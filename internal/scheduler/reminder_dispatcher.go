package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/pinboard/internal/domain"
	"github.com/MrSnakeDoc/pinboard/internal/logger"
)

// ErrDropJob tells the dispatcher that a job must not be retried.
var ErrDropJob = errors.New("drop job")

// Dispatch outcomes, used as the metrics label.
const (
	OutcomeDelivered = "delivered"
	OutcomeDropped   = "dropped"
	OutcomeRetried   = "retried"
)

// DueQueue is the part of the job queue the dispatcher needs
type DueQueue interface {
	Due(ctx context.Context, jobType string, now time.Time, limit int64) ([]domain.JobHandle, error)
	Claim(ctx context.Context, handle domain.JobHandle) (bool, error)
	EnqueueAt(ctx context.Context, at time.Time, jobType string, payload domain.JobPayload) (domain.JobHandle, error)
}

// FiredRecorder counts dispatch outcomes
type FiredRecorder interface {
	ReminderFired(outcome string)
}

// ReminderHandler runs a claimed reminder job.
type ReminderHandler func(ctx context.Context, job domain.JobHandle) error

// ReminderDispatcher periodically runs due reminder jobs
type ReminderDispatcher struct {
	queue      DueQueue
	handler    ReminderHandler
	recorder   FiredRecorder
	logger     logger.Logger
	interval   time.Duration
	batchSize  int64
	retryDelay time.Duration
	now        func() time.Time
	stopCh     chan struct{}
}

// NewReminderDispatcher creates a new reminder dispatcher.
// recorder may be nil.
func NewReminderDispatcher(
	queue DueQueue,
	handler ReminderHandler,
	recorder FiredRecorder,
	log logger.Logger,
	interval time.Duration,
	batchSize int64,
	retryDelay time.Duration,
) *ReminderDispatcher {
	return &ReminderDispatcher{
		queue:      queue,
		handler:    handler,
		recorder:   recorder,
		logger:     log,
		interval:   interval,
		batchSize:  batchSize,
		retryDelay: retryDelay,
		now:        time.Now,
		stopCh:     make(chan struct{}),
	}
}

// Start begins the periodic dispatch loop
func (rd *ReminderDispatcher) Start(ctx context.Context) error {
	if rd.interval <= 0 {
		return fmt.Errorf("dispatch interval must be > 0, got %v", rd.interval)
	}

	ticker := time.NewTicker(rd.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := rd.Dispatch(ctx); err != nil {
					rd.logger.Error("failed to dispatch reminders",
						logger.Error(err))
				}
			case <-rd.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the dispatcher
func (rd *ReminderDispatcher) Stop() {
	close(rd.stopCh)
}

// Dispatch runs one batch of due reminder jobs and returns how many it claimed.
func (rd *ReminderDispatcher) Dispatch(ctx context.Context) (int, error) {
	now := rd.now()

	jobs, err := rd.queue.Due(ctx, domain.ReminderJobType, now, rd.batchSize)
	if err != nil {
		return 0, err
	}

	claimed := 0
	for _, job := range jobs {
		ok, err := rd.queue.Claim(ctx, job)
		if err != nil {
			return claimed, err
		}
		if !ok {
			// Cancelled or taken by another instance
			continue
		}
		claimed++

		rd.run(ctx, job, now)
	}

	if claimed > 0 {
		rd.logger.Debug("dispatched reminders",
			logger.Int("claimed", claimed))
	}

	return claimed, nil
}

func (rd *ReminderDispatcher) run(ctx context.Context, job domain.JobHandle, now time.Time) {
	err := rd.handler(ctx, job)
	switch {
	case err == nil:
		rd.record(OutcomeDelivered)
	case errors.Is(err, ErrDropJob):
		rd.logger.Info("reminder dropped",
			logger.String("bookmark_id", job.Payload.BookmarkID),
			logger.Error(err))
		rd.record(OutcomeDropped)
	default:
		retryAt := now.Add(rd.retryDelay)
		if _, qerr := rd.queue.EnqueueAt(ctx, retryAt, job.JobType, job.Payload); qerr != nil {
			rd.logger.Error("failed to re-enqueue reminder, job lost",
				logger.String("bookmark_id", job.Payload.BookmarkID),
				logger.Error(qerr))
			return
		}
		rd.logger.Warn("reminder failed, retrying later",
			logger.String("bookmark_id", job.Payload.BookmarkID),
			logger.Time("retry_at", retryAt),
			logger.Error(err))
		rd.record(OutcomeRetried)
	}
}

func (rd *ReminderDispatcher) record(outcome string) {
	if rd.recorder != nil {
		rd.recorder.ReminderFired(outcome)
	}
}

// BookmarkFinder loads a bookmark by id
type BookmarkFinder interface {
	FindByID(ctx context.Context, id string) (*domain.Bookmark, error)
}

// NewReminderHandler returns the default handler: it resolves the bookmark
// and logs that its reminder is due. Jobs for deleted bookmarks are dropped.
func NewReminderHandler(store BookmarkFinder, log logger.Logger) ReminderHandler {
	return func(ctx context.Context, job domain.JobHandle) error {
		b, err := store.FindByID(ctx, job.Payload.BookmarkID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("bookmark %s: %w", job.Payload.BookmarkID, ErrDropJob)
			}
			return err
		}

		fields := []logger.Field{
			logger.String("bookmark_id", b.ID),
			logger.String("user_id", b.UserID),
			logger.String("post_id", b.PostID),
			logger.String("reminder_type", b.ReminderType.String()),
		}
		if b.ReminderAt != nil {
			fields = append(fields, logger.Time("reminder_at", *b.ReminderAt))
		}
		log.Info("reminder due", fields...)
		return nil
	}
}
