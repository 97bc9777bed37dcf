// Package bookmarks orchestrates bookmark creation and removal, keeping the
// reminder job queue consistent with stored records.
package bookmarks

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/MrSnakeDoc/pinboard/internal/domain"
	"github.com/MrSnakeDoc/pinboard/internal/logger"
)

// Store persists bookmark records.
// Create must reject a second record for the same (user, post) pair with domain.ErrDuplicate.
// Lookups return domain.ErrNotFound when nothing matches.
type Store interface {
	Create(ctx context.Context, bookmark *domain.Bookmark) (*domain.Bookmark, error)
	FindByID(ctx context.Context, id string) (*domain.Bookmark, error)
	FindByUserAndPost(ctx context.Context, userID, postID string) (*domain.Bookmark, error)
	FindByUserAndTopic(ctx context.Context, userID, topicID string) ([]*domain.Bookmark, error)
	Delete(ctx context.Context, id string) error
}

// JobScheduler is the at-least-once timed job queue.
// CancelScheduledJob must succeed when nothing is scheduled.
type JobScheduler interface {
	EnqueueAt(ctx context.Context, at time.Time, jobType string, payload domain.JobPayload) (domain.JobHandle, error)
	ScheduledFor(ctx context.Context, jobType string, payload domain.JobPayload) ([]domain.JobHandle, error)
	CancelScheduledJob(ctx context.Context, jobType string, payload domain.JobPayload) error
}

// PostLookup resolves the topic a post belongs to.
type PostLookup interface {
	ResolveTopicID(ctx context.Context, postID string) (string, error)
}

// Recorder receives lifecycle events. A nil Recorder is allowed.
type Recorder interface {
	BookmarkCreated(reminder domain.ReminderType)
	BookmarkDestroyed()
	ReminderEnqueued()
	ReminderCancelled()
	ValidationFailed(code domain.ValidationCode)
}

// CreateParams are the caller-supplied fields of a new bookmark.
type CreateParams struct {
	PostID       string
	Name         string
	ReminderType domain.ReminderType
	ReminderAt   *time.Time
}

// CreateResult carries either the created bookmark or the validation errors
// that stopped its creation.
type CreateResult struct {
	Bookmark *domain.Bookmark
	Errors   domain.ValidationErrors
}

// OK reports whether the bookmark was created.
func (r *CreateResult) OK() bool {
	return r != nil && r.Bookmark != nil && len(r.Errors) == 0
}

// Manager is stateless between calls.
type Manager struct {
	store     Store
	scheduler JobScheduler
	posts     PostLookup
	logger    logger.Logger
	recorder  Recorder
	now       func() time.Time
}

// Option customises a Manager.
type Option func(*Manager)

// WithClock overrides time.Now (tests).
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(m *Manager) { m.recorder = r }
}

// NewManager creates a new bookmark manager
func NewManager(store Store, scheduler JobScheduler, posts PostLookup, log logger.Logger, opts ...Option) *Manager {
	m := &Manager{
		store:     store,
		scheduler: scheduler,
		posts:     posts,
		logger:    log,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create bookmarks a post for actor.
//
// User-correctable problems are returned in CreateResult.Errors and leave no
// record and no job behind. The error return is reserved for collaborator failures.
func (m *Manager) Create(ctx context.Context, actor domain.Actor, params CreateParams) (*CreateResult, error) {
	topicID, err := m.posts.ResolveTopicID(ctx, params.PostID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve topic for post %s: %w", params.PostID, err)
	}

	existing, err := m.store.FindByUserAndPost(ctx, actor.ID, params.PostID)
	switch {
	case err == nil && existing != nil:
		return m.rejected(actor, params, domain.ValidationErrors{
			domain.NewValidationError(domain.CodeAlreadyBookmarkedPost),
		}), nil
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("failed to look up existing bookmark: %w", err)
	}

	now := m.now().UTC()
	reminderAt := domain.NormalizeReminderAt(params.ReminderType, params.ReminderAt)

	var errs domain.ValidationErrors
	if utf8.RuneCountInString(params.Name) > domain.MaxNameLength {
		errs = append(errs, domain.NewValidationError(domain.CodeNameTooLong, domain.MaxNameLength))
	}
	errs = append(errs, domain.ValidateReminder(params.ReminderType, reminderAt, now)...)
	if len(errs) > 0 {
		return m.rejected(actor, params, errs), nil
	}

	bookmark := &domain.Bookmark{
		UserID:       actor.ID,
		PostID:       params.PostID,
		TopicID:      topicID,
		Name:         params.Name,
		ReminderType: params.ReminderType,
		ReminderAt:   reminderAt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if reminderAt != nil {
		bookmark.ReminderSetAt = &now
	}

	created, err := m.store.Create(ctx, bookmark)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return m.rejected(actor, params, domain.ValidationErrors{
				domain.NewValidationError(domain.CodeAlreadyBookmarkedPost),
			}), nil
		}
		return nil, fmt.Errorf("failed to create bookmark: %w", err)
	}

	if created.HasScheduledReminder() {
		payload := domain.JobPayload{BookmarkID: created.ID}
		if _, err := m.scheduler.EnqueueAt(ctx, *created.ReminderAt, domain.ReminderJobType, payload); err != nil {
			err = fmt.Errorf("failed to enqueue reminder for bookmark %s: %w", created.ID, err)
			// A timed bookmark must not outlive its missing job.
			if derr := m.store.Delete(ctx, created.ID); derr != nil {
				m.logger.Error("failed to roll back bookmark after enqueue failure",
					logger.String("bookmark_id", created.ID),
					logger.Error(derr))
				err = errors.Join(err, fmt.Errorf("failed to roll back bookmark %s: %w", created.ID, derr))
			}
			return nil, err
		}
		if m.recorder != nil {
			m.recorder.ReminderEnqueued()
		}
	}

	if m.recorder != nil {
		m.recorder.BookmarkCreated(created.ReminderType)
	}
	m.logger.Info("bookmark created",
		logger.String("bookmark_id", created.ID),
		logger.String("user_id", actor.ID),
		logger.String("post_id", created.PostID),
		logger.String("reminder_type", created.ReminderType.String()))

	return &CreateResult{Bookmark: created}, nil
}

// Destroy removes a bookmark owned by actor and cancels its reminder.
// It fails with domain.ErrNotFound or domain.ErrInvalidAccess before changing anything.
func (m *Manager) Destroy(ctx context.Context, actor domain.Actor, bookmarkID string) error {
	bookmark, err := m.store.FindByID(ctx, bookmarkID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("bookmark %s: %w", bookmarkID, domain.ErrNotFound)
		}
		return fmt.Errorf("failed to load bookmark %s: %w", bookmarkID, err)
	}

	if !actor.Owns(bookmark) {
		m.logger.Warn("bookmark destroy rejected",
			logger.String("bookmark_id", bookmarkID),
			logger.String("user_id", actor.ID))
		return fmt.Errorf("bookmark %s: %w", bookmarkID, domain.ErrInvalidAccess)
	}

	return m.remove(ctx, bookmark)
}

// DestroyForTopic removes every bookmark actor owns in topicID.
// Other users' bookmarks in the same topic are not read.
func (m *Manager) DestroyForTopic(ctx context.Context, actor domain.Actor, topicID string) error {
	bookmarks, err := m.store.FindByUserAndTopic(ctx, actor.ID, topicID)
	if err != nil {
		return fmt.Errorf("failed to list bookmarks for topic %s: %w", topicID, err)
	}

	for _, bookmark := range bookmarks {
		if err := m.remove(ctx, bookmark); err != nil {
			return err
		}
	}

	m.logger.Debug("destroyed bookmarks for topic",
		logger.String("topic_id", topicID),
		logger.String("user_id", actor.ID),
		logger.Int("count", len(bookmarks)))

	return nil
}

// remove cancels any scheduled reminder, then deletes the record.
func (m *Manager) remove(ctx context.Context, bookmark *domain.Bookmark) error {
	payload := domain.JobPayload{BookmarkID: bookmark.ID}

	scheduled, err := m.scheduler.ScheduledFor(ctx, domain.ReminderJobType, payload)
	if err != nil {
		return fmt.Errorf("failed to query reminder for bookmark %s: %w", bookmark.ID, err)
	}
	if len(scheduled) > 0 {
		if err := m.scheduler.CancelScheduledJob(ctx, domain.ReminderJobType, payload); err != nil {
			return fmt.Errorf("failed to cancel reminder for bookmark %s: %w", bookmark.ID, err)
		}
		if m.recorder != nil {
			m.recorder.ReminderCancelled()
		}
	}

	if err := m.store.Delete(ctx, bookmark.ID); err != nil {
		return fmt.Errorf("failed to delete bookmark %s: %w", bookmark.ID, err)
	}

	if m.recorder != nil {
		m.recorder.BookmarkDestroyed()
	}
	m.logger.Info("bookmark destroyed",
		logger.String("bookmark_id", bookmark.ID),
		logger.String("user_id", bookmark.UserID),
		logger.Int("cancelled_jobs", len(scheduled)))

	return nil
}

func (m *Manager) rejected(actor domain.Actor, params CreateParams, errs domain.ValidationErrors) *CreateResult {
	if m.recorder != nil {
		for _, e := range errs {
			m.recorder.ValidationFailed(e.Code)
		}
	}
	m.logger.Debug("bookmark rejected",
		logger.String("user_id", actor.ID),
		logger.String("post_id", params.PostID),
		logger.Error(errs))
	return &CreateResult{Errors: errs}
}
