package domain

import "time"

// MaxNameLength is the maximum number of characters allowed in a bookmark name.
const MaxNameLength = 100

// Bookmark represents one user's saved reference to a post.
//
// A Bookmark is uniquely identified by its ID, and at most one Bookmark
// exists per (UserID, PostID) pair. Records are created and destroyed,
// never edited in place.
type Bookmark struct {
	// ─────────────────────────────
	// Identity (immutable)
	// ─────────────────────────────

	// ID is assigned by the store on creation.
	ID string `json:"id"`

	// UserID is the owner of the bookmark.
	// Only the owner may destroy it.
	UserID string `json:"user_id"`

	// PostID is the bookmarked post.
	PostID string `json:"post_id"`

	// TopicID is the topic the post belonged to when the bookmark was created.
	TopicID string `json:"topic_id"`

	// ─────────────────────────────
	// User-provided description
	// ─────────────────────────────

	// Name is an optional free-text label.
	Name string `json:"name,omitempty"`

	// ─────────────────────────────
	// Reminder
	// ─────────────────────────────

	// ReminderType describes when (or whether) a reminder fires.
	ReminderType ReminderType `json:"reminder_type"`

	// ReminderAt is the UTC time the reminder fires.
	// Nil for ReminderNone and ReminderAtDesktop.
	ReminderAt *time.Time `json:"reminder_at,omitempty"`

	// ReminderSetAt is the time the reminder was requested.
	ReminderSetAt *time.Time `json:"reminder_set_at,omitempty"`

	// ─────────────────────────────
	// Metadata
	// ─────────────────────────────

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasScheduledReminder reports whether this bookmark should own a reminder job.
func (b *Bookmark) HasScheduledReminder() bool {
	return b.ReminderAt != nil && b.ReminderType.RequiresTime()
}

// Actor is the user on whose behalf an operation runs.
type Actor struct {
	ID string
}

// Owns reports whether the actor created the bookmark.
func (a Actor) Owns(b *Bookmark) bool {
	return b != nil && a.ID != "" && b.UserID == a.ID
}
