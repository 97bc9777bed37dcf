package domain

import "time"

// ReminderJobType is the scheduler tag for bookmark reminder jobs.
const ReminderJobType = "bookmark_reminder"

// JobPayload identifies the bookmark a job belongs to.
type JobPayload struct {
	BookmarkID string `json:"bookmark_id"`
}

// JobHandle is a job as seen through the scheduler.
type JobHandle struct {
	JobType string     `json:"job_type"`
	Payload JobPayload `json:"payload"`
	RunAt   time.Time  `json:"run_at"`
}
