package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/pinboard/internal/domain"
)

func TestJobQueue_EnqueueQueryCancel(t *testing.T) {
	_, client := newTestClient(t)
	queue := NewJobQueue(client)
	ctx := context.Background()

	payload := domain.JobPayload{BookmarkID: "b1"}
	at := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)

	handle, err := queue.EnqueueAt(ctx, at, domain.ReminderJobType, payload)
	require.NoError(t, err)
	assert.Equal(t, payload, handle.Payload)

	scheduled, err := queue.ScheduledFor(ctx, domain.ReminderJobType, payload)
	require.NoError(t, err)
	require.Len(t, scheduled, 1)
	assert.True(t, scheduled[0].RunAt.Equal(at))

	// re-enqueue moves rather than duplicates
	later := at.Add(time.Hour)
	_, err = queue.EnqueueAt(ctx, later, domain.ReminderJobType, payload)
	require.NoError(t, err)
	n, err := queue.Pending(ctx, domain.ReminderJobType)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	require.NoError(t, queue.CancelScheduledJob(ctx, domain.ReminderJobType, payload))

	scheduled, err = queue.ScheduledFor(ctx, domain.ReminderJobType, payload)
	require.NoError(t, err)
	assert.Empty(t, scheduled)

	// cancelling nothing is fine
	require.NoError(t, queue.CancelScheduledJob(ctx, domain.ReminderJobType, payload))
}

func TestJobQueue_DueAndClaim(t *testing.T) {
	_, client := newTestClient(t)
	queue := NewJobQueue(client)
	ctx := context.Background()

	now := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)
	_, err := queue.EnqueueAt(ctx, now.Add(-2*time.Minute), domain.ReminderJobType, domain.JobPayload{BookmarkID: "old"})
	require.NoError(t, err)
	_, err = queue.EnqueueAt(ctx, now.Add(-time.Minute), domain.ReminderJobType, domain.JobPayload{BookmarkID: "recent"})
	require.NoError(t, err)
	_, err = queue.EnqueueAt(ctx, now.Add(time.Hour), domain.ReminderJobType, domain.JobPayload{BookmarkID: "future"})
	require.NoError(t, err)

	due, err := queue.Due(ctx, domain.ReminderJobType, now, 10)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, "old", due[0].Payload.BookmarkID)
	assert.Equal(t, "recent", due[1].Payload.BookmarkID)

	limited, err := queue.Due(ctx, domain.ReminderJobType, now, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	ok, err := queue.Claim(ctx, due[0])
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = queue.Claim(ctx, due[0])
	require.NoError(t, err)
	assert.False(t, ok, "a job can only be claimed once")

	n, err := queue.Pending(ctx, domain.ReminderJobType)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestJobQueue_DueSkipsGarbage(t *testing.T) {
	mr, client := newTestClient(t)
	queue := NewJobQueue(client)
	ctx := context.Background()

	_, err := mr.ZAdd(JobsKey(domain.ReminderJobType), 1, "not-json")
	require.NoError(t, err)

	due, err := queue.Due(ctx, domain.ReminderJobType, time.Now(), 10)
	require.NoError(t, err)
	assert.Empty(t, due)
	n, err := queue.Pending(ctx, domain.ReminderJobType)
	require.NoError(t, err)
	assert.Zero(t, n, "undecodable members are dropped")
}
