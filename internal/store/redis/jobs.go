package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/pinboard/internal/domain"
)

// EnqueueAt schedules a job. Enqueueing the same (type, payload) again
// moves the existing job instead of adding a second one.
func (q *JobQueue) EnqueueAt(ctx context.Context, at time.Time, jobType string, payload domain.JobPayload) (domain.JobHandle, error) {
	member, err := encodePayload(payload)
	if err != nil {
		return domain.JobHandle{}, err
	}

	err = q.client.ZAdd(ctx, JobsKey(jobType), redis.Z{
		Score:  float64(at.UnixMilli()),
		Member: member,
	}).Err()
	if err != nil {
		return domain.JobHandle{}, fmt.Errorf("failed to enqueue %s job: %w", jobType, err)
	}

	return domain.JobHandle{JobType: jobType, Payload: payload, RunAt: at.UTC()}, nil
}

// ScheduledFor returns the pending job for a payload, or an empty slice.
func (q *JobQueue) ScheduledFor(ctx context.Context, jobType string, payload domain.JobPayload) ([]domain.JobHandle, error) {
	member, err := encodePayload(payload)
	if err != nil {
		return nil, err
	}

	score, err := q.client.ZScore(ctx, JobsKey(jobType), member).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []domain.JobHandle{}, nil
		}
		return nil, fmt.Errorf("failed to query %s job: %w", jobType, err)
	}

	return []domain.JobHandle{{
		JobType: jobType,
		Payload: payload,
		RunAt:   time.UnixMilli(int64(score)).UTC(),
	}}, nil
}

// CancelScheduledJob removes a pending job. Cancelling nothing is not an error.
func (q *JobQueue) CancelScheduledJob(ctx context.Context, jobType string, payload domain.JobPayload) error {
	member, err := encodePayload(payload)
	if err != nil {
		return err
	}

	if err := q.client.ZRem(ctx, JobsKey(jobType), member).Err(); err != nil {
		return fmt.Errorf("failed to cancel %s job: %w", jobType, err)
	}
	return nil
}

// Due returns up to limit jobs whose run time is at or before now, oldest first.
func (q *JobQueue) Due(ctx context.Context, jobType string, now time.Time, limit int64) ([]domain.JobHandle, error) {
	entries, err := q.client.ZRangeByScoreWithScores(ctx, JobsKey(jobType), &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.UnixMilli(), 10),
		Count: limit,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list due %s jobs: %w", jobType, err)
	}

	handles := make([]domain.JobHandle, 0, len(entries))
	for _, z := range entries {
		raw, ok := z.Member.(string)
		if !ok {
			continue
		}
		var payload domain.JobPayload
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			// Drop members we cannot decode so they don't block the queue
			_ = q.client.ZRem(ctx, JobsKey(jobType), raw).Err()
			continue
		}
		handles = append(handles, domain.JobHandle{
			JobType: jobType,
			Payload: payload,
			RunAt:   time.UnixMilli(int64(z.Score)).UTC(),
		})
	}

	return handles, nil
}

// Claim removes a due job so that exactly one worker runs it.
// It returns false when another worker (or a cancel) got there first.
func (q *JobQueue) Claim(ctx context.Context, handle domain.JobHandle) (bool, error) {
	member, err := encodePayload(handle.Payload)
	if err != nil {
		return false, err
	}

	removed, err := q.client.ZRem(ctx, JobsKey(handle.JobType), member).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim %s job: %w", handle.JobType, err)
	}
	return removed == 1, nil
}

// Pending returns the number of scheduled jobs of a type
func (q *JobQueue) Pending(ctx context.Context, jobType string) (int64, error) {
	n, err := q.client.ZCard(ctx, JobsKey(jobType)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count %s jobs: %w", jobType, err)
	}
	return n, nil
}

func encodePayload(payload domain.JobPayload) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal job payload: %w", err)
	}
	return string(data), nil
}
