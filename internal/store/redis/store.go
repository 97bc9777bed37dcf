package redis

import (
	"github.com/redis/go-redis/v9"
)

// Store handles Redis persistence of bookmark records.
type Store struct {
	client *redis.Client
}

// NewStore creates a new Redis store
func NewStore(client *redis.Client) *Store {
	return &Store{
		client: client,
	}
}

// JobQueue is a Redis-backed at-least-once scheduler.
// Each job type is a sorted set scored by run time in Unix milliseconds.
type JobQueue struct {
	client *redis.Client
}

// NewJobQueue creates a new Redis job queue
func NewJobQueue(client *redis.Client) *JobQueue {
	return &JobQueue{
		client: client,
	}
}
