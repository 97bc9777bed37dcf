package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/pinboard/internal/domain"
)

// createAttempts bounds the optimistic retries when another writer touches the same pair.
const createAttempts = 3

// Create stores a new bookmark and assigns its ID.
// The (user, post) claim, the record and the topic index are written in one
// WATCH/MULTI transaction. A claim whose record no longer exists is stale and is
// replaced; a live one fails with domain.ErrDuplicate.
func (s *Store) Create(ctx context.Context, bookmark *domain.Bookmark) (*domain.Bookmark, error) {
	stored := *bookmark
	stored.ID = uuid.NewString()

	data, err := json.Marshal(&stored)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal bookmark: %w", err)
	}

	uniqueKey := UserPostKey(stored.UserID, stored.PostID)
	txf := func(tx *redis.Tx) error {
		claimedBy, err := tx.Get(ctx, uniqueKey).Result()
		switch {
		case err == nil:
			live, err := tx.Exists(ctx, BookmarkKey(claimedBy)).Result()
			if err != nil {
				return fmt.Errorf("failed to check claimed bookmark: %w", err)
			}
			if live > 0 {
				return domain.ErrDuplicate
			}
		case !errors.Is(err, redis.Nil):
			return fmt.Errorf("failed to read bookmark claim: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, uniqueKey, stored.ID, 0)
			pipe.Set(ctx, BookmarkKey(stored.ID), data, 0)
			pipe.SAdd(ctx, UserTopicKey(stored.UserID, stored.TopicID), stored.ID)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < createAttempts; attempt++ {
		err = s.client.Watch(ctx, txf, uniqueKey)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			if errors.Is(err, domain.ErrDuplicate) {
				return nil, err
			}
			return nil, fmt.Errorf("failed to save bookmark: %w", err)
		}
		return &stored, nil
	}

	return nil, fmt.Errorf("failed to save bookmark: %w", err)
}

// FindByID retrieves a bookmark from Redis by ID
func (s *Store) FindByID(ctx context.Context, id string) (*domain.Bookmark, error) {
	data, err := s.client.Get(ctx, BookmarkKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get bookmark: %w", err)
	}

	return decodeBookmark(data)
}

// FindByUserAndPost retrieves the user's bookmark on a post
func (s *Store) FindByUserAndPost(ctx context.Context, userID, postID string) (*domain.Bookmark, error) {
	id, err := s.client.Get(ctx, UserPostKey(userID, postID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get bookmark key: %w", err)
	}

	// A claim without a record is stale; Create replaces it.
	return s.FindByID(ctx, id)
}

// FindByUserAndTopic retrieves all of a user's bookmarks in a topic
func (s *Store) FindByUserAndTopic(ctx context.Context, userID, topicID string) ([]*domain.Bookmark, error) {
	ids, err := s.client.SMembers(ctx, UserTopicKey(userID, topicID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get bookmark IDs: %w", err)
	}

	if len(ids) == 0 {
		return []*domain.Bookmark{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = BookmarkKey(id)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get bookmarks: %w", err)
	}

	bookmarks := make([]*domain.Bookmark, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Skip index entries whose record is gone
			continue
		}
		bookmark, err := decodeBookmark([]byte(raw))
		if err != nil {
			return nil, err
		}
		bookmarks = append(bookmarks, bookmark)
	}

	return bookmarks, nil
}

// Delete removes a bookmark and its index entries. Deleting a missing bookmark is a no-op.
func (s *Store) Delete(ctx context.Context, id string) error {
	bookmark, err := s.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, BookmarkKey(id))
		pipe.Del(ctx, UserPostKey(bookmark.UserID, bookmark.PostID))
		pipe.SRem(ctx, UserTopicKey(bookmark.UserID, bookmark.TopicID), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete bookmark: %w", err)
	}

	return nil
}

func decodeBookmark(data []byte) (*domain.Bookmark, error) {
	var bookmark domain.Bookmark
	if err := json.Unmarshal(data, &bookmark); err != nil {
		return nil, fmt.Errorf("failed to unmarshal bookmark: %w", err)
	}
	return &bookmark, nil
}
