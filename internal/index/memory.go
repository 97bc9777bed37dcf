package index

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/pinboard/internal/domain"
)

// MemoryIndex keeps the post catalog and, when no Redis store is configured,
// the bookmark records themselves.
type MemoryIndex struct {
	mu          sync.RWMutex
	posts       map[string]string              // PostID -> TopicID
	bookmarks   map[string]*domain.Bookmark    // ID -> Bookmark
	byUserPost  map[string]string              // userID/postID -> ID
	byUserTopic map[string]map[string]struct{} // userID/topicID -> set of IDs
	lastReload  time.Time                      // Timestamp of last catalog reload
}

// NewMemoryIndex creates a new memory index
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		posts:       make(map[string]string),
		bookmarks:   make(map[string]*domain.Bookmark),
		byUserPost:  make(map[string]string),
		byUserTopic: make(map[string]map[string]struct{}),
	}
}

func userPostKey(userID, postID string) string {
	return userID + "/" + postID
}

func userTopicKey(userID, topicID string) string {
	return userID + "/" + topicID
}

// ─────────────────────────────────────────────────────────────────
// Post catalog
// ─────────────────────────────────────────────────────────────────

// UpdatePosts replaces the post -> topic catalog
func (idx *MemoryIndex) UpdatePosts(posts map[string]string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.posts = make(map[string]string, len(posts))
	for postID, topicID := range posts {
		idx.posts[postID] = topicID
	}
	idx.lastReload = time.Now()
}

// ResolveTopicID returns the topic a post belongs to
func (idx *MemoryIndex) ResolveTopicID(_ context.Context, postID string) (string, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	topicID, ok := idx.posts[postID]
	if !ok {
		return "", domain.ErrUnknownPost
	}
	return topicID, nil
}

// PostCount returns the number of posts in the catalog
func (idx *MemoryIndex) PostCount() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return len(idx.posts)
}

// GetLastReload returns the timestamp of the last catalog reload
func (idx *MemoryIndex) GetLastReload() time.Time {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.lastReload
}

// ─────────────────────────────────────────────────────────────────
// Bookmark store
// ─────────────────────────────────────────────────────────────────

// Create stores a new bookmark, assigning its ID.
// The uniqueness check and insert happen under one lock.
func (idx *MemoryIndex) Create(_ context.Context, bookmark *domain.Bookmark) (*domain.Bookmark, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	key := userPostKey(bookmark.UserID, bookmark.PostID)
	if _, exists := idx.byUserPost[key]; exists {
		return nil, domain.ErrDuplicate
	}

	stored := *bookmark
	stored.ID = uuid.NewString()
	idx.bookmarks[stored.ID] = &stored
	idx.byUserPost[key] = stored.ID

	topicKey := userTopicKey(stored.UserID, stored.TopicID)
	ids, ok := idx.byUserTopic[topicKey]
	if !ok {
		ids = make(map[string]struct{})
		idx.byUserTopic[topicKey] = ids
	}
	ids[stored.ID] = struct{}{}

	out := stored
	return &out, nil
}

// FindByID retrieves a bookmark by ID
func (idx *MemoryIndex) FindByID(_ context.Context, id string) (*domain.Bookmark, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	bookmark, ok := idx.bookmarks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *bookmark
	return &out, nil
}

// FindByUserAndPost retrieves the user's bookmark on a post
func (idx *MemoryIndex) FindByUserAndPost(_ context.Context, userID, postID string) (*domain.Bookmark, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	id, ok := idx.byUserPost[userPostKey(userID, postID)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *idx.bookmarks[id]
	return &out, nil
}

// FindByUserAndTopic returns the user's bookmarks in a topic
func (idx *MemoryIndex) FindByUserAndTopic(_ context.Context, userID, topicID string) ([]*domain.Bookmark, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	ids := idx.byUserTopic[userTopicKey(userID, topicID)]
	bookmarks := make([]*domain.Bookmark, 0, len(ids))
	for id := range ids {
		out := *idx.bookmarks[id]
		bookmarks = append(bookmarks, &out)
	}
	return bookmarks, nil
}

// Delete removes a bookmark. Deleting a missing bookmark is a no-op.
func (idx *MemoryIndex) Delete(_ context.Context, id string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	bookmark, ok := idx.bookmarks[id]
	if !ok {
		return nil
	}
	delete(idx.byUserPost, userPostKey(bookmark.UserID, bookmark.PostID))

	topicKey := userTopicKey(bookmark.UserID, bookmark.TopicID)
	if ids, ok := idx.byUserTopic[topicKey]; ok {
		delete(ids, id)
		if len(ids) == 0 {
			delete(idx.byUserTopic, topicKey)
		}
	}

	delete(idx.bookmarks, id)
	return nil
}

// BookmarkCount returns the number of bookmarks in the index
func (idx *MemoryIndex) BookmarkCount() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return len(idx.bookmarks)
}
