package redis

import "fmt"

const (
	// KeyPrefixBookmark is the prefix for bookmark record keys
	KeyPrefixBookmark = "pinboard:bookmark:"
	// KeyPrefixUserPost is the prefix for the (user, post) uniqueness keys
	KeyPrefixUserPost = "pinboard:bookmark:userpost:"
	// KeyPrefixUserTopic is the prefix for the per-(user, topic) index sets
	KeyPrefixUserTopic = "pinboard:bookmarks:usertopic:"
	// KeyPrefixJobs is the prefix for the scheduled job sorted sets
	KeyPrefixJobs = "pinboard:jobs:"
)

// BookmarkKey returns the Redis key for a bookmark record
func BookmarkKey(id string) string {
	return KeyPrefixBookmark + id
}

// UserPostKey returns the uniqueness key holding the bookmark ID for a (user, post) pair
func UserPostKey(userID, postID string) string {
	return fmt.Sprintf("%s%s:%s", KeyPrefixUserPost, userID, postID)
}

// UserTopicKey returns the set of bookmark IDs a user holds in a topic
func UserTopicKey(userID, topicID string) string {
	return fmt.Sprintf("%s%s:%s", KeyPrefixUserTopic, userID, topicID)
}

// JobsKey returns the sorted set holding scheduled jobs of a type
func JobsKey(jobType string) string {
	return KeyPrefixJobs + jobType
}
