package cache

import (
	"fmt"
	"strings"
)

// View keys name the derived read views a mutation can make stale.
const (
	PostsKey        = "posts"
	TagsKey         = "tags"
	ArchiveIndexKey = "archive"
)

// PostKey is the single-post view.
func PostKey(postID string) string { return "post:" + postID }

// PostCommentsKey is the comment list of a post.
func PostCommentsKey(postID string) string { return "post:" + postID + ":comments" }

// TagKey is the listing of posts carrying tag.
func TagKey(tag string) string { return "tag:" + tag }

// ArchiveKey is the listing for one month; month is zero-indexed.
func ArchiveKey(year, month int) string {
	return fmt.Sprintf("archive:%04d-%02d", year, month+1)
}

// UserKey is the author's post listing and profile page.
func UserKey(userID string) string { return "user:" + userID }

// UserLikedKey is the listing of posts a user liked.
func UserLikedKey(userID string) string { return "user:" + userID + ":liked" }

// UserCommentsKey is the listing of comments a user wrote.
func UserCommentsKey(userID string) string { return "user:" + userID + ":comments" }

// viewKind reduces a key to its family for metric labels,
// e.g. "post:abc:comments" -> "post_comments".
func viewKind(key string) string {
	parts := strings.Split(key, ":")
	switch {
	case len(parts) == 1:
		return parts[0]
	case len(parts) >= 3:
		return parts[0] + "_" + parts[len(parts)-1]
	default:
		return parts[0]
	}
}

// Keys collects view keys in first-seen order without duplicates.
type Keys struct {
	seen map[string]struct{}
	list []string
}

// Add appends keys not already present.
func (k *Keys) Add(keys ...string) *Keys {
	if k.seen == nil {
		k.seen = make(map[string]struct{})
	}
	for _, key := range keys {
		if key == "" {
			continue
		}
		if _, ok := k.seen[key]; ok {
			continue
		}
		k.seen[key] = struct{}{}
		k.list = append(k.list, key)
	}
	return k
}

// List returns the collected keys.
func (k *Keys) List() []string {
	out := make([]string, len(k.list))
	copy(out, k.list)
	return out
}
