package cache

import (
	"strconv"

	"github.com/Tetsu-is/social-feed/internal/domain"
)

const (
	dirtyPostsKey = "stats:dirty_posts"
	globalFeedKey = "global:system:feed"
)

func postKey(id string) string      { return "post:" + id }
func statsKey(id string) string     { return "post:stats:" + id }
func timelineKey(uid string) string { return "timeline:feed:" + uid }
func cursorKey(uid string) string   { return "user:" + uid + ":read_cursor" }

// parseStats reads a counter hash; missing or malformed fields count as zero.
func parseStats(m map[string]string) domain.Stats {
	return domain.Stats{
		Likes:    parseField(m, string(domain.StatLikes)),
		Comments: parseField(m, string(domain.StatComments)),
		Shares:   parseField(m, string(domain.StatShares)),
	}
}

func parseField(m map[string]string, field string) int64 {
	n, err := strconv.ParseInt(m[field], 10, 64)
	if err != nil {
		return 0
	}
	return n
}
