package service

import (
	"sort"

	"github.com/Tetsu-is/social-feed/internal/domain"
)

// Merge deduplicates candidates by post id, orders them by score (then post
// id) descending and keeps at most limit. Timeline membership wins over a
// recommendation for the same post.
func Merge(cands []domain.Candidate, limit int) []domain.Candidate {
	byID := make(map[string]int, len(cands))
	merged := make([]domain.Candidate, 0, len(cands))
	for _, c := range cands {
		i, ok := byID[c.PostID]
		if !ok {
			byID[c.PostID] = len(merged)
			merged = append(merged, c)
			continue
		}
		if merged[i].Source == domain.SourceRecommendation && c.Source != domain.SourceRecommendation {
			merged[i] = c
		}
	}

	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		return merged[i].PostID > merged[j].PostID
	})

	if limit >= 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

func candidates(entries []domain.TimelineEntry, src domain.FeedSource) []domain.Candidate {
	out := make([]domain.Candidate, len(entries))
	for i, e := range entries {
		out[i] = domain.Candidate{PostID: e.PostID, Score: e.Score, Source: src}
	}
	return out
}
