package service

import "regexp"

var hashtagPattern = regexp.MustCompile(`#[\w\x{4e00}-\x{9fa5}]+`)

// ExtractTags returns the distinct hashtags in text without the leading '#'.
// Matching is case-sensitive.
func ExtractTags(text string) []string {
	matches := hashtagPattern.FindAllString(text, -1)
	tags := make([]string, 0, len(matches))
	seen := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		tag := m[1:]
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}
