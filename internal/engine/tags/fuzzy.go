package tags

import (
	"sort"
	"strings"
)

// FuzzyFilter ranks tags by a subsequence match of query against the tag
// name: +2 for every matched query rune, -0.1 for every skipped name rune,
// -10 when the query is not fully consumed, plus a bonus of up to 8 for
// names close in length to the query. An empty query returns the first
// limit tags unchanged.
func FuzzyFilter(list []Tag, query string, limit int) []Tag {
	if limit <= 0 {
		limit = len(list)
	}
	if query == "" {
		if len(list) > limit {
			return append([]Tag(nil), list[:limit]...)
		}
		return append([]Tag(nil), list...)
	}

	needle := []rune(strings.ToLower(query))
	type scored struct {
		tag   Tag
		score float64
	}
	ranked := make([]scored, 0, len(list))
	for _, t := range list {
		ranked = append(ranked, scored{tag: t, score: fuzzyScore([]rune(strings.ToLower(t.Name)), needle)})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	out := make([]Tag, len(ranked))
	for i, r := range ranked {
		out[i] = r.tag
	}
	return out
}

func fuzzyScore(hay, needle []rune) float64 {
	var score float64
	si := 0
	for i := 0; i < len(hay) && si < len(needle); i++ {
		if hay[i] == needle[si] {
			score += 2
			si++
		} else {
			score -= 0.1
		}
	}
	if si < len(needle) {
		score -= 10
	}
	if bonus := 8 - (len(hay) - len(needle)); bonus > 0 {
		score += float64(bonus)
	}
	return score
}
