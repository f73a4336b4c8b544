package memory

import (
	"math"
	"strings"
	"time"
)

// Re-ranking boost factors. Recency tiers compound: a record under one day
// old receives both the week and day multipliers (1.1 * 1.2 = 1.32 relative
// to the baseline), matching the confirmed production behavior.
const (
	recencyWeekBoost  = 1.10
	recencyDayBoost   = 1.20
	questionBoost     = 1.15
	chunkOverlapBoost = 1.10

	chunkOverlapThreshold = 0.8
)

// enhanceScore re-scores a candidate using heuristic signals on top of its
// raw similarity: recency, conversational-flow role matching, and semantic
// chunk overlap with the query. The result is capped at 1.0.
//
// Re-ranking only reorders candidates that already cleared the admission
// threshold; it is never the basis for admission.
func enhanceScore(baseScore float64, metadata map[string]interface{}, query string, now time.Time) float64 {
	score := baseScore

	if timestamp, ok := parseTimestamp(metadata["timestamp"]); ok {
		age := now.Sub(timestamp)
		if age >= 0 && age < 7*24*time.Hour {
			score *= recencyWeekBoost
			if age < 24*time.Hour {
				score *= recencyDayBoost
			}
		}
	}

	if flow, _ := metadata["conversation_flow"].(string); flow == string(FlowQuestion) &&
		strings.Contains(query, "?") {
		score *= questionBoost
	}

	if chunk, _ := metadata["semantic_chunk"].(string); chunk != "" {
		if jaccardSimilarity(chunk, query) > chunkOverlapThreshold {
			score *= chunkOverlapBoost
		}
	}

	return math.Min(score, 1.0)
}

// parseTimestamp accepts the RFC 3339 strings the writer stores, plus
// time.Time values from in-process stores.
func parseTimestamp(value interface{}) (time.Time, bool) {
	switch v := value.(type) {
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t, true
		}
	case time.Time:
		return v, true
	}
	return time.Time{}, false
}

// jaccardSimilarity computes word-set Jaccard similarity between two texts,
// case-insensitive.
func jaccardSimilarity(a, b string) float64 {
	setA := wordSet(a)
	setB := wordSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for word := range setA {
		if setB[word] {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

func wordSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		set[word] = true
	}
	return set
}
