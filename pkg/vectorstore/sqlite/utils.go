package sqlite

import (
	"fmt"
	"strings"

	"github.com/Will-Langhart/shieldai-sub001/pkg/vectorstore"
)

// buildWhereClause promotes the indexed filter keys (user_id,
// conversation_id) into SQL conditions and returns the remaining keys as a
// residual filter to be matched against stored metadata.
func buildWhereClause(filter vectorstore.Filter) (string, []interface{}, vectorstore.Filter) {
	conditions := []string{}
	args := []interface{}{}
	residual := vectorstore.Filter{}

	for key, value := range filter {
		switch key {
		case "user_id", "conversation_id":
			conditions = append(conditions, fmt.Sprintf("%s = ?", key))
			args = append(args, fmt.Sprintf("%v", value))
		default:
			residual[key] = value
		}
	}

	if len(conditions) == 0 {
		return "", args, residual
	}

	return "WHERE " + strings.Join(conditions, " AND "), args, residual
}

// metadataString extracts a flat string value from record metadata.
func metadataString(metadata map[string]interface{}, key string) string {
	if metadata == nil {
		return ""
	}
	if value, ok := metadata[key]; ok {
		return fmt.Sprintf("%v", value)
	}
	return ""
}

// matchesFilter reports whether metadata satisfies every residual key/value
// pair by exact string comparison.
func matchesFilter(metadata map[string]interface{}, residual vectorstore.Filter) bool {
	for key, want := range residual {
		got, ok := metadata[key]
		if !ok {
			return false
		}
		if fmt.Sprintf("%v", got) != fmt.Sprintf("%v", want) {
			return false
		}
	}
	return true
}
