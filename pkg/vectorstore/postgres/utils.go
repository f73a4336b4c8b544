package postgres

import (
	"fmt"
	"strings"

	"github.com/Will-Langhart/shieldai-sub001/pkg/vectorstore"
)

// buildWhereClause builds a WHERE clause starting at the given parameter
// index. The indexed keys (user_id, conversation_id) compare against their
// columns; any other key compares against the JSONB metadata field.
func buildWhereClause(filter vectorstore.Filter, startIndex int) (string, []interface{}) {
	conditions := []string{}
	args := []interface{}{}
	argIndex := startIndex

	for key, value := range filter {
		switch key {
		case "user_id", "conversation_id":
			conditions = append(conditions, fmt.Sprintf("%s = $%d", key, argIndex))
		default:
			conditions = append(conditions, fmt.Sprintf("metadata->>'%s' = $%d", key, argIndex))
		}
		args = append(args, fmt.Sprintf("%v", value))
		argIndex++
	}

	if len(conditions) == 0 {
		return "", args
	}

	return "WHERE " + strings.Join(conditions, " AND "), args
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
