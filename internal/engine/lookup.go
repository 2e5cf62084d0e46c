package engine

import (
	"context"
	"fmt"
	"log"
	"strings"

	"table-crud/internal/store"
)

// LookupOption is one candidate for a searchable dropdown field.
type LookupOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// RunLookup executes an admin-authored lookup SELECT and maps each row to
// an option: first column is the id, second column (or the id when the
// query selects a single column) is the label. The query text is trusted
// configuration, executed as-is. An optional free-text term filters the
// candidates by substring match on id or label.
//
// Failures degrade to an empty list so a half-configured lookup field
// never breaks the surrounding form; the cause is logged for the operator.
func RunLookup(ctx context.Context, st store.Storage, query, search string) []LookupOption {
	query = strings.TrimSpace(query)
	if query == "" {
		return []LookupOption{}
	}

	_, rows, err := st.QueryVectors(ctx, query)
	if err != nil {
		log.Printf("lookup query failed: %v (query: %s)", err, query)
		return []LookupOption{}
	}

	term := strings.ToLower(strings.TrimSpace(search))
	options := make([]LookupOption, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		id := formatValue(row[0])
		text := id
		if len(row) > 1 {
			text = formatValue(row[1])
		}
		if term != "" &&
			!strings.Contains(strings.ToLower(id), term) &&
			!strings.Contains(strings.ToLower(text), term) {
			continue
		}
		options = append(options, LookupOption{ID: id, Text: text})
	}
	return options
}

// formatValue renders a scanned database value for display.
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case float64:
		// Avoid the %v exponent form for large values.
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%g", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
