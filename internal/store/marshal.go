package store

import (
	"fmt"

	"github.com/roach88/pipeq/internal/value"
)

// toCell converts an item value to something SQLite can bind.
// Objects and arrays become canonical JSON text.
func toCell(v any) (any, error) {
	n, err := value.Normalize(v)
	if err != nil {
		return nil, err
	}
	switch n.(type) {
	case map[string]any, []any:
		data, err := value.MarshalCanonical(n)
		if err != nil {
			return nil, fmt.Errorf("marshal cell: %w", err)
		}
		return string(data), nil
	default:
		return n, nil
	}
}

// fromCell converts a scanned column value to an item value.
func fromCell(v any) any {
	switch v := v.(type) {
	case []byte:
		return string(v)
	default:
		return v
	}
}

// marshalList renders values as a canonical JSON array for the query log.
func marshalList[T any](vs []T) (string, error) {
	list := make([]any, len(vs))
	for i, v := range vs {
		list[i] = v
	}
	data, err := value.MarshalCanonical(list)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
