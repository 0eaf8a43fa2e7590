package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/scripthost/internal/digest"
)

// marshalList stores a string list as canonical JSON. nil becomes "[]".
func marshalList(items []string) (string, error) {
	if items == nil {
		items = []string{}
	}
	data, err := digest.MarshalCanonical(items)
	if err != nil {
		return "", fmt.Errorf("marshal list: %w", err)
	}
	return string(data), nil
}

func unmarshalList(data string) ([]string, error) {
	var items []string
	if err := json.Unmarshal([]byte(data), &items); err != nil {
		return nil, fmt.Errorf("unmarshal list: %w", err)
	}
	if items == nil {
		items = []string{}
	}
	return items, nil
}
