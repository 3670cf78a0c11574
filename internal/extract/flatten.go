// Package extract turns the loosely structured CRM summary blobs (nested
// JSON and a key/value HTML fragment) into the flat field map the wizard
// consumes.
package extract

import (
	"fmt"
	"sort"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

// jsonAPI decodes with UseNumber semantics so integer-valued fields survive
// the round trip as their original digits instead of float formatting.
var jsonAPI = jsoniter.Config{UseNumber: true}.Froze()

// FlattenJSON decodes a JSON object and flattens it into a single-level
// map. Nested object keys are joined with underscores, list elements become
// "<key>_<index>" entries, and every key segment is lower-cased with spaces
// replaced by underscores.
//
// Malformed input fails soft: the error is returned for logging, alongside
// an empty map, and callers proceed on defaults.
func FlattenJSON(doc string) (map[string]any, error) {
	if strings.TrimSpace(doc) == "" {
		return map[string]any{}, nil
	}

	var root map[string]any
	if err := jsonAPI.UnmarshalFromString(doc, &root); err != nil {
		return map[string]any{}, fmt.Errorf("malformed json summary: %w", err)
	}

	flat := make(map[string]any)
	flattenInto(flat, "", root)
	return flat, nil
}

// flattenInto walks one object level, appending normalized key segments to
// the running prefix.
func flattenInto(flat map[string]any, prefix string, obj map[string]any) {
	for key, value := range obj {
		flattenValue(flat, joinKey(prefix, key), value)
	}
}

func flattenValue(flat map[string]any, key string, value any) {
	switch v := value.(type) {
	case map[string]any:
		flattenInto(flat, key, v)
	case []any:
		for i, item := range v {
			flattenValue(flat, fmt.Sprintf("%s_%d", key, i), item)
		}
	default:
		flat[key] = value
	}
}

// joinKey lower-cases a key segment, replaces spaces with underscores, and
// appends it to the prefix.
func joinKey(prefix, key string) string {
	segment := strings.ReplaceAll(strings.ToLower(key), " ", "_")
	if prefix == "" {
		return segment
	}
	return prefix + "_" + segment
}

// GetString reads a flattened value as a string. Missing keys and empty
// values yield the fallback.
func GetString(flat map[string]any, key, fallback string) string {
	v, ok := flat[key]
	if !ok || v == nil {
		return fallback
	}
	s := strings.TrimSpace(fmt.Sprintf("%v", v))
	if s == "" {
		return fallback
	}
	return s
}

// Keys returns the flattened keys in sorted order, for deterministic
// logging and export.
func Keys(flat map[string]any) []string {
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
