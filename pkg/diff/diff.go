// Package diff computes structural field-by-field differences between two
// JSON documents. It is pure: no I/O, deterministic output, and it never
// fails on well-formed JSON input.
package diff

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Field is one leaf comparison in a document diff. Path is dot-separated
// from the root ("" for the root itself, children never begin with a
// separator).
type Field struct {
	Path     string      `json:"path"`
	OldValue interface{} `json:"oldValue"`
	NewValue interface{} `json:"newValue"`
	Changed  bool        `json:"changed"`
}

// Documents compares two JSON documents and returns one Field per leaf path
// present in either document, sorted with PathLess. A nil document is
// treated as an empty object.
func Documents(existing, proposed []byte) ([]Field, error) {
	oldDoc, err := decode(existing)
	if err != nil {
		return nil, fmt.Errorf("decode existing document: %w", err)
	}
	newDoc, err := decode(proposed)
	if err != nil {
		return nil, fmt.Errorf("decode proposed document: %w", err)
	}

	fields := make([]Field, 0, 16)
	walk("", oldDoc, newDoc, &fields)
	Sort(fields)
	return fields, nil
}

func decode(raw []byte) (interface{}, error) {
	if len(raw) == 0 {
		return map[string]interface{}{}, nil
	}
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return map[string]interface{}{}, nil
	}
	return doc, nil
}

func walk(path string, oldValue, newValue interface{}, out *[]Field) {
	oldMap, oldIsMap := oldValue.(map[string]interface{})
	newMap, newIsMap := newValue.(map[string]interface{})

	if oldIsMap && newIsMap {
		for _, key := range unionKeys(oldMap, newMap) {
			walk(childPath(path, key), oldMap[key], newMap[key], out)
		}
		return
	}

	// Leaf: primitives, arrays, nulls and type mismatches all land here.
	*out = append(*out, Field{
		Path:     path,
		OldValue: oldValue,
		NewValue: newValue,
		Changed:  !reflect.DeepEqual(oldValue, newValue),
	})
}

func unionKeys(a, b map[string]interface{}) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	keys := make([]string, 0, len(a)+len(b))
	for key := range a {
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	for key := range b {
		if _, ok := seen[key]; !ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

func childPath(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}

// Sort orders fields for display: the "question" field first, anything under
// the "details" prefix last, all others lexicographically by path. This is a
// presentation contract independent of diff correctness.
func Sort(fields []Field) {
	sort.SliceStable(fields, func(i, j int) bool {
		return PathLess(fields[i].Path, fields[j].Path)
	})
}

// PathLess is the display comparator used by Sort.
func PathLess(a, b string) bool {
	ra, rb := pathRank(a), pathRank(b)
	if ra != rb {
		return ra < rb
	}
	return a < b
}

func pathRank(path string) int {
	switch {
	case path == "question" || strings.HasPrefix(path, "question."):
		return 0
	case path == "details" || strings.HasPrefix(path, "details."):
		return 2
	default:
		return 1
	}
}
