/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package registry

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
)

// IndexMapRegistry is a registry for Go types and their DynamoDB index maps.

var (
	indexMapRegistry = make(map[reflect.Type]map[string]string)
	mu               sync.RWMutex
)

// KnownKeyAttributes lists the key attribute names the single-table schema
// uses. RegisterIndexMap rejects maps that target anything else, which catches
// typos like "GS1PK" before they silently create unqueryable items.
var KnownKeyAttributes = []string{"PK", "SK", "GSI1PK", "GSI1SK"}

// RegisterIndexMap associates a Go type T with a given DynamoDB index map (PK, SK, etc.).
// It panics on unknown key attributes; registration happens in init() functions
// where a panic is the right failure mode.
func RegisterIndexMap[T any](idxMap map[string]string) {
	var zero T
	t := reflect.TypeOf(zero)

	for field := range idxMap {
		if !isKnownKeyAttribute(field) {
			panic(fmt.Sprintf("index map registry: unknown key attribute %q for type %v", field, t))
		}
	}

	mu.Lock()
	defer mu.Unlock()
	indexMapRegistry[t] = idxMap
}

// GetIndexMap retrieves the indexMap for type T, if any.
func GetIndexMap[T any]() (map[string]string, bool) {
	var zero T
	t := reflect.TypeOf(zero)

	mu.RLock()
	defer mu.RUnlock()
	m, ok := indexMapRegistry[t]
	return m, ok
}

// RegisteredIndexTypes returns the names of all types with registered index
// maps, sorted. Used by the CLI to report what the corpus schema covers.
func RegisteredIndexTypes() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(indexMapRegistry))
	for t := range indexMapRegistry {
		names = append(names, t.String())
	}
	sort.Strings(names)
	return names
}

func isKnownKeyAttribute(field string) bool {
	for _, known := range KnownKeyAttributes {
		if field == known {
			return true
		}
	}
	return false
}

// TemplateFields extracts the {Field} macro names referenced by an index map
// template, in order of appearance. "ARTICLE#{Slug}" yields ["Slug"].
func TemplateFields(template string) []string {
	var fields []string
	rest := template
	for {
		start := strings.IndexByte(rest, '{')
		if start < 0 {
			return fields
		}
		end := strings.IndexByte(rest[start:], '}')
		if end < 0 {
			return fields
		}
		fields = append(fields, rest[start+1:start+end])
		rest = rest[start+end+1:]
	}
}
