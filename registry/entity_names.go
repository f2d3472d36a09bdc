/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package registry

import (
	"fmt"
	"reflect"
	"sync"
)

// entityNames maps Go types to the EntityType value stamped on their items.
// The inverse direction (EntityType value to unmarshal func) lives in the
// type registry; both must be registered for polymorphic queries to work.
var (
	entityNames   = make(map[reflect.Type]string)
	entityNamesMu sync.RWMutex
)

// RegisterEntityName associates type T with an EntityType value. The store
// writes this value into every item of type T so mixed query results can be
// unmarshaled back into their concrete types.
func RegisterEntityName[T any](name string) {
	var zero T
	t := reflect.TypeOf(zero)

	entityNamesMu.Lock()
	defer entityNamesMu.Unlock()

	if existing, ok := entityNames[t]; ok && existing != name {
		panic(fmt.Sprintf("entity name registry: type %v already registered as %q", t, existing))
	}
	entityNames[t] = name
}

// EntityNameFor returns the EntityType value registered for the given Go
// type. Pointer types resolve to their element type.
func EntityNameFor(t reflect.Type) (string, bool) {
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	entityNamesMu.RLock()
	defer entityNamesMu.RUnlock()
	name, ok := entityNames[t]
	return name, ok
}

// EntityName returns the EntityType value registered for type T.
func EntityName[T any]() (string, bool) {
	var zero T
	return EntityNameFor(reflect.TypeOf(zero))
}
