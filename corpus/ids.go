/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package corpus

import (
	"crypto/rand"

	"github.com/oklog/ulid"
)

// NewID returns a fresh ULID string. ULIDs embed their creation time and
// collate lexicographically, so identifiers built from them (publish attempt
// IDs, event IDs, invalidation references) sort in creation order wherever
// they end up as sort keys.
func NewID() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
