/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package media stores article assets in S3 under content-addressed keys
// and keeps the CDN coherent when the content behind a path changes.
//
// Object keys embed a prefix of the asset's SHA-256, so re-uploading
// identical bytes lands on the same key while a changed file gets a fresh
// one. The Library pairs the object store with MediaAsset records in the
// corpus table and deduplicates uploads through the checksum index.
package media
