/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package content

import (
	"strings"
	"unicode"
)

const maxSlugLen = 96

// Slugify derives a URL slug from a title: lowercase ASCII letters and
// digits, hyphen-separated, capped at 96 characters without cutting a word
// in half. "Introduction to AWS Lambda" becomes "introduction-to-aws-lambda".
func Slugify(title string) string {
	var b strings.Builder
	b.Grow(len(title))

	lastHyphen := true // suppress a leading hyphen
	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsLetter(r) && r < 128, unicode.IsDigit(r) && r < 128:
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}

	slug := strings.TrimRight(b.String(), "-")
	if len(slug) > maxSlugLen {
		slug = slug[:maxSlugLen]
		if i := strings.LastIndexByte(slug, '-'); i > 0 {
			slug = slug[:i]
		}
	}
	return slug
}
