/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package content

import (
	"regexp"
	"strings"
)

// wordsPerMinute is the adult silent-reading average the estimate is based
// on. Code is skimmed rather than read, so fenced blocks count half.
const wordsPerMinute = 238

// ReadingTime estimates the minutes needed to read the Markdown source.
// Non-empty sources report at least one minute.
func ReadingTime(source []byte) int {
	prose, code := countWords(source)
	weighted := float64(prose) + float64(code)/2
	if weighted == 0 {
		return 0
	}
	minutes := int(weighted/wordsPerMinute) + 1
	return minutes
}

func countWords(source []byte) (prose, code int) {
	inFence := false
	var fenceMarker string

	for _, line := range strings.Split(string(source), "\n") {
		trimmed := strings.TrimSpace(line)

		if marker := fenceOf(trimmed); marker != "" {
			if inFence && strings.HasPrefix(trimmed, fenceMarker) {
				inFence = false
				continue
			}
			if !inFence {
				inFence = true
				fenceMarker = marker
				continue
			}
		}

		n := len(strings.Fields(trimmed))
		if inFence {
			code += n
		} else {
			prose += n
		}
	}
	return prose, code
}

func fenceOf(line string) string {
	if strings.HasPrefix(line, "```") {
		return "```"
	}
	if strings.HasPrefix(line, "~~~") {
		return "~~~"
	}
	return ""
}

var (
	inlineMarkup = regexp.MustCompile("[*_`]+")
	linkMarkup   = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	imageMarkup  = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
)

// Excerpt returns the first paragraph of prose as plain text, truncated at a
// word boundary to at most maxLen characters. Headings, images and code
// blocks are skipped; link text survives without its URL.
func Excerpt(source []byte, maxLen int) string {
	inFence := false
	var para []string

	for _, line := range strings.Split(string(source), "\n") {
		trimmed := strings.TrimSpace(line)

		if fenceOf(trimmed) != "" {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		if trimmed == "" {
			if len(para) > 0 {
				break
			}
			continue
		}
		if strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, ">") {
			continue
		}
		if imageMarkup.MatchString(trimmed) && strings.TrimSpace(imageMarkup.ReplaceAllString(trimmed, "")) == "" {
			continue
		}
		para = append(para, trimmed)
	}

	if len(para) == 0 {
		return ""
	}

	text := strings.Join(para, " ")
	text = imageMarkup.ReplaceAllString(text, "")
	text = linkMarkup.ReplaceAllString(text, "$1")
	text = inlineMarkup.ReplaceAllString(text, "")
	text = strings.Join(strings.Fields(text), " ")

	if maxLen <= 0 || len(text) <= maxLen {
		return text
	}
	cut := text[:maxLen]
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return cut + "…"
}
