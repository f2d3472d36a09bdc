/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package corpus

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/suparena/pressbox/errors"
)

// Article lifecycle statuses.
const (
	StatusDraft     = "draft"
	StatusScheduled = "scheduled"
	StatusPublished = "published"
	StatusArchived  = "archived"
)

// transitions maps each status to the statuses it may move to. Scheduled
// articles can fall back to draft when the schedule is cancelled; published
// articles only move forward to archived.
var transitions = map[string][]string{
	StatusDraft:     {StatusScheduled, StatusPublished},
	StatusScheduled: {StatusPublished, StatusDraft},
	StatusPublished: {StatusArchived},
	StatusArchived:  {},
}

// ValidStatus reports whether s is a known article status.
func ValidStatus(s string) bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition reports whether an article may move from one status to
// another. Same-status "transitions" are not allowed; callers update fields
// in place instead.
func CanTransition(from, to string) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// Transition validates and applies a status change on the article. It
// returns a PublishConflictError when the change is not allowed, so callers
// can map it to an HTTP 409.
func (a *Article) Transition(to string) error {
	if !ValidStatus(to) {
		return errors.NewValidationError("Status", fmt.Sprintf("unknown status %q", to))
	}
	if !CanTransition(a.Status, to) {
		return errors.NewPublishConflictError(a.Slug, a.Status, to)
	}
	a.Status = to
	return nil
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// ValidSlug reports whether s is a well-formed slug: lowercase letters,
// digits and single hyphens, at most 96 characters.
func ValidSlug(s string) bool {
	return s != "" && len(s) <= 96 && slugPattern.MatchString(s)
}

// Validate checks the article's invariants before it is stored.
func (a *Article) Validate() error {
	if !ValidSlug(a.Slug) {
		return errors.NewValidationError("Slug", fmt.Sprintf("invalid slug %q", a.Slug))
	}
	if strings.TrimSpace(a.Title) == "" {
		return errors.NewValidationError("Title", "title is required")
	}
	if a.Status == "" {
		return errors.NewValidationError("Status", "status is required")
	}
	if !ValidStatus(a.Status) {
		return errors.NewValidationError("Status", fmt.Sprintf("unknown status %q", a.Status))
	}
	if a.Status == StatusScheduled && time.Time(a.PublishAt).IsZero() {
		return errors.NewValidationError("PublishAt", "scheduled articles need a publish time")
	}
	if len(a.Tags) > 4 {
		return errors.NewValidationError("Tags", "at most 4 tags")
	}
	return nil
}

// Validate checks the series' invariants before it is stored.
func (s *Series) Validate() error {
	if !ValidSlug(s.Slug) {
		return errors.NewValidationError("Slug", fmt.Sprintf("invalid slug %q", s.Slug))
	}
	if strings.TrimSpace(s.Title) == "" {
		return errors.NewValidationError("Title", "title is required")
	}
	return nil
}

// Validate checks the subscriber's invariants before it is stored.
func (s *Subscriber) Validate() error {
	if !strings.Contains(s.Email, "@") {
		return errors.NewValidationError("Email", fmt.Sprintf("invalid email %q", s.Email))
	}
	switch s.Status {
	case SubscriberPending, SubscriberConfirmed, SubscriberUnsubscribed, SubscriberBounced:
		return nil
	default:
		return errors.NewValidationError("Status", fmt.Sprintf("unknown status %q", s.Status))
	}
}
