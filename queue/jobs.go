/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package queue moves render and delivery work through SQS. Producers wrap
// jobs in a small JSON envelope; the consumer long-polls and hands each job
// to a handler, deleting the message only when the handler succeeds.
package queue

import (
	"github.com/suparena/pressbox/corpus"
)

// Job types carried in the envelope.
const (
	JobRender   = "render"
	JobDelivery = "delivery"
)

// Job is the envelope every queue message carries. Target and Attempt are
// set on delivery jobs only.
type Job struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Slug    string `json:"slug"`
	Attempt string `json:"attempt,omitempty"`
	Target  string `json:"target,omitempty"`
}

// NewRenderJob builds a job that re-renders one article's HTML.
func NewRenderJob(slug string) Job {
	return Job{
		ID:   corpus.NewID(),
		Type: JobRender,
		Slug: slug,
	}
}

// NewDeliveryJob builds a job that delivers a published article to one
// target (site, devto, email).
func NewDeliveryJob(slug, attempt, target string) Job {
	return Job{
		ID:      corpus.NewID(),
		Type:    JobDelivery,
		Slug:    slug,
		Attempt: attempt,
		Target:  target,
	}
}
