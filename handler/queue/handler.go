/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package queue is the Lambda form of the work queue consumer. It receives
// SQS event batches, runs each render or delivery job through the
// pipeline, and reports failed messages individually so SQS redelivers
// only those (the ReportBatchItemFailures contract).
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	awsevents "github.com/aws/aws-lambda-go/events"

	"github.com/suparena/pressbox/log"
	"github.com/suparena/pressbox/pipeline"
	workqueue "github.com/suparena/pressbox/queue"
)

// Pipeline is the slice of pipeline.Publisher the worker needs.
type Pipeline interface {
	Refresh(ctx context.Context, slug string) error
	Deliver(ctx context.Context, slug, publication, target string) error
}

var _ Pipeline = (*pipeline.Publisher)(nil)

// Handler executes queued jobs.
type Handler struct {
	pipeline Pipeline
}

// New constructs the queue handler.
func New(p Pipeline) (*Handler, error) {
	if p == nil {
		return nil, fmt.Errorf("nil pipeline")
	}
	return &Handler{pipeline: p}, nil
}

// Handle processes one SQS batch. Jobs that fail are reported as batch
// item failures for redelivery; malformed bodies are dropped after
// logging, since redelivering them can never succeed.
func (h *Handler) Handle(ctx context.Context, ev awsevents.SQSEvent) (awsevents.SQSEventResponse, error) {
	var resp awsevents.SQSEventResponse
	for _, record := range ev.Records {
		if err := h.process(ctx, record); err != nil {
			log.WithFields(map[string]interface{}{
				"messageId": record.MessageId,
			}).Warnf("job failed, leaving for redelivery: %v", err)
			resp.BatchItemFailures = append(resp.BatchItemFailures, awsevents.SQSBatchItemFailure{
				ItemIdentifier: record.MessageId,
			})
		}
	}
	return resp, nil
}

func (h *Handler) process(ctx context.Context, record awsevents.SQSMessage) error {
	var job workqueue.Job
	if err := json.Unmarshal([]byte(record.Body), &job); err != nil {
		log.WithFields(map[string]interface{}{
			"messageId": record.MessageId,
		}).Errorf("dropping malformed job body: %v", err)
		return nil
	}

	logger := log.WithFields(map[string]interface{}{
		"job":  job.ID,
		"type": job.Type,
		"slug": job.Slug,
	})

	switch job.Type {
	case workqueue.JobRender:
		if err := h.pipeline.Refresh(ctx, job.Slug); err != nil {
			return err
		}
		logger.Info("render job completed")
		return nil

	case workqueue.JobDelivery:
		if err := h.pipeline.Deliver(ctx, job.Slug, job.Attempt, job.Target); err != nil {
			return err
		}
		logger.Info("delivery job completed")
		return nil

	default:
		// Unknown job types are dropped like malformed ones; a newer
		// producer should not wedge an older worker's queue.
		logger.Errorf("dropping job of unknown type %q", job.Type)
		return nil
	}
}
