/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/suparena/pressbox/awsx"
	pberrors "github.com/suparena/pressbox/errors"
	"github.com/suparena/pressbox/log"
)

// SendMessageBatch accepts at most 10 entries per call.
const sendBatchMax = 10

// Producer enqueues jobs on one work queue.
type Producer struct {
	client   awsx.SQSAPI
	queueURL string
}

// NewProducer constructs a producer bound to a queue URL.
func NewProducer(client awsx.SQSAPI, queueURL string) (*Producer, error) {
	if client == nil {
		return nil, fmt.Errorf("nil SQS client")
	}
	if queueURL == "" {
		return nil, fmt.Errorf("empty queue URL")
	}
	return &Producer{client: client, queueURL: queueURL}, nil
}

// EnqueueRender enqueues one render job per slug.
func (p *Producer) EnqueueRender(ctx context.Context, slugs ...string) error {
	jobs := make([]Job, 0, len(slugs))
	for _, slug := range slugs {
		jobs = append(jobs, NewRenderJob(slug))
	}
	return p.Enqueue(ctx, jobs...)
}

// EnqueueDelivery enqueues one delivery job per target for a publish
// attempt.
func (p *Producer) EnqueueDelivery(ctx context.Context, slug, attempt string, targets ...string) error {
	jobs := make([]Job, 0, len(targets))
	for _, target := range targets {
		jobs = append(jobs, NewDeliveryJob(slug, attempt, target))
	}
	return p.Enqueue(ctx, jobs...)
}

// Enqueue sends jobs to the queue, batching at the API limit. Entries the
// service rejects are reported together as one error naming the job IDs.
func (p *Producer) Enqueue(ctx context.Context, jobs ...Job) error {
	for _, job := range jobs {
		if job.Type == "" {
			return pberrors.NewValidationError("type", "required")
		}
		if job.Slug == "" {
			return pberrors.NewValidationError("slug", "required")
		}
	}
	if len(jobs) == 0 {
		return nil
	}

	if len(jobs) == 1 {
		body, err := json.Marshal(jobs[0])
		if err != nil {
			return fmt.Errorf("marshal job %s: %w", jobs[0].ID, err)
		}
		if _, err := p.client.SendMessage(ctx, &sqs.SendMessageInput{
			QueueUrl:    &p.queueURL,
			MessageBody: aws.String(string(body)),
		}); err != nil {
			return fmt.Errorf("enqueue job %s: %w", jobs[0].ID, err)
		}
		return nil
	}

	var rejected []string
	for start := 0; start < len(jobs); start += sendBatchMax {
		end := start + sendBatchMax
		if end > len(jobs) {
			end = len(jobs)
		}
		chunk := jobs[start:end]

		entries := make([]types.SendMessageBatchRequestEntry, 0, len(chunk))
		for _, job := range chunk {
			body, err := json.Marshal(job)
			if err != nil {
				return fmt.Errorf("marshal job %s: %w", job.ID, err)
			}
			entries = append(entries, types.SendMessageBatchRequestEntry{
				Id:          aws.String(job.ID),
				MessageBody: aws.String(string(body)),
			})
		}

		out, err := p.client.SendMessageBatch(ctx, &sqs.SendMessageBatchInput{
			QueueUrl: &p.queueURL,
			Entries:  entries,
		})
		if err != nil {
			return fmt.Errorf("enqueue batch on %s: %w", p.queueURL, err)
		}
		for _, failure := range out.Failed {
			id := aws.ToString(failure.Id)
			rejected = append(rejected, id)
			log.WithFields(map[string]interface{}{
				"job":         id,
				"code":        aws.ToString(failure.Code),
				"senderFault": failure.SenderFault,
			}).Warn("queue rejected job")
		}
	}

	if len(rejected) > 0 {
		return fmt.Errorf("enqueue on %s: %d job(s) rejected: %s",
			p.queueURL, len(rejected), strings.Join(rejected, ", "))
	}
	return nil
}
