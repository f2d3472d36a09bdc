/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/suparena/pressbox/awsx"
	"github.com/suparena/pressbox/log"
)

const (
	longPollWait    = 20 * time.Second
	maxReceiveBatch = 10

	// DefaultVisibility must outlast one render plus its deliveries.
	DefaultVisibility = 60 * time.Second
	DefaultWorkers    = 4
)

// HandlerFunc processes one job. Returning nil deletes the message;
// returning an error leaves it for redelivery after the visibility timeout.
type HandlerFunc func(ctx context.Context, job Job) error

// Consumer long-polls one queue and dispatches jobs to a bounded set of
// concurrent workers. It is the long-running form used by the CLI worker;
// the Lambda form lives in handler/queue.
type Consumer struct {
	client     awsx.SQSAPI
	queueURL   string
	handler    HandlerFunc
	visibility time.Duration
	workers    int
}

// ConsumerOption adjusts a Consumer.
type ConsumerOption func(*Consumer)

// WithVisibility sets the visibility timeout requested on each receive.
func WithVisibility(d time.Duration) ConsumerOption {
	return func(c *Consumer) {
		if d > 0 {
			c.visibility = d
		}
	}
}

// WithWorkers bounds the number of jobs processed concurrently.
func WithWorkers(n int) ConsumerOption {
	return func(c *Consumer) {
		if n > 0 {
			c.workers = n
		}
	}
}

// NewConsumer constructs a consumer for a queue and handler.
func NewConsumer(client awsx.SQSAPI, queueURL string, handler HandlerFunc, opts ...ConsumerOption) (*Consumer, error) {
	if client == nil {
		return nil, fmt.Errorf("nil SQS client")
	}
	if queueURL == "" {
		return nil, fmt.Errorf("empty queue URL")
	}
	if handler == nil {
		return nil, fmt.Errorf("nil job handler")
	}
	c := &Consumer{
		client:     client,
		queueURL:   queueURL,
		handler:    handler,
		visibility: DefaultVisibility,
		workers:    DefaultWorkers,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Run polls until ctx is cancelled, then returns once in-flight handlers
// finish.
func (c *Consumer) Run(ctx context.Context) error {
	slots := make(chan struct{}, c.workers)
	var wg sync.WaitGroup
	defer wg.Wait()

	log.WithFields(map[string]interface{}{
		"queue":   c.queueURL,
		"workers": c.workers,
	}).Info("queue consumer started")

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		out, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            &c.queueURL,
			MaxNumberOfMessages: maxReceiveBatch,
			WaitTimeSeconds:     int32(longPollWait / time.Second),
			VisibilityTimeout:   int32(c.visibility / time.Second),
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Errorf("receive on %s: %v", c.queueURL, err)
			// Pause so a broken queue does not spin the loop.
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		for _, msg := range out.Messages {
			select {
			case slots <- struct{}{}:
			case <-ctx.Done():
				return nil
			}
			wg.Add(1)
			go func(m types.Message) {
				defer wg.Done()
				defer func() { <-slots }()
				c.process(ctx, m)
			}(msg)
		}
	}
}

func (c *Consumer) process(ctx context.Context, msg types.Message) {
	var job Job
	if err := json.Unmarshal([]byte(aws.ToString(msg.Body)), &job); err != nil {
		// A body that never parses would redeliver forever.
		log.Errorf("dropping malformed message %s: %v", aws.ToString(msg.MessageId), err)
		c.delete(ctx, msg)
		return
	}

	if err := c.handler(ctx, job); err != nil {
		log.WithFields(map[string]interface{}{
			"job":  job.ID,
			"type": job.Type,
			"slug": job.Slug,
		}).Errorf("job failed, message returns to the queue: %v", err)
		return
	}
	c.delete(ctx, msg)
}

func (c *Consumer) delete(ctx context.Context, msg types.Message) {
	if _, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      &c.queueURL,
		ReceiptHandle: msg.ReceiptHandle,
	}); err != nil {
		log.Errorf("delete message %s: %v", aws.ToString(msg.MessageId), err)
	}
}
