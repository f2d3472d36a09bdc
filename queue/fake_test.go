/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package queue_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/suparena/pressbox/awsx"
	"github.com/suparena/pressbox/queue"
)

const testQueueURL = "https://sqs.us-east-1.amazonaws.com/123456789012/pressbox-work"

// receiveStep scripts one ReceiveMessage call.
type receiveStep struct {
	out *sqs.ReceiveMessageOutput
	err error
}

// fakeSQS records calls and replays scripted receives. Once the script is
// exhausted it blocks like an empty long poll until the context ends.
type fakeSQS struct {
	mu            sync.Mutex
	sendInputs    []*sqs.SendMessageInput
	batchInputs   []*sqs.SendMessageBatchInput
	receiveInputs []*sqs.ReceiveMessageInput
	deleteInputs  []*sqs.DeleteMessageInput

	sendErr              error
	batchErr             error
	failFirstOfEachBatch bool
	receives             []receiveStep
}

var _ awsx.SQSAPI = (*fakeSQS)(nil)

func (f *fakeSQS) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.mu.Lock()
	f.sendInputs = append(f.sendInputs, params)
	f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("m-1")}, nil
}

func (f *fakeSQS) SendMessageBatch(ctx context.Context, params *sqs.SendMessageBatchInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageBatchOutput, error) {
	f.mu.Lock()
	f.batchInputs = append(f.batchInputs, params)
	f.mu.Unlock()
	if f.batchErr != nil {
		return nil, f.batchErr
	}

	out := &sqs.SendMessageBatchOutput{}
	entries := params.Entries
	if f.failFirstOfEachBatch && len(entries) > 0 {
		out.Failed = append(out.Failed, types.BatchResultErrorEntry{
			Id:          entries[0].Id,
			Code:        aws.String("InternalError"),
			Message:     aws.String("try again"),
			SenderFault: false,
		})
		entries = entries[1:]
	}
	for _, entry := range entries {
		out.Successful = append(out.Successful, types.SendMessageBatchResultEntry{
			Id:        entry.Id,
			MessageId: aws.String("m-" + aws.ToString(entry.Id)),
		})
	}
	return out, nil
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	f.mu.Lock()
	f.receiveInputs = append(f.receiveInputs, params)
	var step *receiveStep
	if len(f.receives) > 0 {
		step = &f.receives[0]
		f.receives = f.receives[1:]
	}
	f.mu.Unlock()

	if step != nil {
		return step.out, step.err
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func (f *fakeSQS) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.mu.Lock()
	f.deleteInputs = append(f.deleteInputs, params)
	f.mu.Unlock()
	return &sqs.DeleteMessageOutput{}, nil
}

func (f *fakeSQS) deletes() []*sqs.DeleteMessageInput {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*sqs.DeleteMessageInput(nil), f.deleteInputs...)
}

func (f *fakeSQS) receiveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.receiveInputs)
}

func (f *fakeSQS) firstReceive() *sqs.ReceiveMessageInput {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.receiveInputs) == 0 {
		return nil
	}
	return f.receiveInputs[0]
}

// messageOf wraps a job the way SQS would deliver it.
func messageOf(t *testing.T, job queue.Job) types.Message {
	t.Helper()
	body, err := json.Marshal(job)
	if err != nil {
		t.Fatalf("marshal job: %v", err)
	}
	return types.Message{
		MessageId:     aws.String("m-" + job.ID),
		ReceiptHandle: aws.String("rh-" + job.ID),
		Body:          aws.String(string(body)),
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
