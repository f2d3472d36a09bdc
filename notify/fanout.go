/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"

	"github.com/suparena/pressbox/awsx"
	"github.com/suparena/pressbox/log"
)

// Fanout publishes operational notifications to an SNS topic. Deployments
// without a topic configure an empty ARN and get a no-op.
type Fanout struct {
	client   awsx.SNSAPI
	topicARN string
}

// NewFanout constructs a fanout publisher for the topic.
func NewFanout(client awsx.SNSAPI, topicARN string) *Fanout {
	return &Fanout{client: client, topicARN: topicARN}
}

// PublishJSON marshals payload and publishes it with the event type as both
// the subject and an eventType message attribute, so topic subscriptions can
// filter. Returns the SNS message ID, or "" when no topic is configured.
func (f *Fanout) PublishJSON(ctx context.Context, eventType string, payload interface{}) (string, error) {
	if f.topicARN == "" {
		log.Debugf("no ops topic configured, dropping %s notification", eventType)
		return "", nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal %s notification: %w", eventType, err)
	}

	out, err := f.client.Publish(ctx, &sns.PublishInput{
		TopicArn: &f.topicARN,
		Subject:  aws.String(eventType),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"eventType": {
				DataType:    aws.String("String"),
				StringValue: aws.String(eventType),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("publish %s to %s: %w", eventType, f.topicARN, err)
	}
	return aws.ToString(out.MessageId), nil
}
