/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package notify_test

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/suparena/pressbox/awsx"
	"github.com/suparena/pressbox/corpus"
)

const (
	testSender = "news@pressbox.dev"
	testSite   = "https://pressbox.dev"
	testTopic  = "arn:aws:sns:us-east-1:123456789012:pressbox-ops"
)

type fakeSES struct {
	inputs []*sesv2.SendEmailInput
	err    error
	errFor map[string]error
}

var _ awsx.SESAPI = (*fakeSES)(nil)

func (f *fakeSES) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.inputs = append(f.inputs, params)
	if f.err != nil {
		return nil, f.err
	}
	if params.Destination != nil && len(params.Destination.ToAddresses) == 1 {
		if err, ok := f.errFor[params.Destination.ToAddresses[0]]; ok {
			return nil, err
		}
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("ses-1")}, nil
}

type fakeSNS struct {
	inputs []*sns.PublishInput
	err    error
}

var _ awsx.SNSAPI = (*fakeSNS)(nil)

func (f *fakeSNS) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.inputs = append(f.inputs, params)
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{MessageId: aws.String("sns-1")}, nil
}

func subscriber(id, email, status string, topics ...string) *corpus.Subscriber {
	return &corpus.Subscriber{
		ID:           id,
		Email:        email,
		Status:       status,
		Topics:       topics,
		ConfirmToken: "tok-" + id,
	}
}
