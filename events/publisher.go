/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"

	"github.com/suparena/pressbox/awsx"
	pberrors "github.com/suparena/pressbox/errors"
	"github.com/suparena/pressbox/log"
)

// putEventsMax is the PutEvents request ceiling.
const putEventsMax = 10

// wireDetail is the detail JSON shape on the bus. Origin names the handler
// or command that emitted the event so consumers can trace fan-out chains.
type wireDetail struct {
	ID      string      `json:"id"`
	Origin  string      `json:"origin,omitempty"`
	Subject string      `json:"subject,omitempty"`
	Payload interface{} `json:"payload,omitempty"`
}

// Publisher writes envelopes to one event bus.
type Publisher struct {
	client awsx.EventBridgeAPI
	bus    string
	origin string
}

// NewPublisher constructs a publisher for the named bus. origin is stamped
// into every event's detail; use the emitting surface ("api", "worker",
// "scheduler", "cli").
func NewPublisher(client awsx.EventBridgeAPI, bus, origin string) (*Publisher, error) {
	if client == nil {
		return nil, fmt.Errorf("nil EventBridge client")
	}
	if bus == "" {
		return nil, fmt.Errorf("empty event bus name")
	}
	return &Publisher{client: client, bus: bus, origin: origin}, nil
}

// Publish sends the envelopes in PutEvents chunks of 10. A transport error
// aborts immediately; per-entry rejections are collected across chunks and
// returned as one EventDeliveryError carrying the failed event IDs.
func (p *Publisher) Publish(ctx context.Context, envelopes ...Envelope) error {
	if len(envelopes) == 0 {
		return nil
	}

	var failed []string
	for start := 0; start < len(envelopes); start += putEventsMax {
		end := start + putEventsMax
		if end > len(envelopes) {
			end = len(envelopes)
		}
		chunk := envelopes[start:end]

		entries, err := p.buildEntries(chunk)
		if err != nil {
			return err
		}

		out, err := p.client.PutEvents(ctx, &eventbridge.PutEventsInput{Entries: entries})
		if err != nil {
			return fmt.Errorf("put events on %s: %w", p.bus, err)
		}

		for i, result := range out.Entries {
			if result.ErrorCode == nil {
				continue
			}
			failed = append(failed, chunk[i].ID)
			log.WithFields(map[string]interface{}{
				"bus":   p.bus,
				"event": chunk[i].ID,
				"type":  chunk[i].DetailType,
				"code":  aws.ToString(result.ErrorCode),
			}).Warnf("event rejected: %s", aws.ToString(result.ErrorMessage))
		}
	}

	if len(failed) > 0 {
		return pberrors.NewEventDeliveryError(p.bus, failed)
	}
	return nil
}

func (p *Publisher) buildEntries(envelopes []Envelope) ([]types.PutEventsRequestEntry, error) {
	entries := make([]types.PutEventsRequestEntry, 0, len(envelopes))
	for _, e := range envelopes {
		detail, err := json.Marshal(wireDetail{
			ID:      e.ID,
			Origin:  p.origin,
			Subject: e.Subject,
			Payload: e.Payload,
		})
		if err != nil {
			return nil, fmt.Errorf("marshal detail for %s: %w", e.ID, err)
		}

		entry := types.PutEventsRequestEntry{
			EventBusName: &p.bus,
			Source:       aws.String(Source),
			DetailType:   aws.String(e.DetailType),
			Detail:       aws.String(string(detail)),
		}
		if !e.Time.IsZero() {
			entry.Time = aws.Time(e.Time)
		}
		if e.Subject != "" {
			entry.Resources = []string{e.Subject}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
