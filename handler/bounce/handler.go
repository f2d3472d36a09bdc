/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package bounce is the Lambda behind the SES feedback SNS topic. It
// parses bounce and complaint notifications and suppresses the affected
// subscribers, so announcements stop going to dead or unwilling addresses.
package bounce

import (
	"context"
	"errors"
	"fmt"
	"strings"

	awsevents "github.com/aws/aws-lambda-go/events"

	"github.com/suparena/pressbox/corpus"
	"github.com/suparena/pressbox/datastore"
	"github.com/suparena/pressbox/log"
	"github.com/suparena/pressbox/notify"
)

// Handler marks bounced subscribers.
type Handler struct {
	subscribers datastore.DataStore[corpus.Subscriber]
}

// New constructs the bounce handler.
func New(subscribers datastore.DataStore[corpus.Subscriber]) (*Handler, error) {
	if subscribers == nil {
		return nil, fmt.Errorf("nil subscriber store")
	}
	return &Handler{subscribers: subscribers}, nil
}

// Handle processes one SNS batch of SES feedback notifications. Transient
// bounces are logged and left alone; permanent bounces and complaints
// suppress every named recipient. Store failures are joined and returned
// so SNS redelivers the batch; suppression is idempotent, so a redelivery
// re-marking an address is harmless.
func (h *Handler) Handle(ctx context.Context, ev awsevents.SNSEvent) error {
	var failures []error
	for _, record := range ev.Records {
		notice, err := notify.ParseBounce([]byte(record.SNS.Message))
		if err != nil {
			// Malformed feedback cannot improve with redelivery.
			log.WithFields(map[string]interface{}{
				"messageId": record.SNS.MessageID,
			}).Errorf("dropping unparseable feedback: %v", err)
			continue
		}
		if notice == nil {
			// Delivery notifications and other non-feedback types.
			continue
		}

		if !notice.Permanent {
			log.WithFields(map[string]interface{}{
				"type":       notice.Type,
				"recipients": len(notice.Recipients),
			}).Info("transient bounce, no suppression")
			continue
		}

		for _, recipient := range notice.Recipients {
			if err := h.suppress(ctx, recipient, notice.Type); err != nil {
				failures = append(failures, err)
			}
		}
	}
	return errors.Join(failures...)
}

// suppress marks one subscriber bounced. Unknown addresses are skipped;
// the feedback may concern mail sent before the subscriber was deleted.
func (h *Handler) suppress(ctx context.Context, email, noticeType string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil
	}

	sub, err := h.subscribers.GetOne(ctx, email)
	if err != nil {
		return fmt.Errorf("load subscriber %s: %w", email, err)
	}
	if sub == nil {
		log.Debugf("feedback for unknown address, nothing to suppress")
		return nil
	}
	if sub.Status == corpus.SubscriberBounced {
		return nil
	}

	sub.Status = corpus.SubscriberBounced
	sub.UpdatedAt = corpus.Now()
	if err := h.subscribers.Put(ctx, *sub); err != nil {
		return fmt.Errorf("suppress subscriber %s: %w", sub.ID, err)
	}

	log.WithFields(map[string]interface{}{
		"subscriber": sub.ID,
		"notice":     noticeType,
	}).Info("subscriber suppressed")
	return nil
}
