/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package notify sends reader-facing mail through SES and publishes
// operational fanout through SNS. Bounce intake parses the SES feedback
// notifications that arrive back over SNS.
package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/suparena/pressbox/awsx"
	"github.com/suparena/pressbox/corpus"
	pberrors "github.com/suparena/pressbox/errors"
	"github.com/suparena/pressbox/log"
)

// Mailer sends article announcements and double opt-in confirmations.
// All mail goes out from one configured sender address.
type Mailer struct {
	client  awsx.SESAPI
	sender  string
	siteURL string
}

// NewMailer constructs a mailer. siteBaseURL is used to build article,
// confirmation and unsubscribe links.
func NewMailer(client awsx.SESAPI, sender, siteBaseURL string) (*Mailer, error) {
	if client == nil {
		return nil, fmt.Errorf("nil SES client")
	}
	if sender == "" {
		return nil, fmt.Errorf("empty sender address")
	}
	return &Mailer{
		client:  client,
		sender:  sender,
		siteURL: strings.TrimSuffix(siteBaseURL, "/"),
	}, nil
}

// SendArticleAnnouncement mails the article to every confirmed subscriber
// whose topics match the article's tags, one SendEmail call per recipient.
// Per-recipient failures do not stop the run; they come back joined after
// the remaining recipients were tried. Returns the number of mails sent.
func (m *Mailer) SendArticleAnnouncement(ctx context.Context, article *corpus.Article, subscribers []*corpus.Subscriber) (int, error) {
	if article == nil || article.Slug == "" {
		return 0, pberrors.NewValidationError("slug", "required")
	}

	sent := 0
	var errs []error
	for _, sub := range subscribers {
		if sub == nil || sub.Status != corpus.SubscriberConfirmed {
			continue
		}
		if !wantsTopics(sub, article.Tags) {
			continue
		}

		subject := fmt.Sprintf("New article: %s", article.Title)
		htmlBody, textBody := m.announcementBody(article, sub)
		if err := m.send(ctx, sub.Email, subject, htmlBody, textBody); err != nil {
			errs = append(errs, fmt.Errorf("announce to %s: %w", sub.ID, err))
			continue
		}
		sent++
	}

	log.WithFields(map[string]interface{}{
		"slug":   article.Slug,
		"sent":   sent,
		"failed": len(errs),
	}).Info("article announcement")
	return sent, errors.Join(errs...)
}

// SendConfirmation mails the double opt-in link. Only pending subscribers
// receive it; every other status is refused.
func (m *Mailer) SendConfirmation(ctx context.Context, sub *corpus.Subscriber) error {
	if sub == nil || sub.Email == "" {
		return pberrors.NewValidationError("email", "required")
	}
	if sub.ConfirmToken == "" {
		return pberrors.NewValidationError("confirmToken", "required")
	}
	if sub.Status != corpus.SubscriberPending {
		return pberrors.NewValidationError("status", "confirmation mail goes to pending subscribers only")
	}

	confirmURL := fmt.Sprintf("%s/subscribers/confirm?token=%s", m.siteURL, sub.ConfirmToken)
	htmlBody := fmt.Sprintf(
		"<p>Confirm your subscription to keep receiving new articles.</p>\n<p><a href=%q>Confirm subscription</a></p>\n<p>If you did not subscribe, ignore this mail.</p>",
		confirmURL)
	textBody := fmt.Sprintf(
		"Confirm your subscription to keep receiving new articles.\n\n%s\n\nIf you did not subscribe, ignore this mail.",
		confirmURL)

	return m.send(ctx, sub.Email, "Confirm your subscription", htmlBody, textBody)
}

func (m *Mailer) send(ctx context.Context, to, subject, htmlBody, textBody string) error {
	_, err := m.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: &m.sender,
		Destination:      &sestypes.Destination{ToAddresses: []string{to}},
		Content: &sestypes.EmailContent{
			Simple: &sestypes.Message{
				Subject: &sestypes.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
				Body: &sestypes.Body{
					Html: &sestypes.Content{Data: aws.String(htmlBody), Charset: aws.String("UTF-8")},
					Text: &sestypes.Content{Data: aws.String(textBody), Charset: aws.String("UTF-8")},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

func (m *Mailer) announcementBody(article *corpus.Article, sub *corpus.Subscriber) (htmlBody, textBody string) {
	articleURL := fmt.Sprintf("%s/articles/%s", m.siteURL, article.Slug)
	unsubscribeURL := fmt.Sprintf("%s/subscribers/unsubscribe?token=%s", m.siteURL, sub.ConfirmToken)

	var b strings.Builder
	fmt.Fprintf(&b, "<h1>%s</h1>\n", html.EscapeString(article.Title))
	if article.Summary != "" {
		fmt.Fprintf(&b, "<p>%s</p>\n", html.EscapeString(article.Summary))
	}
	if article.ReadingTime > 0 {
		fmt.Fprintf(&b, "<p>%d min read</p>\n", article.ReadingTime)
	}
	fmt.Fprintf(&b, "<p><a href=%q>Read the article</a></p>\n", articleURL)
	fmt.Fprintf(&b, "<p><a href=%q>Unsubscribe</a></p>\n", unsubscribeURL)
	htmlBody = b.String()

	b.Reset()
	fmt.Fprintf(&b, "%s\n\n", article.Title)
	if article.Summary != "" {
		fmt.Fprintf(&b, "%s\n\n", article.Summary)
	}
	fmt.Fprintf(&b, "Read it: %s\n\nUnsubscribe: %s\n", articleURL, unsubscribeURL)
	textBody = b.String()
	return htmlBody, textBody
}

// wantsTopics reports whether the subscriber's topics overlap the tags.
// No topics means the subscriber takes everything.
func wantsTopics(sub *corpus.Subscriber, tags []string) bool {
	if len(sub.Topics) == 0 {
		return true
	}
	for _, topic := range sub.Topics {
		for _, tag := range tags {
			if strings.EqualFold(topic, tag) {
				return true
			}
		}
	}
	return false
}
