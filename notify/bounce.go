/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package notify

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SES feedback notification types.
const (
	noticeBounce    = "Bounce"
	noticeComplaint = "Complaint"
	bouncePermanent = "Permanent"
)

// BounceNotice is the distilled form of an SES bounce or complaint
// notification. Permanent notices suppress the affected subscribers.
type BounceNotice struct {
	Type       string
	Permanent  bool
	Recipients []string
}

// sesNotification mirrors the SES feedback JSON delivered over SNS.
type sesNotification struct {
	NotificationType string `json:"notificationType"`
	Bounce           *struct {
		BounceType        string `json:"bounceType"`
		BouncedRecipients []struct {
			EmailAddress string `json:"emailAddress"`
		} `json:"bouncedRecipients"`
	} `json:"bounce"`
	Complaint *struct {
		ComplainedRecipients []struct {
			EmailAddress string `json:"emailAddress"`
		} `json:"complainedRecipients"`
	} `json:"complaint"`
}

// ParseBounce parses one SES feedback notification. Delivery notifications
// and other non-feedback types return (nil, nil); malformed JSON is an
// error. Complaints are treated as permanent.
func ParseBounce(message []byte) (*BounceNotice, error) {
	var raw sesNotification
	if err := json.Unmarshal(message, &raw); err != nil {
		return nil, fmt.Errorf("parse SES notification: %w", err)
	}

	switch raw.NotificationType {
	case noticeBounce:
		if raw.Bounce == nil {
			return nil, fmt.Errorf("bounce notification without bounce payload")
		}
		notice := &BounceNotice{
			Type:      noticeBounce,
			Permanent: strings.EqualFold(raw.Bounce.BounceType, bouncePermanent),
		}
		for _, r := range raw.Bounce.BouncedRecipients {
			if r.EmailAddress != "" {
				notice.Recipients = append(notice.Recipients, r.EmailAddress)
			}
		}
		return notice, nil

	case noticeComplaint:
		if raw.Complaint == nil {
			return nil, fmt.Errorf("complaint notification without complaint payload")
		}
		notice := &BounceNotice{Type: noticeComplaint, Permanent: true}
		for _, r := range raw.Complaint.ComplainedRecipients {
			if r.EmailAddress != "" {
				notice.Recipients = append(notice.Recipients, r.EmailAddress)
			}
		}
		return notice, nil

	default:
		return nil, nil
	}
}
