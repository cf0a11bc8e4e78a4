package model

import (
	"errors"
	"strings"
)

var (
	errMissingTitle = errors.New("title is required")
	errMissingBody  = errors.New("body is required")
)

// NotificationPayload is the logical notification sent to every recipient.
type NotificationPayload struct {
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Data     map[string]string `json:"data,omitempty"`
	ImageURL string            `json:"imageUrl,omitempty"`
}

// Recipient is a payload bound to a single token.
type Recipient struct {
	Token   string
	Payload NotificationPayload
}

// Validate checks the fields needed for display.
func (p NotificationPayload) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return errMissingTitle
	}
	if strings.TrimSpace(p.Body) == "" {
		return errMissingBody
	}
	return nil
}

// ForRecipient clones the payload for one token so sends never share the data map.
func (p NotificationPayload) ForRecipient(token string) Recipient {
	clone := p
	if p.Data != nil {
		clone.Data = make(map[string]string, len(p.Data))
		for k, v := range p.Data {
			clone.Data[k] = v
		}
	}
	return Recipient{Token: token, Payload: clone}
}
