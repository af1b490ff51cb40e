// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskForge Contributors

// Package notify sends account emails without blocking the request that
// triggered them.
package notify

import (
	"context"
	"fmt"

	"github.com/samber/oops"
)

// Kind identifies an account notification.
type Kind string

// Notification kinds.
const (
	KindWelcome      Kind = "welcome"
	KindCancellation Kind = "cancellation"
)

// DefaultFrom is the sender address used when none is configured.
const DefaultFrom = "ifti3edu3cse@gmail.com"

// Message is a plain-text email.
type Message struct {
	To      string
	From    string
	Subject string
	Text    string
}

// Sender delivers a message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Compose builds the message for kind addressed to email.
func Compose(kind Kind, from, email, name string) (Message, error) {
	msg := Message{To: email, From: from}
	switch kind {
	case KindWelcome:
		msg.Subject = "Thanks for joining in.!"
		msg.Text = fmt.Sprintf("Welcome to the app, %s. Let me know how you get along with the app.", name)
	case KindCancellation:
		msg.Subject = "Cancelation message"
		msg.Text = fmt.Sprintf("Sad %s you are no longer with us. Can you please tell us about your cancellation", name)
	default:
		return Message{}, oops.Code("NOTIFY_UNKNOWN_KIND").With("kind", string(kind)).Errorf("unknown notification kind")
	}
	return msg, nil
}
