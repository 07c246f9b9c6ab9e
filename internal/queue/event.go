// Package queue defines message payloads exchanged over the message broker.
package queue

import (
    "time"

    "github.com/iliyamo/credits-api/internal/mail"
)

// EmailMessage is published for every outbound email when mail delivery is
// set to "queue". The consumer hands Message to SES unchanged.
type EmailMessage struct {
    Message  mail.Message `json:"message"`
    QueuedAt time.Time    `json:"queued_at"`
}
