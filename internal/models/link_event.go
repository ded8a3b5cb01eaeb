package models

import (
	"time"
)

// Link event types reported by the provider's link client.
const (
	LinkEventSuccess = "SUCCESS"
	LinkEventExit    = "EXIT"
)

// LinkEvent logs a response from the provider's link flow. Kept for
// troubleshooting failed bank connections.
type LinkEvent struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"userId"`
	EventType     string    `json:"eventType"`
	LinkSessionID string    `json:"linkSessionId"`
	RequestID     *string   `json:"requestId,omitempty"`
	ErrorType     *string   `json:"errorType,omitempty"`
	ErrorCode     *string   `json:"errorCode,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

type CreateLinkEventParams struct {
	UserID        int64
	EventType     string
	LinkSessionID string
	RequestID     *string
	ErrorType     *string
	ErrorCode     *string
}
