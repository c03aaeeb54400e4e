package models

import "time"

// Notification is a message addressed to one user
type Notification struct {
	ID        string         `json:"id"`
	UserID    string         `json:"userId"` // Recipient
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
	Read      bool           `json:"read"`
	CreatedAt time.Time      `json:"createdAt"`
}

// NotificationComment is the type of the notice sent to a document owner
// when someone comments on the document
const NotificationComment = "comment"
