package models

import (
	"fmt"
	"time"
)

// InteractionType is the kind of edge between a user and a target
type InteractionType string

const (
	InteractionLike     InteractionType = "like"
	InteractionBookmark InteractionType = "bookmark"
	InteractionFollow   InteractionType = "follow"
)

// Valid reports whether t is a known interaction type
func (t InteractionType) Valid() bool {
	switch t {
	case InteractionLike, InteractionBookmark, InteractionFollow:
		return true
	}
	return false
}

// TargetType is the kind of entity an interaction points at
type TargetType string

const (
	TargetDocument TargetType = "document"
	TargetUser     TargetType = "user"
)

// ParseTargetType validates a target type coming from a request
func ParseTargetType(s string) (TargetType, error) {
	switch TargetType(s) {
	case TargetDocument, TargetUser:
		return TargetType(s), nil
	}
	return "", fmt.Errorf("unknown target type %q: %w", s, ErrInvalidInput)
}

// Interaction is a like, bookmark or follow edge. At most one exists per
// (UserID, TargetID, Type); removing it is how a toggle is turned off.
type Interaction struct {
	ID         string          `json:"id"`
	UserID     string          `json:"userId"`
	TargetID   string          `json:"targetId"`
	TargetType TargetType      `json:"targetType"`
	Type       InteractionType `json:"type"`
	Timestamp  time.Time       `json:"timestamp"`

	// Exactly one of these is set, depending on TargetType
	Document *DocumentSnapshot `json:"document,omitempty"`
	Followee *FolloweeSnapshot `json:"followee,omitempty"`
}

// DocumentSnapshot is what a like or bookmark remembers about its document
type DocumentSnapshot struct {
	Title    string   `json:"title"`
	Category string   `json:"category,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

// FolloweeSnapshot is what a follow remembers about the followed user
type FolloweeSnapshot struct {
	Name string `json:"name"`
}

// SnapshotDocument captures the fields of d that preference estimation reads
func SnapshotDocument(d *Document) *DocumentSnapshot {
	var tags []string
	if len(d.Tags) > 0 {
		tags = append(tags, d.Tags...)
	}
	return &DocumentSnapshot{Title: d.Title, Category: d.Category, Tags: tags}
}

// Category returns the category recorded with the interaction, if any
func (i *Interaction) Category() (string, bool) {
	if i.Document == nil || i.Document.Category == "" {
		return "", false
	}
	return i.Document.Category, true
}

// Tags returns the tags recorded with the interaction
func (i *Interaction) Tags() []string {
	if i.Document == nil {
		return nil
	}
	return i.Document.Tags
}

// IsFollow reports whether i is a follow edge onto a user
func (i *Interaction) IsFollow() bool {
	return i.Type == InteractionFollow && i.TargetType == TargetUser
}
