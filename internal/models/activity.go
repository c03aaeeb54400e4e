package models

import "time"

// Activity actions recorded by the action handlers
const (
	ActionDocumentCreated    = "document.created"
	ActionDocumentUpdated    = "document.updated"
	ActionDocumentDeleted    = "document.deleted"
	ActionDocumentLiked      = "document.liked"
	ActionDocumentUnliked    = "document.unliked"
	ActionDocumentBookmarked = "document.bookmarked"
	ActionUserFollowed       = "user.followed"
	ActionUserGainedFollower = "user.gained_follower"
	ActionUserUnfollowed     = "user.unfollowed"
	ActionProfileUpdated     = "profile.updated"
	ActionCommentCreated     = "comment.created"
	ActionCommentReplied     = "comment.replied"
)

// EntityType is the kind of entity an activity refers to
type EntityType string

const (
	EntityUser        EntityType = "user"
	EntityDocument    EntityType = "document"
	EntityInteraction EntityType = "interaction"
	EntityComment     EntityType = "comment"
)

// Activity is an append-only audit entry used to narrate feeds
type Activity struct {
	ID         string          `json:"id"`
	UserID     string          `json:"userId"`
	Action     string          `json:"action"`
	EntityType EntityType      `json:"entityType"`
	EntityID   string          `json:"entityId"`
	Timestamp  time.Time       `json:"timestamp"`
	Details    ActivityDetails `json:"details"`
}

// ActivityDetails holds the optional narration fields of an activity.
// Which fields are set depends on Action.
type ActivityDetails struct {
	DocumentTitle  string   `json:"documentTitle,omitempty"`
	DocumentOwner  string   `json:"documentOwner,omitempty"`
	Category       string   `json:"category,omitempty"`
	Tags           []string `json:"tags,omitempty"`
	LikeCount      *int     `json:"likeCount,omitempty"`
	TargetUserName string   `json:"targetUserName,omitempty"`
	FollowerName   string   `json:"followerName,omitempty"`
	FollowerCount  *int     `json:"followerCount,omitempty"`

	DocumentID      string `json:"documentId,omitempty"`
	ParentCommentID string `json:"parentCommentId,omitempty"`
	CommentLength   int    `json:"commentLength,omitempty"`
}

// EnrichedActivity is an activity joined with its acting user and document
type EnrichedActivity struct {
	Activity
	User     AuthorSummary `json:"user"`
	Document *DocumentRef  `json:"document,omitempty"`
}
