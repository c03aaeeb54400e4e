package models

import "time"

// MaxCommentLength is the longest accepted comment or reply, in characters
const MaxCommentLength = 1000

// Comment is a remark on a document. Replies carry the ID of the comment
// they answer in ParentID.
type Comment struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"documentId"`
	UserID     string    `json:"userId"`
	ParentID   string    `json:"parentId,omitempty"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
}
