package models

import "time"

// Document represents an uploaded document and its metadata
type Document struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"` // Owner
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	Description  string    `json:"description,omitempty"`
	Type         string    `json:"type,omitempty"` // MIME type of the original upload
	Size         int64     `json:"size,omitempty"`
	Category     string    `json:"category,omitempty"`
	Tags         []string  `json:"tags,omitempty"`
	IsPublic     bool      `json:"isPublic"`
	ThumbnailURL string    `json:"thumbnailUrl,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// VisibleTo reports whether viewerID may see the document
func (d *Document) VisibleTo(viewerID string) bool {
	return d.IsPublic || d.UserID == viewerID
}

// DocumentRef is the short form of a document embedded in activity items
type DocumentRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Type  string `json:"type"`
}

// Ref returns the short form of the document
func (d *Document) Ref() *DocumentRef {
	return &DocumentRef{ID: d.ID, Title: d.Title, Type: d.Type}
}
