package models

import "time"

// UnknownUserName is shown in place of a user that no longer resolves
const UnknownUserName = "Unknown User"

// User is a registered account. Password material never reaches this package.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Bio       string    `json:"bio,omitempty"`
	AvatarURL string    `json:"avatarUrl,omitempty"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"createdAt"`
}

// AuthorSummary is the read-time join of a user onto another entity
type AuthorSummary struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	AvatarURL *string `json:"avatarUrl"`
}

// Summary returns the author summary for u
func (u *User) Summary() AuthorSummary {
	s := AuthorSummary{ID: u.ID, Name: u.Name}
	if u.AvatarURL != "" {
		avatar := u.AvatarURL
		s.AvatarURL = &avatar
	}
	return s
}

// UnknownAuthor is the placeholder for a dangling user reference
func UnknownAuthor(id string) AuthorSummary {
	return AuthorSummary{ID: id, Name: UnknownUserName}
}

// ResolveAuthor joins id against users, falling back to the placeholder
func ResolveAuthor(users map[string]*User, id string) AuthorSummary {
	if u, ok := users[id]; ok && u != nil {
		return u.Summary()
	}
	return UnknownAuthor(id)
}

// IndexUsers builds an id lookup for read-time joins
func IndexUsers(users []User) map[string]*User {
	index := make(map[string]*User, len(users))
	for i := range users {
		index[users[i].ID] = &users[i]
	}
	return index
}
