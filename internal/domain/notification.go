package domain

import "time"

// Notification is a persisted user or role addressed message with read state.
// Exactly one of UserID or Roles should be set.
type Notification struct {
	ID        string
	UserID    string
	Roles     []string
	Title     string
	Message   string
	IsRead    bool
	CreatedAt time.Time
}
