package models

import "time"

// Section is one private content item. IDs are sequential and 1-based per
// owner; a section is never visible outside its owner.
//
// Content holds either the note text or an opaque reference to an uploaded
// document; the engine does not interpret it.
type Section struct {
	ID        int64
	OwnerID   int64
	Title     string
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
	Favorite  bool
	Deleted   bool
}
