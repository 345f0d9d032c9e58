package models

import "time"

// AnnouncementType categorizes staff broadcasts.
type AnnouncementType string

const (
	AnnouncementGeneral     AnnouncementType = "general"
	AnnouncementEvent       AnnouncementType = "event"
	AnnouncementAlert       AnnouncementType = "alert"
	AnnouncementMaintenance AnnouncementType = "maintenance"
)

// Valid reports whether t is a known announcement type.
func (t AnnouncementType) Valid() bool {
	switch t {
	case AnnouncementGeneral, AnnouncementEvent, AnnouncementAlert, AnnouncementMaintenance:
		return true
	}
	return false
}

// Announcement is a staff-authored broadcast. Residents only see active ones.
type Announcement struct {
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
	AuthorID  *int64           `db:"author_id" json:"author_id,omitempty"`
	Title     string           `db:"title" json:"title"`
	Body      string           `db:"body" json:"body"`
	Type      AnnouncementType `db:"announcement_type" json:"type"`
	ID        int64            `db:"id" json:"id"`
	IsActive  bool             `db:"is_active" json:"is_active"`
}
