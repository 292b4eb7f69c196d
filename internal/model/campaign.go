package model

import "time"

// NamePlaceholder is the literal token campaign messages must carry; the
// fan-out replaces it with each recipient's name.
const NamePlaceholder = "[Name]"

type Campaign struct {
	ID                int64     `db:"id" json:"id"`
	AudienceSegmentID int64     `db:"audience_segment_id" json:"audience_segment_id"`
	Message           string    `db:"message" json:"message"`
	ScheduledAt       time.Time `db:"scheduled_at" json:"scheduled_at"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}
