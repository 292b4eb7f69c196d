package model

import "time"

// AudienceSegment stores the serialized predicate tree plus a point-in-time
// membership snapshot (segment_customers join). Membership is not a live
// view; it is replaced only when the segment is (re-)evaluated.
type AudienceSegment struct {
	ID         int64     `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	Conditions string    `db:"conditions" json:"conditions"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}
