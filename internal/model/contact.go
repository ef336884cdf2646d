// internal/model/contact.go
package model

import "time"

type ContactStatus string

const (
	ContactPending ContactStatus = "pending"
	ContactSent    ContactStatus = "sent"
	ContactError   ContactStatus = "error"
)

// Terminal reports whether the status will no longer change on further polling.
func (s ContactStatus) Terminal() bool {
	return s == ContactSent || s == ContactError
}

// Contact is one recipient of a campaign. Position preserves the caller's
// input order, which batch numbering depends on.
type Contact struct {
	ID         int           `db:"id" json:"id"`
	CampaignID int           `db:"campaign_id" json:"campaign_id"`
	ContactID  string        `db:"contact_id" json:"contact_id"`
	Name       string        `db:"name" json:"name"`
	Phone      string        `db:"phone" json:"phone"` // canonical digits, country code included
	Position   int           `db:"position" json:"position"`
	Status     ContactStatus `db:"status" json:"status"`
	SentAt     *time.Time    `db:"sent_at" json:"sent_at,omitempty"`
	Error      string        `db:"error" json:"error,omitempty"`
}
