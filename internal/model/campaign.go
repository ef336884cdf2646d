// internal/model/campaign.go
package model

import "time"

type CampaignStatus string

const (
	StatusScheduled CampaignStatus = "scheduled"
	StatusSending   CampaignStatus = "sending"
	StatusPaused    CampaignStatus = "paused"
	StatusDone      CampaignStatus = "done"
)

type MessageKind string

const (
	KindText  MessageKind = "text"
	KindImage MessageKind = "image"
	KindAudio MessageKind = "audio"
	KindVideo MessageKind = "video"
)

type Campaign struct {
	ID            int            `db:"id" json:"id"`
	BusinessID    string         `db:"business_id" json:"business_id"`
	JobID         string         `db:"job_id" json:"job_id,omitempty"` // empty when provider creation failed
	Name          string         `db:"name" json:"name"`
	Kind          MessageKind    `db:"kind" json:"kind"`
	Text          string         `db:"text" json:"text,omitempty"`
	MediaURL      string         `db:"media_url" json:"media_url,omitempty"`
	ScheduledFor  time.Time      `db:"scheduled_for" json:"scheduled_for"`
	Status        CampaignStatus `db:"status" json:"status"`
	TotalContacts int            `db:"total_contacts" json:"total_contacts"`
	SentCount     int            `db:"sent_count" json:"sent_count"`
	FailedCount   int            `db:"failed_count" json:"failed_count"`
	PollingActive bool           `db:"polling_active" json:"polling_active"`
	NextSyncAt    *time.Time     `db:"next_sync_at" json:"next_sync_at,omitempty"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     *time.Time     `db:"updated_at" json:"updated_at,omitempty"`
	CompletedAt   *time.Time     `db:"completed_at" json:"completed_at,omitempty"`

	// Contacts is populated on detail lookups only.
	Contacts []Contact `json:"contacts,omitempty"`
}

// PendingCount derives the number of contacts still awaiting a terminal outcome.
func (c *Campaign) PendingCount() int {
	pending := c.TotalContacts - c.SentCount - c.FailedCount
	if pending < 0 {
		return 0
	}
	return pending
}

func (c *Campaign) Age(now time.Time) time.Duration {
	return now.Sub(c.CreatedAt)
}
