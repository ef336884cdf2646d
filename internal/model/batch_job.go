// internal/model/batch_job.go
package model

import "time"

type BatchJobStatus string

const (
	BatchPending    BatchJobStatus = "pending"
	BatchProcessing BatchJobStatus = "processing"
	BatchDone       BatchJobStatus = "done"
	BatchFailed     BatchJobStatus = "failed"
)

// BatchJob is one persisted sub-campaign of a multi-day creation request.
// Each row is consumed by the batch worker, so a failed batch stays visible
// and retryable instead of vanishing with the request that spawned it.
type BatchJob struct {
	ID           string         `db:"id" json:"id"` // uuid
	BusinessID   string         `db:"business_id" json:"business_id"`
	ParentName   string         `db:"parent_name" json:"parent_name"`
	Seq          int            `db:"seq" json:"seq"`
	TotalSeq     int            `db:"total_seq" json:"total_seq"`
	Kind         MessageKind    `db:"kind" json:"kind"`
	Text         string         `db:"text" json:"text,omitempty"`
	MediaURL     string         `db:"media_url" json:"media_url,omitempty"`
	ScheduledFor time.Time      `db:"scheduled_for" json:"scheduled_for"`
	Contacts     []Contact      `db:"contacts" json:"contacts"` // jsonb column
	Status       BatchJobStatus `db:"status" json:"status"`
	Attempts     int            `db:"attempts" json:"attempts"`
	LastError    string         `db:"last_error" json:"last_error,omitempty"`
	CampaignID   *int           `db:"campaign_id" json:"campaign_id,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    *time.Time     `db:"updated_at" json:"updated_at,omitempty"`
}
