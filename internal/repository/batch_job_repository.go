package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/glowdesk/campaigns-backend/internal/model"
)

type BatchJobRepositoryInterface interface {
	Create(j *model.BatchJob) error
	GetByID(id string) (*model.BatchJob, error)
	ListPending() ([]*model.BatchJob, error)
	MarkProcessing(id string) error
	MarkDone(id string, campaignID int) error
	MarkFailed(id string, errMsg string) error
}

type BatchJobRepository struct {
	DB *sql.DB
}

const batchJobColumns = `id, business_id, parent_name, seq, total_seq, kind, text, media_url,
	       scheduled_for, contacts, status, attempts, last_error, campaign_id,
	       created_at, updated_at`

func (r *BatchJobRepository) Create(j *model.BatchJob) error {
	contacts, err := json.Marshal(j.Contacts)
	if err != nil {
		return fmt.Errorf("failed to encode batch contacts: %w", err)
	}

	j.CreatedAt = time.Now()
	if j.Status == "" {
		j.Status = model.BatchPending
	}
	query := `
        INSERT INTO batch_jobs
            (id, business_id, parent_name, seq, total_seq, kind, text, media_url,
             scheduled_for, contacts, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
    `
	_, err = r.DB.Exec(query,
		j.ID, j.BusinessID, j.ParentName, j.Seq, j.TotalSeq, j.Kind, j.Text, j.MediaURL,
		j.ScheduledFor, contacts, j.Status, j.CreatedAt,
	)
	return err
}

func (r *BatchJobRepository) GetByID(id string) (*model.BatchJob, error) {
	query := fmt.Sprintf(`SELECT %s FROM batch_jobs WHERE id=$1`, batchJobColumns)
	j, err := scanBatchJob(r.DB.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return j, nil
}

// ListPending returns jobs never finished, oldest first, so a restarted worker
// can requeue them.
func (r *BatchJobRepository) ListPending() ([]*model.BatchJob, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM batch_jobs
        WHERE status IN ('pending', 'processing')
        ORDER BY created_at, seq
    `, batchJobColumns)

	rows, err := r.DB.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs := []*model.BatchJob{}
	for rows.Next() {
		j, err := scanBatchJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func (r *BatchJobRepository) MarkProcessing(id string) error {
	query := `UPDATE batch_jobs SET status='processing', attempts=attempts+1, updated_at=NOW() WHERE id=$1`
	_, err := r.DB.Exec(query, id)
	return err
}

func (r *BatchJobRepository) MarkDone(id string, campaignID int) error {
	query := `UPDATE batch_jobs SET status='done', campaign_id=$1, last_error='', updated_at=NOW() WHERE id=$2`
	_, err := r.DB.Exec(query, campaignID, id)
	return err
}

func (r *BatchJobRepository) MarkFailed(id string, errMsg string) error {
	query := `UPDATE batch_jobs SET status='failed', last_error=$1, updated_at=NOW() WHERE id=$2`
	_, err := r.DB.Exec(query, errMsg, id)
	return err
}

func scanBatchJob(row rowScanner) (*model.BatchJob, error) {
	var j model.BatchJob
	var text, mediaURL, lastError sql.NullString
	var campaignID sql.NullInt64
	var updatedAt sql.NullTime
	var contacts []byte

	err := row.Scan(
		&j.ID, &j.BusinessID, &j.ParentName, &j.Seq, &j.TotalSeq, &j.Kind, &text, &mediaURL,
		&j.ScheduledFor, &contacts, &j.Status, &j.Attempts, &lastError, &campaignID,
		&j.CreatedAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	j.Text = text.String
	j.MediaURL = mediaURL.String
	j.LastError = lastError.String
	if campaignID.Valid {
		id := int(campaignID.Int64)
		j.CampaignID = &id
	}
	if updatedAt.Valid {
		j.UpdatedAt = &updatedAt.Time
	}
	if err := json.Unmarshal(contacts, &j.Contacts); err != nil {
		return nil, fmt.Errorf("failed to decode batch contacts: %w", err)
	}
	return &j, nil
}

var _ BatchJobRepositoryInterface = (*BatchJobRepository)(nil)
