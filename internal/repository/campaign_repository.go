package repository

import (
	"database/sql"
	"fmt"
	"time"

	appErrors "github.com/glowdesk/campaigns-backend/internal/errors"
	"github.com/glowdesk/campaigns-backend/internal/model"
)

type CampaignRepositoryInterface interface {
	// Campaign CRUD
	Create(c *model.Campaign, contacts []model.Contact) error
	GetByID(id int) (*model.Campaign, error)
	List(offset, limit int, businessID string, status model.CampaignStatus) ([]*model.Campaign, int, error)
	UpdateStatus(campaignID int, status model.CampaignStatus) error
	Delete(campaignID int) error

	// Synchronizer support
	GetContacts(campaignID int) ([]model.Contact, error)
	UpdateContactOutcome(contactRowID int, status model.ContactStatus, sentAt *time.Time, errMsg string) error
	UpdateCounts(campaignID int, sent, failed int) error
	MarkDone(campaignID int, sent, failed int, completedAt time.Time) error
	SetNextSync(campaignID int, at time.Time) error
	ListDueForSync(now time.Time, limit int) ([]*model.Campaign, error)

	// Stats
	ContactStats(campaignID int) (map[string]int, error)
}

type CampaignRepository struct {
	DB *sql.DB
}

const campaignColumns = `id, business_id, job_id, name, kind, text, media_url, scheduled_for,
	       status, total_contacts, sent_count, failed_count, polling_active,
	       next_sync_at, created_at, updated_at, completed_at`

// ====================== Campaign CRUD ======================

// Create persists the campaign and its contact list in one transaction.
func (r *CampaignRepository) Create(c *model.Campaign, contacts []model.Contact) error {
	tx, err := r.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	c.CreatedAt = time.Now()
	c.TotalContacts = len(contacts)

	query := `
        INSERT INTO campaigns
            (business_id, job_id, name, kind, text, media_url, scheduled_for,
             status, total_contacts, polling_active, next_sync_at, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
        RETURNING id
    `
	err = tx.QueryRow(query,
		c.BusinessID, c.JobID, c.Name, c.Kind, c.Text, c.MediaURL, c.ScheduledFor,
		c.Status, c.TotalContacts, c.PollingActive, c.NextSyncAt, c.CreatedAt,
	).Scan(&c.ID)
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
        INSERT INTO campaign_contacts (campaign_id, contact_id, name, phone, position, status)
        VALUES ($1, $2, $3, $4, $5, 'pending')
    `)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, contact := range contacts {
		if _, err := stmt.Exec(c.ID, contact.ContactID, contact.Name, contact.Phone, i); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *CampaignRepository) GetByID(id int) (*model.Campaign, error) {
	query := fmt.Sprintf(`SELECT %s FROM campaigns WHERE id=$1`, campaignColumns)
	c, err := scanCampaign(r.DB.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewCampaignNotFound(id)
		}
		return nil, err
	}
	return c, nil
}

func (r *CampaignRepository) List(offset, limit int, businessID string, status model.CampaignStatus) ([]*model.Campaign, int, error) {
	campaigns := []*model.Campaign{}
	query := fmt.Sprintf(`SELECT %s FROM campaigns WHERE 1=1`, campaignColumns)
	args := []interface{}{}
	argPos := 1

	if businessID != "" {
		query += fmt.Sprintf(" AND business_id=$%d", argPos)
		args = append(args, businessID)
		argPos++
	}
	if status != "" {
		query += fmt.Sprintf(" AND status=$%d", argPos)
		args = append(args, status)
		argPos++
	}

	query += fmt.Sprintf(" ORDER BY scheduled_for DESC, id DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, 0, err
		}
		campaigns = append(campaigns, c)
	}

	countQuery := `SELECT COUNT(*) FROM campaigns WHERE 1=1`
	countArgs := []interface{}{}
	countPos := 1
	if businessID != "" {
		countQuery += fmt.Sprintf(" AND business_id=$%d", countPos)
		countArgs = append(countArgs, businessID)
		countPos++
	}
	if status != "" {
		countQuery += fmt.Sprintf(" AND status=$%d", countPos)
		countArgs = append(countArgs, status)
	}

	var total int
	if err := r.DB.QueryRow(countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	return campaigns, total, nil
}

func (r *CampaignRepository) UpdateStatus(campaignID int, status model.CampaignStatus) error {
	query := `UPDATE campaigns SET status=$1, updated_at=NOW() WHERE id=$2`
	_, err := r.DB.Exec(query, status, campaignID)
	return err
}

// Delete removes the campaign record and its contacts. History rows survive
// on purpose; they feed the "exclude previously targeted" filter.
func (r *CampaignRepository) Delete(campaignID int) error {
	tx, err := r.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM campaign_contacts WHERE campaign_id=$1`, campaignID); err != nil {
		return err
	}
	res, err := tx.Exec(`DELETE FROM campaigns WHERE id=$1`, campaignID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return appErrors.NewCampaignNotFound(campaignID)
	}

	return tx.Commit()
}

// ====================== Synchronizer support ======================

func (r *CampaignRepository) GetContacts(campaignID int) ([]model.Contact, error) {
	query := `
        SELECT id, campaign_id, contact_id, name, phone, position, status, sent_at, error
        FROM campaign_contacts
        WHERE campaign_id=$1
        ORDER BY position
    `
	rows, err := r.DB.Query(query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contacts := []model.Contact{}
	for rows.Next() {
		var contact model.Contact
		var sentAt sql.NullTime
		var errMsg sql.NullString
		if err := rows.Scan(
			&contact.ID, &contact.CampaignID, &contact.ContactID, &contact.Name,
			&contact.Phone, &contact.Position, &contact.Status, &sentAt, &errMsg,
		); err != nil {
			return nil, err
		}
		if sentAt.Valid {
			contact.SentAt = &sentAt.Time
		}
		contact.Error = errMsg.String
		contacts = append(contacts, contact)
	}
	return contacts, rows.Err()
}

func (r *CampaignRepository) UpdateContactOutcome(contactRowID int, status model.ContactStatus, sentAt *time.Time, errMsg string) error {
	query := `UPDATE campaign_contacts SET status=$1, sent_at=$2, error=$3 WHERE id=$4`
	_, err := r.DB.Exec(query, status, sentAt, errMsg, contactRowID)
	return err
}

func (r *CampaignRepository) UpdateCounts(campaignID int, sent, failed int) error {
	query := `UPDATE campaigns SET sent_count=$1, failed_count=$2, updated_at=NOW() WHERE id=$3`
	_, err := r.DB.Exec(query, sent, failed, campaignID)
	return err
}

func (r *CampaignRepository) MarkDone(campaignID int, sent, failed int, completedAt time.Time) error {
	query := `
        UPDATE campaigns
        SET status='done', sent_count=$1, failed_count=$2, completed_at=$3,
            polling_active=FALSE, next_sync_at=NULL, updated_at=NOW()
        WHERE id=$4
    `
	_, err := r.DB.Exec(query, sent, failed, completedAt, campaignID)
	return err
}

func (r *CampaignRepository) SetNextSync(campaignID int, at time.Time) error {
	query := `UPDATE campaigns SET next_sync_at=$1, updated_at=NOW() WHERE id=$2`
	_, err := r.DB.Exec(query, at, campaignID)
	return err
}

// ListDueForSync returns campaigns whose persisted due time has passed. The
// claimer bumps next_sync_at before polling, so a crashed run is retried on
// the next tick instead of being lost with the process.
func (r *CampaignRepository) ListDueForSync(now time.Time, limit int) ([]*model.Campaign, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM campaigns
        WHERE polling_active=TRUE AND next_sync_at IS NOT NULL AND next_sync_at <= $1
        ORDER BY next_sync_at
        LIMIT $2
    `, campaignColumns)

	rows, err := r.DB.Query(query, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	campaigns := []*model.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

// ====================== Stats ======================

func (r *CampaignRepository) ContactStats(campaignID int) (map[string]int, error) {
	query := `SELECT status, COUNT(*) FROM campaign_contacts WHERE campaign_id=$1 GROUP BY status`
	rows, err := r.DB.Query(query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := map[string]int{"pending": 0, "sent": 0, "error": 0}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// ====================== scan helpers ======================

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCampaign(row rowScanner) (*model.Campaign, error) {
	var c model.Campaign
	var jobID, text, mediaURL sql.NullString
	var nextSyncAt, updatedAt, completedAt sql.NullTime

	err := row.Scan(
		&c.ID, &c.BusinessID, &jobID, &c.Name, &c.Kind, &text, &mediaURL, &c.ScheduledFor,
		&c.Status, &c.TotalContacts, &c.SentCount, &c.FailedCount, &c.PollingActive,
		&nextSyncAt, &c.CreatedAt, &updatedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}

	c.JobID = jobID.String
	c.Text = text.String
	c.MediaURL = mediaURL.String
	if nextSyncAt.Valid {
		c.NextSyncAt = &nextSyncAt.Time
	}
	if updatedAt.Valid {
		c.UpdatedAt = &updatedAt.Time
	}
	if completedAt.Valid {
		c.CompletedAt = &completedAt.Time
	}
	return &c, nil
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
