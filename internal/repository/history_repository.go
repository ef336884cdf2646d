package repository

import (
	"database/sql"

	"github.com/glowdesk/campaigns-backend/internal/model"
)

type HistoryRepositoryInterface interface {
	Record(businessID string, campaignID int, contacts []model.Contact) error
	PreviouslyTargeted(businessID string) (map[string]bool, error)
}

// HistoryRepository annotates which contacts a campaign has ever targeted.
// Rows outlive their campaign so "exclude previously targeted" keeps working
// after deletion.
type HistoryRepository struct {
	DB *sql.DB
}

func (r *HistoryRepository) Record(businessID string, campaignID int, contacts []model.Contact) error {
	stmt, err := r.DB.Prepare(`
        INSERT INTO contact_campaign_history (business_id, campaign_id, contact_id, phone, created_at)
        VALUES ($1, $2, $3, $4, NOW())
    `)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, contact := range contacts {
		if _, err := stmt.Exec(businessID, campaignID, contact.ContactID, contact.Phone); err != nil {
			return err
		}
	}
	return nil
}

// PreviouslyTargeted returns the set of canonical phones the business has
// already included in any campaign.
func (r *HistoryRepository) PreviouslyTargeted(businessID string) (map[string]bool, error) {
	rows, err := r.DB.Query(`SELECT DISTINCT phone FROM contact_campaign_history WHERE business_id=$1`, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	targeted := map[string]bool{}
	for rows.Next() {
		var phone string
		if err := rows.Scan(&phone); err != nil {
			return nil, err
		}
		targeted[phone] = true
	}
	return targeted, rows.Err()
}

var _ HistoryRepositoryInterface = (*HistoryRepository)(nil)
