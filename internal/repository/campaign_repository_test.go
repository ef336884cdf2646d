package repository_test

import (
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/glowdesk/campaigns-backend/internal/errors"
	"github.com/glowdesk/campaigns-backend/internal/model"
	"github.com/glowdesk/campaigns-backend/internal/repository"
)

func campaignColumns() []string {
	return []string{
		"id", "business_id", "job_id", "name", "kind", "text", "media_url", "scheduled_for",
		"status", "total_contacts", "sent_count", "failed_count", "polling_active",
		"next_sync_at", "created_at", "updated_at", "completed_at",
	}
}

func TestCreate_PersistsCampaignAndContactsInOneTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := &repository.CampaignRepository{DB: db}

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO campaigns").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	prep := mock.ExpectPrepare("INSERT INTO campaign_contacts")
	prep.ExpectExec().
		WithArgs(7, "c-0", "Ana", "5511987654321", 0).
		WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().
		WithArgs(7, "c-1", "Bia", "5511912340000", 1).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	c := &model.Campaign{
		BusinessID:   "biz-1",
		JobID:        "job-1",
		Name:         "September promo",
		Kind:         model.KindText,
		ScheduledFor: time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC),
		Status:       model.StatusSending,
	}
	contacts := []model.Contact{
		{ContactID: "c-0", Name: "Ana", Phone: "5511987654321"},
		{ContactID: "c-1", Name: "Bia", Phone: "5511912340000"},
	}

	require.NoError(t, repo.Create(c, contacts))
	assert.Equal(t, 7, c.ID)
	assert.Equal(t, 2, c.TotalContacts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_RollsBackOnContactInsertFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := &repository.CampaignRepository{DB: db}

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO campaigns").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	prep := mock.ExpectPrepare("INSERT INTO campaign_contacts")
	prep.ExpectExec().WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	err = repo.Create(&model.Campaign{}, []model.Contact{{ContactID: "c-0"}})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := &repository.CampaignRepository{DB: db}

	mock.ExpectQuery("SELECT .+ FROM campaigns WHERE id=").
		WithArgs(42).
		WillReturnRows(sqlmock.NewRows(campaignColumns()))

	_, err = repo.GetByID(42)

	var notFound *appErrors.ErrCampaignNotFound
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, 42, notFound.CampaignID)
}

func TestGetByID_ScansNullableFields(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := &repository.CampaignRepository{DB: db}
	created := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT .+ FROM campaigns WHERE id=").
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows(campaignColumns()).AddRow(
			7, "biz-1", nil, "September promo", "text", "hi", nil, created.Add(time.Hour),
			"scheduled", 10, 0, 0, false,
			nil, created, nil, nil,
		))

	c, err := repo.GetByID(7)
	require.NoError(t, err)
	assert.Empty(t, c.JobID)
	assert.Empty(t, c.MediaURL)
	assert.Nil(t, c.NextSyncAt)
	assert.Nil(t, c.CompletedAt)
	assert.Equal(t, model.StatusScheduled, c.Status)
}

func TestListDueForSync(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := &repository.CampaignRepository{DB: db}
	now := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	due := now.Add(-time.Minute)

	mock.ExpectQuery("SELECT .+ FROM campaigns\\s+WHERE polling_active=TRUE").
		WithArgs(now, 50).
		WillReturnRows(sqlmock.NewRows(campaignColumns()).AddRow(
			7, "biz-1", "job-1", "September promo", "text", "hi", nil, now.Add(time.Hour),
			"sending", 10, 4, 1, true,
			due, now.Add(-time.Hour), nil, nil,
		))

	campaigns, err := repo.ListDueForSync(now, 50)
	require.NoError(t, err)
	require.Len(t, campaigns, 1)
	assert.Equal(t, "job-1", campaigns[0].JobID)
	assert.True(t, campaigns[0].PollingActive)
}

func TestMarkDone(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := &repository.CampaignRepository{DB: db}
	completed := time.Date(2026, 9, 1, 16, 0, 0, 0, time.UTC)

	mock.ExpectExec("UPDATE campaigns").
		WithArgs(10, 2, completed, 7).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkDone(7, 10, 2, completed))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete_MissingCampaign(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := &repository.CampaignRepository{DB: db}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM campaign_contacts").
		WithArgs(42).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM campaigns").
		WithArgs(42).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err = repo.Delete(42)
	var notFound *appErrors.ErrCampaignNotFound
	assert.ErrorAs(t, err, &notFound)
}
