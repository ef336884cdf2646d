// internal/service/campaign_service.go
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/glowdesk/campaigns-backend/internal/batch"
	"github.com/glowdesk/campaigns-backend/internal/config"
	"github.com/glowdesk/campaigns-backend/internal/dispatch"
	appErrors "github.com/glowdesk/campaigns-backend/internal/errors"
	"github.com/glowdesk/campaigns-backend/internal/metrics"
	"github.com/glowdesk/campaigns-backend/internal/model"
	"github.com/glowdesk/campaigns-backend/internal/phone"
	"github.com/glowdesk/campaigns-backend/internal/queue"
	"github.com/glowdesk/campaigns-backend/internal/repository"
)

// QuotaLedger is the reservation counter consulted and mutated at scheduling
// time. Implemented by quota.Ledger.
type QuotaLedger interface {
	Status(ctx context.Context, businessID string, day time.Time) (*model.QuotaStatus, error)
	Reserve(ctx context.Context, businessID string, day time.Time, count int) error
	Release(ctx context.Context, businessID string, day time.Time, count int) error
}

type CampaignService struct {
	Campaigns repository.CampaignRepositoryInterface
	BatchJobs repository.BatchJobRepositoryInterface
	History   repository.HistoryRepositoryInterface
	Quota     QuotaLedger
	Dispatch  dispatch.Client
	Queue     queue.Queue
	Policy    config.CampaignConfig
	Log       *zap.Logger

	// Now is overridable in tests; nil means time.Now.
	Now func() time.Time
}

type ContactInput struct {
	ContactID string `json:"contact_id"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
}

type CreateCampaignInput struct {
	BusinessID      string            `json:"business_id"`
	Name            string            `json:"name"`
	Kind            model.MessageKind `json:"kind"`
	Text            string            `json:"text"`
	MediaURL        string            `json:"media_url"`
	ScheduledFor    time.Time         `json:"scheduled_for"`
	Contacts        []ContactInput    `json:"contacts"`
	ExcludePrevious bool              `json:"exclude_previous"`
}

// CreateCampaignResult reports either the synchronously created campaign id
// (single-day path) or the number of batch jobs accepted for background
// creation (multi-day path).
type CreateCampaignResult struct {
	CampaignID int  `json:"campaign_id,omitempty"`
	Accepted   bool `json:"accepted"`
	Batches    int  `json:"batches,omitempty"`
}

// BatchPayload is the queue message carrying one persisted batch job id.
type BatchPayload struct {
	BatchJobID string `json:"batch_job_id"`
}

func (s *CampaignService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// CreateCampaign validates the request and either creates the dispatch job
// synchronously (up to the per-job ceiling) or fans the list out into
// persisted batch jobs consumed by the batch worker.
func (s *CampaignService) CreateCampaign(ctx context.Context, input CreateCampaignInput) (*CreateCampaignResult, error) {
	contacts, err := s.prepareContacts(ctx, input)
	if err != nil {
		return nil, err
	}

	if err := s.validateSchedule(input.ScheduledFor); err != nil {
		return nil, err
	}

	if len(contacts) <= s.Policy.MaxBatchSize {
		return s.createSingleDay(ctx, input, contacts)
	}
	return s.createMultiDay(ctx, input, contacts)
}

func (s *CampaignService) prepareContacts(ctx context.Context, input CreateCampaignInput) ([]model.Contact, error) {
	var exclude map[string]bool
	if input.ExcludePrevious {
		var err error
		exclude, err = s.History.PreviouslyTargeted(input.BusinessID)
		if err != nil {
			return nil, fmt.Errorf("failed to load contact history: %w", err)
		}
	}

	contacts := make([]model.Contact, 0, len(input.Contacts))
	for _, in := range input.Contacts {
		canonical := phone.Canonical(in.Phone, s.Policy.CountryCode)
		if canonical == "" {
			s.Log.Warn("skipping contact without usable phone",
				zap.String("contact_id", in.ContactID),
				zap.String("business_id", input.BusinessID))
			continue
		}
		if exclude[canonical] {
			continue
		}
		contacts = append(contacts, model.Contact{
			ContactID: in.ContactID,
			Name:      in.Name,
			Phone:     canonical,
			Position:  len(contacts),
			Status:    model.ContactPending,
		})
	}

	if len(contacts) == 0 {
		return nil, appErrors.ErrEmptyContactList
	}
	return contacts, nil
}

func (s *CampaignService) validateSchedule(scheduledFor time.Time) error {
	minutesOfDay := scheduledFor.Hour()*60 + scheduledFor.Minute()
	if minutesOfDay < s.Policy.WindowStartMinutes || minutesOfDay > s.Policy.WindowEndMinutes {
		return appErrors.ErrOutsideBusinessHours
	}

	now := s.now()
	sameDay := scheduledFor.Year() == now.Year() && scheduledFor.YearDay() == now.YearDay()
	if sameDay && scheduledFor.Sub(now) < time.Duration(s.Policy.MinLeadMinutes)*time.Minute {
		return appErrors.ErrInsufficientLeadTime
	}
	return nil
}

func (s *CampaignService) createSingleDay(ctx context.Context, input CreateCampaignInput, contacts []model.Contact) (*CreateCampaignResult, error) {
	st, err := s.Quota.Status(ctx, input.BusinessID, input.ScheduledFor)
	if err != nil {
		return nil, err
	}
	if st.Available < len(contacts) {
		return nil, appErrors.NewQuotaExceeded(st.Date, len(contacts), st.Available)
	}

	if err := s.Quota.Reserve(ctx, input.BusinessID, input.ScheduledFor, len(contacts)); err != nil {
		return nil, err
	}

	id, err := s.createOne(ctx, input.BusinessID, input.Name, input.Kind, input.Text, input.MediaURL, input.ScheduledFor, contacts)
	if err != nil {
		// give the reservation back, the campaign never materialized
		if relErr := s.Quota.Release(ctx, input.BusinessID, input.ScheduledFor, len(contacts)); relErr != nil {
			s.Log.Error("failed to release quota after create failure", zap.Error(relErr))
		}
		return nil, err
	}

	return &CreateCampaignResult{CampaignID: id, Accepted: true}, nil
}

func (s *CampaignService) createMultiDay(ctx context.Context, input CreateCampaignInput, contacts []model.Contact) (*CreateCampaignResult, error) {
	available := func(day time.Time) (int, error) {
		st, err := s.Quota.Status(ctx, input.BusinessID, day)
		if err != nil {
			return 0, err
		}
		return st.Available, nil
	}

	slots, err := batch.Split(contacts, input.ScheduledFor, s.Policy.MaxBatchSize, available)
	if err != nil {
		return nil, err
	}

	for i, slot := range slots {
		job := &model.BatchJob{
			ID:           uuid.NewString(),
			BusinessID:   input.BusinessID,
			ParentName:   input.Name,
			Seq:          i + 1,
			TotalSeq:     len(slots),
			Kind:         input.Kind,
			Text:         input.Text,
			MediaURL:     input.MediaURL,
			ScheduledFor: slot.Date,
			Contacts:     slot.Contacts,
		}
		if err := s.BatchJobs.Create(job); err != nil {
			return nil, fmt.Errorf("failed to persist batch job %d/%d: %w", job.Seq, job.TotalSeq, err)
		}

		payload, _ := json.Marshal(BatchPayload{BatchJobID: job.ID})
		if err := s.Queue.Publish(ctx, queue.TopicBatches, payload); err != nil {
			// job row stays pending; the worker requeues it on boot
			s.Log.Error("failed to enqueue batch job",
				zap.String("batch_job_id", job.ID),
				zap.Error(err))
		}
	}

	return &CreateCampaignResult{Accepted: true, Batches: len(slots)}, nil
}

// createOne performs the provider call and persistence shared by the
// single-day path and the batch worker. Quota must already be reserved.
func (s *CampaignService) createOne(ctx context.Context, businessID, name string, kind model.MessageKind, text, mediaURL string, scheduledFor time.Time, contacts []model.Contact) (int, error) {
	now := s.now()

	minutesFromNow := int(scheduledFor.Sub(now) / time.Minute)
	if minutesFromNow < 0 {
		minutesFromNow = 0
	}

	recipients := make([]dispatch.Recipient, len(contacts))
	for i, c := range contacts {
		recipients[i] = dispatch.Recipient{Name: c.Name, Phone: c.Phone}
	}

	jobID, err := s.Dispatch.CreateJob(ctx, dispatch.CreateJobRequest{
		Recipients:          recipients,
		DelayMin:            s.Policy.DelayMinSeconds,
		DelayMax:            s.Policy.DelayMaxSeconds,
		ScheduledForMinutes: minutesFromNow,
		Kind:                kind,
		Text:                text,
		FileURL:             mediaURL,
		Label:               name,
	})
	if err != nil {
		return 0, err
	}

	// The provider confirmed the job and runs its own send schedule from here,
	// so the record starts out sending with polling armed.
	campaign := &model.Campaign{
		BusinessID:    businessID,
		JobID:         jobID,
		Name:          name,
		Kind:          kind,
		Text:          text,
		MediaURL:      mediaURL,
		ScheduledFor:  scheduledFor,
		Status:        model.StatusSending,
		PollingActive: true,
		NextSyncAt:    &now,
	}
	if err := s.Campaigns.Create(campaign, contacts); err != nil {
		return 0, fmt.Errorf("failed to persist campaign: %w", err)
	}

	if err := s.History.Record(businessID, campaign.ID, contacts); err != nil {
		s.Log.Warn("failed to record contact history",
			zap.Int("campaign_id", campaign.ID),
			zap.Error(err))
	}

	metrics.CampaignsCreated.Inc()
	s.Log.Info("campaign created",
		zap.Int("campaign_id", campaign.ID),
		zap.String("job_id", jobID),
		zap.Int("contacts", len(contacts)))
	return campaign.ID, nil
}

// ====================== Lifecycle ======================

// Pause stops the provider job. Legal from scheduled or sending only.
func (s *CampaignService) Pause(ctx context.Context, id int) error {
	c, err := s.Campaigns.GetByID(id)
	if err != nil {
		return err
	}

	switch c.Status {
	case model.StatusDone:
		return appErrors.ErrPauseCompleted
	case model.StatusPaused:
		return appErrors.ErrAlreadyPaused
	}

	if err := s.Dispatch.EditJob(ctx, c.JobID, dispatch.ActionStop); err != nil {
		return err
	}
	return s.Campaigns.UpdateStatus(id, model.StatusPaused)
}

// Continue resumes a paused campaign and re-arms polling.
func (s *CampaignService) Continue(ctx context.Context, id int) error {
	c, err := s.Campaigns.GetByID(id)
	if err != nil {
		return err
	}
	if c.Status != model.StatusPaused {
		return appErrors.ErrContinueNotPaused
	}

	if err := s.Dispatch.EditJob(ctx, c.JobID, dispatch.ActionContinue); err != nil {
		return err
	}
	if err := s.Campaigns.UpdateStatus(id, model.StatusSending); err != nil {
		return err
	}
	return s.Campaigns.SetNextSync(id, s.now())
}

// Delete cancels the provider job best-effort, releases the reserved quota and
// removes the record. Completed campaigns are immutable history and refuse
// deletion.
func (s *CampaignService) Delete(ctx context.Context, id int) error {
	c, err := s.Campaigns.GetByID(id)
	if err != nil {
		return err
	}
	if c.Status == model.StatusDone {
		return appErrors.ErrDeleteCompleted
	}

	if c.JobID != "" {
		if err := s.Dispatch.EditJob(ctx, c.JobID, dispatch.ActionDelete); err != nil {
			// provider drift is accepted here; local cleanup proceeds
			s.Log.Warn("provider cancellation failed",
				zap.Int("campaign_id", id),
				zap.String("job_id", c.JobID),
				zap.Error(err))
		}
	}

	if err := s.Quota.Release(ctx, c.BusinessID, c.ScheduledFor, c.TotalContacts); err != nil {
		s.Log.Error("failed to release quota on deletion",
			zap.Int("campaign_id", id),
			zap.Error(err))
	}

	if err := s.Campaigns.Delete(id); err != nil {
		return err
	}
	metrics.CampaignsDeleted.Inc()
	return nil
}

type DeleteManyResult struct {
	Deleted int            `json:"deleted"`
	Failed  int            `json:"failed"`
	Errors  map[int]string `json:"errors,omitempty"`
}

// DeleteMany deletes each id independently; one failure does not abort the rest.
func (s *CampaignService) DeleteMany(ctx context.Context, ids []int) *DeleteManyResult {
	result := &DeleteManyResult{Errors: map[int]string{}}
	for _, id := range ids {
		if err := s.Delete(ctx, id); err != nil {
			result.Failed++
			result.Errors[id] = err.Error()
			s.Log.Warn("bulk delete: campaign skipped", zap.Int("campaign_id", id), zap.Error(err))
			continue
		}
		result.Deleted++
	}
	return result
}

// ====================== Queries ======================

// Get returns the campaign with its contact list attached.
func (s *CampaignService) Get(ctx context.Context, id int) (*model.Campaign, error) {
	c, err := s.Campaigns.GetByID(id)
	if err != nil {
		return nil, err
	}
	contacts, err := s.Campaigns.GetContacts(id)
	if err != nil {
		return nil, err
	}
	c.Contacts = contacts
	return c, nil
}

// Stats breaks the campaign's contacts down by delivery outcome.
func (s *CampaignService) Stats(ctx context.Context, id int) (map[string]int, error) {
	if _, err := s.Campaigns.GetByID(id); err != nil {
		return nil, err
	}
	return s.Campaigns.ContactStats(id)
}

// List fetches campaigns with pagination
func (s *CampaignService) List(ctx context.Context, page, pageSize int, businessID string, status model.CampaignStatus) ([]model.Campaign, map[string]int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize

	ptrs, total, err := s.Campaigns.List(offset, pageSize, businessID, status)
	if err != nil {
		return nil, nil, err
	}

	campaigns := make([]model.Campaign, len(ptrs))
	for i, c := range ptrs {
		campaigns[i] = *c
	}

	totalPages := (total + pageSize - 1) / pageSize
	pagination := map[string]int{
		"page":        page,
		"page_size":   pageSize,
		"total_count": total,
		"total_pages": totalPages,
	}
	return campaigns, pagination, nil
}

// GetQuota reports the reservation ledger for one business and day.
func (s *CampaignService) GetQuota(ctx context.Context, businessID string, day time.Time) (*model.QuotaStatus, error) {
	return s.Quota.Status(ctx, businessID, day)
}
