package service_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/glowdesk/campaigns-backend/internal/dispatch"
	appErrors "github.com/glowdesk/campaigns-backend/internal/errors"
	"github.com/glowdesk/campaigns-backend/internal/model"
	"github.com/glowdesk/campaigns-backend/internal/queue"
)

// ====================== campaign repository ======================

type mockCampaignRepo struct {
	mu        sync.Mutex
	nextID    int
	nextRowID int
	campaigns map[int]*model.Campaign
	contacts  map[int][]model.Contact

	failCreate error
}

func newMockCampaignRepo() *mockCampaignRepo {
	return &mockCampaignRepo{
		campaigns: map[int]*model.Campaign{},
		contacts:  map[int][]model.Contact{},
	}
}

func (m *mockCampaignRepo) Create(c *model.Campaign, contacts []model.Contact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreate != nil {
		return m.failCreate
	}
	m.nextID++
	c.ID = m.nextID
	c.CreatedAt = time.Now()
	c.TotalContacts = len(contacts)

	stored := make([]model.Contact, len(contacts))
	for i, contact := range contacts {
		m.nextRowID++
		contact.ID = m.nextRowID
		contact.CampaignID = c.ID
		contact.Position = i
		stored[i] = contact
	}
	m.campaigns[c.ID] = c
	m.contacts[c.ID] = stored
	return nil
}

func (m *mockCampaignRepo) GetByID(id int) (*model.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	return c, nil
}

func (m *mockCampaignRepo) List(offset, limit int, businessID string, status model.CampaignStatus) ([]*model.Campaign, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*model.Campaign{}
	for _, c := range m.campaigns {
		if businessID != "" && c.BusinessID != businessID {
			continue
		}
		if status != "" && c.Status != status {
			continue
		}
		out = append(out, c)
	}
	return out, len(out), nil
}

func (m *mockCampaignRepo) UpdateStatus(id int, status model.CampaignStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return appErrors.NewCampaignNotFound(id)
	}
	c.Status = status
	return nil
}

func (m *mockCampaignRepo) Delete(id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.campaigns[id]; !ok {
		return appErrors.NewCampaignNotFound(id)
	}
	delete(m.campaigns, id)
	delete(m.contacts, id)
	return nil
}

func (m *mockCampaignRepo) GetContacts(id int) ([]model.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.contacts[id], nil
}

func (m *mockCampaignRepo) UpdateContactOutcome(rowID int, status model.ContactStatus, sentAt *time.Time, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for campaignID, contacts := range m.contacts {
		for i := range contacts {
			if contacts[i].ID == rowID {
				contacts[i].Status = status
				contacts[i].SentAt = sentAt
				contacts[i].Error = errMsg
				m.contacts[campaignID] = contacts
				return nil
			}
		}
	}
	return fmt.Errorf("contact row %d not found", rowID)
}

func (m *mockCampaignRepo) UpdateCounts(id int, sent, failed int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return appErrors.NewCampaignNotFound(id)
	}
	c.SentCount = sent
	c.FailedCount = failed
	return nil
}

func (m *mockCampaignRepo) MarkDone(id int, sent, failed int, completedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return appErrors.NewCampaignNotFound(id)
	}
	c.Status = model.StatusDone
	c.SentCount = sent
	c.FailedCount = failed
	c.CompletedAt = &completedAt
	c.PollingActive = false
	c.NextSyncAt = nil
	return nil
}

func (m *mockCampaignRepo) SetNextSync(id int, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return appErrors.NewCampaignNotFound(id)
	}
	c.NextSyncAt = &at
	return nil
}

func (m *mockCampaignRepo) ListDueForSync(now time.Time, limit int) ([]*model.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	due := []*model.Campaign{}
	for _, c := range m.campaigns {
		if c.PollingActive && c.NextSyncAt != nil && !c.NextSyncAt.After(now) {
			due = append(due, c)
		}
	}
	return due, nil
}

func (m *mockCampaignRepo) ContactStats(id int) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := map[string]int{"pending": 0, "sent": 0, "error": 0}
	for _, contact := range m.contacts[id] {
		stats[string(contact.Status)]++
	}
	return stats, nil
}

// ====================== batch job repository ======================

type mockBatchJobRepo struct {
	mu    sync.Mutex
	jobs  map[string]*model.BatchJob
	order []string
}

func newMockBatchJobRepo() *mockBatchJobRepo {
	return &mockBatchJobRepo{jobs: map[string]*model.BatchJob{}}
}

func (m *mockBatchJobRepo) Create(j *model.BatchJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j.Status == "" {
		j.Status = model.BatchPending
	}
	j.CreatedAt = time.Now()
	m.jobs[j.ID] = j
	m.order = append(m.order, j.ID)
	return nil
}

func (m *mockBatchJobRepo) GetByID(id string) (*model.BatchJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.jobs[id], nil
}

func (m *mockBatchJobRepo) ListPending() ([]*model.BatchJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*model.BatchJob{}
	for _, id := range m.order {
		j := m.jobs[id]
		if j.Status == model.BatchPending || j.Status == model.BatchProcessing {
			out = append(out, j)
		}
	}
	return out, nil
}

func (m *mockBatchJobRepo) MarkProcessing(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[id].Status = model.BatchProcessing
	m.jobs[id].Attempts++
	return nil
}

func (m *mockBatchJobRepo) MarkDone(id string, campaignID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[id].Status = model.BatchDone
	m.jobs[id].CampaignID = &campaignID
	m.jobs[id].LastError = ""
	return nil
}

func (m *mockBatchJobRepo) MarkFailed(id string, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[id].Status = model.BatchFailed
	m.jobs[id].LastError = errMsg
	return nil
}

func (m *mockBatchJobRepo) inOrder() []*model.BatchJob {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.BatchJob, len(m.order))
	for i, id := range m.order {
		out[i] = m.jobs[id]
	}
	return out
}

// ====================== history repository ======================

type mockHistoryRepo struct {
	mu       sync.Mutex
	targeted map[string]bool
	recorded map[int][]model.Contact
}

func newMockHistoryRepo() *mockHistoryRepo {
	return &mockHistoryRepo{targeted: map[string]bool{}, recorded: map[int][]model.Contact{}}
}

func (m *mockHistoryRepo) Record(businessID string, campaignID int, contacts []model.Contact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recorded[campaignID] = contacts
	for _, c := range contacts {
		m.targeted[c.Phone] = true
	}
	return nil
}

func (m *mockHistoryRepo) PreviouslyTargeted(businessID string) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]bool{}
	for phone := range m.targeted {
		out[phone] = true
	}
	return out, nil
}

// ====================== quota ledger ======================

type mockQuota struct {
	mu   sync.Mutex
	cap  int
	used map[string]int
}

func newMockQuota() *mockQuota {
	return &mockQuota{cap: 300, used: map[string]int{}}
}

func (m *mockQuota) key(businessID string, day time.Time) string {
	return businessID + "|" + day.Format("2006-01-02")
}

func (m *mockQuota) Status(ctx context.Context, businessID string, day time.Time) (*model.QuotaStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	used := m.used[m.key(businessID, day)]
	available := m.cap - used
	if available < 0 {
		available = 0
	}
	return &model.QuotaStatus{
		BusinessID:   businessID,
		Date:         day.Format("2006-01-02"),
		Cap:          m.cap,
		Used:         used,
		Available:    available,
		CanSendToday: available > 0,
	}, nil
}

func (m *mockQuota) Reserve(ctx context.Context, businessID string, day time.Time, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.used[m.key(businessID, day)] += count
	return nil
}

func (m *mockQuota) Release(ctx context.Context, businessID string, day time.Time, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := m.key(businessID, day)
	m.used[k] -= count
	if m.used[k] < 0 {
		m.used[k] = 0
	}
	return nil
}

func (m *mockQuota) usedOn(businessID string, day time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.used[m.key(businessID, day)]
}

// ====================== dispatch client ======================

type editCall struct {
	jobID  string
	action dispatch.Action
}

type mockDispatch struct {
	mu      sync.Mutex
	nextJob int
	created []dispatch.CreateJobRequest
	edits   []editCall

	failCreate error
	failEdit   error
	messages   []dispatch.Message
	failList   error
}

func (m *mockDispatch) CreateJob(ctx context.Context, req dispatch.CreateJobRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreate != nil {
		return "", m.failCreate
	}
	m.nextJob++
	m.created = append(m.created, req)
	return fmt.Sprintf("job-%d", m.nextJob), nil
}

func (m *mockDispatch) EditJob(ctx context.Context, jobID string, action dispatch.Action) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failEdit != nil {
		return m.failEdit
	}
	m.edits = append(m.edits, editCall{jobID: jobID, action: action})
	return nil
}

func (m *mockDispatch) ListMessages(ctx context.Context, jobID string) ([]dispatch.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failList != nil {
		return nil, m.failList
	}
	return m.messages, nil
}

// ====================== queue ======================

type mockQueue struct {
	mu        sync.Mutex
	published [][]byte
}

func (m *mockQueue) Publish(ctx context.Context, topic string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, payload)
	return nil
}

func (m *mockQueue) Subscribe(topic string, handler queue.Handler) error {
	return nil
}
