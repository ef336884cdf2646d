// internal/service/sync_service.go
package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/glowdesk/campaigns-backend/internal/dispatch"
	"github.com/glowdesk/campaigns-backend/internal/metrics"
	"github.com/glowdesk/campaigns-backend/internal/model"
	"github.com/glowdesk/campaigns-backend/internal/phone"
	"github.com/glowdesk/campaigns-backend/internal/repository"
)

// SyncService reconciles per-contact delivery outcomes with the dispatch
// provider. Re-polling is driven by a persisted due time on the campaign row,
// so the chain survives process restarts.
type SyncService struct {
	Campaigns repository.CampaignRepositoryInterface
	Dispatch  dispatch.Client

	ReArmDelay  time.Duration // delay between runs for a still-pending campaign
	DoneCeiling time.Duration // campaign age that forces done
	Log         *zap.Logger

	// Now is overridable in tests; nil means time.Now.
	Now func() time.Time
}

func (s *SyncService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// RunDue claims campaigns whose due time has passed and syncs each one. The
// due time is bumped before polling; a failed run is simply retried on a later
// tick. Overlapping runs write last-wins on the record.
func (s *SyncService) RunDue(ctx context.Context) {
	due, err := s.Campaigns.ListDueForSync(s.now(), 50)
	if err != nil {
		s.Log.Error("failed to list due campaigns", zap.Error(err))
		return
	}

	for _, c := range due {
		if err := s.Campaigns.SetNextSync(c.ID, s.now().Add(s.ReArmDelay)); err != nil {
			s.Log.Error("failed to bump sync due time", zap.Int("campaign_id", c.ID), zap.Error(err))
			continue
		}
		if err := s.SyncCampaign(ctx, c); err != nil {
			// logged, never fatal: the bumped due time re-arms the chain
			s.Log.Warn("campaign sync failed",
				zap.Int("campaign_id", c.ID),
				zap.Error(err))
		}
	}
}

// SyncByID runs a reconciliation pass for one campaign, the user-triggered
// refresh path.
func (s *SyncService) SyncByID(ctx context.Context, id int) error {
	c, err := s.Campaigns.GetByID(id)
	if err != nil {
		return err
	}
	return s.SyncCampaign(ctx, c)
}

// SyncCampaign runs one reconciliation pass. Terminal campaigns are left
// untouched, making repeated runs idempotent.
func (s *SyncService) SyncCampaign(ctx context.Context, c *model.Campaign) error {
	if c.Status == model.StatusDone {
		return nil
	}
	metrics.SyncRuns.Inc()

	now := s.now()
	forced := c.Age(now) >= s.DoneCeiling

	msgs, err := s.Dispatch.ListMessages(ctx, c.JobID)
	if err != nil {
		if forced {
			// Timed-out campaign with an unreachable provider: close it with
			// the counts we already have rather than polling forever.
			s.Log.Warn("forcing campaign done without final reconciliation",
				zap.Int("campaign_id", c.ID),
				zap.Error(err))
			return s.Campaigns.MarkDone(c.ID, c.SentCount, c.FailedCount, now)
		}
		return err
	}

	contacts, err := s.Campaigns.GetContacts(c.ID)
	if err != nil {
		return err
	}

	sent, failed, pending := 0, 0, 0
	for i := range contacts {
		contact := &contacts[i]
		if !contact.Status.Terminal() {
			s.applyOutcome(contact, findMessage(msgs, contact.Phone), now)
		}

		switch contact.Status {
		case model.ContactSent:
			sent++
		case model.ContactError:
			failed++
		default:
			pending++
		}
	}

	if pending == 0 || forced {
		if err := s.Campaigns.MarkDone(c.ID, sent, failed, now); err != nil {
			return err
		}
		s.Log.Info("campaign completed",
			zap.Int("campaign_id", c.ID),
			zap.Int("sent", sent),
			zap.Int("failed", failed),
			zap.Int("unresolved", pending),
			zap.Bool("forced", forced))
		return nil
	}

	return s.Campaigns.UpdateCounts(c.ID, sent, failed)
}

// applyOutcome classifies a provider message and persists the change when the
// contact reaches a terminal status.
func (s *SyncService) applyOutcome(contact *model.Contact, msg *dispatch.Message, now time.Time) {
	if msg == nil {
		return // provider has no record yet, stays pending
	}

	switch classify(msg.Status) {
	case model.ContactSent:
		contact.Status = model.ContactSent
		if msg.Timestamp != nil {
			contact.SentAt = msg.Timestamp
		} else {
			contact.SentAt = &now
		}
	case model.ContactError:
		contact.Status = model.ContactError
		contact.Error = msg.Error
		if contact.Error == "" {
			contact.Error = msg.Status
		}
	default:
		return
	}

	if err := s.Campaigns.UpdateContactOutcome(contact.ID, contact.Status, contact.SentAt, contact.Error); err != nil {
		s.Log.Error("failed to persist contact outcome",
			zap.Int("contact_row_id", contact.ID),
			zap.Error(err))
		return
	}
	metrics.MessagesResolved.WithLabelValues(string(contact.Status)).Inc()
}

// classify maps provider statuses onto contact statuses. Anything the provider
// still plans to send stays pending.
func classify(providerStatus string) model.ContactStatus {
	switch strings.ToLower(providerStatus) {
	case "sent", "delivered", "read":
		return model.ContactSent
	case "failed", "error":
		return model.ContactError
	default:
		return model.ContactPending
	}
}

func findMessage(msgs []dispatch.Message, canonicalPhone string) *dispatch.Message {
	for i := range msgs {
		if phone.Match(canonicalPhone, phone.Canonical(msgs[i].Recipient, "")) {
			return &msgs[i]
		}
	}
	return nil
}
