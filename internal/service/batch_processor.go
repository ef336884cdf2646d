// internal/service/batch_processor.go
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/glowdesk/campaigns-backend/internal/errors"
	"github.com/glowdesk/campaigns-backend/internal/metrics"
	"github.com/glowdesk/campaigns-backend/internal/model"
	"github.com/glowdesk/campaigns-backend/internal/queue"
	"github.com/glowdesk/campaigns-backend/internal/repository"
)

// BatchProcessor turns persisted batch jobs into sub-campaigns. One job per
// sub-campaign keeps partial failure observable and retryable; the queue
// delivers sequentially, and Pause spaces consecutive provider calls.
type BatchProcessor struct {
	Jobs    repository.BatchJobRepositoryInterface
	Service *CampaignService
	Pause   time.Duration
	Log     *zap.Logger
}

// Handle processes one queued batch job id.
func (p *BatchProcessor) Handle(ctx context.Context, payload []byte) error {
	var msg BatchPayload
	if err := json.Unmarshal(payload, &msg); err != nil {
		p.Log.Error("invalid batch payload", zap.Error(err))
		return nil // malformed payloads are not retryable
	}

	job, err := p.Jobs.GetByID(msg.BatchJobID)
	if err != nil {
		return err
	}
	if job == nil {
		p.Log.Warn("batch job vanished", zap.String("batch_job_id", msg.BatchJobID))
		return nil
	}
	if job.Status == model.BatchDone {
		return nil // redelivery after success
	}

	if err := p.Jobs.MarkProcessing(job.ID); err != nil {
		return err
	}

	if err := p.process(ctx, job); err != nil {
		if markErr := p.Jobs.MarkFailed(job.ID, err.Error()); markErr != nil {
			p.Log.Error("failed to mark batch job failed", zap.String("batch_job_id", job.ID), zap.Error(markErr))
		}
		metrics.BatchJobs.WithLabelValues("failed").Inc()
		return err
	}

	metrics.BatchJobs.WithLabelValues("done").Inc()

	// spacing between sub-campaign creations so the provider is not hammered
	time.Sleep(p.Pause)
	return nil
}

func (p *BatchProcessor) process(ctx context.Context, job *model.BatchJob) error {
	svc := p.Service
	count := len(job.Contacts)

	// Reservation here is the actual enforcement point; the split that
	// produced this job was only advisory.
	st, err := svc.Quota.Status(ctx, job.BusinessID, job.ScheduledFor)
	if err != nil {
		return err
	}
	if st.Available < count {
		return appErrors.NewQuotaExceeded(st.Date, count, st.Available)
	}
	if err := svc.Quota.Reserve(ctx, job.BusinessID, job.ScheduledFor, count); err != nil {
		return err
	}

	name := job.ParentName
	if job.TotalSeq > 1 {
		name = fmt.Sprintf("%s (%d/%d)", job.ParentName, job.Seq, job.TotalSeq)
	}

	campaignID, err := svc.createOne(ctx, job.BusinessID, name, job.Kind, job.Text, job.MediaURL, job.ScheduledFor, job.Contacts)
	if err != nil {
		if relErr := svc.Quota.Release(ctx, job.BusinessID, job.ScheduledFor, count); relErr != nil {
			p.Log.Error("failed to release quota after batch failure", zap.String("batch_job_id", job.ID), zap.Error(relErr))
		}
		return err
	}

	return p.Jobs.MarkDone(job.ID, campaignID)
}

// RequeuePending republishes unfinished jobs, typically at worker boot after a
// crash or redeploy dropped the in-flight deliveries.
func (p *BatchProcessor) RequeuePending(ctx context.Context, q queue.Queue) error {
	jobs, err := p.Jobs.ListPending()
	if err != nil {
		return err
	}
	for _, job := range jobs {
		payload, _ := json.Marshal(BatchPayload{BatchJobID: job.ID})
		if err := q.Publish(ctx, queue.TopicBatches, payload); err != nil {
			p.Log.Error("failed to requeue batch job", zap.String("batch_job_id", job.ID), zap.Error(err))
		}
	}
	if len(jobs) > 0 {
		p.Log.Info("requeued pending batch jobs", zap.Int("count", len(jobs)))
	}
	return nil
}
