// cmd/worker/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/glowdesk/campaigns-backend/internal/config"
	"github.com/glowdesk/campaigns-backend/internal/db"
	"github.com/glowdesk/campaigns-backend/internal/dispatch"
	"github.com/glowdesk/campaigns-backend/internal/logger"
	"github.com/glowdesk/campaigns-backend/internal/quota"
	"github.com/glowdesk/campaigns-backend/internal/queue"
	"github.com/glowdesk/campaigns-backend/internal/repository"
	"github.com/glowdesk/campaigns-backend/internal/service"
)

// The worker consumes persisted batch jobs from RabbitMQ and creates one
// sub-campaign per job. It requeues unfinished jobs at boot, so batches
// in flight when a previous process died are picked up again.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer log.Sync()

	if cfg.AMQP.URL == "" {
		log.Fatal("AMQP_URL is required for the batch worker")
	}

	conn, err := db.NewPostgres(cfg.Postgres)
	if err != nil {
		log.Fatal("postgres init failed", zap.Error(err))
	}
	defer conn.Close()

	rdb, err := db.NewRedis(cfg.Redis)
	if err != nil {
		log.Fatal("redis init failed", zap.Error(err))
	}
	defer rdb.Close()

	q, err := queue.NewAMQPQueue(cfg.AMQP.URL, log)
	if err != nil {
		log.Fatal("amqp init failed", zap.Error(err))
	}
	defer q.Close()

	campaignRepo := &repository.CampaignRepository{DB: conn}
	batchJobRepo := &repository.BatchJobRepository{DB: conn}
	historyRepo := &repository.HistoryRepository{DB: conn}

	campaignService := &service.CampaignService{
		Campaigns: campaignRepo,
		BatchJobs: batchJobRepo,
		History:   historyRepo,
		Quota:     quota.NewLedger(rdb, cfg.Campaign.DailyCap),
		Dispatch: dispatch.NewHTTPClient(
			cfg.Dispatch.BaseURL,
			cfg.Dispatch.Token,
			time.Duration(cfg.Dispatch.TimeoutSeconds)*time.Second,
		),
		Queue:  q,
		Policy: cfg.Campaign,
		Log:    log,
	}

	processor := &service.BatchProcessor{
		Jobs:    batchJobRepo,
		Service: campaignService,
		Pause:   time.Duration(cfg.Campaign.BatchPauseSeconds) * time.Second,
		Log:     log,
	}

	if err := processor.RequeuePending(context.Background(), q); err != nil {
		log.Error("failed to requeue pending batch jobs", zap.Error(err))
	}

	if err := q.Subscribe(queue.TopicBatches, processor.Handle); err != nil {
		log.Fatal("failed to register consumer", zap.Error(err))
	}

	log.Info("worker running, waiting for batch jobs")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("worker shutting down")
}
