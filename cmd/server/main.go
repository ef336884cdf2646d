// cmd/server/main.go
package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/glowdesk/campaigns-backend/internal/config"
	"github.com/glowdesk/campaigns-backend/internal/controller"
	"github.com/glowdesk/campaigns-backend/internal/db"
	"github.com/glowdesk/campaigns-backend/internal/dispatch"
	"github.com/glowdesk/campaigns-backend/internal/logger"
	"github.com/glowdesk/campaigns-backend/internal/quota"
	"github.com/glowdesk/campaigns-backend/internal/queue"
	"github.com/glowdesk/campaigns-backend/internal/repository"
	"github.com/glowdesk/campaigns-backend/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer log.Sync()

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

	campaignRepo := &repository.CampaignRepository{DB: conn}
	batchJobRepo := &repository.BatchJobRepository{DB: conn}
	historyRepo := &repository.HistoryRepository{DB: conn}

	ledger := quota.NewLedger(rdb, cfg.Campaign.DailyCap)
	dispatchClient := dispatch.NewHTTPClient(
		cfg.Dispatch.BaseURL,
		cfg.Dispatch.Token,
		time.Duration(cfg.Dispatch.TimeoutSeconds)*time.Second,
	)

	// With no AMQP configured, batch jobs run in-process on the in-memory
	// queue; otherwise a dedicated worker binary consumes them.
	var q queue.Queue
	if cfg.AMQP.URL != "" {
		amqpQueue, err := queue.NewAMQPQueue(cfg.AMQP.URL, log)
		if err != nil {
			log.Fatal("amqp init failed", zap.Error(err))
		}
		defer amqpQueue.Close()
		q = amqpQueue
	} else {
		q = queue.NewInMemoryQueue(log)
	}

	campaignService := &service.CampaignService{
		Campaigns: campaignRepo,
		BatchJobs: batchJobRepo,
		History:   historyRepo,
		Quota:     ledger,
		Dispatch:  dispatchClient,
		Queue:     q,
		Policy:    cfg.Campaign,
		Log:       log,
	}

	if cfg.AMQP.URL == "" {
		processor := &service.BatchProcessor{
			Jobs:    batchJobRepo,
			Service: campaignService,
			Pause:   time.Duration(cfg.Campaign.BatchPauseSeconds) * time.Second,
			Log:     log,
		}
		if err := q.Subscribe(queue.TopicBatches, processor.Handle); err != nil {
			log.Fatal("batch subscriber failed", zap.Error(err))
		}
	}

	syncService := &service.SyncService{
		Campaigns:   campaignRepo,
		Dispatch:    dispatchClient,
		ReArmDelay:  time.Duration(cfg.Campaign.SyncDelaySeconds) * time.Second,
		DoneCeiling: time.Duration(cfg.Campaign.SyncCeilingHours) * time.Hour,
		Log:         log,
	}

	scheduler, err := service.NewSyncScheduler(syncService, cfg.Campaign.ClaimSpec, log)
	if err != nil {
		log.Fatal("sync scheduler init failed", zap.Error(err))
	}
	scheduler.Start()
	defer scheduler.Stop()

	campaignController := &controller.CampaignController{
		CampaignService: campaignService,
		SyncService:     syncService,
		Log:             log,
	}
	healthController := &controller.HealthController{DB: conn, Redis: rdb}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	// Campaign routes
	r.Post("/campaigns", campaignController.CreateCampaign)
	r.Get("/campaigns", campaignController.ListCampaigns)
	r.Get("/campaigns/{id}", campaignController.GetCampaign)
	r.Post("/campaigns/{id}/pause", campaignController.PauseCampaign)
	r.Post("/campaigns/{id}/continue", campaignController.ContinueCampaign)
	r.Post("/campaigns/{id}/sync", campaignController.SyncCampaign)
	r.Delete("/campaigns/{id}", campaignController.DeleteCampaign)
	r.Post("/campaigns/delete", campaignController.DeleteCampaigns)
	r.Get("/quota", campaignController.GetQuota)

	r.Get("/healthz", healthController.Healthz)
	r.Handle("/metrics", promhttp.Handler())

	log.Info("server running", zap.String("addr", cfg.HTTP.Addr))
	if err := http.ListenAndServe(cfg.HTTP.Addr, r); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}
