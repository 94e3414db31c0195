package main

import (
	"context"
	"fmt"
	"time"

	contentsvc "meta_publisher/internal/api/content/service"
	deliverysvc "meta_publisher/internal/api/delivery/service"
	"meta_publisher/internal/approval"
	"meta_publisher/internal/approval/providers"
	"meta_publisher/internal/cache"
	"meta_publisher/internal/delivery"
	"meta_publisher/internal/global"
	"meta_publisher/internal/logger"
	"meta_publisher/internal/platform"
	"meta_publisher/internal/platform/channels"
	"meta_publisher/internal/registry"
	"meta_publisher/internal/worker"
)

// pipelineDeps gom các thành phần pipeline dùng chung giữa server và workers.
type pipelineDeps struct {
	Cache        cache.DurableCache
	Adapters     *registry.Registry[platform.Adapter]
	Providers    *registry.Registry[approval.Provider]
	Coordinator  *approval.Coordinator
	Orchestrator *delivery.Orchestrator
}

// InitPipeline dựng toàn bộ pipeline: durable cache trên kv_cache,
// platform adapters theo credentials có trong config, approval providers,
// coordinator và orchestrator. Cuối cùng khôi phục state từ cache.
func InitPipeline(ctx context.Context) (*pipelineDeps, error) {
	log := logger.GetAppLogger()
	cfg := global.ServerConfig

	kvCollection, ok := global.RegistryCollections.Get(global.MongoDB_ColNames.KVCache)
	if !ok {
		return nil, fmt.Errorf("kv_cache collection chưa được đăng ký")
	}
	durableCache := cache.NewMongoCache(kvCollection)

	// Platform adapters: chỉ đăng ký adapter có đủ credentials
	adapters := registry.NewRegistry[platform.Adapter]()
	if cfg.TwitterBearerToken != "" {
		adapters.Register("twitter", channels.NewTwitterAdapter(cfg.TwitterBearerToken))
	}
	if cfg.DiscordBotToken != "" && cfg.DiscordChannelID != "" {
		adapters.Register("discord", channels.NewDiscordAdapter(cfg.DiscordBotToken, cfg.DiscordChannelID))
	}
	if cfg.MediumAccessToken != "" && cfg.MediumAuthorID != "" {
		adapters.Register("medium", channels.NewMediumAdapter(cfg.MediumAccessToken, cfg.MediumAuthorID))
	}
	log.WithField("platforms", adapters.Names()).Info("Registered platform adapters")

	// Approval providers
	approvalProviders := registry.NewRegistry[approval.Provider]()
	if cfg.DiscordBotToken != "" && cfg.DiscordApprovalChannel != "" {
		approvalProviders.Register("discord", providers.NewDiscordApprovalProvider(cfg.DiscordBotToken, cfg.DiscordApprovalChannel))
	}
	if cfg.SMTPHost != "" && cfg.ApproverMail != "" {
		smtp := providers.SMTPConfig{
			Host:      cfg.SMTPHost,
			Port:      cfg.SMTPPort,
			Username:  cfg.SMTPUser,
			Password:  cfg.SMTPPassword,
			FromName:  "Meta Publisher",
			FromEmail: cfg.SMTPFrom,
		}
		approvalProviders.Register("email", providers.NewEmailApprovalProvider(smtp, cfg.ApproverMail, cfg.PublicBaseURL, durableCache))
	}
	log.WithField("providers", approvalProviders.Names()).Info("Registered approval providers")

	coordinator := approval.NewCoordinator(durableCache, approvalProviders, approval.CoordinatorOptions{
		AutoApprove:     cfg.AutoApprove,
		DefaultProvider: cfg.DefaultApprovalProvider,
		AutoRejectDays:  cfg.AutoRejectDays,
	})

	contentService, err := contentsvc.NewContentPieceService()
	if err != nil {
		return nil, fmt.Errorf("create content piece service: %w", err)
	}
	historyService, err := deliverysvc.NewDeliveryHistoryService()
	if err != nil {
		return nil, fmt.Errorf("create delivery history service: %w", err)
	}

	orchestrator := delivery.NewOrchestrator(durableCache, adapters, coordinator, contentService, historyService)
	coordinator.SetContinuationHandler(orchestrator.HandleContinuation)

	// Khôi phục state từ cache: pending approvals + scheduled deliveries
	if err := coordinator.LoadPendingApprovals(ctx); err != nil {
		log.WithError(err).Warn("Không khôi phục được pending approvals từ cache")
	}
	if err := orchestrator.LoadScheduledDeliveries(ctx); err != nil {
		log.WithError(err).Warn("Không khôi phục được scheduled deliveries từ cache")
	}

	return &pipelineDeps{
		Cache:        durableCache,
		Adapters:     adapters,
		Providers:    approvalProviders,
		Coordinator:  coordinator,
		Orchestrator: orchestrator,
	}, nil
}

// StartWorkers chạy các background workers: approval sweep, delivery
// maintenance, schedule reload. Mỗi worker chạy trên goroutine riêng.
func StartWorkers(ctx context.Context, deps *pipelineDeps) {
	cfg := global.ServerConfig

	sweepWorker := worker.NewApprovalSweepWorker(deps.Coordinator, time.Duration(cfg.ApprovalSweepSeconds)*time.Second)
	go sweepWorker.Start(ctx)

	maintenanceWorker := worker.NewDeliveryMaintenanceWorker(deps.Orchestrator, time.Duration(cfg.MaintenanceSweepSeconds)*time.Second)
	go maintenanceWorker.Start(ctx)

	reloadWorker := worker.NewScheduleReloadWorker(deps.Orchestrator, time.Duration(cfg.ScheduleReloadSeconds)*time.Second)
	go reloadWorker.Start(ctx)

	logger.GetAppLogger().Info("Background workers started")
}
