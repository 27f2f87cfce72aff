package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"portal/docs/swagger"
	"portal/internal/airtable"
	"portal/internal/api"
	"portal/internal/cache"
	"portal/internal/config"
	"portal/internal/db"
	"portal/internal/events"
	"portal/internal/models"
	"portal/internal/obs"
	"portal/internal/repository"
	"portal/internal/repository/memory"
	"portal/internal/repository/postgres"
	"portal/internal/routes"
	"portal/internal/services"
	"portal/internal/tasks"
	"portal/internal/tasks/rate"
	"portal/internal/utils"
	"portal/internal/utils/crypto"
	"portal/internal/utils/logger"
)

func main() {
	log := logger.New("portal")
	if err := run(log); err != nil {
		_ = log.Error("Portal stopped", err)
		os.Exit(1)
	}
}

func run(log *logger.Logger) error {
	// check if .env file exists
	if _, err := os.Stat(".env"); os.IsNotExist(err) {
		log.Info("No .env file found, skipping environment variable loading")
	} else {
		log.Info("Loading environment variables from .env file")
		if err := godotenv.Load(); err != nil {
			return fmt.Errorf("failed to load environment variables: %w", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.SetLevel(cfg.Log.Level)

	var keys *crypto.Keys
	if cfg.Crypto.PrivateKey != "" || cfg.HasEncryptedSecrets() {
		keys, err = crypto.LoadKeys(cfg.Crypto.PrivateKey)
		if err != nil {
			return fmt.Errorf("failed to initialize keys: %w", err)
		}
		if err := cfg.ResolveSecrets(keys.Decrypt); err != nil {
			return err
		}
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, gormDB, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Warn("Failed to close database connection: %v", err)
		}
	}()

	if err := services.Bootstrap(ctx, store, cfg.Bootstrap); err != nil {
		return err
	}

	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("Redis unreachable at %s: %v", cfg.Redis.Addr, err)
		}
	}

	obs.Init()
	bus := events.Default()
	svc := buildServices(ctx, cfg, store, rdb, bus, log)

	var (
		taskClient    *tasks.TaskClient
		taskServer    *tasks.Server
		taskScheduler *tasks.Scheduler
	)
	if cfg.Worker.Enabled && cfg.Redis.Enabled {
		taskClient = tasks.NewTaskClient(cfg.Redis)
		defer taskClient.Close()
		if keys != nil {
			taskClient.WithSealer(keys)
		}
		taskClient.Subscribe(bus)

		handler := tasks.NewTaskHandler(svc.Analytics, tasks.NewLogNotifier())
		taskServer = tasks.NewServer(cfg.Redis, cfg.Worker.Concurrency, handler, log)
		if err := taskServer.Start(); err != nil {
			return err
		}

		refreshCron := ""
		if svc.Analytics.Enabled() {
			refreshCron = cfg.Airtable.RefreshCron
			if err := taskClient.Enqueue(ctx, tasks.NewAirtableRefreshTask()); err != nil {
				log.Warn("Initial Airtable refresh not queued: %v", err)
			}
		}
		taskScheduler = tasks.NewScheduler(cfg.Redis, refreshCron, log)
		if err := taskScheduler.Start(); err != nil {
			return err
		}
	} else {
		log.Warn("Background worker disabled; notifications and cache refresh will not run")
	}

	configureSwagger(cfg.Server.PublicURL)

	apiServer := api.NewServer(cfg, svc, gormDB)
	serverErr := make(chan error, 1)
	go func() {
		log.Success("API server listening on %s:%d", cfg.Server.Host, cfg.Server.Port)
		serverErr <- apiServer.Start()
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		_ = log.Error("API server error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if taskScheduler != nil {
		taskScheduler.Stop()
	}
	if taskServer != nil {
		taskServer.Shutdown()
	}
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		_ = log.Error("Failed to shutdown API server", err)
	}
	bus.Wait()

	log.Info("Servers shutdown gracefully")
	return nil
}

func openStore(cfg *config.Config, log *logger.Logger) (*repository.Store, *gorm.DB, error) {
	if cfg.Store.Driver == config.StoreDriverMemory {
		log.Warn("Using the in-memory store; data is lost on restart")
		return memory.NewStore(), nil, nil
	}
	if err := db.Connect(cfg); err != nil {
		return nil, nil, err
	}
	return postgres.NewStore(db.GetDB()), db.GetDB(), nil
}

func buildServices(ctx context.Context, cfg *config.Config, store *repository.Store, rdb *redis.Client, bus *events.EventBus, log *logger.Logger) *routes.Services {
	tokens := utils.NewTokenService(cfg.JWT.Secret)
	activity := services.NewActivityService(store.Activity)
	scope := services.NewAccessScope(store.Users, store.Projects)
	auth := services.NewAuthService(store, tokens, activity, bus)
	projects := services.NewProjectService(store, scope, activity)
	audits := services.NewAuditService(store, activity)

	var objects services.ObjectStore
	if cfg.Storage.S3.Enabled() {
		s3Service, err := services.NewS3Service(ctx, cfg.Storage.Provider, cfg.Storage.S3)
		if err != nil {
			log.Warn("Asset storage disabled: %v", err)
		} else {
			objects = s3Service
			models.RegisterFileURLGenerator(s3Service)
		}
	} else {
		log.Warn("S3 storage not configured; uploads are disabled")
	}

	var analyticsCache *cache.Cache
	if rdb != nil {
		analyticsCache = cache.New(rdb, "portal")
	}

	var source services.AnalyticsSource
	if cfg.Airtable.Enabled() {
		opts := []airtable.Option{airtable.WithDefaultView(cfg.Airtable.View)}
		if rdb != nil && cfg.Airtable.RequestsPerSec > 0 {
			opts = append(opts, airtable.WithLimiter(rate.NewQueueRateLimiter(rdb, rate.QueueConfig{
				Name: "airtable",
				RateLimit: rate.RateLimit{
					Window:  time.Second,
					MaxJobs: cfg.Airtable.RequestsPerSec,
				},
			})))
		}
		client := airtable.NewClient(cfg.Airtable.BaseURL, airtable.StaticToken(cfg.Airtable.APIKey), opts...)
		source = airtable.NewSource(client, cfg.Airtable.BaseID, cfg.Airtable.NewsBaseID)
	} else {
		log.Warn("Airtable not configured; analytics endpoints will fail")
	}

	return &routes.Services{
		Auth:      auth,
		Activity:  activity,
		Companies: services.NewCompanyService(store, activity, objects, bus),
		Users:     services.NewUserService(store, activity),
		Projects:  projects,
		Audits:    audits,
		Requests:  services.NewAccessRequestService(store, auth, activity, bus),
		Dashboard: services.NewDashboardService(store, projects, audits),
		Analytics: services.NewAnalyticsService(source, analyticsCache, cfg.Airtable.CacheTTL, store),
	}
}

func configureSwagger(publicURL string) {
	u, err := url.Parse(publicURL)
	if err != nil || u.Host == "" {
		return
	}
	swagger.SwaggerInfo.Host = u.Host
	if u.Scheme != "" {
		swagger.SwaggerInfo.Schemes = []string{u.Scheme}
	}
}
