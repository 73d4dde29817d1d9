package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/forbill/whatsapp-vtu/internal/api"
	"github.com/forbill/whatsapp-vtu/internal/commands"
	"github.com/forbill/whatsapp-vtu/internal/config"
	"github.com/forbill/whatsapp-vtu/internal/handler"
	"github.com/forbill/whatsapp-vtu/internal/infrastructure/kafka"
	"github.com/forbill/whatsapp-vtu/internal/infrastructure/payrant"
	"github.com/forbill/whatsapp-vtu/internal/infrastructure/redis"
	"github.com/forbill/whatsapp-vtu/internal/infrastructure/topupmate"
	"github.com/forbill/whatsapp-vtu/internal/infrastructure/whatsapp"
	"github.com/forbill/whatsapp-vtu/internal/models"
	"github.com/forbill/whatsapp-vtu/internal/observability"
	"github.com/forbill/whatsapp-vtu/internal/repository"
	"github.com/forbill/whatsapp-vtu/internal/repository/memory"
	core "github.com/forbill/whatsapp-vtu/internal/repository/postgres"
	service "github.com/forbill/whatsapp-vtu/internal/services"
	_ "github.com/lib/pq"
)

type repositories struct {
	users        repository.UserRepository
	transactions repository.TransactionRepository
	preferences  repository.PreferenceRepository
	webhookLogs  repository.WebhookLogRepository
	adminLogs    repository.AdminLogRepository
	close        func() error
}

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, metricsHandler, err := observability.Setup(ctx, observability.Options{
		ServiceName:  "forbill-service",
		LogLevel:     cfg.LogLevel,
		OTLPEndpoint: cfg.OTLPEndpoint,
	})
	if err != nil {
		fatal("failed to initialize observability", err)
	}
	defer shutdownTracing(context.Background())

	repos, err := openRepositories(ctx, cfg)
	if err != nil {
		fatal("failed to open storage", err)
	}
	defer repos.close()

	var redisClient redis.RedisClient
	if cfg.RedisAddr != "" {
		client, err := redis.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			fatal("failed to connect to redis", err)
		}
		redisClient = client
	} else {
		slog.Warn("REDIS_ADDR not set, using in-process cache")
		redisClient = redis.NewMemoryClient()
	}
	defer redisClient.Close()

	var (
		publisher service.EventPublisher
		producer  *kafka.Producer
		bus       *kafka.LocalBus
	)
	if len(cfg.KafkaBrokers) > 0 {
		producer = kafka.NewProducer(cfg.KafkaBrokers)
		defer producer.Close()
		publisher = producer
	} else {
		slog.Warn("KAFKA_BROKERS not set, using in-process event bus")
		bus = kafka.NewLocalBus()
		publisher = bus
	}

	messenger := whatsapp.NewClient(cfg.WhatsAppBaseURL, cfg.WhatsAppAPIVersion, cfg.WhatsAppPhoneNumberID, cfg.WhatsAppAccessToken)
	vtu := topupmate.NewClient(cfg.TopUpMateBaseURL, cfg.TopUpMateAPIKey)
	gateway := payrant.NewClient(cfg.PayrantBaseURL, cfg.PayrantAPIKey, cfg.PayrantWebhookURL, cfg.AccountPrefix)

	users := service.NewUserService(repos.users, repos.preferences, publisher, cfg.ReferralBonus)
	wallet := service.NewWalletService(repos.users, repos.transactions, publisher)
	purchases := service.NewPurchaseService(users, wallet, vtu, messenger,
		redis.NewPendingStore(redisClient, cfg.PendingTTL),
		service.PurchaseLimits{
			MinAirtime:     cfg.MinAirtime,
			MaxAirtime:     cfg.MaxAirtime,
			MinElectricity: cfg.MinElectricity,
			MaxElectricity: cfg.MaxElectricity,
		})
	funding := service.NewFundingService(repos.users, users, wallet, gateway, messenger, cfg.AccountPrefix, cfg.ReferralBonus)
	alerts := service.NewAlertService(users, messenger)
	bot := service.NewBotService(users, wallet, purchases, messenger, redisClient,
		commands.NewParser(cfg.MinAirtime, cfg.MaxAirtime))
	admin := service.NewAdminService(users, wallet, repos.adminLogs, redisClient, service.AdminCredentials{
		Username:     cfg.AdminUsername,
		PasswordHash: cfg.AdminPasswordHash,
		JWTSecret:    cfg.JWTSecret,
		TokenTTL:     cfg.AdminTokenTTL,
	})

	onUserRegistered := kafka.JSONHandler(funding.HandleUserRegistered)
	onLedgerEvent := kafka.JSONHandler(alerts.HandleLedgerEvent)

	var consumers sync.WaitGroup
	if producer != nil {
		for _, c := range []*kafka.Consumer{
			kafka.NewConsumer(cfg.KafkaBrokers, models.TopicUsers, cfg.KafkaGroupID+"-users", onUserRegistered),
			kafka.NewConsumer(cfg.KafkaBrokers, models.TopicTransactions, cfg.KafkaGroupID+"-alerts", onLedgerEvent),
		} {
			consumers.Add(1)
			go func(c *kafka.Consumer) {
				defer consumers.Done()
				defer c.Close()
				c.Consume(ctx)
			}(c)
		}
	} else {
		bus.Subscribe(models.TopicUsers, onUserRegistered)
		bus.Subscribe(models.TopicTransactions, onLedgerEvent)
	}

	h := handler.NewHandler(bot, funding, admin, repos.webhookLogs, handler.Secrets{
		WhatsAppVerifyToken: cfg.WhatsAppVerifyToken,
		WhatsAppAppSecret:   cfg.WhatsAppAppSecret,
		PayrantSecret:       cfg.PayrantWebhookSecret,
	})
	router := api.SetupRouter(h, redisClient, cfg.JWTSecret, metricsHandler)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Vendor calls run inside the webhook request.
		WriteTimeout: 90 * time.Second,
	}
	go func() {
		slog.Info("starting server", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("server failed", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}
	consumers.Wait()
	if bus != nil {
		bus.Wait()
	}
	slog.Info("server stopped")
}

func openRepositories(ctx context.Context, cfg *config.Config) (*repositories, error) {
	if cfg.StorageDriver == config.StorageMemory {
		slog.Warn("using in-memory storage, data is lost on restart")
		store := memory.NewStore()
		return &repositories{
			users:        memory.NewUserRepository(store),
			transactions: memory.NewTransactionRepository(store),
			preferences:  memory.NewPreferenceRepository(store),
			webhookLogs:  memory.NewWebhookLogRepository(store),
			adminLogs:    memory.NewAdminLogRepository(store),
			close:        func() error { return nil },
		}, nil
	}

	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, err
	}
	slog.Info("connected to Postgres")

	return &repositories{
		users:        core.NewPostgresUserRepository(db),
		transactions: core.NewPostgresTransactionRepository(db),
		preferences:  core.NewPostgresPreferenceRepository(db),
		webhookLogs:  core.NewPostgresWebhookLogRepository(db),
		adminLogs:    core.NewPostgresAdminLogRepository(db),
		close:        db.Close,
	}, nil
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}
