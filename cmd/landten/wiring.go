package main

import (
	"database/sql"
	"fmt"
	"time"

	"landten/internal/app"
	"landten/internal/domain/messaging"
	"landten/internal/infra/blobstore"
	"landten/internal/infra/config"
	"landten/internal/infra/email"
	idb "landten/internal/infra/database"
	"landten/internal/infra/logger"
	"landten/internal/infra/sms"
	"landten/internal/infra/sse"
	"landten/internal/infra/telegram"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// application holds every wired component of a running instance.
type application struct {
	cfg *config.AppConfig
	db  *sql.DB
	bot *telebot.Bot // nil when TELEGRAM_TOKEN is unset

	hub           *sse.Hub
	notifications *app.NotificationService
	sweeper       *app.Sweeper
	services      servicesBundle
}

type servicesBundle struct {
	auth       *app.AuthService
	properties *app.PropertyService
	tenants    *app.TenantService
	payments   *app.PaymentService
	receipts   *app.ReceiptService
	analytics  *app.AnalyticsService
}

// bootstrap loads configuration, initialises logging and connects to the database.
func bootstrap() (*config.AppConfig, *sql.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("could not load application configuration: %w", err)
	}
	logger.Init(cfg)
	logger.Log.WithFields(logrus.Fields{
		"log_level":   cfg.LogLevel,
		"environment": cfg.Environment,
	}).Info("Configuration loaded")

	db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("could not connect to database: %w", err)
	}
	logger.Log.Info("Database connection established")
	return cfg, db, nil
}

func buildApplication(cfg *config.AppConfig, db *sql.DB) (*application, error) {
	landlordRepo := idb.NewPostgresLandlordRepository(db)
	propertyRepo := idb.NewPostgresPropertyRepository(db)
	tenantRepo := idb.NewPostgresTenantRepository(db)
	scheduleRepo := idb.NewPostgresScheduleRepository(db)
	paymentRepo := idb.NewPostgresPaymentRepository(db)
	notificationRepo := idb.NewPostgresNotificationRepository(db)

	blobs, err := blobstore.NewFilesystemStore(cfg.ReceiptDir, cfg.ReceiptHashKey)
	if err != nil {
		return nil, fmt.Errorf("could not open receipt store: %w", err)
	}

	hub := sse.NewHub(0, logger.Component("sse"))
	a := &application{cfg: cfg, db: db, hub: hub}

	mailer, err := newMailer(cfg)
	if err != nil {
		return nil, err
	}
	notifier := app.NewNotificationService(notificationRepo, tenantRepo, landlordRepo, paymentRepo, hub, logger.Component("notifications")).
		WithSMS(sms.NewLogSender(logger.Component("sms"))).
		WithEmail(mailer).
		WithTenantRejectNotice(cfg.NotifyTenantOnReceiptReject)

	if cfg.TelegramToken != "" {
		bot, err := telebot.NewBot(telebot.Settings{
			Token:  cfg.TelegramToken,
			Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
			OnError: func(err error, c telebot.Context) {
				entry := logger.Component("telegram").WithError(err)
				if c != nil && c.Chat() != nil {
					entry = entry.WithField("chat_id", c.Chat().ID)
				}
				entry.Error("Telegram handler error")
			},
		})
		if err != nil {
			return nil, fmt.Errorf("could not create Telegram bot: %w", err)
		}
		a.bot = bot
		notifier.WithTelegram(telegram.NewTelebotAdapter(bot))
		telegram.NewCommandHandlers(tenantRepo, paymentRepo, logger.Component("telegram")).Register(bot)
	}
	a.notifications = notifier

	generator := app.NewPaymentGenerator(scheduleRepo, paymentRepo, logger.Component("generator"))
	evaluator := app.NewStatusEvaluator(paymentRepo, notifier, cfg.DueSoonLeadDays, logger.Component("evaluator"))
	a.sweeper = app.NewSweeper(generator, evaluator, logger.Component("sweep"))

	tenants := app.NewTenantService(tenantRepo, scheduleRepo, propertyRepo, paymentRepo, notifier, cfg.DefaultGrace, logger.Component("tenants")).
		WithGenerator(generator)
	a.services = servicesBundle{
		auth:       app.NewAuthService(landlordRepo, tenantRepo, cfg.JWTSecret, cfg.TokenTTL, logger.Component("auth")),
		properties: app.NewPropertyService(propertyRepo, landlordRepo, logger.Component("properties")),
		tenants:    tenants,
		payments:   app.NewPaymentService(paymentRepo, tenantRepo, landlordRepo, notifier, cfg.DueSoonLeadDays, cfg.DefaultGrace, logger.Component("payments")),
		receipts:   app.NewReceiptService(paymentRepo, tenantRepo, blobs, notifier, cfg.ReceiptMaxBytes, cfg.DueSoonLeadDays, logger.Component("receipts")),
		analytics:  app.NewAnalyticsService(paymentRepo, propertyRepo, tenantRepo, landlordRepo),
	}
	return a, nil
}

// newMailer returns the SMTP sender when a server is configured, else the logging one.
func newMailer(cfg *config.AppConfig) (messaging.Sender, error) {
	if cfg.SMTPHost == "" {
		logger.Component("email").Warn("SMTP_HOST not set, email reminders are only logged")
		return email.NewLogSender(logger.Component("email")), nil
	}
	s, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)
	if err != nil {
		return nil, fmt.Errorf("could not configure email: %w", err)
	}
	return s, nil
}
