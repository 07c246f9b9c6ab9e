package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/credits-api/internal/config"
	"github.com/iliyamo/credits-api/internal/database"
	"github.com/iliyamo/credits-api/internal/handler"
	"github.com/iliyamo/credits-api/internal/identity"
	"github.com/iliyamo/credits-api/internal/logger"
	"github.com/iliyamo/credits-api/internal/mail"
	"github.com/iliyamo/credits-api/internal/middleware"
	"github.com/iliyamo/credits-api/internal/payment"
	"github.com/iliyamo/credits-api/internal/queue"
	"github.com/iliyamo/credits-api/internal/repository"
	"github.com/iliyamo/credits-api/internal/router"
	"github.com/iliyamo/credits-api/internal/service"
)

func main() {
	cfg, err := config.Load() // Load environment config
	if err != nil {
		logrus.WithError(err).Fatal("config")
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DB)
	if err != nil {
		log.WithError(err).Fatal("database")
	}
	defer db.Close()
	if cfg.DB.Migrate {
		if err := database.Migrate(ctx, db); err != nil {
			log.WithError(err).Fatal("migrations")
		}
	}

	rdb := config.NewRedisClient(log) // nil when Redis is down
	if rdb != nil {
		defer rdb.Close()
	}

	sender, err := mailSender(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("mail delivery")
	}

	rates, err := config.LoadCreditsRates(cfg.RatesFile, cfg.Stripe.PriceID)
	if err != nil {
		log.WithError(err).Fatal("credits rates")
	}

	// Repositories
	userRepo := repository.NewUserRepo(db)
	sessionRepo := repository.NewSessionRepo(db)
	otpRepo := repository.NewOTPRepo(db)
	txRepo := repository.NewTransactionRepo(db)

	// Services
	stripe := payment.NewStripe(cfg.Stripe, cfg.ClientURL)
	sessions := service.NewSessionService(sessionRepo, userRepo, cfg.Auth.JWTSecret, cfg.Auth.TokenPrefix, cfg.Auth.SessionTTL())
	users := service.NewUserService(db, userRepo, txRepo, stripe, cfg.Auth.BcryptCost, log)
	ledger := service.NewLedgerService(db, userRepo, txRepo, stripe, rates, log)
	transactions := service.NewTransactionService(userRepo, txRepo)
	auth := &service.AuthService{
		DB:         db,
		UserRepo:   userRepo,
		Users:      users,
		Sessions:   sessions,
		OTPs:       service.NewOTPService(db, otpRepo, cfg.Auth.OTPTTL()),
		Mail:       mail.NewMailer(sender, cfg.Mail.Source, cfg.ClientURL, cfg.Auth.OTPMinutes),
		Identity:   identity.NewGoogle(cfg.Google.ClientID),
		BcryptCost: cfg.Auth.BcryptCost,
		Log:        log,
	}

	sweeper := cron.New()
	if _, err := sweeper.AddFunc(cfg.Auth.SweepSchedule, func() { sessions.PurgeExpired(ctx, log) }); err != nil {
		log.WithError(err).Fatal("session sweep schedule")
	}
	sweeper.Start()
	defer sweeper.Stop()

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = handler.ErrorHandler(log)
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echomw.ContextTimeout(cfg.Auth.RequestTTL))
	e.Use(middleware.RequestLogger(log))
	e.Use(middleware.Metrics())
	e.Use(middleware.NewRateLimiter(config.LoadRateLimitConfig(), rdb, log))

	router.Register(e, cfg.APIBase, middleware.NewAuthenticator(cfg.Auth, sessions, auth), router.Handlers{
		Auth:         handler.NewAuthHandler(auth, users, log),
		Users:        handler.NewUserHandler(users, ledger),
		Transactions: handler.NewTransactionHandler(users, transactions),
		Stripe:       handler.NewStripeHandler(ledger, log),
		Misc:         &handler.MiscHandler{ServiceName: cfg.ServiceName, AppVersion: cfg.Version},
		Cache:        middleware.NewResponseCache(config.LoadCacheConfig(), rdb, log),
	})

	addr := ":" + cfg.Port // Address string with port
	go func() {
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown")
	}
}

// mailSender picks the delivery path from MAIL_DELIVERY. In queue mode the
// process also runs the consumer that drains the queue into SES.
func mailSender(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (mail.Sender, error) {
	switch cfg.Mail.Delivery {
	case "ses":
		return mail.NewSESSender(ctx, cfg.Mail)
	case "queue":
		ses, err := mail.NewSESSender(ctx, cfg.Mail)
		if err != nil {
			return nil, err
		}
		go func() {
			if err := queue.StartMailConsumer(ctx, cfg.Mail.AMQPURL, cfg.Mail.Queue, ses, log); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("mail consumer stopped")
			}
		}()
		return queue.NewPublisher(cfg.Mail.AMQPURL, cfg.Mail.Queue, log), nil
	default:
		return mail.LogSender{Log: log}, nil
	}
}
