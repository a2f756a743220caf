package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"staybook/internal/app/commands"
	checkoutapp "staybook/internal/app/handlers/checkout"
	paymentsapp "staybook/internal/app/handlers/payments"
	reservationapp "staybook/internal/app/handlers/reservation"
	"staybook/internal/app/middleware"
	appoutbox "staybook/internal/app/outbox"
	"staybook/internal/app/policies"
	"staybook/internal/app/queries"
	"staybook/internal/app/sweep"
	"staybook/internal/app/uow"
	domainlisting "staybook/internal/domain/listing"
	"staybook/internal/domain/shared/money"
	"staybook/internal/infra/broker/kafka"
	"staybook/internal/infra/config"
	dbmongo "staybook/internal/infra/db/mongo"
	ginserver "staybook/internal/infra/http/gin"
	"staybook/internal/infra/notify"
	"staybook/internal/infra/obs"
	infraoutbox "staybook/internal/infra/outbox"
	"staybook/internal/infra/payments/stripe"
	"staybook/internal/infra/storage/memory"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := getenv("APP_ENV", "dev")
	logger := obs.NewLogger(env)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("configuration invalid", "error", err)
		os.Exit(1)
	}

	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("application wiring failed", "error", err)
		os.Exit(1)
	}

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger},
		obs.HealthHandlers{Checks: app.readyChecks}, app.handlers)

	if cfg.ListingFixtures != "" {
		if err := app.loadListingFixtures(ctx, cfg.ListingFixtures, logger); err != nil {
			logger.Warn("listing fixtures load failed", "error", err, "path", cfg.ListingFixtures)
		}
	}

	go func() {
		if err := app.sweepRunner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("sweep runner stopped", "error", err)
		}
	}()
	if app.outboxWorker != nil {
		go func() {
			if err := app.outboxWorker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("outbox worker stopped", "error", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

type application struct {
	handlers     ginserver.Handlers
	readyChecks  []obs.ReadyCheck
	sweepRunner  *sweep.Runner
	outboxWorker *infraoutbox.Worker
	listings     domainlisting.Repository
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (*application, error) {
	app := &application{}

	var (
		uowFactory  uow.UoWFactory
		outboxStore interface {
			appoutbox.Outbox
			infraoutbox.Store
		}
	)
	switch cfg.Store {
	case "mongo":
		client, err := dbmongo.New(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, fmt.Errorf("mongo connect: %w", err)
		}
		listingsRepo := dbmongo.NewListingRepository(client.DB)
		reservationsRepo := dbmongo.NewReservationRepository(client.DB)
		if err := reservationsRepo.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("mongo indexes: %w", err)
		}
		mongoOutbox := dbmongo.NewOutboxStore(client.DB)
		if err := mongoOutbox.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("mongo outbox indexes: %w", err)
		}
		uowFactory = dbmongo.Factory{
			DB:               client.DB,
			ListingsRepo:     listingsRepo,
			ReservationsRepo: reservationsRepo,
		}
		outboxStore = mongoOutbox
		app.listings = listingsRepo
		app.readyChecks = append(app.readyChecks, obs.ReadyCheck{Name: "mongo", Check: client.Ping})
	default:
		listingsRepo := memory.NewListingRepository()
		reservationsRepo := memory.NewReservationRepository()
		uowFactory = memory.Factory{
			ListingsRepo:     listingsRepo,
			ReservationsRepo: reservationsRepo,
		}
		outboxStore = memory.NewOutbox()
		app.listings = listingsRepo
	}

	var notifier policies.NotifierPort
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
		if err != nil {
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		app.outboxWorker = &infraoutbox.Worker{
			Store:       outboxStore,
			Producer:    producer,
			Interval:    cfg.OutboxPollInterval,
			TopicPrefix: cfg.KafkaTopicPrefix,
		}
		notifier = &notify.KafkaNotifier{Producer: producer, TopicPrefix: cfg.KafkaTopicPrefix}
	} else {
		logger.Warn("kafka brokers not configured, events stay in the outbox")
	}

	if cfg.StripeSecretKey == "" {
		logger.Warn("stripe secret key not configured, checkout sessions will fail")
	}
	payments := stripe.NewClient(cfg.StripeSecretKey, cfg.StripeAPIBase, cfg.StripeTimeout, logger)

	var locker policies.ListingLocker
	if cfg.CheckoutSerialize {
		locker = memory.NewListingLocker()
	}

	encoder := appoutbox.JSONEventEncoder{}
	commandBus := commands.NewInMemoryBus()
	commands.RegisterHandler(commandBus, checkoutapp.CreateCheckoutCommand{}.Key(), &checkoutapp.CreateCheckoutHandler{
		UoWFactory: uowFactory,
		Payments:   payments,
		Locks:      locker,
		Outbox:     outboxStore,
		Encoder:    encoder,
		Logger:     logger,
		BaseURL:    cfg.PublicBaseURL,
		HoldTTL:    cfg.HoldTTL,
	})
	commands.RegisterHandler(commandBus, checkoutapp.AbortCheckoutCommand{}.Key(), &checkoutapp.AbortCheckoutHandler{
		UoWFactory: uowFactory,
		Outbox:     outboxStore,
		Encoder:    encoder,
		Logger:     logger,
	})
	commands.RegisterHandler(commandBus, reservationapp.ConfirmReservationCommand{}.Key(), &reservationapp.ConfirmReservationHandler{
		UoWFactory: uowFactory,
		Notifier:   notifier,
		Outbox:     outboxStore,
		Encoder:    encoder,
		Logger:     logger,
	})
	commands.RegisterHandler(commandBus, reservationapp.CancelReservationCommand{}.Key(), &reservationapp.CancelReservationHandler{
		UoWFactory: uowFactory,
		Notifier:   notifier,
		Outbox:     outboxStore,
		Encoder:    encoder,
		Logger:     logger,
	})
	commands.RegisterHandler(commandBus, paymentsapp.PaymentCompletedCommand{}.Key(), &paymentsapp.PaymentCompletedHandler{
		UoWFactory: uowFactory,
		Notifier:   notifier,
		Outbox:     outboxStore,
		Encoder:    encoder,
		Logger:     logger,
	})

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler(queryBus, reservationapp.GetReservationQuery{}.Key(), &reservationapp.GetReservationHandler{
		UoWFactory: uowFactory,
	})
	queries.RegisterHandler(queryBus, reservationapp.ListGuestReservationsQuery{}.Key(), &reservationapp.ListGuestReservationsHandler{
		UoWFactory: uowFactory,
	})
	queries.RegisterHandler(queryBus, reservationapp.GetBookedDatesQuery{}.Key(), &reservationapp.GetBookedDatesHandler{
		UoWFactory: uowFactory,
	})

	idStore := memory.NewIdempotencyStore()
	commandBusWithMiddleware := middleware.ChainCommands(
		commandBus,
		middleware.Idempotency(idStore, nil),
		middleware.OutboxFlush(outboxStore),
	)
	queryBusWithMiddleware := middleware.ChainQueries(queryBus)

	app.sweepRunner = &sweep.Runner{
		Sweeper: &sweep.Sweeper{
			UoWFactory: uowFactory,
			Outbox:     outboxStore,
			Encoder:    encoder,
			Logger:     logger,
		},
		Interval: cfg.SweepInterval,
		Logger:   logger,
	}

	var verifier ginserver.SignatureVerifier
	if cfg.StripeWebhookSecret != "" {
		verifier = stripe.SignatureVerifier{Secret: cfg.StripeWebhookSecret}
	} else {
		logger.Warn("stripe webhook secret not configured, signatures are not checked")
	}

	handlers := ginserver.Handlers{
		Checkout: ginserver.CheckoutHandler{
			Commands: commandBusWithMiddleware,
			Logger:   logger,
		},
		Reservation: ginserver.ReservationHandler{
			Commands: commandBusWithMiddleware,
			Queries:  queryBusWithMiddleware,
			Logger:   logger,
		},
		Webhook: ginserver.WebhookHandler{
			Commands: commandBusWithMiddleware,
			Verifier: verifier,
			Logger:   logger,
		},
	}
	if cfg.AuthTokens != "" {
		handlers.AuthMiddleware = ginserver.AuthMiddleware{
			Resolver: ginserver.NewStaticTokenResolver(cfg.AuthTokens),
			Logger:   logger,
		}.Handle
	}
	app.handlers = handlers
	return app, nil
}

func (a *application) loadListingFixtures(ctx context.Context, path string, logger *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("listing fixtures file not found, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("read fixtures: %w", err)
	}

	var fixtures []listingFixture
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}

	now := time.Now()
	for _, fx := range fixtures {
		rate, err := money.New(fx.NightlyRateAmount, fx.NightlyRateCurrency)
		if err != nil {
			logger.Error("fixture rate invalid", "listing_id", fx.ID, "error", err)
			continue
		}
		l, err := domainlisting.New(domainlisting.CreateParams{
			ID:           domainlisting.ListingID(fx.ID),
			Host:         domainlisting.HostID(fx.Host),
			Title:        fx.Title,
			City:         fx.City,
			Country:      fx.Country,
			NightlyRate:  rate,
			GuestsLimit:  fx.GuestsLimit,
			ThumbnailURL: fx.ThumbnailURL,
			Now:          now,
		})
		if err != nil {
			logger.Error("fixture invalid", "listing_id", fx.ID, "error", err)
			continue
		}
		if err := a.listings.Save(ctx, l); err != nil {
			logger.Error("cannot store fixture listing", "listing_id", fx.ID, "error", err)
			continue
		}
		logger.Info("listing fixture imported", "listing_id", l.ID)
	}
	return nil
}

type listingFixture struct {
	ID                  string `json:"id"`
	Host                string `json:"host"`
	Title               string `json:"title"`
	City                string `json:"city"`
	Country             string `json:"country"`
	NightlyRateAmount   int64  `json:"nightly_rate_amount"`
	NightlyRateCurrency string `json:"nightly_rate_currency"`
	GuestsLimit         int    `json:"guests_limit"`
	ThumbnailURL        string `json:"thumbnail_url"`
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
