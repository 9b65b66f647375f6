package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Eliezelg/villasaas-sub004/internal/app/commands"
	availabilityapp "github.com/Eliezelg/villasaas-sub004/internal/app/handlers/availability"
	bookingapp "github.com/Eliezelg/villasaas-sub004/internal/app/handlers/booking"
	calendarapp "github.com/Eliezelg/villasaas-sub004/internal/app/handlers/calendarsync"
	promoapp "github.com/Eliezelg/villasaas-sub004/internal/app/handlers/promo"
	quotehandlers "github.com/Eliezelg/villasaas-sub004/internal/app/handlers/quote"
	"github.com/Eliezelg/villasaas-sub004/internal/app/middleware"
	"github.com/Eliezelg/villasaas-sub004/internal/app/outbox"
	"github.com/Eliezelg/villasaas-sub004/internal/app/policies"
	"github.com/Eliezelg/villasaas-sub004/internal/app/queries"
	"github.com/Eliezelg/villasaas-sub004/internal/app/uow"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/payments"
	"github.com/Eliezelg/villasaas-sub004/internal/infra/broker/kafka"
	"github.com/Eliezelg/villasaas-sub004/internal/infra/config"
	mongostore "github.com/Eliezelg/villasaas-sub004/internal/infra/db/mongo"
	ginserver "github.com/Eliezelg/villasaas-sub004/internal/infra/http/gin"
	"github.com/Eliezelg/villasaas-sub004/internal/infra/ical"
	"github.com/Eliezelg/villasaas-sub004/internal/infra/inbox"
	redislock "github.com/Eliezelg/villasaas-sub004/internal/infra/lock/redis"
	"github.com/Eliezelg/villasaas-sub004/internal/infra/obs"
	infraoutbox "github.com/Eliezelg/villasaas-sub004/internal/infra/outbox"
	"github.com/Eliezelg/villasaas-sub004/internal/infra/schedule"
	"github.com/Eliezelg/villasaas-sub004/internal/infra/security"
	"github.com/Eliezelg/villasaas-sub004/internal/infra/storage/memory"
	"github.com/Eliezelg/villasaas-sub004/internal/infra/storage/s3"
	"github.com/Eliezelg/villasaas-sub004/internal/infra/validation"
)

const feedRefresherConsumer = "villasaas-feed-refresher"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		obs.NewLogger("prod", "info").Error("config load failed", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env, cfg.LogLevel)

	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("application wiring failed", "error", err)
		os.Exit(1)
	}
	defer app.close(logger)

	if err := app.loadFixtures(ctx, cfg.FixturesPath, logger); err != nil {
		logger.Warn("fixtures load failed", "error", err, "path", cfg.FixturesPath)
	}

	app.startBackground(ctx, cfg, logger)

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{Checks: app.checks}, app.handlers)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.StorageMode)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

// storage is what differs between the memory and mongo modes.
type storage struct {
	factory     uow.UoWFactory
	outbox      outbox.Outbox
	relay       infraoutbox.Source
	idempotency middleware.IdempotencyStore
	inbox       policies.Inbox
	seed        func(ctx context.Context, fn func(ctx context.Context, unit uow.UnitOfWork) error) error
}

type application struct {
	handlers  ginserver.Handlers
	checks    map[string]obs.Check
	storage   storage
	syncer    *calendarapp.Syncer
	refresher *calendarapp.FeedRefresher
	producer  infraoutbox.Producer
	closers   []func(context.Context) error
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (*application, error) {
	app := &application{checks: map[string]obs.Check{}}

	store, err := app.openStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.storage = store

	locker, err := app.openLocker(cfg)
	if err != nil {
		return nil, err
	}

	tokens, err := security.NewFeedTokens(cfg.ICalFeedSecret)
	if err != nil {
		return nil, err
	}
	if cfg.ICalFeedSecret == "" {
		logger.Warn("ICAL_FEED_SECRET not set; feed urls change on restart")
	}

	var publisher policies.FeedPublisher
	if cfg.S3Endpoint != "" {
		feeds, err := s3.NewFeedPublisher(s3.Config{
			Endpoint:       cfg.S3Endpoint,
			PublicEndpoint: cfg.S3PublicEndpoint,
			AccessKey:      cfg.S3AccessKey,
			SecretKey:      cfg.S3SecretKey,
			Bucket:         cfg.S3Bucket,
			UseSSL:         cfg.S3UseSSL,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("s3 feed publisher: %w", err)
		}
		publisher = feeds
		app.checks["s3"] = feeds.Ping
	}

	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, "villasaas-outbox")
		if err != nil {
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		app.producer = producer
		app.checks["kafka"] = producer.Ping
		app.closers = append(app.closers, func(context.Context) error { return producer.Close() })
	} else {
		app.producer = infraoutbox.LogProducer{Logger: logger}
	}

	factory := store.factory
	encoder := outbox.JSONEventEncoder{}
	codec := ical.Codec{}
	pricer := quotehandlers.Pricer{Tax: payments.TouristTaxCalculator{}, Logger: logger}
	deps := bookingapp.Deps{UoWFactory: factory, Outbox: store.outbox, Encoder: encoder}

	commandBus := commands.NewInMemoryBus()
	commands.RegisterHandler(commandBus, bookingapp.RequestBookingCommand{}.Key(), &bookingapp.RequestBookingHandler{Deps: deps, Pricer: pricer})
	commands.RegisterHandler(commandBus, bookingapp.ConfirmBookingCommand{}.Key(), &bookingapp.ConfirmBookingHandler{Deps: deps})
	commands.RegisterHandler(commandBus, bookingapp.CancelBookingCommand{}.Key(), &bookingapp.CancelBookingHandler{Deps: deps})
	commands.RegisterHandler(commandBus, bookingapp.CompleteBookingCommand{}.Key(), &bookingapp.CompleteBookingHandler{Deps: deps})
	commands.RegisterHandler(commandBus, bookingapp.MarkNoShowCommand{}.Key(), &bookingapp.MarkNoShowHandler{Deps: deps})
	commands.RegisterHandler(commandBus, availabilityapp.CreateBlockCommand{}.Key(), &availabilityapp.CreateBlockHandler{UoWFactory: factory, Outbox: store.outbox, Encoder: encoder})
	commands.RegisterHandler(commandBus, availabilityapp.DeleteBlockCommand{}.Key(), &availabilityapp.DeleteBlockHandler{UoWFactory: factory, Outbox: store.outbox, Encoder: encoder})
	commands.RegisterHandler(commandBus, calendarapp.ImportCalendarCommand{}.Key(), &calendarapp.ImportCalendarHandler{
		UoWFactory: factory,
		Fetcher:    ical.NewFetcher(cfg.ICalFetchTimeout),
		Codec:      codec,
		Outbox:     store.outbox,
		Encoder:    encoder,
		Logger:     logger,
	})
	commands.RegisterHandler(commandBus, calendarapp.CreateSubscriptionCommand{}.Key(), &calendarapp.CreateSubscriptionHandler{UoWFactory: factory})
	commands.RegisterHandler(commandBus, calendarapp.DeleteSubscriptionCommand{}.Key(), &calendarapp.DeleteSubscriptionHandler{UoWFactory: factory})
	commands.RegisterHandler(commandBus, calendarapp.PublishFeedCommand{}.Key(), &calendarapp.PublishFeedHandler{
		UoWFactory: factory,
		Codec:      codec,
		Tokens:     tokens,
		Publisher:  publisher,
	})

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler(queryBus, quotehandlers.GetQuoteQuery{}.Key(), &quotehandlers.GetQuoteHandler{UoWFactory: factory, Pricer: pricer})
	queries.RegisterHandler(queryBus, promoapp.ValidatePromoQuery{}.Key(), &promoapp.ValidatePromoHandler{UoWFactory: factory})
	queries.RegisterHandler(queryBus, availabilityapp.CheckAvailabilityQuery{}.Key(), &availabilityapp.CheckAvailabilityHandler{UoWFactory: factory})
	queries.RegisterHandler(queryBus, availabilityapp.GetCalendarQuery{}.Key(), &availabilityapp.GetCalendarHandler{UoWFactory: factory})
	queries.RegisterHandler(queryBus, bookingapp.GetBookingQuery{}.Key(), &bookingapp.GetBookingHandler{UoWFactory: factory})
	queries.RegisterHandler(queryBus, calendarapp.ExportCalendarQuery{}.Key(), &calendarapp.ExportCalendarHandler{UoWFactory: factory, Codec: codec, Tokens: tokens})
	queries.RegisterHandler(queryBus, calendarapp.ListSubscriptionsQuery{}.Key(), &calendarapp.ListSubscriptionsHandler{UoWFactory: factory})
	logger.Debug("buses wired", "commands", commandBus.Keys(), "queries", queryBus.Keys())

	validator := validation.New()
	commandBusWithMiddleware := middleware.ChainCommands(
		commandBus,
		middleware.Logging(logger),
		middleware.Authorization(middleware.TenantGuard{}),
		middleware.Validation(validator),
		middleware.PropertyLock(locker, logger),
		middleware.Idempotency(store.idempotency, nil),
		middleware.Transaction(factory),
		middleware.OutboxFlush(store.outbox),
	)
	queryBusWithMiddleware := middleware.ChainQueries(
		queryBus,
		middleware.QueryAuthorization(middleware.TenantGuard{}),
		middleware.QueryValidation(validator),
	)

	app.syncer = &calendarapp.Syncer{
		UoWFactory:  factory,
		Commands:    commandBusWithMiddleware,
		Concurrency: cfg.ICalSyncWorkers,
		Logger:      logger,
	}
	if publisher != nil {
		app.refresher = &calendarapp.FeedRefresher{Commands: commandBusWithMiddleware, Inbox: store.inbox, Logger: logger}
	}

	app.handlers = ginserver.Handlers{
		Quote:            ginserver.QuoteHandler{Queries: queryBusWithMiddleware, Logger: logger},
		Availability:     ginserver.AvailabilityHandler{Commands: commandBusWithMiddleware, Queries: queryBusWithMiddleware, Logger: logger},
		Booking:          ginserver.BookingHandler{Commands: commandBusWithMiddleware, Queries: queryBusWithMiddleware, Logger: logger},
		Promo:            ginserver.PromoHandler{Queries: queryBusWithMiddleware, Logger: logger},
		Calendar:         ginserver.CalendarHandler{Commands: commandBusWithMiddleware, Queries: queryBusWithMiddleware, Logger: logger},
		TenantMiddleware: ginserver.TenantMiddleware(),
	}
	return app, nil
}

func (a *application) openStorage(ctx context.Context, cfg config.Config) (storage, error) {
	if cfg.StorageMode != config.StorageMongo {
		mem := memory.NewStore()
		factory := memory.Factory{Store: mem}
		box := memory.NewOutbox(mem)
		return storage{
			factory:     factory,
			outbox:      box,
			relay:       box,
			idempotency: memory.NewIdempotencyStore(cfg.IdempotencyTTL),
			inbox:       memory.NewInbox(),
			seed:        factory.Seed,
		}, nil
	}

	client, err := mongostore.New(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return storage{}, fmt.Errorf("mongo connect: %w", err)
	}
	a.closers = append(a.closers, client.Close)
	a.checks["mongo"] = client.Ping
	if err := client.EnsureIndexes(ctx); err != nil {
		return storage{}, fmt.Errorf("mongo indexes: %w", err)
	}
	box, err := infraoutbox.NewMongoStore(ctx, client.DB)
	if err != nil {
		return storage{}, fmt.Errorf("mongo outbox: %w", err)
	}
	idem, err := mongostore.NewIdempotencyStore(ctx, client.DB, cfg.IdempotencyTTL)
	if err != nil {
		return storage{}, fmt.Errorf("mongo idempotency: %w", err)
	}
	seen, err := inbox.NewStore(ctx, client.DB, feedRefresherConsumer, 7*24*time.Hour)
	if err != nil {
		return storage{}, fmt.Errorf("mongo inbox: %w", err)
	}
	factory := mongostore.Factory{DB: client.DB}
	return storage{
		factory:     factory,
		outbox:      box,
		relay:       box,
		idempotency: idem,
		inbox:       seen,
		seed: func(ctx context.Context, fn func(ctx context.Context, unit uow.UnitOfWork) error) error {
			unit, execCtx, err := uow.Start(ctx, factory, uow.TxOptions{})
			if err != nil {
				return err
			}
			if err := fn(execCtx, unit); err != nil {
				_ = unit.Rollback(execCtx)
				return err
			}
			return unit.Commit(execCtx)
		},
	}, nil
}

// openLocker uses Redis when configured so several replicas share property
// locks; a single process falls back to in-process mutexes.
func (a *application) openLocker(cfg config.Config) (policies.Locker, error) {
	if cfg.RedisURL == "" {
		return memory.NewLocker(), nil
	}
	client, err := redislock.NewClient(cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func(context.Context) error { return client.Close() })
	a.checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	return &redislock.Locker{Client: client, TTL: cfg.LockTTL, Wait: cfg.LockWait}, nil
}

func (a *application) startBackground(ctx context.Context, cfg config.Config, logger *slog.Logger) {
	worker := &infraoutbox.Worker{
		Store:       a.storage.relay,
		Producer:    a.producer,
		Logger:      logger,
		Interval:    cfg.OutboxPollInterval,
		TopicPrefix: cfg.KafkaTopicPrefix,
		Backoff:     cfg.RetryBackoff,
	}
	go func() {
		if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("outbox worker stopped", "error", err)
		}
	}()

	sched, err := schedule.New(logger)
	if err != nil {
		logger.Error("scheduler unavailable; calendar sync disabled", "error", err)
	} else {
		err := sched.Every("ical-sync", cfg.ICalSyncInterval, func(ctx context.Context) error {
			summary, err := a.syncer.Run(ctx)
			if err != nil {
				return err
			}
			logger.Info("calendar sync finished", "subscriptions", summary.Subscriptions, "failed", summary.Failed)
			return nil
		})
		if err != nil {
			logger.Error("calendar sync job not scheduled", "error", err)
		}
		sched.Start()
		a.closers = append(a.closers, func(context.Context) error { return sched.Shutdown() })
	}

	if a.refresher == nil || len(cfg.KafkaBrokers) == 0 {
		return
	}
	consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, feedRefresherConsumer, kafka.CloudEventDecoder{Next: a.refresher}, logger)
	if err != nil {
		logger.Error("feed refresher consumer unavailable", "error", err)
		return
	}
	a.closers = append(a.closers, func(context.Context) error { return consumer.Close() })
	topics := []string{
		cfg.KafkaTopicPrefix + "booking.events.v1",
		cfg.KafkaTopicPrefix + "calendar.events.v1",
	}
	go func() {
		if err := consumer.Run(ctx, topics); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("feed refresher consumer stopped", "error", err)
		}
	}()
}

// close releases resources in reverse order of acquisition.
func (a *application) close(logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			logger.Warn("shutdown step failed", "error", err)
		}
	}
}
