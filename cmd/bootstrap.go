package cmd

import (
	"io"

	"example.com/backstage/services/dairy/config"
	"example.com/backstage/services/dairy/internal/cache"
	"example.com/backstage/services/dairy/internal/database"
	"example.com/backstage/services/dairy/internal/metrics"
	"example.com/backstage/services/dairy/internal/notify"
	"example.com/backstage/services/dairy/internal/repositories"
	"example.com/backstage/services/dairy/internal/search"
	"example.com/backstage/services/dairy/internal/services"
	"example.com/backstage/services/dairy/internal/tracing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// application holds everything a command needs
type application struct {
	cfg         config.Config
	db          *gorm.DB
	readOnlyDB  *gorm.DB
	registry    *prometheus.Registry
	metrics     *metrics.Metrics
	tracer      tracing.Tracer
	customers   *repositories.CustomerRepository
	notifier    notify.Notifier
	notifierErr error
	elastic     *search.ElasticClient
	redis       *cache.RedisCodeStore
	services    *services.Services
}

// bootstrap connects every dependency and builds the services
func bootstrap(cfg config.Config) (*application, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	app := &application{cfg: cfg, registry: prometheus.NewRegistry()}
	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	app.metrics = metrics.New(cfg.Metrics.Namespace, app.registry)

	// Initialize tracer
	app.tracer, err = tracing.NewTracer(cfg.Tracing)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
		app.tracer = tracing.Disabled()
	}

	// Initialize database connections
	app.db, app.readOnlyDB, err = database.Connect(cfg.DB, app.metrics)
	if err != nil {
		app.Close()
		return nil, err
	}

	// Initialize Elasticsearch client
	if cfg.Elastic.Enabled {
		app.elastic, err = search.NewElasticClient(cfg.Elastic)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize Elasticsearch client, continuing without search functionality")
			app.elastic = nil
		}
	}

	// Initialize notifier
	app.notifier, app.notifierErr = notify.New(cfg.Notifier, cfg.Azure)
	if app.notifierErr != nil {
		log.Warn().Err(app.notifierErr).Msg("Email notifier is not configured")
		app.notifier = notify.Unavailable(app.notifierErr)
	}

	// One-time code store
	var codes services.CodeStore
	switch cfg.OTP.Store {
	case "redis":
		app.redis, err = cache.NewRedisCodeStore(cfg.Redis)
		if err != nil {
			app.Close()
			return nil, errors.Wrap(err, "failed to initialize one-time code store")
		}
		codes = app.redis
	case "database", "":
		codes = repositories.NewCodeRepository(app.db)
	default:
		app.Close()
		return nil, errors.Errorf("unknown otp store %q", cfg.OTP.Store)
	}

	instanceID := cfg.Reminders.InstanceID
	if instanceID == "" {
		instanceID = uuid.New().String()
	}

	rt := services.NewRuntime(loc, app.tracer, app.metrics)

	// Create repositories
	app.customers = repositories.NewCustomerRepository(app.db, app.readOnlyDB)
	deliveries := repositories.NewDeliveryRepository(app.db, app.readOnlyDB)
	payments := repositories.NewPaymentRepository(app.db, app.readOnlyDB)
	claims := repositories.NewClaimRepository(app.db)
	notifications := repositories.NewNotificationRepository(app.db, app.readOnlyDB)
	users := repositories.NewUserRepository(app.db, app.readOnlyDB)

	var indexer services.NotificationIndexer
	if app.elastic != nil {
		indexer = app.elastic
	}

	// Create services
	paymentService := services.NewPaymentService(app.customers, payments, rt)
	overviewService := services.NewOverviewService(app.customers, deliveries, payments, rt)
	app.services = &services.Services{
		Overview:      overviewService,
		Deliveries:    services.NewDeliveryService(app.customers, deliveries, rt),
		Customers:     services.NewCustomerService(app.customers),
		Payments:      paymentService,
		Notifications: services.NewNotificationService(notifications),
		Auth:          services.NewAuthService(users, codes, app.notifier, cfg.OTP.TTL, rt),
		Reminders: services.NewReminderScheduler(
			app.customers,
			claims,
			notifications,
			indexer,
			paymentService,
			overviewService,
			app.notifier,
			instanceID,
			rt,
		),
	}

	log.Info().
		Str("environment", cfg.Environment).
		Str("timezone", loc.String()).
		Str("instance", instanceID).
		Bool("search", app.elastic != nil).
		Str("otp_store", cfg.OTP.Store).
		Msg("Application initialized")

	return app, nil
}

// Close releases every connection
func (a *application) Close() {
	if closer, ok := a.notifier.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close notifier")
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close Redis client")
		}
	}
	database.Close(a.db, a.readOnlyDB)
	if a.tracer != nil {
		a.tracer.Close()
	}
}
