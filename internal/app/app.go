package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/kart-checkout/internal/checkout"
	"github.com/xenking/kart-checkout/internal/commerce"
	"github.com/xenking/kart-checkout/internal/domain/order"
	"github.com/xenking/kart-checkout/internal/events"
	"github.com/xenking/kart-checkout/internal/handler"
	"github.com/xenking/kart-checkout/internal/storage/postgres"
	redisstore "github.com/xenking/kart-checkout/internal/storage/redis"
	"github.com/xenking/kart-checkout/pkg/health"
	"github.com/xenking/kart-checkout/pkg/httpmiddleware"
)

// APIPrefix is where the checkout API is mounted.
const APIPrefix = "/api/checkout"

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("store", cfg.Store.Driver),
	)

	svc, err := newService(ctx, lg, m.TracerProvider(), m.MeterProvider(), cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      cfg.Commerce.Timeout + 10*time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           svc.handler,
	}

	svc.health.Start(ctx, 10*time.Second)
	svc.health.SetReady(true)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return svc.registry.Run(gCtx)
	})
	g.Go(func() error {
		// Graceful shutdown: wait for cancellation, drain, then stop.
		<-gCtx.Done()
		svc.health.SetReady(false)
		if ctx.Err() != nil {
			lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
			time.Sleep(cfg.Graceful.ReadinessDelay)
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		svc.health.Stop()
		return nil
	})
	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})
	return g.Wait()
}

// service is the wired application without its listener.
type service struct {
	handler  http.Handler
	registry *checkout.Registry
	health   *health.Health
	closers  []func()
}

// Close releases store connections and flushes the event publisher.
func (s *service) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func newService(ctx context.Context, lg *zap.Logger, tp trace.TracerProvider, mp metric.MeterProvider, cfg *Config) (_ *service, rerr error) {
	taxRate, err := cfg.TaxRate()
	if err != nil {
		return nil, err
	}

	svc := &service{health: health.New()}
	defer func() {
		if rerr != nil {
			svc.Close()
		}
	}()
	svc.health.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))

	// Suspension store and submit guard.
	var (
		store checkout.SuspendStore
		guard handler.SubmitGuard
		rdb   *redis.Client
	)
	if cfg.Store.RedisURL != "" {
		rdb, err = newRedis(cfg.Store.RedisURL)
		if err != nil {
			return nil, err
		}
		svc.closers = append(svc.closers, func() { _ = rdb.Close() })

		guard = redisstore.NewSubmitGuard(rdb, cfg.Store.IdempotencyTTL)
		svc.health.AddReadinessCheck("redis", 2*time.Second, func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
	}
	switch cfg.Store.Driver {
	case StorePostgres:
		pool, err := newPostgres(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		svc.closers = append(svc.closers, pool.Close)

		store = postgres.NewSuspensionRepository(pool, cfg.Store.SuspensionTTL)
		svc.health.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))
	case StoreRedis:
		if rdb == nil {
			return nil, errors.New("redis store requires a redis URL")
		}
		store = redisstore.NewSuspensionStore(rdb, cfg.Store.SuspensionTTL)
	default:
		return nil, errors.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	// Event publisher.
	var publisher checkout.Publisher = events.LogPublisher{}
	if len(cfg.Events.Brokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.Events.Topic, cfg.Events.Brokers...)
		svc.closers = append(svc.closers, func() {
			if err := kp.Close(); err != nil {
				lg.Warn("Failed to close kafka publisher", zap.Error(err))
			}
		})
		publisher = kp
		svc.health.AddReadinessCheck("kafka", 5*time.Second, health.PingCheck(kp))
	}

	// Commerce API client.
	client, err := commerce.NewClient(commerce.Config{
		BaseURL:   cfg.Commerce.BaseURL,
		VaultURL:  cfg.Commerce.VaultURL,
		PublicKey: cfg.Commerce.PublicKey,
		Timeout:   cfg.Commerce.Timeout,
	}, commerce.WithTelemetry(tp, mp))
	if err != nil {
		return nil, errors.Wrap(err, "create commerce client")
	}

	// Checkout engine.
	links := checkout.Links{
		Confirmation: cfg.Checkout.ConfirmationURL,
		Return:       cfg.Checkout.ReturnURL,
	}
	engine, err := checkout.NewEngine(checkout.EngineOptions{
		Drivers: checkout.NewDrivers(checkout.Deps{
			Orders:    order.NewService(client, taxRate),
			Charges:   client,
			Tokenizer: client,
			Links:     links,
			Currency:  cfg.Checkout.Currency,
		}),
		Charges:  client,
		Links:    links,
		Currency: cfg.Checkout.Currency,
		Store:    store,
		Events:   publisher,
		Config: checkout.EngineConfig{
			CountdownSeconds: cfg.Checkout.CountdownSeconds,
			GraceChecks:      cfg.Checkout.GraceChecks,
		},
		TracerProvider: tp,
		MeterProvider:  mp,
		Logger:         lg.Named("checkout"),
	})
	if err != nil {
		return nil, errors.Wrap(err, "create checkout engine")
	}
	svc.registry = checkout.NewRegistry(engine, client, cfg.Checkout.IdleTTL)
	svc.health.AddReadinessCheck("sessions", time.Second,
		health.CapacityCheck("sessions", svc.registry.Len, cfg.Checkout.MaxSessions))

	// HTTP handlers.
	var opts []handler.Option
	if guard != nil {
		opts = append(opts, handler.WithSubmitGuard(guard))
	}
	h := handler.NewHandler(svc.registry, opts...)

	root := chi.NewRouter()
	root.Mount(APIPrefix, h.Routes())
	root.Mount("/", svc.health.Routes())

	svc.handler = httpmiddleware.Wrap(root,
		httpmiddleware.Recovery(),
		httpmiddleware.CORS(httpmiddleware.CORSConfig{
			AllowOrigins:     cfg.CORS.Origins,
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           86400,
		}),
		httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
			Max:    cfg.RateLimit.Max,
			Window: cfg.RateLimit.Window,
		}),
		httpmiddleware.RequestID(),
		httpmiddleware.InjectLogger(lg),
		httpmiddleware.Instrument("checkout-api", tp, mp),
		httpmiddleware.LogRequests(),
	)
	return svc, nil
}

func newRedis(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}
	return redis.NewClient(opts), nil
}

func newPostgres(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := postgres.NewPool(ctx, url)
	if err != nil {
		return nil, errors.Wrap(err, "create db pool")
	}
	if err := postgres.RunMigrations(url); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "run migrations")
	}
	return pool, nil
}
