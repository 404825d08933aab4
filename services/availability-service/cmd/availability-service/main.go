package main

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/md-rashed-zaman/availability/libs/config"
	"github.com/md-rashed-zaman/availability/libs/db"
	"github.com/md-rashed-zaman/availability/libs/httpx"
	"github.com/md-rashed-zaman/availability/libs/kafkax"
	"github.com/md-rashed-zaman/availability/libs/metrics"
	otelx "github.com/md-rashed-zaman/availability/libs/otel"
	"github.com/md-rashed-zaman/availability/libs/runtime"
	"github.com/md-rashed-zaman/availability/services/availability-service/internal/handlers"
	"github.com/md-rashed-zaman/availability/services/availability-service/internal/outbox"
	"github.com/md-rashed-zaman/availability/services/availability-service/internal/reconcile"
	"github.com/md-rashed-zaman/availability/services/availability-service/internal/settings"
	"github.com/md-rashed-zaman/availability/services/availability-service/internal/storage"
	"github.com/md-rashed-zaman/availability/services/availability-service/migrations"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var _ reconcile.Store = (*storage.Repository)(nil)

func main() {
	service := config.String("SERVICE_NAME", "availability-service")
	port, err := config.Port("PORT", "8088")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service, config.String("LOG_LEVEL", "info"))

	cfg, err := settings.Load(config.String("SETTINGS_FILE", ""))
	if err != nil {
		logger.Error("settings load failed", "err", err)
		panic(err)
	}

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	maxConns, err := config.Int("DB_MAX_CONNS", 10)
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL, db.Options{MaxConns: int32(maxConns)})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	if config.Bool("MIGRATE_ON_START", false) {
		if err := migrations.Apply(ctx, pool); err != nil {
			logger.Error("migrations failed", "err", err)
			panic(err)
		}
		logger.Info("migrations applied")
	}

	reg := metrics.New("availability")
	outboxRepo := outbox.NewRepository()
	repo := storage.NewRepository(pool, outboxRepo)
	svc := reconcile.New(repo, logger, reconcile.NewMetrics(reg), reconcile.Config{Labels: cfg.WeekdayLabels})

	brokers := config.String("KAFKA_BROKERS", "")
	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   brokers,
		PollEvery: cfg.Outbox.PollEvery,
		BatchSize: cfg.Outbox.BatchSize,
	})
	go outboxPublisher.Run(ctx)

	checks := []runtime.ReadyCheck{{Name: "db", Check: db.ReadyCheck(pool)}}
	if brokers != "" {
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	}

	var rateLimitMW httpx.Middleware
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		redisDB, err := config.Int("REDIS_DB", 0)
		if err != nil || redisDB < 0 {
			redisDB = 0
		}
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       redisDB,
		})
		defer func() { _ = rdb.Close() }()
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})

		rl := httpx.NewRedisRateLimiter(rdb, cfg.RateLimit.Requests, cfg.RateLimit.Window, config.String("RATE_LIMIT_PREFIX", "rl:availability")).KeyBy(rateLimitKey)
		rateLimitMW = rl.Middleware(logger, cfg.RateLimit.FailOpen)
		logger.Info("rate limiting enabled (redis)", "requests", cfg.RateLimit.Requests, "window", cfg.RateLimit.Window.String(), "redis_addr", addr)
	} else {
		rl := httpx.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window).KeyBy(rateLimitKey)
		rateLimitMW = rl.Middleware()
		logger.Info("rate limiting enabled (in-memory)", "requests", cfg.RateLimit.Requests, "window", cfg.RateLimit.Window.String())
	}

	requestTimeout, err := config.Duration("REQUEST_TIMEOUT", 10*time.Second)
	if err != nil {
		panic(err)
	}

	api := http.NewServeMux()
	handlers.New(svc, logger, handlers.Config{
		Locale:          cfg.Tag(),
		CalendarMaxDays: cfg.CalendarMaxDays,
	}).Register(api)

	mux := runtime.NewBaseMuxWithReady(checks...)
	mux.Handle("/metrics", reg.Handler())
	mux.Handle("/api/", httpx.Chain(api,
		httpx.WithBodyLimit(cfg.MaxBodyBytes),
		httpx.WithTimeout(requestTimeout),
		rateLimitMW,
	))

	handler := httpx.Chain(mux,
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: cfg.CORS.AllowedOrigins,
			AllowedMethods: []string{"GET", "PUT", "OPTIONS"},
			AllowedHeaders: []string{"Authorization", "Content-Type", httpx.RequestIDHeader, "X-Employee-Id"},
			ExposedHeaders: []string{httpx.RequestIDHeader},
			MaxAge:         10 * time.Minute,
		}),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithRecover(logger),
		reg.HTTP(routeLabel),
	)
	handler = otelhttp.NewHandler(handler, "availability")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("availability api configured", "locale", cfg.Tag().String(), "calendar_max_days", cfg.CalendarMaxDays)
	if err := runtime.Serve(ctx, srv, logger, 10*time.Second); err != nil {
		logger.Error("http server error", "err", err)
	}
}

// rateLimitKey counts per employee so one busy editor cannot starve others
// behind the same proxy address.
func rateLimitKey(r *http.Request) string {
	if id, ok := handlers.EmployeeID(r); ok {
		return "emp:" + strconv.FormatInt(id, 10)
	}
	return "ip:" + httpx.ClientKey(r)
}

var knownRoutes = map[string]bool{
	"/api/v1/availability/weekly":                true,
	"/api/v1/availability/special-days":          true,
	"/api/v1/availability/special-days/on":       true,
	"/api/v1/availability/special-days/calendar": true,
	"/api/v1/availability/days-off":              true,
	"/api/v1/availability/days-off/upcoming":     true,
	"/api/v1/availability/days-off/calendar":     true,
	"/healthz":                                   true,
	"/readyz":                                    true,
	"/metrics":                                   true,
}

func routeLabel(r *http.Request) string {
	if knownRoutes[r.URL.Path] {
		return r.URL.Path
	}
	return "other"
}
