package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"escrowgate/internal/passwordless/emailstore"
	"escrowgate/internal/passwordless/flow"
	pwhandler "escrowgate/internal/passwordless/handler"
	"escrowgate/internal/passwordless/link"
	"escrowgate/internal/passwordless/mailer"
	pwservice "escrowgate/internal/passwordless/service"
	"escrowgate/internal/platform/config"
	"escrowgate/internal/platform/database"
	"escrowgate/internal/platform/health"
	"escrowgate/internal/platform/kafka/producer"
	"escrowgate/internal/platform/redis"
	rlconfig "escrowgate/internal/ratelimit/config"
	rlhandler "escrowgate/internal/ratelimit/handler"
	"escrowgate/internal/ratelimit/metrics"
	rlmiddleware "escrowgate/internal/ratelimit/middleware"
	"escrowgate/internal/ratelimit/service"
	"escrowgate/internal/ratelimit/store"
	"escrowgate/internal/ratelimit/store/memory"
	pgstore "escrowgate/internal/ratelimit/store/postgres"
	redisstore "escrowgate/internal/ratelimit/store/redis"
	"escrowgate/internal/ratelimit/workers/cleanup"
	httptransport "escrowgate/internal/transport/http"
	"escrowgate/migrations"
	"escrowgate/pkg/platform/audit"
	"escrowgate/pkg/platform/audit/publisher"
	request "escrowgate/pkg/platform/middleware/request"
)

const kafkaClientID = "escrowgate"

// app is the fully wired server. close releases every connection it opened.
type app struct {
	handler http.Handler
	sweeper *cleanup.Service
	redis   *redis.Client
	closers []func(context.Context) error
}

func (a *app) close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i](ctx))
	}
	return errors.Join(errs...)
}

// buildApp connects the configured backends and wires the HTTP surface.
// On error everything opened so far is closed.
func buildApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			_ = a.close(ctx)
		}
	}()

	checks := health.New(cfg.Server.Environment)
	rlMetrics := metrics.New()

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	if redisClient != nil {
		a.redis = redisClient
		a.closers = append(a.closers, func(context.Context) error { return redisClient.Close() })
		checks.RegisterCheck("redis", redisClient.Health)
	}

	pool, err := database.New(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if pool != nil {
		a.closers = append(a.closers, func(context.Context) error { return pool.Close() })
		checks.RegisterCheck("database", pool.Health)
	}

	records, err := recordStore(ctx, cfg, redisClient, pool, rlMetrics, logger)
	if err != nil {
		return nil, err
	}
	if resilient, ok := records.(*store.Resilient); ok {
		checks.RegisterDegraded("ratelimit_store", resilient.Degraded)
	}

	auditPub, err := auditPublisher(cfg, logger, checks, a)
	if err != nil {
		return nil, err
	}
	auditor := audit.NewLogger(logger, auditPub)

	limiter, err := service.New(records, rlconfig.MustDefault(),
		service.WithLogger(logger),
		service.WithMetrics(rlMetrics),
		service.WithAuditLogger(auditor),
	)
	if err != nil {
		return nil, err
	}

	a.sweeper = cleanup.New(records,
		cleanup.WithLogger(logger),
		cleanup.WithInterval(cfg.RateLimit.SweepInterval),
		cleanup.WithGrace(cfg.RateLimit.SweepGrace),
		cleanup.WithMetrics(rlMetrics),
	)

	linkOpts := []link.Option{link.WithTTL(cfg.Passwordless.LinkTTL)}
	if redisClient != nil {
		linkOpts = append(linkOpts, link.WithUsedTokenStore(link.NewRedisUsedTokens(redisClient)))
	}
	links, err := link.New(cfg.Passwordless.SigningKey, cfg.Passwordless.ContinueURL, linkOpts...)
	if err != nil {
		return nil, fmt.Errorf("sign-in links: %w", err)
	}

	sender, err := linkMailer(cfg, logger)
	if err != nil {
		return nil, err
	}

	passwordless := pwservice.New(links, sender,
		pwservice.WithLogger(logger),
		pwservice.WithAuditLogger(auditor),
	)
	pwHandler := pwhandler.New(passwordless, limiter, emailstore.NewCookie(cfg.Passwordless.CookieSecure), logger,
		pwhandler.WithFlowOptions(
			flow.WithVerifyTimeout(cfg.Passwordless.VerifyTimeout),
			flow.WithMetrics(flow.NewMetrics()),
		),
	)

	deps := httptransport.Deps{
		Logger:         logger,
		RateLimit:      rlmiddleware.New(limiter, logger),
		Passwordless:   pwHandler,
		Health:         checks,
		Metrics:        promhttp.Handler(),
		RequestMetrics: request.NewMetrics(),
		AdminToken:     cfg.Server.AdminToken,
	}
	if cfg.Server.AdminToken != "" {
		deps.RateLimitAdmin = rlhandler.New(limiter, logger)
	}
	a.handler = httptransport.NewRouter(deps)
	return a, nil
}

// recordStore picks the rate-limit backend. Shared backends fall back to
// process memory while they are unreachable.
func recordStore(ctx context.Context, cfg *config.Config, rc *redis.Client, pool *database.Pool, m *metrics.Metrics, logger *slog.Logger) (store.Store, error) {
	var primary store.Store
	switch cfg.RateLimit.Store {
	case "memory":
		return memory.New(), nil
	case "redis":
		if rc == nil {
			return nil, errors.New("ratelimit.store=redis requires redis.url")
		}
		primary = redisstore.New(rc, redisstore.WithGrace(cfg.RateLimit.SweepGrace))
	case "postgres":
		if pool == nil {
			return nil, errors.New("ratelimit.store=postgres requires database.url")
		}
		if err := database.Migrate(ctx, pool.DB(), migrations.FS); err != nil {
			return nil, err
		}
		primary = pgstore.New(pool.DB())
	default:
		return nil, fmt.Errorf("unknown ratelimit.store %q", cfg.RateLimit.Store)
	}
	logger.Info("rate limit store configured", "store", cfg.RateLimit.Store)
	return store.NewResilient(primary, memory.New(),
		store.WithLogger(logger),
		store.WithObserver(m),
	), nil
}

// auditPublisher emits audit events to Kafka when brokers are configured
// and to the log otherwise.
func auditPublisher(cfg *config.Config, logger *slog.Logger, checks *health.Handler, a *app) (*publisher.Publisher, error) {
	if cfg.Kafka.Brokers == "" {
		pub := publisher.New(publisher.NewLogSink(logger), publisher.WithLogger(logger))
		return pub, nil
	}

	p, err := producer.New(producer.Config{Brokers: cfg.Kafka.Brokers, ClientID: kafkaClientID}, logger)
	if err != nil {
		return nil, err
	}
	checks.RegisterCheck("kafka", p.Ping)

	pub := publisher.New(publisher.NewKafkaSink(p, cfg.Kafka.Topic),
		publisher.WithAsyncBuffer(1024),
		publisher.WithLogger(logger),
	)
	a.closers = append(a.closers,
		p.Close,
		func(context.Context) error { pub.Close(); return nil },
	)
	return pub, nil
}

func linkMailer(cfg *config.Config, logger *slog.Logger) (pwservice.Mailer, error) {
	if cfg.Mail.Host == "" {
		logger.Warn("mail.host not set; sign-in links are written to the log")
		return mailer.NewLogMailer(logger), nil
	}
	return mailer.NewSMTP(cfg.Mail, mailer.WithLogger(logger))
}
