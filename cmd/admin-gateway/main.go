package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/IsmailofficialGithub/inboundAdmin-sub003/pkg/audit"
	"github.com/IsmailofficialGithub/inboundAdmin-sub003/pkg/config"
	"github.com/IsmailofficialGithub/inboundAdmin-sub003/pkg/gateway"
	"github.com/IsmailofficialGithub/inboundAdmin-sub003/pkg/identity"
	"github.com/IsmailofficialGithub/inboundAdmin-sub003/pkg/observability"
	"github.com/IsmailofficialGithub/inboundAdmin-sub003/pkg/provider"
	"github.com/IsmailofficialGithub/inboundAdmin-sub003/pkg/routes"
	"github.com/IsmailofficialGithub/inboundAdmin-sub003/pkg/session"
	"github.com/IsmailofficialGithub/inboundAdmin-sub003/pkg/tokenstore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("configuration error: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Error("admin gateway exited with error")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *observability.Logger) error {
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(nil)
	}

	// Optional infrastructure
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return err
		}
		if cfg.RedisPassword != "" {
			opts.Password = cfg.RedisPassword
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
	}

	var (
		db         *sql.DB
		dbRecorder *audit.DBRecorder
	)
	if cfg.PostgresURL != "" {
		var err error
		db, err = sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return err
		}
		dbRecorder, err = audit.NewDBRecorder(db)
		if err != nil {
			return err
		}
		logger.Info("local audit retention enabled")
	}

	providerClient, err := provider.NewClient(ctx, provider.Config{
		IssuerURL:    cfg.Provider.IssuerURL,
		ClientID:     cfg.Provider.ClientID,
		ClientSecret: cfg.Provider.ClientSecret,
		TokenURL:     cfg.Provider.TokenURL,
		RevokeURL:    cfg.Provider.RevokeURL,
		EventsURL:    cfg.Provider.EventsURL,
	}, logger)
	if err != nil {
		return err
	}
	if !providerClient.Configured() {
		logger.Warn("identity provider not configured, gateway runs unauthenticated")
	}

	verifier := identity.NewClient(cfg.Backend.URL,
		identity.WithTimeout(cfg.Backend.VerifyTimeout))

	// Each manager audits with its own token so backend activity writes
	// carry the acting session's authorization
	var registry *session.Registry
	newManager := func(store tokenstore.Store) *session.Manager {
		recorders := []audit.Recorder{
			audit.NewBackendRecorder(cfg.Backend.URL, store.GetToken, logger),
		}
		if dbRecorder != nil {
			recorders = append(recorders, dbRecorder)
		}

		sessionToken := store.GetToken()
		return session.NewManager(session.Config{
			Store:         store,
			Verifier:      verifier,
			Provider:      providerClient,
			Audit:         audit.NewMultiRecorder(recorders...),
			Logger:        logger,
			Metrics:       metrics,
			PollInterval:  cfg.Session.PollInterval,
			CookieTTLDays: cfg.Session.CookieTTLDays,
			ForceLogout: func() {
				if sessionToken != "" && registry != nil {
					registry.Evict(sessionToken)
				}
			},
		})
	}
	registry = session.NewRegistry(newManager, logger, metrics)
	defer registry.Close()

	// Provider-originated events terminate or refresh the matching session
	if events := providerClient.Subscribe(ctx); events != nil {
		go func() {
			for ev := range events {
				registry.Dispatch(ctx, ev)
			}
		}()
	}

	policy := routes.NewPolicy(nil, logger)
	if cfg.PolicyFile != "" {
		if err := policy.LoadFile(cfg.PolicyFile); err != nil {
			return err
		}
		if err := policy.Watch(ctx, cfg.PolicyFile); err != nil {
			return err
		}
	}

	proxy, err := gateway.NewProxy(cfg.Backend.URL, cfg.Server.WriteTimeout, logger, metrics)
	if err != nil {
		return err
	}

	var limiter *gateway.LoginLimiter
	if redisClient != nil {
		limiter = gateway.NewLoginLimiter(redisClient, 0, 0, logger, metrics)
	}

	var auditRec audit.Recorder = audit.NopRecorder{}
	if dbRecorder != nil {
		auditRec = dbRecorder
	}

	server := gateway.NewServer(gateway.ServerConfig{
		Registry:      registry,
		NewManager:    newManager,
		Policy:        policy,
		Proxy:         proxy,
		Limiter:       limiter,
		Audit:         auditRec,
		CookieTTLDays: cfg.Session.CookieTTLDays,
		SecureCookies: true,
		TrustProxy:    cfg.Server.TrustProxy,
		Logger:        logger,
		Metrics:       metrics,
	})

	// Background maintenance
	scheduler := cron.New()
	if _, err := scheduler.AddFunc("*/5 * * * *", func() {
		registry.Sweep(cfg.Session.MaxIdle)
	}); err != nil {
		return err
	}
	if dbRecorder != nil {
		if _, err := scheduler.AddFunc("30 3 * * *", func() {
			cleanupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			deleted, err := dbRecorder.Cleanup(cleanupCtx, cfg.AuditRetention)
			if err != nil {
				logger.WithError(err).Warn("audit retention cleanup failed")
				return
			}
			logger.WithField("deleted", deleted).Info("audit retention cleanup complete")
		}); err != nil {
			return err
		}
	}
	scheduler.Start()
	defer scheduler.Stop()

	health := observability.NewHealthChecker(5 * time.Second)
	health.RegisterHTTP("backend", cfg.Backend.URL+"/auth/me")
	if redisClient != nil {
		health.RegisterRedis(redisClient)
	}
	if db != nil {
		health.Register("postgres", func(checkCtx context.Context) error {
			return db.PingContext(checkCtx)
		})
	}

	healthMux := http.NewServeMux()
	healthMux.Handle("/healthz", health.Handler())
	if metrics != nil {
		healthMux.Handle("/metrics", metrics.Handler())
	}

	appServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      server.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	healthServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler:      healthMux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.WithField("addr", appServer.Addr).Info("admin gateway listening")
		if err := appServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.WithField("addr", healthServer.Addr).Info("health server listening")
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		if err := appServer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("app server shutdown incomplete")
		}
		return healthServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
