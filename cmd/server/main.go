package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"net/http/cgi"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/kevin07696/cloudpayments-service/internal/adapters/cloudpayments"
	"github.com/kevin07696/cloudpayments-service/internal/adapters/dedup"
	"github.com/kevin07696/cloudpayments-service/internal/adapters/postgres"
	"github.com/kevin07696/cloudpayments-service/internal/config"
	"github.com/kevin07696/cloudpayments-service/internal/domain/ports"
	callbackHandler "github.com/kevin07696/cloudpayments-service/internal/handlers/callback"
	checkoutHandler "github.com/kevin07696/cloudpayments-service/internal/handlers/checkout"
	"github.com/kevin07696/cloudpayments-service/internal/middleware"
	callbackService "github.com/kevin07696/cloudpayments-service/internal/services/callback"
	checkoutService "github.com/kevin07696/cloudpayments-service/internal/services/checkout"
	orderService "github.com/kevin07696/cloudpayments-service/internal/services/order"
	"github.com/kevin07696/cloudpayments-service/internal/services/secret"
	webhookService "github.com/kevin07696/cloudpayments-service/internal/services/webhook"
	pkghttp "github.com/kevin07696/cloudpayments-service/pkg/http"
	pkgmiddleware "github.com/kevin07696/cloudpayments-service/pkg/middleware"
	"github.com/kevin07696/cloudpayments-service/pkg/observability"
	"github.com/kevin07696/cloudpayments-service/pkg/resilience"
	"github.com/kevin07696/cloudpayments-service/pkg/shutdown"
)

const (
	checkoutRoute = "GET /api/v1/checkout/{order_id}"
	callbackRoute = "POST /api/v1/callbacks/cloudpayments/pay"
)

func main() {
	cgiMode := flag.Bool("cgi", false, "serve a single request through CGI and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		// The logger level depends on configuration, so fall back to a production logger here
		zap.Must(zap.NewProduction()).Fatal("Failed to load configuration", zap.Error(err))
	}

	logger := initLogger(cfg)
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting CloudPayments service",
		zap.String("version", "0.1.0"),
		zap.String("environment", cfg.Environment),
		zap.Bool("cgi", *cgiMode),
	)

	ctx := context.Background()

	dbPool, err := initDatabase(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}

	deps, err := initDependencies(ctx, dbPool, cfg, logger)
	if err != nil {
		dbPool.Close()
		logger.Fatal("Failed to initialize dependencies", zap.Error(err))
	}

	if *cgiMode {
		err := cgi.Serve(deps.handler)
		deps.close()
		dbPool.Close()
		if err != nil {
			logger.Fatal("CGI request failed", zap.Error(err))
		}
		return
	}

	runServers(ctx, cfg, dbPool, deps, logger)
}

// Dependencies holds the wired services and the HTTP surface
type Dependencies struct {
	handler     http.Handler
	db          *postgres.DBExecutor
	inflight    *shutdown.InFlightTracker
	rateLimiter *pkgmiddleware.RateLimiter
	secrets     *secret.Provider
	timeouts    *resilience.TimeoutConfig
	redis       *redis.Client
	health      *observability.HealthChecker
}

func (d *Dependencies) close() {
	if d.rateLimiter != nil {
		d.rateLimiter.Shutdown()
	}
	if d.redis != nil {
		_ = d.redis.Close()
	}
}

// initLogger builds a production JSON logger when ENVIRONMENT=production
func initLogger(cfg *config.Config) *zap.Logger {
	level := zapcore.InfoLevel
	if err := level.UnmarshalText([]byte(cfg.Logger.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	zapCfg := zap.NewDevelopmentConfig()
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// initDatabase initializes the PostgreSQL connection pool
func initDatabase(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	dbCfg := postgres.DefaultConfig(cfg.Database.ConnectionString())
	dbCfg.MaxConns = cfg.Database.MaxConns
	dbCfg.MinConns = cfg.Database.MinConns

	pool, err := postgres.NewPool(ctx, dbCfg, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("Database connection established",
		zap.String("host", cfg.Database.Host),
		zap.String("database", cfg.Database.Database),
	)
	return pool, nil
}

// initDependencies wires repositories, services and handlers
func initDependencies(ctx context.Context, dbPool *pgxpool.Pool, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	db := postgres.NewDBExecutor(dbPool, postgres.DefaultConfig("").SimpleQueryTimeout)
	orders := postgres.NewOrderRepository(db)
	contacts := postgres.NewContactRepository(db)
	transactions := postgres.NewTransactionRepository(db)
	callbackLog := postgres.NewCallbackLogRepository(db)

	// Credentials
	store, err := initSecretManager(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	secrets := secret.NewProvider(store, secret.Paths{
		APISecret: cfg.Secrets.APISecretPath,
		PublicID:  cfg.Secrets.PublicIDPath,
	}, cfg.Gateway.PublicID, logger)
	if err := secrets.Load(ctx); err != nil {
		return nil, fmt.Errorf("load gateway credentials: %w", err)
	}

	// Outbound gateway
	gatewayCfg := cloudpayments.DefaultGatewayConfig()
	gatewayCfg.BaseURL = cfg.Gateway.BaseURL
	gatewayCfg.Timeout = cfg.Gateway.Timeout
	gatewayCfg.TestMode = cfg.Gateway.TestMode
	gatewayCfg.SendLog = cfg.Gateway.SendLog
	gatewayCfg.LogDir = cfg.Gateway.LogDir
	gatewayCfg.InsecureSkipVerify = cfg.Gateway.InsecureSkipVerify

	var exchangeLog *zap.Logger
	if gatewayCfg.ExchangeLogEnabled() {
		exchangeLog, err = cloudpayments.NewExchangeLogger(gatewayCfg.LogDir)
		if err != nil {
			logger.Warn("Exchange log disabled", zap.Error(err))
		}
	}
	gateway := cloudpayments.NewPaymentGatewayAdapter(gatewayCfg, logger, exchangeLog)

	timeouts := resilience.DefaultTimeoutConfig().WithGateway(cfg.Gateway.Timeout)

	checkoutSvc := checkoutService.NewService(checkoutService.Config{
		AppID:        cfg.Gateway.AppID,
		MerchantID:   cfg.Gateway.MerchantID,
		DefaultEmail: cfg.Gateway.DefaultEmail,
	}, orders, contacts, gateway, secrets, logger)

	// Callback pipeline
	deduper, redisClient, err := dedup.New(ctx, dedup.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		TTL:      cfg.Callback.DedupeTTL,
	}, logger)
	if err != nil {
		logger.Warn("Redis unavailable, deduplicating callbacks in memory", zap.Error(err))
	}

	dispatcher := initDispatcher(cfg, db, orders, logger)

	processor := callbackService.NewProcessor(
		callbackService.NewSignatureVerifier(secrets),
		transactions,
		dispatcher,
		deduper,
		callbackLog,
		logger,
	)

	clientIP, err := middleware.NewClientIPResolver(cfg.Callback.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("parse TRUSTED_PROXIES: %w", err)
	}

	allowlist, err := middleware.NewCallbackAllowlist(cfg.Callback.AllowedIPs, clientIP.ClientIP, logger)
	if err != nil {
		return nil, fmt.Errorf("parse CALLBACK_ALLOWED_IPS: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle(checkoutRoute, observability.HTTPMiddleware("checkout",
		checkoutHandler.NewHandler(checkoutSvc, timeouts, logger)))
	mux.Handle(callbackRoute, observability.HTTPMiddleware("callback_pay",
		allowlist.Middleware(callbackHandler.NewHandler(processor, clientIP.ClientIP, timeouts, logger))))

	deps := &Dependencies{
		db:       db,
		inflight: shutdown.NewInFlightTracker("http", logger),
		secrets:  secrets,
		timeouts: timeouts,
		redis:    redisClient,
		health:   observability.NewHealthChecker(dbPool),
	}
	if redisClient != nil {
		deps.health.AddOptional("redis", observability.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}))
	}

	var handler http.Handler = mux
	handler = middleware.NewSecurityHeaders(!cfg.IsProduction()).Middleware(handler)
	if cfg.Server.RateLimit > 0 {
		deps.rateLimiter = pkgmiddleware.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst, clientIP.ClientIP, logger)
		handler = deps.rateLimiter.Middleware(handler)
	}
	deps.handler = deps.inflight.Middleware(handler)

	return deps, nil
}

// initDispatcher selects where verified payments are handed off
func initDispatcher(cfg *config.Config, db *postgres.DBExecutor, orders ports.OrderRepository, logger *zap.Logger) ports.EventDispatcher {
	if cfg.Callback.Dispatcher == config.DispatcherLocal {
		logger.Info("Dispatching payments to the local order store")
		return orderService.NewLocalDispatcher(db, orders, logger)
	}

	httpClient := pkghttp.NewHTTPClient(pkghttp.WebhookClientConfig(), cfg.Callback.WebhookTimeout)
	logger.Info("Dispatching payments by webhook", zap.String("url", cfg.Callback.WebhookURL))
	return webhookService.NewWebhookDeliveryService(webhookService.Config{
		URL:     cfg.Callback.WebhookURL,
		Secret:  cfg.Callback.WebhookSecret,
		Timeout: cfg.Callback.WebhookTimeout,
	}, httpClient, logger)
}

// runServers starts the HTTP, gRPC and metrics listeners and blocks until shutdown
func runServers(ctx context.Context, cfg *config.Config, dbPool *pgxpool.Pool, deps *Dependencies, logger *zap.Logger) {
	shutdownMgr := shutdown.NewManager(logger, 30*time.Second)

	// Registered first, stopped last
	shutdownMgr.RegisterNoErr("database", dbPool.Close)
	if deps.redis != nil {
		shutdownMgr.RegisterCloser("redis", deps.redis)
	}
	shutdownMgr.Register("secret-refresh", deps.secrets.Stop)
	if err := deps.secrets.StartRefresh(cfg.Secrets.Refresh); err != nil {
		logger.Fatal("Failed to schedule secret refresh", zap.Error(err))
	}

	monitorCtx, stopMonitor := context.WithCancel(ctx)
	deps.db.StartPoolMonitoring(monitorCtx, 30*time.Second, logger)
	shutdownMgr.RegisterNoErr("pool-monitor", stopMonitor)

	// Metrics and health
	metricsServer := observability.StartMetricsServer(strconv.Itoa(cfg.Server.MetricsPort), deps.health, logger)
	shutdownMgr.Register("metrics-server", func(ctx context.Context) error {
		return observability.ShutdownMetricsServer(ctx, metricsServer)
	})

	// gRPC health for orchestrators
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			observability.UnaryServerInterceptor(),
			loggingInterceptor(logger),
			recoveryInterceptor(logger),
		),
	)
	healthReporter := observability.NewGRPCHealthReporter(deps.health, 15*time.Second, logger)
	healthpb.RegisterHealthServer(grpcServer, healthReporter.Server())
	reflection.Register(grpcServer)

	reporter := shutdown.NewBackgroundWorker("grpc-health", logger)
	reporter.Start(healthReporter.Run)

	listener, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.GRPCPort))
	if err != nil {
		logger.Fatal("Failed to listen", zap.Error(err))
	}
	go func() {
		logger.Info("gRPC server listening", zap.String("address", listener.Addr().String()))
		if err := grpcServer.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			logger.Error("gRPC server error", zap.Error(err))
		}
	}()
	shutdownMgr.RegisterNoErr("grpc-server", grpcServer.GracefulStop)
	shutdownMgr.Register("grpc-health", reporter.Shutdown)

	// Public HTTP surface
	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.HTTPPort),
		Handler:           deps.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      deps.timeouts.HTTPHandler,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		logger.Info("HTTP server listening", zap.String("address", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to serve HTTP", zap.Error(err))
		}
	}()
	if deps.rateLimiter != nil {
		shutdownMgr.RegisterNoErr("rate-limiter", deps.rateLimiter.Shutdown)
	}
	shutdownMgr.Register("http-inflight", deps.inflight.Shutdown)
	shutdownMgr.RegisterHTTPServer("http-server", httpServer)

	if err := shutdownMgr.WaitForShutdown(ctx); err != nil {
		logger.Error("Shutdown finished with errors", zap.Error(err))
		return
	}
	logger.Info("Servers stopped")
}

// Interceptors

func loggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		if err != nil {
			logger.Error("gRPC request failed",
				zap.String("method", info.FullMethod),
				zap.Duration("duration", time.Since(start)),
				zap.Error(err),
			)
		} else {
			logger.Debug("gRPC request",
				zap.String("method", info.FullMethod),
				zap.Duration("duration", time.Since(start)),
			)
		}
		return resp, err
	}
}

func recoveryInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("Panic recovered in gRPC handler",
					zap.String("method", info.FullMethod),
					zap.Any("panic", r),
					zap.Stack("stack"),
				)
				err = fmt.Errorf("internal server error")
			}
		}()
		return handler(ctx, req)
	}
}
