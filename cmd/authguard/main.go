package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"google.golang.org/grpc"
	health "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/pribylovaa/authguard/internal/config"
	"github.com/pribylovaa/authguard/internal/metrics"
	"github.com/pribylovaa/authguard/internal/service"
	"github.com/pribylovaa/authguard/internal/storage"
	"github.com/pribylovaa/authguard/internal/storage/mongo"
	"github.com/pribylovaa/authguard/internal/storage/postgres"
	"github.com/pribylovaa/authguard/internal/storage/redis"
	"github.com/pribylovaa/authguard/internal/token"
	"github.com/pribylovaa/authguard/internal/transport/grpc/interceptors"
	httpapi "github.com/pribylovaa/authguard/internal/transport/http"
)

// Методы gRPC без авторизации.
var grpcPublic = []string{
	"/grpc.health.v1.Health/",
	"/grpc.reflection.",
}

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting application", "env", cfg.Env, "revocation", cfg.Revocation.Backend)

	// Корневой контекст по сигналам.
	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	if err := run(rootCtx, cfg, log); err != nil {
		log.Error("service_failed", slog.String("err", err.Error()))
		rootCancel()
		os.Exit(1)
	}

	log.Info("service_stopped")
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	// Подключение к БД c таймаутом.
	dbCtx, dbCancel := context.WithTimeout(ctx, 10*time.Second)
	pg, err := postgres.New(dbCtx, cfg.DB.DatabaseURL)
	dbCancel()
	if err != nil {
		return err
	}
	defer pg.Close()
	log.Info("postgres_connected")

	backends := map[string]storage.Pinger{"postgres": pg}

	// Хранилище использованных refresh-токенов. Для none остаётся nil-интерфейс.
	var (
		revocations storage.RevocationStorage
		sweeper     storage.SpentSweeper
	)
	switch cfg.Revocation.Backend {
	case config.RevocationPostgres:
		revocations, sweeper = pg, pg
	case config.RevocationRedis:
		rCtx, rCancel := context.WithTimeout(ctx, 10*time.Second)
		rs, err := redis.New(rCtx, cfg.Redis.RedisURL, cfg.Redis.Prefix)
		rCancel()
		if err != nil {
			return err
		}
		defer func() { _ = rs.Close() }()
		revocations = rs
		backends["redis"] = rs
		log.Info("redis_connected")
	case config.RevocationNone:
		log.Warn("revocation_disabled")
	}

	resourceStores := map[string]storage.ResourceStorage{}
	for kind, table := range map[string]string{
		service.KindTodos:  postgres.TableTodos,
		service.KindOrders: postgres.TableOrders,
	} {
		rt, err := pg.Resources(table)
		if err != nil {
			return err
		}
		resourceStores[kind] = rt
	}

	if cfg.Mongo.URL != "" {
		mCtx, mCancel := context.WithTimeout(ctx, 10*time.Second)
		mg, err := mongo.New(mCtx, cfg.Mongo)
		mCancel()
		if err != nil {
			return err
		}
		defer func() { _ = mg.Close(context.Background()) }()
		resourceStores[service.KindPosts] = mg
		backends["mongo"] = mg
		log.Info("mongo_connected")
	} else {
		log.Info("posts_disabled", slog.String("reason", "mongo.url is empty"))
	}

	// Метрики в собственном реестре.
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	codec, err := token.New(cfg.Auth)
	if err != nil {
		return err
	}

	svc, err := service.New(codec, pg, revocations, cfg.Auth, cfg.Store, service.WithMetrics(m))
	if err != nil {
		return err
	}
	resources := service.NewResources(service.DefaultPolicies(), resourceStores, service.WithMetrics(m))
	log.Info("service_initialized", slog.Int("resource_kinds", len(resources.Policies())))

	var ready atomic.Bool

	// Служебный HTTP: health и метрики.
	opsSrv := &http.Server{
		Addr:              cfg.Metrics.Addr(),
		Handler:           newOpsMux(&ready, reg, log, backends),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Публичный REST API.
	apiSrv := &http.Server{
		Addr: cfg.HTTP.Addr(),
		Handler: httpapi.NewRouter(httpapi.Deps{
			Guard:     svc.Guard(),
			Auth:      svc,
			Resources: resources,
			Policies:  resources.Policies(),
		}, httpapi.Options{
			Logger:    log,
			Timeout:   cfg.Timeouts.Service,
			RateLimit: cfg.RateLimit,
			Metrics:   m,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcMetrics := grpc_prometheus.NewServerMetrics()
	grpcMetrics.EnableHandlingTimeHistogram()
	reg.MustRegister(grpcMetrics)

	policy := interceptors.Policy{Public: grpcPublic}

	// gRPC-сервер и интерсепторы.
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			interceptors.Recover(log),
			interceptors.UnaryLoggingInterceptor(log),
			interceptors.WithTimeout(cfg.Timeouts.Service),
			interceptors.UnaryAuthorize(svc.Guard(), policy),
			grpcMetrics.UnaryServerInterceptor(),
		),
		grpc.ChainStreamInterceptor(
			interceptors.StreamAuthorize(svc.Guard(), policy),
			grpcMetrics.StreamServerInterceptor(),
		),
	)

	// Health-check сервис.
	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)

	// Рефлексия - только в local/dev.
	if cfg.Env == envLocal || cfg.Env == envDev {
		reflection.Register(grpcServer)
	}

	grpcMetrics.InitializeMetrics(grpcServer)

	// Фоновая очистка просроченных записей spent_tokens (Redis чистит сам по TTL).
	startSpentJanitor(ctx, sweeper, log, cfg.Revocation.JanitorPeriod)

	listener, err := net.Listen("tcp", cfg.GRPC.Addr())
	if err != nil {
		return err
	}

	serveErrCh := make(chan error, 3)

	go func() {
		log.Info("grpc_listen_start", slog.String("addr", cfg.GRPC.Addr()))
		if err := grpcServer.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			serveErrCh <- err
		}
	}()

	for name, srv := range map[string]*http.Server{"api": apiSrv, "ops": opsSrv} {
		name, srv := name, srv
		go func() {
			log.Info("http_listen_start", slog.String("server", name), slog.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErrCh <- err
			}
		}()
	}

	// Сервис готов: health -> SERVING и readiness=1
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	ready.Store(true)

	// Ожидание сигнала завершения или фатальной ошибки сервера.
	var serveErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown_requested")
	case serveErr = <-serveErrCh:
		log.Error("serve_failed", slog.String("err", serveErr.Error()))
	}

	// Переводим в NOT_SERVING и снимаем ready.
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	ready.Store(false)

	// Graceful stop с таймаутом.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_shutdown_failed", slog.String("err", err.Error()))
	}

	done := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		log.Info("grpc_stopped")
	case <-shutdownCtx.Done():
		log.Warn("grpc_force_stop")
		grpcServer.Stop()
	}

	_ = opsSrv.Shutdown(shutdownCtx)

	return serveErr
}

// setupLogger настраивает slog по окружению.
func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	}

	return log
}
