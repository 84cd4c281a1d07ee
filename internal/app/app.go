// Package app wires the store API process together.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/webstore/store-api/internal/domain/cart"
	"github.com/webstore/store-api/internal/domain/order"
	"github.com/webstore/store-api/internal/domain/product"
	"github.com/webstore/store-api/internal/domain/user"
	"github.com/webstore/store-api/internal/events"
	"github.com/webstore/store-api/internal/handler"
	"github.com/webstore/store-api/internal/imagestore"
	"github.com/webstore/store-api/internal/jwtauth"
	"github.com/webstore/store-api/internal/repository"
	"github.com/webstore/store-api/pkg/health"
	"github.com/webstore/store-api/pkg/httpmiddleware"
)

const imagesPath = "/images/products/"

// Run creates all dependencies, starts the HTTP server and the outbox relay,
// and handles graceful shutdown. It is the single wiring point for the
// application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	policy, err := cfg.Policy()
	if err != nil {
		return errors.Wrap(err, "order policy")
	}

	// PostgreSQL pool + migrations.
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	images, err := imagestore.NewDisk(cfg.ImagesDir)
	if err != nil {
		return err
	}

	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.AddLivenessCheck("gc", time.Second, health.GCMaxPauseCheck(time.Second))
	healthSvc.Start(ctx, 10*time.Second)
	defer healthSvc.Stop()

	// Repositories.
	productRepo := repository.NewProductRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	orderRepo := repository.NewOrderRepository(pool)
	outboxRepo := repository.NewOutboxRepository(pool)

	// Domain services.
	carts := cart.NewEngine(productRepo, policy.ShippingFee)
	productService := product.NewService(productRepo, images, cfg.Catalog.Categories, cfg.Catalog.PageSize)
	userService := user.NewService(userRepo, cfg.Users.PageSize)
	orderService := order.NewService(userRepo, carts, orderRepo, policy)

	h := handler.NewHandler(
		handler.HandlerConfig{ImageBaseURL: cfg.ImageBaseURL},
		productService,
		carts,
		orderService,
		userService,
		jwtauth.NewVerifier(cfg.Tokens()),
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := httpmiddleware.NewMetrics(registry, "api")

	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("GET /readyz", healthSvc.ReadyEndpoint)
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	mux.Handle("GET "+imagesPath, http.StripPrefix(imagesPath, http.FileServer(http.Dir(images.Dir()))))

	routeFinder := httpmiddleware.MakeRouteFinder(mux)
	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: otelhttp.NewHandler(
			httpmiddleware.Wrap(mux,
				httpmiddleware.Recovery(),
				httpmiddleware.CORS(httpmiddleware.CORSConfig{
					AllowOrigins:     cfg.CORS.Origins,
					AllowHeaders:     []string{"Content-Type", "Authorization"},
					AllowCredentials: cfg.CORS.AllowCredentials,
					MaxAge:           86400,
				}),
				httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
					Max:    cfg.RateLimit.Max,
					Window: cfg.RateLimit.Window,
				}),
				httpmiddleware.RequestID(),
				httpmiddleware.InjectLogger(zctx.From(ctx)),
				httpmiddleware.LogRequests(routeFinder),
				metrics.Middleware(routeFinder),
			),
			"store-api",
			otelhttp.WithTracerProvider(m.TracerProvider()),
			otelhttp.WithMeterProvider(m.MeterProvider()),
		),
	}

	g, gctx := errgroup.WithContext(ctx)

	if writer := events.NewWriter(cfg.Kafka.Brokers); writer != nil {
		relay := events.NewRelay(outboxRepo, writer, cfg.Relay())
		g.Go(func() error {
			defer func() {
				if err := writer.Close(); err != nil {
					lg.Error("Close kafka writer", zap.Error(err))
				}
			}()
			lg.Info("Outbox relay started", zap.Strings("brokers", cfg.Kafka.Brokers))
			return relay.Run(zctx.Base(gctx, lg))
		})
	} else {
		lg.Info("No Kafka brokers configured, order events stay in the outbox")
	}

	// Graceful shutdown: wait for cancellation, drain, then stop.
	g.Go(func() error {
		<-gctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown")
		}
		return nil
	})

	g.Go(func() error {
		healthSvc.SetReady(true)
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})

	return g.Wait()
}
