package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"google.golang.org/grpc"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"

	"github.com/like-mike/tenant-ai-gateway/gateway"
	"github.com/like-mike/tenant-ai-gateway/gateway/provider"
	"github.com/like-mike/tenant-ai-gateway/routes"
	"github.com/like-mike/tenant-ai-gateway/shared/config"
	"github.com/like-mike/tenant-ai-gateway/shared/crypto"
	"github.com/like-mike/tenant-ai-gateway/shared/db"
	"github.com/like-mike/tenant-ai-gateway/shared/email"
	"github.com/like-mike/tenant-ai-gateway/shared/ratelimit"
	"github.com/like-mike/tenant-ai-gateway/usage"
)

func init() {
	_ = godotenv.Load()
}

func main() {
	cfg := config.Load()

	tp := initTracer()
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Printf("Error shutting down tracer provider: %v", err)
		}
	}()

	database, err := db.InitDB()
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	box, err := crypto.NewBox(cfg.SettingsEncryptKey)
	if err != nil {
		log.Fatalf("Failed to initialize settings encryption: %v", err)
	}

	catalog, err := config.LoadPlans(cfg.PlansPath)
	if err != nil {
		log.Printf("Plan catalog unavailable (%v), tenant rows are authoritative", err)
	}

	tracker := usage.NewTracker(database, nil)
	defer tracker.Stop()

	resolver := provider.NewResolver(box, cfg.SystemAI)
	cache := gateway.NewClientCache(resolver)
	svc := gateway.NewService(cache, tracker, cfg.ProviderTimeout)

	ledger := &db.Ledger{DB: database}
	guard := gateway.NewQuotaGuard(ledger, cfg.UserDailyTokenLimit)
	if catalog != nil {
		guard.WithPlanCatalog(catalog)
	}

	if cfg.RedisURL != "" && cfg.TenantRequestsPerHour > 0 {
		limiter, err := ratelimit.NewRateLimiter(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		defer limiter.Close()
		guard.WithFrequencyLimiter(limiter, cfg.TenantRequestsPerHour)
		log.Printf("Tenant frequency limit enabled: %d requests/hour", cfg.TenantRequestsPerHour)
	}

	if alerts := email.NewAlertService(cfg.SMTP); alerts != nil {
		guard.WithAlerts(alerts)
		log.Println("Quota alert emails enabled")
	}

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(otelfiber.Middleware())
	app.Use(routes.PrometheusMiddleware())
	app.Use(logger.New())
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Get("/health", routes.HealthHandler)

	routes.RegisterRoutes(app, routes.Deps{
		DB:      database,
		Service: svc,
		Guard:   guard,
		Box:     box,
	})

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down...")
		if err := app.Shutdown(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	}()

	log.Println("Starting server on :" + cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}

func initTracer() *sdktrace.TracerProvider {
	ctx := context.Background()

	endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if endpoint == "" {
		endpoint = "localhost:4317"
	}

	serviceName := os.Getenv("OTEL_SERVICE_NAME")
	if serviceName == "" {
		serviceName = "tenant-ai-gateway"
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
		otlptracegrpc.WithDialOption(grpc.WithBlock()),
	)
	if err != nil {
		log.Fatalf("Failed to create OTLP exporter: %v", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
		),
	)
	if err != nil {
		log.Fatalf("Failed to create resource: %v", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return tp
}
