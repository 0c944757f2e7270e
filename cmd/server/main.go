package main

import (
	"context"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	delivery "github.com/smartcity/trafficsim/internal/delivery/http"
	"github.com/smartcity/trafficsim/internal/domain"
	"github.com/smartcity/trafficsim/internal/orchestrator"
	"github.com/smartcity/trafficsim/internal/providers"
	"github.com/smartcity/trafficsim/internal/repository/postgres"
	"github.com/smartcity/trafficsim/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	cfg := loadConfig()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Printf("Warning: Could not connect to database: %v", err)
		log.Println("Running with mock data only")
		pool = nil
	} else {
		defer pool.Close()
		log.Println("Connected to PostgreSQL")
	}

	var dataRepo domain.DataRepository
	if pool != nil {
		dataRepo = postgres.NewPostgresRepository(pool)
	} else {
		dataRepo = postgres.NewMockRepository()
	}

	cache := providers.NewRoadNetworkCache(cfg.RoadCacheTTL)
	roadProvider := providers.NewOverpassRoadNetworkProvider(cfg.OverpassURL, cache)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	trafficProvider := providers.NewTomTomTrafficProvider(cfg.TomTomAPIKey, rng)
	populationProvider := providers.NewHTTPPopulationProvider(cfg.PopulationServiceURL)

	orch := orchestrator.New(roadProvider, trafficProvider, populationProvider, rng)

	markerSvc := service.NewMarkerService(dataRepo)
	resultSvc := service.NewResultService(dataRepo)
	analysisBridge := service.NewAnalysisBridge(cfg.AnalysisServiceURL)

	handler := delivery.NewHandler(orch, markerSvc, resultSvc, analysisBridge, dataRepo)

	app := fiber.New(fiber.Config{
		AppName:      "trafficsim-backend v1.0",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorHandler: customErrorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	delivery.SetupRoutes(app, handler)

	go func() {
		port := cfg.Port
		if port == "" {
			port = "8080"
		}
		log.Printf("Server starting on :%s", port)
		if err := app.Listen(":" + port); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	resultSvc.WaitBackground()
	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exited gracefully")
}

// Config carries every environment-driven knob the service reads at
// startup: connection strings, upstream service URLs, and the
// simulation defaults a deployment may want to override.
type Config struct {
	DatabaseURL          string
	TomTomAPIKey         string
	OverpassURL          string
	PopulationServiceURL string
	AnalysisServiceURL   string
	Port                 string
	Env                  string

	DurationMinutes int
	RadiusKm        float64
	MaxVehicles     int
	LiveSampleSize  int
	LiveTickSeconds int
	RoadCacheTTL    time.Duration
}

func loadConfig() *Config {
	return &Config{
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		TomTomAPIKey:         getEnv("TOMTOM_API_KEY", ""),
		OverpassURL:          getEnv("OVERPASS_URL", ""),
		PopulationServiceURL: getEnv("POPULATION_SERVICE_URL", ""),
		AnalysisServiceURL:   getEnv("ANALYSIS_SERVICE_URL", ""),
		Port:                 getEnv("PORT", "8080"),
		Env:                  getEnv("GO_ENV", "development"),

		DurationMinutes: getEnvInt("DURATION_MINUTES", 60),
		RadiusKm:        getEnvFloat("RADIUS_KM", 3.0),
		MaxVehicles:     getEnvInt("MAX_VEHICLES", 500),
		LiveSampleSize:  getEnvInt("LIVE_SAMPLE_SIZE", 50),
		LiveTickSeconds: getEnvInt("LIVE_TICK_SECONDS", 10),
		RoadCacheTTL:    time.Duration(getEnvInt("ROAD_CACHE_TTL_MINUTES", 10)) * time.Minute,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
