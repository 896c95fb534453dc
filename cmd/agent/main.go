package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/communitypulse/sync-agent/internal/drivers"
	"github.com/communitypulse/sync-agent/internal/handlers"
	"github.com/communitypulse/sync-agent/internal/metrics"
	"github.com/communitypulse/sync-agent/internal/models"
	"github.com/communitypulse/sync-agent/internal/queue"
	"github.com/communitypulse/sync-agent/internal/services"
	"github.com/communitypulse/sync-agent/internal/status"
	"github.com/communitypulse/sync-agent/internal/storage"
	"github.com/communitypulse/sync-agent/internal/syncer"
)

func main() {
	// Setup logger
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("No .env file found, using environment variables")
	}

	config := loadConfig()

	log.Info().
		Str("host", config.Host).
		Str("port", config.Port).
		Msg("Starting offline submission sync agent")

	metrics.Register()

	log.Info().Msg("Opening local store...")
	localStore, err := storage.NewLocalStore(config.DataDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open local store")
	}
	defer localStore.Close()

	queueManager, err := queue.NewManager(localStore)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize queue manager")
	}

	// Remote backend is optional at startup: without configuration the
	// queue simply accumulates until a backend becomes available.
	var recordStore *storage.RecordStore
	if config.DBHost != "" {
		recordStore, err = storage.NewRecordStore(
			config.DBHost,
			config.DBPort,
			config.DBUser,
			config.DBPassword,
			config.DBName,
			config.DBSSLMode,
		)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to configure remote record store")
		}
		defer recordStore.Close()
		log.Info().Str("host", config.DBHost).Msg("Remote record store configured")
	} else {
		log.Warn().Msg("Remote backend not configured - submissions will queue locally")
	}

	log.Info().Msg("Initializing media store...")
	mediaStore, err := storage.NewMediaStore(
		config.MinIOEndpoint,
		config.MinIOPublicEndpoint,
		config.MinIOAccessKey,
		config.MinIOSecretKey,
		config.MinIOBucket,
		config.MinIOUseSSL,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize media store")
	}

	var pinger services.Pinger
	if recordStore != nil {
		pinger = recordStore
	}
	connectivity := services.NewConnectivityMonitor(pinger, config.ProbeInterval)

	identity := services.NewStaticIdentity(config.AgentUserID)
	registry := drivers.NewRegistry(
		drivers.NewPledgeDriver(recordStore, identity, config.SubmitTimeout),
		drivers.NewIncidentDriver(mediaStore, recordStore, config.SubmitTimeout),
	)

	reporter := status.NewReporter(queueManager, localStore, config.StatusInterval)

	// Sync-completed events are broadcast over RabbitMQ when available,
	// mirrored into the status reporter either way.
	var publisher *services.RabbitMQPublisher
	if config.RabbitMQURL != "" {
		publisher, err = services.NewRabbitMQPublisher(config.RabbitMQURL, config.RabbitMQExchange)
		if err != nil {
			log.Warn().Err(err).Msg("RabbitMQ unavailable - sync events will not be published")
			publisher = nil
		} else {
			defer publisher.Close()
		}
	}

	orchestrator := syncer.New(syncer.Config{
		Queue:        queueManager,
		Drivers:      registry,
		State:        localStore,
		Connectivity: connectivity,
		OnlineEvents: connectivity.OnlineEvents(),
		Interval:     config.SyncInterval,
		OnComplete: func(summary models.LastSyncInfo) {
			reporter.Refresh()
			if publisher != nil {
				if err := publisher.PublishSyncCompleted(context.Background(), summary); err != nil {
					log.Warn().Err(err).Msg("Failed to publish sync.completed event")
				}
			}
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	connectivity.Start(ctx)
	reporter.Start(ctx)
	orchestrator.Start(ctx)

	var wakeConsumer *services.WakeConsumer
	if config.RabbitMQURL != "" {
		wakeConsumer, err = services.NewWakeConsumer(config.RabbitMQURL, config.RabbitMQExchange, orchestrator.Wake)
		if err != nil {
			log.Warn().Err(err).Msg("RabbitMQ unavailable - wake signals disabled")
			wakeConsumer = nil
		} else if err := wakeConsumer.Start(); err != nil {
			log.Warn().Err(err).Msg("Failed to start wake consumer")
			wakeConsumer.Close()
			wakeConsumer = nil
		}
	}
	if wakeConsumer != nil {
		defer wakeConsumer.Close()
	}

	handler := handlers.NewHandler(queueManager, reporter, registry, connectivity, orchestrator)

	router := setupRouter(handler)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", config.Host, config.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("address", srv.Addr).
			Msg("Agent API listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down agent...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	orchestrator.Stop()
	reporter.Stop()
	connectivity.Stop()

	log.Info().Msg("Agent exited gracefully")
}

type Config struct {
	Host                string
	Port                string
	DataDir             string
	SyncInterval        time.Duration
	ProbeInterval       time.Duration
	StatusInterval      time.Duration
	SubmitTimeout       time.Duration
	AgentUserID         string
	RabbitMQURL         string
	RabbitMQExchange    string
	MinIOEndpoint       string
	MinIOPublicEndpoint string
	MinIOAccessKey      string
	MinIOSecretKey      string
	MinIOBucket         string
	MinIOUseSSL         bool
	DBHost              string
	DBPort              string
	DBUser              string
	DBPassword          string
	DBName              string
	DBSSLMode           string
}

// loadConfig loads configuration from environment variables
func loadConfig() *Config {
	return &Config{
		Host:                getEnv("AGENT_HOST", "0.0.0.0"),
		Port:                getEnv("AGENT_PORT", "8090"),
		DataDir:             getEnv("AGENT_DATA_DIR", "data"),
		SyncInterval:        getDurationEnv("SYNC_INTERVAL", 60*time.Second),
		ProbeInterval:       getDurationEnv("PROBE_INTERVAL", 15*time.Second),
		StatusInterval:      getDurationEnv("STATUS_INTERVAL", 5*time.Second),
		SubmitTimeout:       getDurationEnv("SUBMIT_TIMEOUT", 30*time.Second),
		AgentUserID:         getEnv("AGENT_USER_ID", ""),
		RabbitMQURL:         getEnv("RABBITMQ_URL", ""),
		RabbitMQExchange:    getEnv("RABBITMQ_EXCHANGE", "community-pulse.events"),
		MinIOEndpoint:       getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinIOPublicEndpoint: getEnv("MINIO_PUBLIC_ENDPOINT", "localhost:9000"),
		MinIOAccessKey:      getEnv("MINIO_ACCESS_KEY", "minioadmin"),
		MinIOSecretKey:      getEnv("MINIO_SECRET_KEY", "minioadmin123"),
		MinIOBucket:         getEnv("MINIO_BUCKET_NAME", "incident-photos"),
		MinIOUseSSL:         getEnv("MINIO_USE_SSL", "false") == "true",
		DBHost:              getEnv("DB_HOST", ""),
		DBPort:              getEnv("DB_PORT", "5432"),
		DBUser:              getEnv("DB_USER", "postgres"),
		DBPassword:          getEnv("DB_PASSWORD", "postgres"),
		DBName:              getEnv("DB_NAME", "postgres"),
		DBSSLMode:           getEnv("DB_SSL_MODE", "disable"),
	}
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDurationEnv parses a duration environment variable, accepting
// either a Go duration string ("90s") or a number of seconds.
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	log.Warn().Str("key", key).Str("value", value).Msg("Invalid duration, using default")
	return defaultValue
}

// setupRouter configures all routes and middleware
func setupRouter(h *handlers.Handler) *mux.Router {
	r := mux.NewRouter()

	r.Use(loggingMiddleware)
	r.Use(recoveryMiddleware)

	r.HandleFunc("/health", h.HealthCheckHandler).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", h.StatusHandler).Methods("GET")
	api.HandleFunc("/sync", h.SyncHandler).Methods("POST")
	api.HandleFunc("/pledges", h.CreatePledgeHandler).Methods("POST")
	api.HandleFunc("/incidents", h.CreateIncidentHandler).Methods("POST")

	log.Info().Msg("Routes configured successfully")
	return r
}

// loggingMiddleware logs all HTTP requests
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap ResponseWriter to capture status code
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapped.statusCode).
			Dur("duration_ms", time.Since(start)).
			Str("remote_addr", r.RemoteAddr).
			Msg("HTTP request")
	})
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().
					Interface("error", err).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Msg("Panic recovered")

				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
