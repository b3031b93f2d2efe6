package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/opsgrid/triagekit/internal/api/handlers"
	"github.com/opsgrid/triagekit/internal/config"
	"github.com/opsgrid/triagekit/internal/database"
	"github.com/opsgrid/triagekit/internal/jobs"
	"github.com/opsgrid/triagekit/internal/llm"
	"github.com/opsgrid/triagekit/internal/metrics"
	"github.com/opsgrid/triagekit/internal/repository"
	"github.com/opsgrid/triagekit/internal/server"
	"github.com/opsgrid/triagekit/internal/service"
	"github.com/opsgrid/triagekit/internal/telemetry"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the triagekit API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if cfg.SentryDSN != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	// Run migrations unless --no-migrate flag is set
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	m := metrics.New()

	memoryRepo := repository.NewMemoryRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	indexJobRepo := repository.NewIndexJobRepository(pool)

	embedder := service.NewHashEmbedder(cfg.EmbeddingDimensions)
	chunkCfg := service.ChunkConfig{MaxChars: cfg.ChunkMaxChars, Overlap: cfg.ChunkOverlap}

	memorySvc := service.NewMemoryService(memoryRepo, embedder, chunkCfg, m)
	retrievalSvc := service.NewRetrievalService(memorySvc)

	llmClient := llm.NewClient(llm.Config{
		BaseURL:     cfg.LLMBaseURL,
		APIKey:      cfg.LLMAPIKey,
		Model:       cfg.LLMModel,
		Timeout:     cfg.LLMTimeout(),
		MaxAttempts: cfg.LLMMaxAttempts,
	}, m)

	triageCfg := service.DefaultTriageConfig()
	triageCfg.Temperature = cfg.LLMTemperature
	triageSvc := service.NewTriageService(retrievalSvc, llmClient, triageCfg, m)

	uuidGen := &service.DefaultUUIDGenerator{}
	ticketSvc := service.NewTicketService(ticketRepo, indexJobRepo, uuidGen)
	indexerSvc := service.NewIndexerService(ticketRepo, memorySvc)

	indexProcessor := jobs.NewIndexWorker(indexJobRepo, indexerSvc)
	indexWorker := jobs.NewWorker(indexProcessor, 10*time.Second)
	go indexWorker.Start(ctx)
	log.Println("index worker started")

	routerCfg := server.RouterConfig{
		AuthValidator:  &staticKeyValidator{key: cfg.APIKey},
		MemoryHandler:  handlers.NewMemoryHandler(memorySvc),
		TriageHandler:  handlers.NewTriageHandler(triageSvc),
		TicketHandler:  handlers.NewTicketHandler(ticketSvc),
		MetricsHandler: m.Handler(),
	}

	router := server.NewRouter(routerCfg)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	indexWorker.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

// staticKeyValidator accepts the single API key from configuration. An empty
// configured key disables auth, which is only sensible behind a private
// network boundary.
type staticKeyValidator struct {
	key string
}

func (v *staticKeyValidator) ValidateAPIKey(ctx context.Context, token string) error {
	if v.key == "" {
		return nil
	}
	if token != v.key {
		return fmt.Errorf("unknown api key")
	}
	return nil
}

func runMigrations(databaseURL string) error {
	// golang-migrate wants a database/sql connection
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
