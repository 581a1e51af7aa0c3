package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"tagproof/internal/audit"
	"tagproof/internal/platform/config"
	"tagproof/internal/platform/httpserver"
	"tagproof/internal/platform/logger"
	"tagproof/internal/platform/metrics"
	platformredis "tagproof/internal/platform/redis"
	"tagproof/internal/tag"
	httptransport "tagproof/internal/transport/http"
	"tagproof/internal/verify"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in internal/verify; persistence is selected by config.
func main() {
	// .env is optional outside local development.
	_ = godotenv.Load()

	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tagStore, auditStore, health, cleanup := buildStores(ctx, cfg, log)
	defer cleanup()

	var publisher audit.Publisher
	if cfg.KafkaBrokers != "" {
		kafka, err := audit.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaAuditTopic, log)
		if err != nil {
			log.Error("kafka publisher init failed", "error", err.Error())
			os.Exit(1)
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = kafka.Close(flushCtx)
		}()
		publisher = kafka
	}

	recorder := audit.NewRecorder(auditStore, publisher, log, m)
	svc := verify.NewService(tagStore, recorder, log, m)
	handler := httptransport.NewHandler(svc, auditStore, log, health)
	router := httptransport.NewRouter(handler, log)
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting tagproof", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err.Error())
		os.Exit(1)
	}
}

// buildStores selects the persistence backend: Postgres when a DSN is set,
// Redis when a URL is set, in-memory otherwise.
func buildStores(ctx context.Context, cfg config.Server, log *slog.Logger) (tag.Store, audit.Store, httptransport.HealthFunc, func()) {
	switch {
	case cfg.PostgresDSN != "":
		db, err := sql.Open("pgx", cfg.PostgresDSN)
		if err != nil {
			log.Error("postgres open failed", "error", err.Error())
			os.Exit(1)
		}
		if err := db.PingContext(ctx); err != nil {
			log.Error("postgres ping failed", "error", err.Error())
			os.Exit(1)
		}

		tags := tag.NewPostgresStore(db)
		audits := audit.NewPostgresStore(db)
		if err := tags.EnsureSchema(ctx); err != nil {
			log.Error("schema setup failed", "error", err.Error())
			os.Exit(1)
		}
		if err := audits.EnsureSchema(ctx); err != nil {
			log.Error("schema setup failed", "error", err.Error())
			os.Exit(1)
		}

		log.Info("using postgres stores")
		return tags, audits, db.PingContext, func() { _ = db.Close() }

	case cfg.RedisURL != "":
		client, err := platformredis.New(cfg.RedisURL)
		if err != nil {
			log.Error("redis connect failed", "error", err.Error())
			os.Exit(1)
		}

		log.Info("using redis stores")
		return tag.NewRedisStore(client.Client), audit.NewRedisStore(client.Client),
			client.Health, func() { _ = client.Close() }

	default:
		log.Info("using in-memory stores")
		return tag.NewInMemoryStore(), audit.NewInMemoryStore(), nil, func() {}
	}
}
