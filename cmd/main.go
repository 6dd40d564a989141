package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"floor_service/internal/allocation"
	"floor_service/internal/catalog"
	"floor_service/internal/config"
	"floor_service/internal/database"
	"floor_service/internal/events"
	"floor_service/internal/floor"
	"floor_service/internal/httpapi"
	"floor_service/internal/jobs"
	"floor_service/internal/ledger"
	"floor_service/internal/memstore"
	"floor_service/internal/status"
)

type repositories struct {
	ledger     ledger.LedgerRepository
	status     status.StatusRepository
	allocation allocation.AllocationRepository
	catalog    catalog.CatalogRepository
}

func main() {
	setupLogging()

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repos, db := openRepositories(cfg)
	if db != nil {
		defer func() {
			if err := database.Close(db); err != nil {
				log.WithError(err).Warn("failed to close database")
			}
		}()
	}

	hub := events.NewHub()
	defer hub.Close()
	startSubscribers(ctx, cfg, hub)

	ledgerEngine := ledger.NewEngine(repos.ledger)
	statusEngine := status.NewEngine(repos.status, hub)
	allocationManager := allocation.NewManager(repos.allocation).WithPageLimits(cfg.DefaultTake, cfg.MaxTake)
	cat := catalog.NewCatalog(repos.catalog, catalog.NewHasher(cfg.PasswordSaltLength, cfg.PasswordHashLength)).
		WithPageLimits(cfg.DefaultTake, cfg.MaxTake)

	scheduler := jobs.NewScheduler(ledgerEngine, cfg.AuditCron)
	if err := scheduler.Start(ctx); err != nil {
		log.WithError(err).Fatal("failed to start scheduler")
	}
	defer scheduler.Stop()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(httpapi.NewHandler(ledgerEngine, statusEngine, allocationManager, cat)),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Infof("received %s, shutting down", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server shutdown failed")
	}
	cancel()
	log.Info("server stopped")
}

func openRepositories(cfg *config.Config) (repositories, *gorm.DB) {
	if cfg.StoreDriver == config.DriverMemory {
		log.Warn("using in-memory store, data is lost on exit")
		store := memstore.New()
		return repositories{
			ledger:     store.Ledger(),
			status:     store.Status(),
			allocation: store.Allocation(),
			catalog:    store.Catalog(),
		}, nil
	}

	db, err := database.Open(database.Options{
		Driver:          cfg.StoreDriver,
		DSN:             cfg.DBConnStr,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		LogLevel:        cfg.DBLogLevel,
		ConnectRetries:  cfg.DBConnectRetries,
		AutoMigrate:     cfg.DBAutoMigrate,
	})
	if err != nil {
		log.WithError(err).Fatal("failed to open database")
	}
	return repositories{
		ledger:     ledger.NewLedgerRepositoryImpl(db),
		status:     status.NewStatusRepositoryImpl(db),
		allocation: allocation.NewAllocationRepositoryImpl(db),
		catalog:    catalog.NewCatalogRepositoryImpl(db),
	}, db
}

// startSubscribers wires the optional status change consumers. A consumer
// whose backend is unreachable is skipped.
func startSubscribers(ctx context.Context, cfg *config.Config, hub *events.Hub) {
	if cfg.RedisAddr != "" {
		client, err := events.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.WithError(err).Warn("access cache invalidation disabled")
		} else {
			cache := events.NewAccessCache(client, cfg.AccessCachePrefix)
			go func() {
				events.Run(ctx, "access-cache", hub.Subscribe(64, floor.KindAdmin, floor.KindUser), cache)
				if err := client.Close(); err != nil {
					log.WithError(err).Warn("failed to close redis client")
				}
			}()
		}
	}

	if cfg.AMQPURL != "" {
		publisher, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.StatusEventsQueue)
		if err != nil {
			log.WithError(err).Warn("status event publishing disabled")
		} else {
			go func() {
				events.Run(ctx, "amqp", hub.Subscribe(256), publisher)
				if err := publisher.Close(); err != nil {
					log.WithError(err).Warn("failed to close amqp publisher")
				}
			}()
		}
	}
}

func setupLogging() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.InfoLevel)
}
