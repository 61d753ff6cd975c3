package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"wmsinbound/config"
	"wmsinbound/db"
	"wmsinbound/db/mongo"
	"wmsinbound/db/postgres"
	"wmsinbound/handlers"
	"wmsinbound/inbound"
	"wmsinbound/logger"
	"wmsinbound/repository"
	"wmsinbound/routes"
	"wmsinbound/utils"
)

var skipMigrations bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, base, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = base.Sync() }()
		return serve(cmd.Context(), cfg, base)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "do not apply migrations on startup")
}

type stores struct {
	plans    repository.PlanRepository
	receipts repository.ReceiptRepository
	events   repository.EventRepository
	audit    repository.AuditRepository
}

func openStores(ctx context.Context, cfg *config.Config, base *zap.Logger) (stores, []db.DB, error) {
	var (
		s     stores
		conns []db.DB
	)

	switch cfg.DBType {
	case config.DBTypeMemory:
		mem := repository.NewMemoryStore()
		s = stores{plans: mem, receipts: mem, events: mem, audit: mem}
		base.Warn("using in-memory store, data is lost on restart")

	case config.DBTypePostgres:
		if !skipMigrations {
			if err := db.RunMigrations(cfg.PostgresURL, cfg.MigrationsPath, db.Up, base.Named("migrate")); err != nil {
				return s, conns, err
			}
		}
		pg := postgres.NewPostgresDB(cfg.PostgresURL)
		if err := pg.Connect(ctx); err != nil {
			return s, conns, fmt.Errorf("connect postgres: %w", err)
		}
		conns = append(conns, pg)

		var hasLocation bool
		switch cfg.LocationColumn {
		case config.LocationColumnOn:
			hasLocation = true
		case config.LocationColumnAuto:
			detected, err := repository.DetectLocationColumn(ctx, pg.Conn)
			if err != nil {
				return s, conns, fmt.Errorf("detect receipt line location column: %w", err)
			}
			hasLocation = detected
		}
		base.Info("receipt line location column", zap.Bool("enabled", hasLocation))

		s = stores{
			plans:    repository.NewPostgresPlanRepo(pg.Conn),
			receipts: repository.NewPostgresReceiptRepo(pg.Conn, hasLocation, logger.Named(base, "repo.postgres")),
			events:   repository.NewPostgresEventRepo(pg.Conn),
			audit:    repository.NewPostgresAuditRepo(pg.Conn),
		}
	}

	if cfg.Mongo.URL != "" {
		mg := mongo.NewMongoDB(cfg.Mongo.URL)
		if err := mg.Connect(ctx); err != nil {
			return s, conns, fmt.Errorf("connect mongo: %w", err)
		}
		conns = append(conns, mg)
		s.audit = repository.NewMongoAuditRepo(mg.Client, cfg.Mongo.DBName)
		base.Info("audit trail stored in mongo", zap.String("db", cfg.Mongo.DBName))
	}
	return s, conns, nil
}

func serve(ctx context.Context, cfg *config.Config, base *zap.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, conns, err := openStores(ctx, cfg, base)
	defer func() {
		for _, c := range conns {
			if err := c.Disconnect(context.Background()); err != nil {
				base.Error("failed to close connection", zap.String("db", string(c.Type())), zap.Error(err))
			}
		}
	}()
	if err != nil {
		return err
	}

	var storage handlers.PhotoStorage
	if cfg.R2.Enabled() {
		r2, err := utils.NewR2Storage(ctx, utils.R2Options{
			AccountID:       cfg.R2.AccountID,
			Bucket:          cfg.R2.Bucket,
			PublicURL:       cfg.R2.PublicURL,
			AccessKeyID:     cfg.R2.AccessKeyID,
			SecretAccessKey: cfg.R2.SecretAccessKey,
		})
		if err != nil {
			return err
		}
		storage = r2
	} else {
		base.Warn("R2 settings missing, photo upload endpoint disabled")
	}

	recorder := inbound.NewRecorder(st.events, st.audit, 0, logger.Named(base, "recorder"))
	defer recorder.Close()

	svc := inbound.NewService(st.plans, st.receipts, st.events, recorder, logger.Named(base, "svc.inbound"))
	handlerLogger := logger.Named(base, "handlers.inbound")
	engine := routes.New(routes.Handlers{
		Plans:    &handlers.PlanHandler{Service: svc, Logger: handlerLogger},
		Receipts: &handlers.ReceiptHandler{Service: svc, Storage: storage, Logger: handlerLogger},
		PDF:      &handlers.PDFHandler{Service: svc, TemplatePath: cfg.PDFTemplatePath, Logger: handlerLogger},
	}, logger.Named(base, "router"))

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // slip rendering drives a browser
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		base.Info("server starting", zap.String("port", cfg.Port), zap.String("db_type", cfg.DBType))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		base.Info("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server crashed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		base.Error("graceful shutdown failed", zap.Error(err))
	}
	if err := recorder.Flush(shutdownCtx); err != nil {
		base.Warn("recorder flush incomplete", zap.Error(err))
	}
	return nil
}
