package main

import (
	"context"
	"database/sql"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ahsanfayaz52/noteboard/internal/auth"
	"github.com/ahsanfayaz52/noteboard/internal/config"
	"github.com/ahsanfayaz52/noteboard/internal/db"
	"github.com/ahsanfayaz52/noteboard/internal/encryption"
	"github.com/ahsanfayaz52/noteboard/internal/handlers"
	"github.com/ahsanfayaz52/noteboard/internal/logger"
	"github.com/ahsanfayaz52/noteboard/internal/metrics"
	"github.com/ahsanfayaz52/noteboard/internal/middleware"
	"github.com/ahsanfayaz52/noteboard/internal/notelist"
	"github.com/ahsanfayaz52/noteboard/internal/notesapi"
	"github.com/ahsanfayaz52/noteboard/internal/tasks"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func init() {
	var configPath string

	serveCmd := &cobra.Command{
		Use:   "serve [-c config_file]",
		Short: "Run the web server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, configPath)
		},
	}
	serveCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context, configPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogProduction)
	if err != nil {
		return err
	}
	defer log.Sync()

	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	provider, err := auth.NewCognitoProvider(ctx, auth.CognitoConfig{
		Region:       cfg.Region,
		UserPoolID:   cfg.UserPoolID,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     cfg.AuthEndpoint,
	}, log.Named("cognito"))
	if err != nil {
		return err
	}

	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.SessionTTL)
	sessions := auth.NewManager(provider, store, jwtService, cfg.SessionTTL, log.Named("session"))

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	api := notesapi.NewClient(cfg.GraphQLEndpoint, auth.AccessTokenFromContext,
		notesapi.WithLogger(log.Named("notesapi")),
		notesapi.WithMetrics(m))
	notes := notelist.NewRegistry(api, cfg.PageSize, log.Named("notelist"))
	limiter := middleware.NewLimiter(cfg.LoginRate, cfg.LoginBurst, cfg.TrustProxy)

	sched, err := tasks.Start(cfg.SessionCleanupSpec, &tasks.Cleanup{
		Sessions:    sessions,
		Controllers: notes,
		Limiter:     limiter,
		IdleAfter:   sessions.TTL(),
		Logger:      log.Named("cleanup"),
	})
	if err != nil {
		return err
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: handlers.NewRouter(handlers.Deps{
			Sessions: sessions,
			Accounts: provider,
			Notes:    notes,
			Limiter:  limiter,
			Metrics:  m,
			Gatherer: reg,
			Logger:   log.Named("http"),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server",
			zap.String("addr", srv.Addr),
			zap.String("userPool", cfg.UserPoolID),
			zap.String("sessionStore", cfg.SessionStore),
			zap.Bool("trustProxy", cfg.TrustProxy))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "listen")
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStore(cfg *config.Config) (auth.Store, func(), error) {
	var (
		conn *sql.DB
		err  error
	)
	switch cfg.SessionStore {
	case config.StoreMySQL:
		conn, err = db.OpenMySQL(cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBName)
	case config.StoreSQLite:
		conn, err = db.OpenSQLite(cfg.DBPath)
	default:
		return auth.NewMemoryStore(), func() {}, nil
	}
	if err != nil {
		return nil, nil, err
	}

	enc, err := encryption.NewService(cfg.EncryptionKey)
	if err != nil {
		conn.Close()
		return nil, nil, err
	}
	return auth.NewSQLStore(conn, enc), func() { conn.Close() }, nil
}
