package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	pg "medication-adherence/internal/adapters/storage/postgres"
	"medication-adherence/internal/app"
	"medication-adherence/internal/config"
	"medication-adherence/internal/domain/adherence"
	"medication-adherence/internal/domain/doselog"
	"medication-adherence/internal/domain/medications"
	"medication-adherence/internal/persistence"
	"medication-adherence/internal/platform/logger"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "medication-adherence",
		Short:         "Recordatorios de medicación y seguimiento de adherencia",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Levanta la API HTTP (default)",
			RunE:  runServe,
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Aplica las migraciones de Postgres",
			RunE:  runMigrate,
		},
		&cobra.Command{
			Use:   "adherence",
			Short: "Imprime la adherencia de los últimos 7 días",
			RunE:  runAdherence,
		},
	)
	return root
}

func loadConfig() (*config.Config, logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	log := logger.New(logger.Options{
		Level:  logger.ParseLevel(cfg.LogLevel),
		Format: logger.ParseFormat(cfg.LogFormat),
		App:    cfg.AppName,
	})
	return cfg, log, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	go a.Run(ctx)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      a.Handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", map[string]any{"addr": cfg.Addr()})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.StoreBackend != config.StorePostgres {
		return errors.New("migrate requires STORE_BACKEND=postgres")
	}

	db, err := pg.Open(cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}
	defer db.Close()

	if err := pg.Migrate(cmd.Context(), db); err != nil {
		return err
	}
	v, err := pg.MigrationVersion(cmd.Context(), db)
	if err != nil {
		return err
	}
	log.Info("migrations applied", map[string]any{"version": v})
	return nil
}

// runAdherence lee el estado persistido sin programar nada.
func runAdherence(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	store, db, err := app.OpenStore(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	gw := persistence.NewGateway(store, persistence.Options{Logger: log})
	defer gw.Close()
	st := gw.LoadState(cmd.Context())

	meds := medications.NewService(nil, nil, medications.Options{Logger: log})
	meds.Restore(st.Medications)
	doses := doselog.NewService(nil, doselog.Options{Logger: log})
	doses.Restore(st.Logs)

	return printResult(cmd.OutOrStdout(), adherence.NewService(meds, doses).ThisWeek(cmd.Context()))
}

func printResult(w io.Writer, res adherence.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"pct":       res.Pct,
		"scheduled": res.ScheduledCount,
		"taken":     res.TakenCount,
		"window":    res.Window,
	})
}
