// Command sitepulse-janitor runs the scheduled maintenance jobs for a
// SitePulse deployment: purging expired team invitations, deleting
// expired API tokens, and enforcing the audit log retention policy.
// Each job runs on its own cron schedule against the shared database so
// the API servers never pay for maintenance work in request paths.
package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"

	"github.com/sitepulse/sitepulse/pkg/audit"
	"github.com/sitepulse/sitepulse/pkg/auth"
	"github.com/sitepulse/sitepulse/pkg/config"
	"github.com/sitepulse/sitepulse/pkg/observability"
	"github.com/sitepulse/sitepulse/pkg/teams"
)

const jobTimeout = 5 * time.Minute

func main() {
	var (
		configPath         = flag.String("config", os.Getenv("SITEPULSE_CONFIG_FILE"), "path to YAML config file (optional, env vars apply on top)")
		invitationSchedule = flag.String("invitation-schedule", "17 * * * *", "cron schedule for expired-invitation cleanup")
		tokenSchedule      = flag.String("token-schedule", "43 * * * *", "cron schedule for expired-token cleanup")
		auditSchedule      = flag.String("audit-schedule", "0 3 * * *", "cron schedule for audit retention enforcement")
		runOnce            = flag.Bool("once", false, "run every job once and exit")
	)
	flag.Parse()

	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadConfigFile(*configPath)
	} else {
		cfg, err = config.LoadConfig()
	}
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.Info("starting sitepulse-janitor")

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		logger.WithError(err).Error("failed to open database")
		os.Exit(1)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	err = db.PingContext(pingCtx)
	cancel()
	if err != nil {
		logger.WithError(err).Error("failed to ping database")
		os.Exit(1)
	}

	teamService := teams.NewPostgresService(db)
	tokenManager := auth.NewTokenManager(db)

	auditLogger, err := audit.NewDBLogger(db)
	if err != nil {
		logger.WithError(err).Error("failed to initialize audit store")
		os.Exit(1)
	}
	defer auditLogger.Close()
	auditStore := audit.NewDBStore(auditLogger)
	retention := audit.RetentionPolicy{
		RetentionDays:  cfg.Audit.RetentionDays,
		ArchiveEnabled: cfg.Audit.ArchivePath != "",
		ArchivePath:    cfg.Audit.ArchivePath,
	}

	jobs := []struct {
		name     string
		schedule string
		run      func(context.Context) (int64, error)
	}{
		{"expired_invitations", *invitationSchedule, teamService.CleanupExpiredInvitations},
		{"expired_tokens", *tokenSchedule, tokenManager.CleanupExpiredTokens},
		{"audit_retention", *auditSchedule, func(ctx context.Context) (int64, error) {
			return auditStore.Cleanup(ctx, retention)
		}},
	}

	if *runOnce {
		failed := false
		for _, job := range jobs {
			if err := runJob(logger, job.name, job.run); err != nil {
				failed = true
			}
		}
		if failed {
			os.Exit(1)
		}
		return
	}

	scheduler := cron.New()
	for _, job := range jobs {
		job := job
		if _, err := scheduler.AddFunc(job.schedule, func() {
			runJob(logger, job.name, job.run) //nolint:errcheck // logged inside, next tick retries
		}); err != nil {
			logger.WithError(err).WithField("job", job.name).Error("invalid cron schedule")
			os.Exit(1)
		}
		logger.WithFields(map[string]interface{}{
			"job":      job.name,
			"schedule": job.schedule,
		}).Info("job scheduled")
	}
	scheduler.Start()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")
	stopCtx := scheduler.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(jobTimeout):
		logger.Warn("timed out waiting for running jobs")
	}
}

func runJob(logger *observability.Logger, name string, run func(context.Context) (int64, error)) error {
	defer observability.RecoverPanic(logger, "janitor job "+name)

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start := time.Now()
	removed, err := run(ctx)
	if err != nil {
		logger.WithError(err).WithField("job", name).Error("job failed")
		return err
	}
	logger.WithFields(map[string]interface{}{
		"job":      name,
		"removed":  removed,
		"duration": time.Since(start).String(),
	}).Info("job completed")
	return nil
}
