// Command depreciation_job accrues one month of vehicle depreciation for a
// tenant. It is meant to be run by cron on the first day of each month.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SscSPs/fleet_ledger/internal/configstore"
	"github.com/SscSPs/fleet_ledger/internal/core/domain"
	"github.com/SscSPs/fleet_ledger/internal/core/services"
	"github.com/SscSPs/fleet_ledger/internal/middleware"
	"github.com/SscSPs/fleet_ledger/internal/platform/config"
	"github.com/SscSPs/fleet_ledger/internal/platform/otel"
	"github.com/SscSPs/fleet_ledger/internal/repositories"
	"github.com/spf13/pflag"
)

const jobUserID = "system:depreciation-job"

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// The previous month is the one whose depreciation is due.
	defaultMonth := domain.PeriodKey(domain.MonthStart(time.Now().UTC()).AddDate(0, -1, 0))
	month := pflag.String("month", defaultMonth, "month to process (YYYY-MM)")
	tenantID := pflag.String("tenant", "", "tenant to process (required)")
	userID := pflag.String("user", jobUserID, "user recorded on the created entries")
	pflag.Parse()

	if *tenantID == "" {
		logger.Error("-tenant is required")
		os.Exit(2)
	}
	target, err := domain.ParsePeriod(*month)
	if err != nil {
		logger.Error("Invalid -month, expected YYYY-MM", slog.String("month", *month))
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, logger, *tenantID, *userID, target))
}

func run(ctx context.Context, logger *slog.Logger, tenantID, userID string, target time.Time) int {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		return 1
	}

	shutdownTracing, err := otel.Setup(ctx, otel.Options{
		ServiceName: "fleet-ledger-depreciation-job",
		Enabled:     cfg.OTelEnabled,
		Endpoint:    cfg.OTelEndpoint,
		Production:  cfg.IsProduction,
	})
	if err != nil {
		logger.Error("Failed to initialize tracing", slog.String("error", err.Error()))
		return 1
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	repos, closeStore, err := repositories.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize store", slog.String("error", err.Error()))
		return 1
	}
	defer closeStore()

	templates, err := configstore.NewTemplateStore(cfg.AccountTemplatesPath, logger)
	if err != nil {
		logger.Error("Failed to load account templates", slog.String("error", err.Error()))
		return 1
	}
	svc := services.NewServiceContainer(cfg, repos, templates)

	jobLogger := logger.With(slog.String("tenant_id", tenantID), slog.String("period", domain.PeriodKey(target)))
	ctx = middleware.WithLogger(middleware.WithIdentity(ctx, userID, tenantID), jobLogger)

	result, err := svc.Depreciation.ProcessMonth(ctx, tenantID, target, userID)
	jobLogger.Info("Depreciation job finished",
		slog.Int("processed", result.ProcessedCount),
		slog.Int("skipped", result.SkippedCount),
		slog.Int("failed", len(result.Failures)),
		slog.String("total_amount", result.TotalAmount.String()))
	if err != nil {
		jobLogger.Error("Depreciation job completed with errors", slog.String("error", err.Error()))
		return 1
	}
	return 0
}
