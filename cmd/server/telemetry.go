package main

import (
	"context"
	"log/slog"
	"os"
	"tweetexport-backend/internal/components/telemetry"
	"tweetexport-backend/lib/serviceutil"
)

func InitTelemetry(ctx context.Context, verbose bool) telemetry.Telemetry {
	telemetry.InitSlog(verbose)
	if verbose {
		slog.DebugContext(ctx, "verbose logging enabled")
	}

	t, err := telemetry.SetupFromEnv(ctx, "tweetexport")
	if os.IsNotExist(err) {
		slog.Info("telemetry.json5 not found, traces and metrics are disabled")
		return telemetry.Telemetry{}
	}
	if err != nil {
		serviceutil.Fatal("setup telemetry", err)
	}
	telemetry.InstrumentPerfStats(ctx, telemetry.SlogAPI{})
	return t
}
