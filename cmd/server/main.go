package main

import (
	"context"
	"flag"
	"time"
	"tweetexport-backend/internal/components/chrono"
	"tweetexport-backend/internal/components/telemetry"
	"tweetexport-backend/internal/credentials"
	"tweetexport-backend/internal/db"
	"tweetexport-backend/internal/export"
	"tweetexport-backend/internal/scrapers/twitter"
	"tweetexport-backend/internal/service"
	"tweetexport-backend/internal/web"
	"tweetexport-backend/lib/configutil"
	"tweetexport-backend/lib/serviceutil"
)

func initCredentials(
	ctx context.Context,
	cfg CredentialsConfig,
	clock chrono.TimeAPI,
	cron chrono.CronAPI,
	tel telemetry.API,
) (credentials.Store, error) {
	ttl := time.Duration(cfg.TTLMinutes) * time.Minute
	if cfg.Backend == backendMemory {
		return credentials.NewMemoryStore(cfg.Size, ttl), nil
	}

	database, err := cfg.Database.OpenDB(db.Schema)
	if err != nil {
		return nil, err
	}
	go func() {
		<-ctx.Done()
		database.Close()
	}()

	store := credentials.NewSQLStore(database, clock, tel, credentials.SQLStoreOptions{
		TTL:            ttl,
		AllowPlaintext: cfg.AllowPlaintext,
	})
	err = cron.Cron("@every 10m", func() {
		store.Purge(ctx)
	})
	if err != nil {
		return nil, err
	}
	return store, nil
}

func main() {
	verbose := flag.Bool("v", false, "Enable verbose logging.")
	configPath := flag.String("config", "config.json5", "Path to the configuration file.")
	flag.Parse()

	ctx := serviceutil.SignalContext()

	otel := InitTelemetry(ctx, *verbose)
	defer otel.Shutdown(context.Background())

	cfg, err := configutil.ReadConfigWithDefaults(*configPath, defaultConfig())
	if err != nil {
		serviceutil.Fatal("read config", err)
	}

	tel := telemetry.SlogAPI{}

	clock, err := chrono.NewStandardImpl(cfg.Timezone)
	if err != nil {
		serviceutil.Fatal("load timezone", err)
	}
	cron := chrono.NewStandardCron(tel, clock.Location())
	defer cron.Stop()

	mode, searchOptions, err := cfg.Search.options()
	if err != nil {
		serviceutil.Fatal("search config", err)
	}
	err = cfg.Credentials.validate(mode)
	if err != nil {
		serviceutil.Fatal("credentials config", err)
	}

	store, err := initCredentials(ctx, cfg.Credentials, clock, cron, tel)
	if err != nil {
		serviceutil.Fatal("init credential store", err)
	}

	exports, err := export.NewStore(cfg.Export, clock, tel)
	if err != nil {
		serviceutil.Fatal("init export store", err)
	}
	err = exports.ScheduleCleanup(ctx, cron)
	if err != nil {
		serviceutil.Fatal("schedule export cleanup", err)
	}

	factory := twitter.NewFactory(cfg.Scraper, tel)
	options := []service.Option{
		service.WithCustomTimeAPI(clock),
		service.WithCustomTelemetryAPI(tel),
	}
	auth := service.NewAuthenticator(factory.New, mode, options...)
	searcher := service.NewSearcher(auth, searchOptions, options...)

	server, err := web.NewServer(cfg.webConfig(), auth, searcher, store, exports, clock, tel)
	if err != nil {
		serviceutil.Fatal("init web server", err)
	}
	err = server.ScheduleJobs(cron)
	if err != nil {
		serviceutil.Fatal("schedule web jobs", err)
	}

	err = serviceutil.StartHttpServer(ctx, cfg.Port, server.Handler())
	if err != nil {
		serviceutil.Fatal("http server", err)
	}
}
