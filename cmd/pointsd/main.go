package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lcb-colegios/hogwarts-points/internal/app"
	"github.com/lcb-colegios/hogwarts-points/internal/cache"
	"github.com/lcb-colegios/hogwarts-points/internal/config"
	"github.com/lcb-colegios/hogwarts-points/internal/db"
	"github.com/lcb-colegios/hogwarts-points/internal/importer"
	"github.com/lcb-colegios/hogwarts-points/internal/jobs"
	"github.com/lcb-colegios/hogwarts-points/internal/ledger"
	"github.com/lcb-colegios/hogwarts-points/internal/logging"
	"github.com/lcb-colegios/hogwarts-points/internal/observability"
	"github.com/lcb-colegios/hogwarts-points/internal/report"
	"go.uber.org/zap"
)

var release = "dev"

func main() {
	seedName := flag.String("seed", "", "create a demo school with this name and exit")
	importFile := flag.String("import", "", "load a legacy roster CSV into the school named by -school, then exit")
	schoolName := flag.String("school", "", "school name for -import")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("no .env file, using process environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	lg, err := logging.Init(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("logging: %v", err)
	}
	defer lg.Closer()

	flush, err := observability.InitSentry(cfg.SentryDSN, cfg.Env, release)
	if err != nil {
		lg.Sugar.Warnw("sentry init failed", "err", err)
	}
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		lg.Sugar.Fatalw("db open", "err", err)
	}
	defer func() { _ = database.Close() }()

	if err := db.Migrate(ctx, database); err != nil {
		lg.Sugar.Fatalw("migrate", "err", err)
	}

	readCache := cache.New(cfg.CacheTTL)
	store := ledger.New(database, lg.Named("ledger"))
	store.OnWrite(readCache.Invalidate)
	engine := report.New(database, readCache, lg.Named("report"))

	if *seedName != "" {
		id, err := db.SeedDemoSchool(ctx, database, *seedName)
		if err != nil {
			lg.Sugar.Fatalw("seed", "err", err)
		}
		lg.Sugar.Infow("demo school ready", "school", *seedName, "id", id)
		return
	}

	if *importFile != "" {
		if *schoolName == "" {
			lg.Sugar.Fatal("-import requires -school")
		}
		school, err := db.GetSchoolByName(ctx, database, *schoolName)
		if err != nil || school == nil {
			lg.Sugar.Fatalw("school lookup", "school", *schoolName, "err", err)
		}
		f, err := os.Open(*importFile)
		if err != nil {
			lg.Sugar.Fatalw("open roster", "err", err)
		}
		defer func() { _ = f.Close() }()

		sum, err := importer.New(database, store, lg.Named("importer")).Run(ctx, school.ID, f)
		if err != nil {
			lg.Sugar.Fatalw("import", "err", err)
		}
		lg.Sugar.Infow("import done", "students", sum.Students, "events", sum.Events, "skipped", len(sum.Skipped))
		return
	}

	runner := jobs.New(ctx)
	runner.Every(time.Minute, "standings_gauge", func(ctx context.Context) error {
		schools, err := db.ListSchools(ctx, database)
		if err != nil {
			return err
		}
		for _, s := range schools {
			if err := engine.RefreshStandingsGauge(ctx, s.ID, s.Name); err != nil {
				observability.CaptureErr(err)
				return err
			}
		}
		return nil
	})

	app.StartHTTP(ctx, cfg.HTTPAddr, database)

	lg.Base.Info("pointsd started", zap.String("addr", cfg.HTTPAddr), zap.String("env", cfg.Env))
	<-ctx.Done()
	lg.Base.Info("shutting down")
}
