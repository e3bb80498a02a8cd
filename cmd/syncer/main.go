package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/catsync/backend/internal/application/extract"
	"github.com/catsync/backend/internal/infrastructure/config"
	"github.com/catsync/backend/internal/infrastructure/feedapi"
	"github.com/catsync/backend/internal/infrastructure/logger"
	"github.com/catsync/backend/internal/infrastructure/persistence"
	"github.com/catsync/backend/internal/infrastructure/progress"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		groupsFlag = flag.String("groups", "", "comma-separated data groups to sync (required)")
		dateFlag   = flag.String("date", "", "reference date as YYYY-MM-DD (default: today)")
	)
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	groups := splitGroups(*groupsFlag)
	if len(groups) == 0 {
		log.Error("no data groups given, use -groups")
		return 2
	}

	referenceDate := time.Now()
	if *dateFlag != "" {
		referenceDate, err = time.Parse("2006-01-02", *dateFlag)
		if err != nil {
			log.Error("invalid -date, expected YYYY-MM-DD", zap.String("date", *dateFlag))
			return 2
		}
	}

	log.Info("Starting catalog sync",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.Strings("groups", groups),
		zap.String("reference_date", referenceDate.Format("2006-01-02")),
	)

	rules, err := config.LoadRules(cfg.Rules.Path)
	if err != nil {
		log.Error("Failed to load rule set", zap.Error(err))
		return 1
	}

	source, err := feedapi.NewClient(&cfg.Feed, feedapi.WithLogger(log))
	if err != nil {
		log.Error("Failed to create feed client", zap.Error(err))
		return 1
	}

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	db, err := persistence.NewDatabaseWithLogger(&cfg.Writer, gormLog)
	if err != nil {
		log.Error("Failed to connect to database", zap.Error(err))
		return 1
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()

	writer := persistence.NewCatalogWriter(db)
	if err := writer.Migrate(); err != nil {
		log.Error("Failed to migrate snapshot tables", zap.Error(err))
		return 1
	}
	log.Info("Database connected successfully")

	// First SIGINT/SIGTERM cancels the context; in-flight runs finish with a
	// canceled status.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner := extract.NewRun(cfg, rules, source, writer,
		extract.WithLogger(log),
		extract.WithProgress(progress.NewLogSink(log)),
	)

	exitCode := 0
	for _, group := range groups {
		res, err := runner.Execute(ctx, group, referenceDate)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				log.Warn("sync canceled", zap.String("group", group))
				return 130
			}
			log.Error("sync failed", zap.String("group", group), zap.Error(err))
			exitCode = 1
			continue
		}
		log.Info("sync finished",
			zap.String("group", group),
			zap.String("status", res.Status),
			zap.Int("count", res.Count),
			zap.Int("errors", res.ErrorCount),
		)
	}

	return exitCode
}

// splitGroups parses the -groups flag into trimmed non-empty names.
func splitGroups(raw string) []string {
	var out []string
	for _, g := range strings.Split(raw, ",") {
		if g = strings.TrimSpace(g); g != "" {
			out = append(out, g)
		}
	}
	return out
}
