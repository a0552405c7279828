package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/orgoj/mongolog/handler"
	"github.com/orgoj/mongolog/internal/config"
	"github.com/orgoj/mongolog/internal/logger"
	"github.com/orgoj/mongolog/internal/version"
	"github.com/orgoj/mongolog/record"
	"github.com/orgoj/mongolog/store"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func main() {
	// --- Configuration --- //
	configPath := flag.String("config", "config/config.yaml", "Path to the configuration file")
	loggerName := flag.String("name", "", "Logger name of the stored records (default: handler.logger_name)")
	levelName := flag.String("level", "INFO", "Level of the stored records")
	testConfigShort := flag.Bool("t", false, "Test configuration and exit (nginx style)")
	testConfigLong := flag.Bool("test", false, "Test configuration and exit (nginx style)")
	showVersion := flag.Bool("version", false, "Show version information and exit")
	flag.Parse()

	// Display version information if requested
	if *showVersion {
		fmt.Println(version.VersionInfo())
		os.Exit(0)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("[CRITICAL] Failed to load configuration from '%s': %v\n", *configPath, err)
		os.Exit(1)
	}

	if *testConfigShort || *testConfigLong {
		fmt.Printf("Configuration '%s' is valid.\n", *configPath)
		os.Exit(0)
	}

	// Initialize application logger
	appLogger := logger.GetAppLogger()
	if err := appLogger.SetLogLevelFromString(cfg.AppLog.Level); err != nil {
		fmt.Printf("[WARN] Invalid log level '%s', using default: %v\n", cfg.AppLog.Level, err)
	}
	if cfg.AppLog.Path != "" {
		if err := appLogger.SetOutputFile(cfg.AppLog.Path); err != nil {
			fmt.Printf("[WARN] Cannot open application log '%s', using stderr: %v\n", cfg.AppLog.Path, err)
		}
	}

	appLogger.Info("%s", version.VersionInfo())

	level, err := record.ParseLevel(*levelName)
	if err != nil {
		appLogger.Fatal("Invalid -level: %v", err)
	}

	// --- Dependency Initialization --- //

	storeOpts, err := cfg.StoreOptions()
	if err != nil {
		appLogger.Fatal("%v", err)
	}
	if cfg.Mongo.DriverLog {
		storeOpts.DriverLog = logger.NewDriverSink(appLogger)
	}

	handlerOpts, err := cfg.HandlerOptions()
	if err != nil {
		appLogger.Fatal("%v", err)
	}
	handlerOpts.Reporter = logger.NewReporter(appLogger, cfg.Reporting.RateLimit)
	handlerOpts.Fallback = appLogger.Writer()
	if *loggerName != "" {
		handlerOpts.LoggerName = *loggerName
	}

	ctx := context.Background()
	h, err := handler.Dial(ctx, storeOpts, handlerOpts)
	if err != nil {
		appLogger.Fatal("Failed to open %s.%s: %v", storeOpts.Database, storeOpts.Collection, err)
	}
	appLogger.Info("Logging stdin to %s %s.%s as '%s'", storeOpts.URI(), storeOpts.Database, storeOpts.Collection, h.Name())

	// --- Main loop --- //

	stats, err := run(ctx, h, os.Stdin, level)
	if err != nil {
		appLogger.Error("Reading stdin failed: %v", err)
	}
	appLogger.Info("Processed %d lines, %d failed", stats.lines, stats.failed)

	if err := h.Close(ctx); err != nil {
		appLogger.Error("Failed to disconnect: %v", err)
	}
	_ = appLogger.Close()
	if stats.failed > 0 {
		os.Exit(2)
	}
}

type runStats struct {
	lines  int
	failed int
}

// run stores every non-empty line of r as one record at level.
func run(ctx context.Context, h *handler.StoreHandler, r io.Reader, level record.Level) (runStats, error) {
	var stats runStats
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), store.MaxDocumentSize)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		stats.lines++
		rec := record.New(h.Name(), level, lineMessage(line))
		if err := h.Emit(ctx, rec); err != nil {
			stats.failed++
		}
	}
	return stats, scanner.Err()
}

// lineMessage makes a JSON object line a structured message, keeping its field
// order. Any other line is plain text, stored verbatim.
func lineMessage(line string) record.Message {
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, "{") {
		var fields bson.D
		if err := bson.UnmarshalExtJSON([]byte(trimmed), false, &fields); err == nil {
			return record.Structured{Fields: fields}
		}
	}
	return record.Text(line)
}
