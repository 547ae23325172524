package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/vinodismyname/sheetlens/config"
	"github.com/vinodismyname/sheetlens/internal/datasets"
	"github.com/vinodismyname/sheetlens/internal/registry"
	"github.com/vinodismyname/sheetlens/internal/runtime"
	"github.com/vinodismyname/sheetlens/internal/security"
	"github.com/vinodismyname/sheetlens/internal/telemetry"
	"github.com/vinodismyname/sheetlens/pkg/version"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	// A missing .env is normal; anything else is worth reporting.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "ignoring .env: %v\n", err)
	}

	var (
		useStdio        bool
		shutdownTimeout time.Duration
		profilesPath    string
	)

	flag.BoolVar(&useStdio, "stdio", false, "Run server over stdio transport")
	flag.DurationVar(&shutdownTimeout, "shutdown-timeout", 5*time.Second, "Graceful shutdown timeout")
	flag.StringVar(&profilesPath, "profiles", os.Getenv("SHEETLENS_PROFILES"), "YAML file with dataset profiles (defaults to built-in profiles)")
	flag.Parse()

	// stdout carries the protocol; logs go to stderr.
	logger := zlog.Output(os.Stderr).With().Str("service", "sheetlens-server").Logger()
	ctx := logger.WithContext(context.Background())

	// Security: validate allow-list directories on startup (fail-safe on error)
	secMgr, err := security.NewManagerFromEnv()
	if err != nil {
		logger.Error().Err(err).Msg("security: failed to initialize manager from env")
		fmt.Fprintf(os.Stderr, "invalid security configuration; set %s\n", security.EnvAllowedDirs)
		os.Exit(1)
	}
	if err := secMgr.ValidateConfig(); err != nil {
		logger.Error().Err(err).Msg("security: invalid allow-list configuration")
		fmt.Fprintf(os.Stderr, "no allowed directories configured; set %s\n", security.EnvAllowedDirs)
		os.Exit(1)
	}
	logger.Info().Strs("allowed_dirs", secMgr.AllowedDirectories()).Msg("security allow-list configured")

	profiles, err := config.LoadProfiles(profilesPath)
	if err != nil {
		logger.Error().Err(err).Str("path", profilesPath).Msg("config: failed to load profiles")
		fmt.Fprintln(os.Stderr, "invalid profiles file")
		os.Exit(1)
	}

	limits := runtime.NewLimits(config.DefaultMaxConcurrentRequests, config.DefaultMaxOpenDatasets)
	runtimeController := runtime.NewController(limits)
	runtimeMW := runtime.NewMiddleware(runtimeController)

	dsMgr := datasets.NewManager(config.DefaultDatasetIdleTTL, config.DefaultDatasetCleanupPeriod, runtimeController, nil)
	dsMgr.SetValidator(secMgr)
	dsMgr.SetLogger(logger)
	dsMgr.Start()

	toolRegistry := registry.New()
	toolFilter := registry.NewDisabledToolFilterFromEnv()
	hooks := telemetry.NewHooks(logger)

	srv := server.NewMCPServer(
		"Sheetlens Dataset Server",
		version.Version(),
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithHooks(hooks.Server()),
		server.WithToolHandlerMiddleware(runtimeMW.ToolMiddleware),
		server.WithToolFilter(func(ctx context.Context, tools []mcp.Tool) []mcp.Tool { return toolFilter.FilterTools(ctx, tools) }),
	)

	registry.RegisterDatasetTools(srv, toolRegistry, registry.Deps{
		Datasets:  dsMgr,
		Profiles:  profiles,
		Limits:    runtimeController.LimitsSnapshot(),
		Validator: secMgr,
	})

	logger.Info().
		Ctx(ctx).
		Str("version", version.Version()).
		Strs("profiles", profiles.Names()).
		Strs("tools", toolRegistry.Names()).
		Int("max_concurrent_requests", limits.MaxConcurrentRequests).
		Int("max_open_datasets", limits.MaxOpenDatasets).
		Int("tool_description_bytes", toolRegistry.DescriptionBytes()).
		Int("model_context_size", toolRegistry.ModelContextSize("gpt-4")).
		Bool("stdio", useStdio).
		Msg("server bootstrap configured")

	if !useStdio {
		// If no transport flags provided, print usage and exit non-zero
		fmt.Fprintln(os.Stderr, "no transport selected; use --stdio to run over stdio")
		os.Exit(2)
	}

	serveErr := server.ServeStdio(srv, server.WithStdioContextFunc(func(c context.Context) context.Context {
		return logger.WithContext(c)
	}))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := dsMgr.Close(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("dataset manager shutdown incomplete")
	}

	if serveErr != nil {
		// Use stderr for transport errors so clients don't misinterpret output
		fmt.Fprintf(os.Stderr, "Server error: %v\n", serveErr)
		os.Exit(1)
	}
}
