package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/siliconsteed/rva-api/internal/api"
	"github.com/siliconsteed/rva-api/internal/auth"
	"github.com/siliconsteed/rva-api/internal/batch"
	"github.com/siliconsteed/rva-api/internal/ephemeris"
	"github.com/siliconsteed/rva-api/internal/vedic"
	"github.com/siliconsteed/rva-api/internal/version"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(os.Getenv("RVA_LOG_LEVEL")),
	}))

	authCfg, err := loadAuthConfig(logger)
	if err != nil {
		logger.Error("invalid auth configuration", "error", err)
		os.Exit(1)
	}

	ephCfg := loadEphemerisConfig(logger)
	engine, err := ephemeris.New(ephCfg, logger)
	if err != nil {
		logger.Error("failed to initialise ephemeris engine", "error", err)
		os.Exit(1)
	}
	if err := engine.Ready(); err != nil {
		// Keep serving; /readyz reports the problem.
		logger.Warn("ephemeris engine not ready", "engine", engine.Name(), "error", err)
	}

	calc, err := vedic.NewCalculator(engine, nil, logger)
	if err != nil {
		logger.Error("invalid body roster", "error", err)
		os.Exit(1)
	}

	pool := batch.New(calc, loadBatchConfig(logger), logger)
	defer pool.Stop()

	srvCfg := loadServerConfig(logger)
	srvCfg.Auth = authCfg
	srv := api.NewServer(srvCfg, calc, pool, logger)

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logStarting(logger, srvCfg.Addr, engine.Name(), authCfg.Enabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server listen error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		return
	}

	logger.Info("server stopped")
}

func logStarting(logger *slog.Logger, addr, engine string, authEnabled bool) {
	logger.Info("starting server",
		"addr", addr,
		"version", version.Version,
		"engine", engine,
		"auth_enabled", authEnabled,
	)
}

func logLevel(v string) slog.Level {
	var level slog.Level
	if v == "" || level.UnmarshalText([]byte(v)) != nil {
		return slog.LevelInfo
	}
	return level
}

func loadAuthConfig(logger *slog.Logger) (auth.Config, error) {
	cfg := auth.Config{}

	enabledStr := os.Getenv("RVA_AUTH_ENABLED")
	if enabledStr != "" {
		enabled, err := strconv.ParseBool(enabledStr)
		if err != nil {
			return cfg, errors.New("RVA_AUTH_ENABLED must be a boolean value (true/false/1/0)")
		}
		cfg.Enabled = enabled
	}

	if cfg.Enabled {
		cfg.Token = os.Getenv("RVA_AUTH_TOKEN")
		if cfg.Token == "" {
			return cfg, errors.New("RVA_AUTH_TOKEN is required when auth is enabled")
		}
		logger.Info("auth enabled")
	}

	return cfg, nil
}

func loadEphemerisConfig(logger *slog.Logger) ephemeris.Config {
	cfg := ephemeris.Config{
		Mode:            ephemeris.ModeAnalytic,
		EphePath:        "./ephe",
		Sidereal:        ephemeris.SiderealLahiri,
		HorizonsURL:     ephemeris.DefaultHorizonsURL,
		HorizonsTimeout: 30 * time.Second,
	}

	if v := os.Getenv("RVA_EPHE_PATH"); v != "" {
		cfg.EphePath = v
	}

	if v := os.Getenv("RVA_EPHEMERIS_MODE"); v != "" {
		mode, err := ephemeris.ParseMode(v)
		if err != nil {
			logger.Warn("invalid RVA_EPHEMERIS_MODE value, using default", "value", v, "default", cfg.Mode.String())
		} else {
			cfg.Mode = mode
		}
	}

	if v := os.Getenv("RVA_SIDEREAL_MODE"); v != "" {
		mode, err := ephemeris.ParseSiderealMode(v)
		if err != nil {
			logger.Warn("invalid RVA_SIDEREAL_MODE value, using default", "value", v, "default", cfg.Sidereal.String())
		} else {
			cfg.Sidereal = mode
		}
	}

	if v := os.Getenv("RVA_HORIZONS_URL"); v != "" {
		cfg.HorizonsURL = v
	}

	if v := os.Getenv("RVA_HORIZONS_TIMEOUT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid RVA_HORIZONS_TIMEOUT value, using default", "value", v, "default", 30)
		} else {
			cfg.HorizonsTimeout = time.Duration(n) * time.Second
		}
	}

	logger.Info("ephemeris config",
		"mode", cfg.Mode.String(),
		"ephe_path", cfg.EphePath,
		"sidereal_mode", cfg.Sidereal.String(),
		"horizons_url", cfg.HorizonsURL,
		"horizons_timeout_seconds", cfg.HorizonsTimeout.Seconds(),
	)

	return cfg
}

func loadBatchConfig(logger *slog.Logger) batch.Config {
	cfg := batch.Config{
		Workers:  runtime.NumCPU(),
		MaxItems: 100,
	}

	if v := os.Getenv("RVA_BATCH_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid RVA_BATCH_WORKERS value, using default", "value", v, "default", cfg.Workers)
		} else {
			cfg.Workers = n
		}
	}

	if v := os.Getenv("RVA_BATCH_MAX_ITEMS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid RVA_BATCH_MAX_ITEMS value, using default", "value", v, "default", cfg.MaxItems)
		} else {
			cfg.MaxItems = n
		}
	}

	logger.Info("batch config", "workers", cfg.Workers, "max_items", cfg.MaxItems)

	return cfg
}

func loadServerConfig(logger *slog.Logger) api.Config {
	cfg := api.Config{Addr: ":3000"}

	if v := os.Getenv("PORT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 65535 {
			logger.Warn("invalid PORT value, using default", "value", v, "default", 3000)
		} else {
			cfg.Addr = ":" + strconv.Itoa(n)
		}
	}

	if v := os.Getenv("RVA_CORS_ORIGINS"); v != "" {
		for _, o := range strings.Split(v, ",") {
			o = strings.TrimSpace(o)
			if o != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, o)
			}
		}
	}

	if v := os.Getenv("RVA_TRUST_PROXY"); v != "" {
		trust, err := strconv.ParseBool(v)
		if err != nil {
			logger.Warn("invalid RVA_TRUST_PROXY value, defaulting to false", "value", v)
		} else {
			cfg.TrustProxy = trust
		}
	}

	logger.Info("server config",
		"addr", cfg.Addr,
		"cors_origins", cfg.CORSOrigins,
		"trust_proxy", cfg.TrustProxy,
	)

	return cfg
}
