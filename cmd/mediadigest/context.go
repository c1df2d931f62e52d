package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"mediadigest/internal/config"
	"mediadigest/internal/logging"
	"mediadigest/internal/services"
	"mediadigest/internal/store"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		logger, err := logging.New(logging.Options{
			Level:    cfg.Logging.Level,
			Format:   cfg.Logging.Format,
			FilePath: filepath.Join(cfg.Paths.LogDir, "mediadigest.log"),
		})
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger = logger
	})
	return c.logger, c.loggerErr
}

// runEnv bundles everything a command needs once config is loaded.
type runEnv struct {
	ctx    context.Context
	cfg    *config.Config
	store  *store.Store
	logger *slog.Logger
}

// withStore opens the database and invokes fn with a signal-aware context
// carrying a fresh run ID. Mutating commands additionally hold the run lock
// so cron and a manual invocation cannot interleave.
func (c *commandContext) withStore(locked bool, fn func(env runEnv) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return err
	}

	if locked {
		lock := flock.New(filepath.Join(cfg.Paths.LogDir, "mediadigest.lock"))
		ok, err := lock.TryLock()
		if err != nil {
			return fmt.Errorf("acquire run lock: %w", err)
		}
		if !ok {
			return fmt.Errorf("another mediadigest run is in progress (lock %s)", lock.Path())
		}
		defer func() { _ = lock.Unlock() }()
	}

	st, err := store.Open(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = services.WithRunID(ctx, uuid.NewString())

	return fn(runEnv{ctx: ctx, cfg: cfg, store: st, logger: logger})
}
