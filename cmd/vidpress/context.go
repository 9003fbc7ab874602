package main

import (
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"vidpress/internal/config"
	"vidpress/internal/history"
	"vidpress/internal/logging"
	"vidpress/internal/plan"
	"vidpress/internal/services"
	"vidpress/internal/workflow"
)

type commandContext struct {
	configFlag    *string
	logLevelFlag  *string
	logFormatFlag *string

	configOnce   sync.Once
	config       *config.Config
	configErr    error
	configFile   string
	configExists bool

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag, logLevelFlag, logFormatFlag *string) *commandContext {
	return &commandContext{
		configFlag:    configFlag,
		logLevelFlag:  logLevelFlag,
		logFormatFlag: logFormatFlag,
	}
}

func (c *commandContext) configPath() string {
	return flagValue(c.configFlag)
}

func flagValue(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, resolved, exists, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		c.configFile, c.configExists = resolved, exists
		if level := flagValue(c.logLevelFlag); level != "" {
			cfg.Logging.Level = level
		}
		if format := flagValue(c.logFormatFlag); format != "" {
			cfg.Logging.Format = strings.ToLower(format)
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
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

// withRunner opens the history store and builds a runner recording into it.
func (c *commandContext) withRunner(fn func(*workflow.Runner) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return err
	}
	return c.withHistory(func(store *history.Store) error {
		runner, err := workflow.NewRunner(cfg, logger, workflow.WithHistory(store))
		if err != nil {
			return err
		}
		return fn(runner)
	})
}

func (c *commandContext) withHistory(fn func(*history.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := history.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

// skipConfigAnnotation marks commands that run without loading config.toml.
const skipConfigAnnotation = "skipConfigLoad"

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations[skipConfigAnnotation] == "true" {
			return true
		}
	}
	return false
}

// Exit codes let scripts tell a bad plan from a broken environment.
const (
	exitFailure       = 1
	exitInvalidInput  = 2
	exitConfiguration = 3
)

func exitCode(err error) int {
	var invalid *plan.InvalidPlanError
	switch {
	case errors.As(err, &invalid), errors.Is(err, services.ErrValidation):
		return exitInvalidInput
	case errors.Is(err, services.ErrConfiguration):
		return exitConfiguration
	default:
		return exitFailure
	}
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
