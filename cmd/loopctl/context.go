package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"loopctl/internal/activity"
	"loopctl/internal/commands"
	"loopctl/internal/config"
	"loopctl/internal/endpoint"
	"loopctl/internal/logging"
	"loopctl/internal/metrics"
	"loopctl/internal/remote"
	"loopctl/internal/statesync"
	"loopctl/internal/transport"
)

type commandContext struct {
	configFlag *string
	urlFlag    *string

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error

	sessionOnce sync.Once
	session     *session
	sessionErr  error
}

// session wires one process worth of components around a resolved endpoint.
type session struct {
	cfg      *config.Config
	logger   *slog.Logger
	endpoint string
	metrics  *metrics.Metrics
	activity *activity.Log
	api      *remote.Client
	state    *statesync.Synchronizer
	dispatch *commands.Dispatcher
}

func newCommandContext(configFlag, urlFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		urlFlag:    urlFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.urlFlag != nil {
			if url := strings.TrimSpace(*c.urlFlag); url != "" {
				cfg.Remote.Mode = config.ModeExplicit
				cfg.Remote.BaseURL = url
				if err := cfg.Validate(); err != nil {
					c.configErr = err
					return
				}
			}
		}
		c.config = cfg
		c.configPath = resolved
		c.configExists = exists
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureSession() (*session, error) {
	c.sessionOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.sessionErr = err
			return
		}
		c.session, c.sessionErr = newSession(cfg)
	})
	return c.session, c.sessionErr
}

func newSession(cfg *config.Config) (*session, error) {
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	ordering, err := statesync.ParseOrdering(cfg.Sync.Ordering)
	if err != nil {
		return nil, err
	}

	base := endpoint.Resolve(endpoint.FromConfig(cfg))
	client := transport.New(base,
		transport.WithTimeout(cfg.RequestTimeout()),
		transport.WithOrigin(cfg.Remote.CohostedOrigin),
		transport.WithLogger(logger),
	)
	api := remote.NewClient(client)
	m := metrics.New()
	log := activity.New(cfg.Activity.Capacity)
	log.AddSink(m)

	state := statesync.New(api, statesync.Options{
		Interval: cfg.PollInterval(),
		Ordering: ordering,
		Logger:   logger,
		Observer: m,
	})
	dispatch := commands.New(api, state, log, commands.Options{
		RollbackFailedSave: cfg.Commands.RollbackFailedSave,
		ClearDeletedSource: cfg.Commands.ClearDeletedSource,
		Logger:             logger,
		Observer:           m,
	})

	logger.Debug("session ready",
		logging.String("mode", cfg.Remote.Mode),
		logging.String("endpoint", client.URL("/")),
	)
	return &session{
		cfg:      cfg,
		logger:   logger,
		endpoint: strings.TrimSuffix(client.URL("/"), "/"),
		metrics:  m,
		activity: log,
		api:      api,
		state:    state,
		dispatch: dispatch,
	}, nil
}

func (c *commandContext) withSession(fn func(*session) error) error {
	s, err := c.ensureSession()
	if err != nil {
		return err
	}
	return fn(s)
}

// reportedError marks a failure whose details already reached the operator
// through printed activity entries.
type reportedError struct {
	message string
}

func (e *reportedError) Error() string {
	return e.message
}

// runVerb executes fn and prints the activity entries it produced, oldest
// first. A failed verb becomes a reportedError carrying its last entry.
func (s *session) runVerb(cmd *cobra.Command, fn func() bool) error {
	mark := s.activity.LastSequence()
	ok := fn()
	entries := s.activity.Since(mark)
	printEntries(cmd.OutOrStdout(), entries)
	if ok {
		return nil
	}
	message := "command failed"
	if len(entries) > 0 {
		message = entries[len(entries)-1].Message
	}
	return &reportedError{message: message}
}

func printEntries(out io.Writer, entries []activity.Entry) {
	for _, entry := range entries {
		fmt.Fprintln(out, entry.String())
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
