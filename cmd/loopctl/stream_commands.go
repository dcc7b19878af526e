package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"loopctl/internal/logging"
	"loopctl/internal/remote"
	"loopctl/internal/statesync"
)

type healthView struct {
	LastSuccess         *time.Time `json:"last_success,omitempty"`
	LastError           string     `json:"last_error,omitempty"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
}

type statusView struct {
	Endpoint           string                `json:"endpoint"`
	Status             *remote.RunStatus     `json:"status,omitempty"`
	PerformanceProfile string                `json:"performance_profile,omitempty"`
	VideoFile          *string               `json:"video_file"`
	Videos             int                   `json:"videos"`
	Uploading          bool                  `json:"uploading"`
	Health             map[string]healthView `json:"health"`
}

func buildStatusView(snap statesync.Snapshot, endpointURL string) statusView {
	view := statusView{
		Endpoint:  endpointURL,
		Videos:    len(snap.Videos),
		Uploading: snap.Uploading,
		Health:    make(map[string]healthView, len(snap.Health)),
	}
	if snap.HasStatus {
		status := snap.Status
		view.Status = &status
	}
	if snap.HasConfig {
		view.PerformanceProfile = string(snap.Config.PerformanceProfile)
		view.VideoFile = snap.Config.VideoFile
	}
	for slice, h := range snap.Health {
		hv := healthView{LastError: h.LastError, ConsecutiveFailures: h.ConsecutiveFailures}
		if !h.LastSuccess.IsZero() {
			ts := h.LastSuccess
			hv.LastSuccess = &ts
		}
		view.Health[slice] = hv
	}
	return view
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show stream status, configuration summary, and poll health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(func(s *session) error {
				loadErr := s.state.Load(cmd.Context())
				snap := s.state.Snapshot()
				if !snap.HasStatus && loadErr != nil {
					return fmt.Errorf("fetch status from %s: %w", s.endpoint, loadErr)
				}
				if jsonOutput {
					return writeJSON(cmd, buildStatusView(snap, s.endpoint))
				}
				out := cmd.OutOrStdout()
				lines := renderStatus(snap, s.endpoint, time.Now(), shouldColorize(out))
				fmt.Fprintln(out, strings.Join(lines, "\n"))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newStartCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start streaming",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(func(s *session) error {
				return s.runVerb(cmd, func() bool { return s.dispatch.Start(cmd.Context()) })
			})
		},
	}
}

func newStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop streaming",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(func(s *session) error {
				return s.runVerb(cmd, func() bool { return s.dispatch.Stop(cmd.Context()) })
			})
		},
	}
}

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var metricsBind string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow stream status until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(func(s *session) error {
				bind := strings.TrimSpace(metricsBind)
				if bind == "" {
					bind = s.cfg.Metrics.Bind
				}
				return runWatch(cmd, s, bind)
			})
		},
	}
	cmd.Flags().StringVar(&metricsBind, "metrics-bind", "", "Expose Prometheus metrics on this address (overrides [metrics].bind)")
	return cmd
}

// runWatch keeps the synchronizer running and prints a line whenever the
// stream summary or poll health changes.
func runWatch(cmd *cobra.Command, s *session, metricsBind string) error {
	signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := s.state.Start(signalCtx); err != nil {
		return err
	}
	defer s.state.Stop()

	g, gctx := errgroup.WithContext(signalCtx)
	if metricsBind != "" {
		g.Go(func() error {
			if err := s.metrics.Serve(gctx, metricsBind, s.logger); err != nil {
				return fmt.Errorf("metrics listener: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		out := cmd.OutOrStdout()
		colorize := shouldColorize(out)
		var lastSummary string
		var lastDegraded bool
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-s.state.Changes():
			}
			snap := s.state.Snapshot()
			if !snap.HasStatus && !snap.HasConfig && len(snap.Health) == 0 {
				continue
			}
			degraded := snap.Health[statesync.SliceStatus].Degraded()
			summary := streamSummary(snap)
			if summary == lastSummary && degraded == lastDegraded {
				continue
			}
			stamp := time.Now().Format(time.TimeOnly)
			switch {
			case degraded:
				fmt.Fprintf(out, "[%s] %s\n", stamp, healthLine(statesync.SliceStatus, snap.Health[statesync.SliceStatus], colorize))
			case lastDegraded:
				fmt.Fprintf(out, "[%s] connection restored\n", stamp)
				fallthrough
			default:
				fmt.Fprintf(out, "[%s] %s\n", stamp, summary)
			}
			s.logger.Debug("status changed", logging.String("summary", summary), logging.Bool("degraded", degraded))
			lastSummary, lastDegraded = summary, degraded
		}
	})
	return g.Wait()
}
