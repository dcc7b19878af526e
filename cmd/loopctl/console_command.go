package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"loopctl/internal/activity"
	"loopctl/internal/commands"
	"loopctl/internal/logging"
	"loopctl/internal/statesync"
)

const consolePrompt = "loopctl> "

const consoleHelp = `Commands:
  status                 Show stream status and poll health
  config                 Show the working configuration
  set key=value...       Edit the working configuration (not saved)
  save                   Save the working configuration to the service
  videos                 List uploaded videos (* marks the active source)
  upload <file> [name]   Upload a local video file
  delete <name>          Delete a video from the service
  select <path|name>     Select the video source (not saved)
  start | stop           Start or stop streaming
  log                    Show the activity log, newest first
  help                   Show this help
  quit                   Leave the console`

func newConsoleCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Interactive session with continuously synchronized state",
		Long: `Open an interactive session. Status and the video inventory are polled in
the background; the configuration is loaded once and then edited locally with
'set' and 'select' until 'save' sends it to the service.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(func(s *session) error {
				return runConsole(cmd, s)
			})
		},
	}
}

// acquireConsoleLock takes the per-workstation console lock.
func acquireConsoleLock(path string) (*flock.Flock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	lock := flock.New(path)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire console lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("another loopctl console is already running (lock %s)", path)
	}
	return lock, nil
}

type console struct {
	s        *session
	lines    <-chan string
	out      io.Writer
	colorize bool
}

func runConsole(cmd *cobra.Command, s *session) error {
	lock, err := acquireConsoleLock(s.cfg.Console.LockPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			s.logger.Warn("release console lock", logging.Error(err))
		}
	}()

	signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	out := cmd.OutOrStdout()
	s.activity.AddSink(activity.SinkFunc(func(entry activity.Entry) {
		fmt.Fprintln(out, entry.String())
	}))

	if err := s.state.Start(signalCtx); err != nil {
		return err
	}
	defer s.state.Stop()

	c := &console{
		s:        s,
		lines:    readLines(signalCtx, cmd.InOrStdin()),
		out:      out,
		colorize: shouldColorize(out),
	}
	select {
	case <-s.state.Loaded():
	case <-signalCtx.Done():
		return nil
	}
	if health := s.state.Health(statesync.SliceStatus); health.Degraded() {
		fmt.Fprintf(out, "Service at %s is not answering: %s\n", s.endpoint, health.LastError)
	} else {
		fmt.Fprintf(out, "Connected to %s.\n", s.endpoint)
	}
	fmt.Fprintln(out, "Type 'help' for commands.")
	for {
		fmt.Fprint(out, consolePrompt)
		line, ok := c.next(signalCtx)
		if !ok {
			fmt.Fprintln(out)
			return nil
		}
		quit, err := c.execute(signalCtx, line)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}
		if quit {
			return nil
		}
	}
}

// readLines feeds input lines to a channel that is closed at end of input or
// once ctx is done.
func readLines(ctx context.Context, in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}

func (c *console) next(ctx context.Context) (string, bool) {
	select {
	case <-ctx.Done():
		return "", false
	case line, ok := <-c.lines:
		return line, ok
	}
}

func (c *console) ask(ctx context.Context, question string) bool {
	fmt.Fprintf(c.out, "%s [y/N]: ", question)
	answer, ok := c.next(ctx)
	if !ok {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// execute runs one console line and reports whether the session should end.
func (c *console) execute(ctx context.Context, line string) (bool, error) {
	line = strings.TrimSpace(line)
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	verb := strings.ToLower(fields[0])
	args := fields[1:]
	rest := strings.TrimSpace(line[len(fields[0]):])

	switch verb {
	case "quit", "exit", "q":
		return true, nil
	case "help", "?":
		fmt.Fprintln(c.out, consoleHelp)
	case "status":
		lines := renderStatus(c.s.state.Snapshot(), c.s.endpoint, time.Now(), c.colorize)
		fmt.Fprintln(c.out, strings.Join(lines, "\n"))
	case "config":
		cfg, ok := c.s.state.Config()
		if !ok {
			return false, errConfigNotLoaded
		}
		fmt.Fprint(c.out, renderConfigTable(cfg, false))
	case "set":
		if len(args) == 0 {
			return false, errors.New("usage: set key=value...")
		}
		cfg, ok := c.s.state.Config()
		if !ok {
			return false, errConfigNotLoaded
		}
		if err := applyAssignments(&cfg, args); err != nil {
			return false, err
		}
		c.s.state.ReplaceConfig(cfg)
		fmt.Fprintln(c.out, "Working configuration updated; run 'save' to apply it.")
	case "save":
		cfg, ok := c.s.state.Config()
		if !ok {
			return false, errConfigNotLoaded
		}
		c.s.dispatch.SaveConfig(ctx, cfg)
	case "videos", "ls":
		cfg, _ := c.s.state.Config()
		fmt.Fprint(c.out, renderVideoTable(c.s.state.Videos(), cfg.ActiveSource()))
	case "upload":
		if len(args) == 0 || len(args) > 2 {
			return false, errors.New("usage: upload <file> [name]")
		}
		name := ""
		if len(args) == 2 {
			name = args[1]
		}
		file, name, err := openUpload(args[0], name)
		if err != nil {
			return false, err
		}
		defer file.Close()
		fmt.Fprintf(c.out, "Uploading %s...\n", name)
		// Failures are already in the activity log.
		_, _ = c.s.dispatch.UploadVideo(ctx, name, file)
	case "delete", "rm":
		if len(args) != 1 {
			return false, errors.New("usage: delete <name>")
		}
		if !c.ask(ctx, fmt.Sprintf("Delete %s from the service?", args[0])) {
			fmt.Fprintln(c.out, "Aborted")
			return false, nil
		}
		c.s.dispatch.DeleteVideo(ctx, args[0])
	case "select":
		if rest == "" {
			return false, errors.New("usage: select <path|name>")
		}
		if _, err := c.s.dispatch.SelectVideo(lookupVideoPath(c.s.state.Videos(), rest)); err != nil {
			if errors.Is(err, commands.ErrConfigNotLoaded) {
				return false, errConfigNotLoaded
			}
			return false, err
		}
	case "start":
		c.s.dispatch.Start(ctx)
	case "stop":
		c.s.dispatch.Stop(ctx)
	case "log":
		entries := c.s.activity.Entries()
		if len(entries) == 0 {
			fmt.Fprintln(c.out, "No activity yet")
		}
		for _, entry := range entries {
			fmt.Fprintln(c.out, entry)
		}
	default:
		return false, fmt.Errorf("unknown command %q (type 'help')", verb)
	}
	return false, nil
}

var errConfigNotLoaded = fmt.Errorf("%w; check 'status' for poll health", commands.ErrConfigNotLoaded)
