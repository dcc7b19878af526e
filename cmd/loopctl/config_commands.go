package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"loopctl/internal/config"
	"loopctl/internal/preflight"
	"loopctl/internal/remote"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and edit the stream configuration",
	}

	configCmd.AddCommand(newConfigShowCommand(ctx))
	configCmd.AddCommand(newConfigSetCommand(ctx))
	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand())

	return configCmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var reveal bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the service's stream configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(func(s *session) error {
				if err := s.state.RefreshConfig(cmd.Context()); err != nil {
					return fmt.Errorf("fetch config: %w", err)
				}
				cfg, _ := s.state.Config()
				if jsonOutput {
					return writeJSON(cmd, cfg)
				}
				fmt.Fprint(cmd.OutOrStdout(), renderConfigTable(cfg, reveal))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&reveal, "reveal", false, "Show the stream key unmasked")
	return cmd
}

func newConfigSetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set key=value...",
		Short: "Edit configuration keys and save them to the service",
		Long: "Fetch the current configuration, apply each key=value assignment, and save the result.\n" +
			"An empty value clears channel_id or video_file. Known keys: " + strings.Join(configKeys(), ", "),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(func(s *session) error {
				if err := s.state.RefreshConfig(cmd.Context()); err != nil {
					return fmt.Errorf("fetch config: %w", err)
				}
				cfg, _ := s.state.Config()
				if err := applyAssignments(&cfg, args); err != nil {
					return err
				}
				return s.runVerb(cmd, func() bool { return s.dispatch.SaveConfig(cmd.Context(), cfg) })
			})
		},
	}
}

func applyAssignments(cfg *remote.StreamConfig, args []string) error {
	for _, arg := range args {
		key, value, err := remote.ParseAssignment(arg)
		if err != nil {
			return err
		}
		if err := cfg.SetField(key, value); err != nil {
			return err
		}
	}
	return nil
}

func configKeys() []string {
	fields := remote.StreamConfig{}.Fields()
	keys := make([]string, 0, len(fields))
	for _, field := range fields {
		keys = append(keys, field.Key)
	}
	return keys
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample loopctl configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Set [remote] mode and host (or base_url) to point loopctl at your stream service.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	var skipService bool
	cmd := &cobra.Command{
		Use:         "validate",
		Short:       "Validate the loopctl configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			out := cmd.OutOrStdout()
			if ctx.configPath != "" {
				fmt.Fprintf(out, "Config path: %s\n", ctx.configPath)
			}
			if !ctx.configExists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			fmt.Fprintf(out, "Remote mode: %s\n", cfg.Remote.Mode)

			var prober preflight.StatusProber
			if !skipService {
				s, err := ctx.ensureSession()
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Service endpoint: %s\n", s.endpoint)
				prober = s.api
			}
			colorize := shouldColorize(out)
			results := preflight.RunAll(cmd.Context(), cfg, prober)
			for _, result := range results {
				kind := statusOK
				if !result.Passed {
					kind = statusWarn
				}
				fmt.Fprintln(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
	cmd.Flags().BoolVar(&skipService, "offline", false, "Skip the service reachability check")
	return cmd
}
