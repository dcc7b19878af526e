package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"loopctl/internal/config"
	"loopctl/internal/preflight"
	"loopctl/internal/remote"
)

func newVideosCommand(ctx *commandContext) *cobra.Command {
	videosCmd := &cobra.Command{
		Use:     "videos",
		Aliases: []string{"video"},
		Short:   "Manage uploaded videos and the active source",
	}

	videosCmd.AddCommand(newVideosListCommand(ctx))
	videosCmd.AddCommand(newVideosUploadCommand(ctx))
	videosCmd.AddCommand(newVideosDeleteCommand(ctx))
	videosCmd.AddCommand(newVideosSelectCommand(ctx))

	return videosCmd
}

func newVideosListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List uploaded videos",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(func(s *session) error {
				if err := s.state.RefreshVideos(cmd.Context()); err != nil {
					return fmt.Errorf("fetch videos: %w", err)
				}
				videos := s.state.Videos()
				if jsonOutput {
					return writeJSON(cmd, videos)
				}
				// The marker column is best effort; a config failure only hides it.
				_ = s.state.RefreshConfig(cmd.Context())
				cfg, _ := s.state.Config()
				fmt.Fprint(cmd.OutOrStdout(), renderVideoTable(videos, cfg.ActiveSource()))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newVideosUploadCommand(ctx *commandContext) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a local video file to the service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(func(s *session) error {
				return uploadFile(cmd, s, args[0], name)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "File name to store on the service (defaults to the local base name)")
	return cmd
}

// uploadFile streams a local file to the service.
func uploadFile(cmd *cobra.Command, s *session, path, name string) error {
	file, name, err := openUpload(path, name)
	if err != nil {
		return err
	}
	defer file.Close()

	return s.runVerb(cmd, func() bool {
		_, err := s.dispatch.UploadVideo(cmd.Context(), name, file)
		return err == nil
	})
}

// openUpload checks that path is a readable regular file and opens it. The
// stored name defaults to the local base name.
func openUpload(path, name string) (*os.File, string, error) {
	path, err := config.ExpandPath(strings.TrimSpace(path))
	if err != nil {
		return nil, "", err
	}
	if check := preflight.CheckUploadSource(path); !check.Passed {
		return nil, "", errors.New(check.Detail)
	}
	if strings.TrimSpace(name) == "" {
		name = filepath.Base(path)
	}
	if err := remote.ValidateVideoName(name); err != nil {
		return nil, "", err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %w", path, err)
	}
	return file, name, nil
}

func newVideosDeleteCommand(ctx *commandContext) *cobra.Command {
	var assumeYes bool
	cmd := &cobra.Command{
		Use:     "delete <name>",
		Aliases: []string{"rm"},
		Short:   "Delete a video from the service",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.TrimSpace(args[0])
			if !assumeYes {
				confirmed, err := confirm(cmd.InOrStdin(), cmd.OutOrStdout(), fmt.Sprintf("Delete %s from the service?", name))
				if err != nil {
					return err
				}
				if !confirmed {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted")
					return nil
				}
			}
			return ctx.withSession(func(s *session) error {
				// Needed to detect deletion of the active source.
				_ = s.state.RefreshConfig(cmd.Context())
				return s.runVerb(cmd, func() bool { return s.dispatch.DeleteVideo(cmd.Context(), name) })
			})
		},
	}
	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func newVideosSelectCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "select <path>",
		Short: "Select the active video source and save the configuration",
		Long: `Select the video the service streams. Pass a service-side path, or a bare
name from 'loopctl videos list' to use that video's path. The selection is
saved immediately.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(func(s *session) error {
				if err := s.state.RefreshConfig(cmd.Context()); err != nil {
					return fmt.Errorf("fetch config: %w", err)
				}
				videoPath := resolveVideoPath(cmd.Context(), s, strings.TrimSpace(args[0]))
				var selectErr error
				err := s.runVerb(cmd, func() bool {
					cfg, err := s.dispatch.SelectVideo(videoPath)
					if err != nil {
						selectErr = err
						return false
					}
					return s.dispatch.SaveConfig(cmd.Context(), cfg)
				})
				if selectErr != nil {
					return selectErr
				}
				return err
			})
		},
	}
}

// resolveVideoPath refreshes the inventory and maps a bare name to its
// service-side path.
func resolveVideoPath(ctx context.Context, s *session, arg string) string {
	if !strings.ContainsAny(arg, `/\`) {
		_ = s.state.RefreshVideos(ctx)
	}
	return lookupVideoPath(s.state.Videos(), arg)
}

// lookupVideoPath returns the path of the inventory entry named arg. Anything
// that is not a known bare name is used as given.
func lookupVideoPath(videos []remote.VideoFile, arg string) string {
	if strings.ContainsAny(arg, `/\`) {
		return arg
	}
	for _, video := range videos {
		if video.Name == arg && video.Path != "" {
			return video.Path
		}
	}
	return arg
}

// confirm asks a yes/no question on out and reads the answer from in.
func confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	fmt.Fprintf(out, "%s [y/N]: ", question)
	reader := bufio.NewReader(in)
	answer, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("read confirmation: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
