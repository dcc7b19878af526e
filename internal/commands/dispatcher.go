package commands

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path"
	"strings"

	"loopctl/internal/logging"
	"loopctl/internal/remote"
	"loopctl/internal/services"
)

// Activity messages written by the dispatcher.
const (
	msgConfigSaved         = "Configuration saved successfully."
	msgActiveSourceDeleted = "Warning: Deleted currently active video file."
)

// ErrConfigNotLoaded is returned when a verb needs the working configuration
// before it has loaded.
var ErrConfigNotLoaded = errors.New("configuration has not loaded yet")

// Remote is the write side of the service API.
type Remote interface {
	Start(ctx context.Context) (string, error)
	Stop(ctx context.Context) (string, error)
	SaveConfig(ctx context.Context, cfg remote.StreamConfig) (string, error)
	Upload(ctx context.Context, filename string, content io.Reader) (remote.UploadResult, error)
	DeleteVideo(ctx context.Context, filename string) error
}

// State is the part of the synchronizer the dispatcher reads and edits.
type State interface {
	RefreshStatus(ctx context.Context) error
	RefreshVideos(ctx context.Context) error
	Config() (remote.StreamConfig, bool)
	ReplaceConfig(cfg remote.StreamConfig)
	SetVideoFile(path *string) (remote.StreamConfig, bool)
	SetUploading(active bool)
}

// Recorder appends human-readable activity entries.
type Recorder interface {
	Append(message string) string
}

// Observer receives verb outcomes, typically for metrics.
type Observer interface {
	ObserveCommand(verb string, ok bool)
}

// Options configures a Dispatcher.
type Options struct {
	// RollbackFailedSave restores the previous working config when a save fails.
	RollbackFailedSave bool
	// ClearDeletedSource clears video_file when the active source is deleted.
	ClearDeletedSource bool
	Logger             *slog.Logger
	Observer           Observer
}

// Dispatcher executes operator commands.
type Dispatcher struct {
	remote   Remote
	state    State
	activity Recorder
	opts     Options
	logger   *slog.Logger
}

// New constructs a dispatcher.
func New(r Remote, state State, activity Recorder, opts Options) *Dispatcher {
	return &Dispatcher{
		remote:   r,
		state:    state,
		activity: activity,
		opts:     opts,
		logger:   logging.NewComponentLogger(opts.Logger, "commands"),
	}
}

// Start asks the service to begin streaming, then refreshes status.
func (d *Dispatcher) Start(ctx context.Context) bool {
	ctx = services.WithCommand(ctx, "start")
	msg, err := d.remote.Start(ctx)
	if err != nil {
		d.fail(ctx, "start", "Error starting stream: ", err)
		return false
	}
	d.succeed(ctx, "start", "Command: Start - "+msg)
	_ = d.state.RefreshStatus(ctx)
	return true
}

// Stop asks the service to stop streaming, then refreshes status.
func (d *Dispatcher) Stop(ctx context.Context) bool {
	ctx = services.WithCommand(ctx, "stop")
	msg, err := d.remote.Stop(ctx)
	if err != nil {
		d.fail(ctx, "stop", "Error stopping stream: ", err)
		return false
	}
	d.succeed(ctx, "stop", "Command: Stop - "+msg)
	_ = d.state.RefreshStatus(ctx)
	return true
}

// SaveConfig writes cfg to the working copy before sending it, so the local
// view reflects the edit even while the request is in flight. A rejected
// save leaves the edit in place unless RollbackFailedSave is set.
func (d *Dispatcher) SaveConfig(ctx context.Context, cfg remote.StreamConfig) bool {
	ctx = services.WithCommand(ctx, "save_config")
	previous, hadPrevious := d.state.Config()
	d.state.ReplaceConfig(cfg)

	if _, err := d.remote.SaveConfig(ctx, cfg); err != nil {
		prefix := "Error saving config: "
		if d.opts.RollbackFailedSave && hadPrevious {
			d.state.ReplaceConfig(previous)
			d.fail(ctx, "save_config", prefix, errWithSuffix{err, " (local changes reverted)"})
			return false
		}
		d.fail(ctx, "save_config", prefix, err)
		return false
	}
	d.succeed(ctx, "save_config", msgConfigSaved)
	return true
}

// UploadVideo streams content to the service as filename. The uploading flag
// is held for the duration of the call and released on every path. Failures
// are recorded and returned.
func (d *Dispatcher) UploadVideo(ctx context.Context, filename string, content io.Reader) (remote.UploadResult, error) {
	ctx = services.WithCommand(ctx, "upload")
	d.state.SetUploading(true)
	defer d.state.SetUploading(false)

	result, err := d.remote.Upload(ctx, filename, content)
	if err != nil {
		d.fail(ctx, "upload", "Upload failed: ", err)
		return result, err
	}
	d.succeed(ctx, "upload", "Upload: "+result.Text())
	_ = d.state.RefreshVideos(ctx)
	return result, nil
}

// DeleteVideo removes filename from the service's video directory. When the
// file is the active source a warning is recorded; the selection itself is
// kept unless ClearDeletedSource is set.
func (d *Dispatcher) DeleteVideo(ctx context.Context, filename string) bool {
	ctx = services.WithCommand(ctx, "delete")
	if err := d.remote.DeleteVideo(ctx, filename); err != nil {
		d.fail(ctx, "delete", "Error deleting video: ", err)
		return false
	}
	d.succeed(ctx, "delete", "Deleted video: "+filename)
	_ = d.state.RefreshVideos(ctx)

	if cfg, ok := d.state.Config(); ok && IsActiveSource(cfg.ActiveSource(), filename) {
		d.activity.Append(msgActiveSourceDeleted)
		logging.WarnWithContext(logging.WithContext(ctx, d.logger), "active video source deleted", "active_source_deleted",
			logging.String("video_file", cfg.ActiveSource()),
			logging.String(logging.FieldImpact, "the next stream start will fail until another source is selected"),
			logging.String(logging.FieldErrorHint, "select another video and save the configuration"),
		)
		if d.opts.ClearDeletedSource {
			d.state.SetVideoFile(nil)
		}
	}
	return true
}

// SelectVideo sets the working copy's video source. Nothing is sent to the
// service until the configuration is saved.
func (d *Dispatcher) SelectVideo(videoPath string) (remote.StreamConfig, error) {
	cfg, ok := d.state.SetVideoFile(remote.StringPtr(videoPath))
	if !ok {
		return remote.StreamConfig{}, ErrConfigNotLoaded
	}
	d.activity.Append("Selected video source: " + videoPath)
	d.logger.Debug("video source selected", logging.String("video_file", videoPath))
	return cfg, nil
}

// IsActiveSource reports whether videoFile refers to filename. The service
// stores sources as paths inside its video directory, so the base names are
// compared.
func IsActiveSource(videoFile, filename string) bool {
	if videoFile == "" || filename == "" {
		return false
	}
	normalized := strings.ReplaceAll(videoFile, `\`, "/")
	return videoFile == filename || path.Base(normalized) == filename
}

func (d *Dispatcher) succeed(ctx context.Context, verb, entry string) {
	d.activity.Append(entry)
	logging.WithContext(ctx, d.logger).Info("command succeeded", logging.String("outcome", entry))
	if d.opts.Observer != nil {
		d.opts.Observer.ObserveCommand(verb, true)
	}
}

func (d *Dispatcher) fail(ctx context.Context, verb, prefix string, err error) {
	d.activity.Append(prefix + err.Error())
	logging.WithContext(ctx, d.logger).Info("command failed", logging.Error(err))
	if d.opts.Observer != nil {
		d.opts.Observer.ObserveCommand(verb, false)
	}
}

type errWithSuffix struct {
	err    error
	suffix string
}

func (e errWithSuffix) Error() string { return e.err.Error() + e.suffix }

func (e errWithSuffix) Unwrap() error { return e.err }
