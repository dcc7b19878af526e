package statesync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"loopctl/internal/config"
	"loopctl/internal/logging"
	"loopctl/internal/remote"
	"loopctl/internal/services"
)

// Slice names for the independently refreshed parts of remote state.
const (
	SliceStatus = "status"
	SliceConfig = "config"
	SliceVideos = "videos"
)

// DefaultInterval is the poll cadence for status and videos.
const DefaultInterval = 2000 * time.Millisecond

var (
	// ErrStopped is returned by Start after Stop.
	ErrStopped = errors.New("synchronizer stopped")
	// ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("synchronizer already started")
)

// Remote is the read side of the service API.
type Remote interface {
	Status(ctx context.Context) (remote.RunStatus, error)
	Config(ctx context.Context) (remote.StreamConfig, error)
	Videos(ctx context.Context) ([]remote.VideoFile, error)
}

// Observer receives refresh outcomes, typically for metrics.
type Observer interface {
	ObservePoll(slice string, err error, elapsed time.Duration)
	ObserveStatus(status remote.RunStatus)
	ObserveUploading(active bool)
}

// Ordering decides which of several overlapping successful refreshes of one
// slice wins.
type Ordering int

const (
	// LastResolved applies every successful response in arrival order.
	LastResolved Ordering = iota
	// LastIssued drops a response when a newer request for the same slice
	// already landed.
	LastIssued
)

// ParseOrdering maps a config value to an Ordering.
func ParseOrdering(value string) (Ordering, error) {
	switch value {
	case "", config.OrderingLastResolved:
		return LastResolved, nil
	case config.OrderingLastIssued:
		return LastIssued, nil
	default:
		return LastResolved, fmt.Errorf("unknown ordering %q", value)
	}
}

// Options configures a Synchronizer.
type Options struct {
	Interval time.Duration
	Ordering Ordering
	Logger   *slog.Logger
	Observer Observer
	Now      func() time.Time
}

// Synchronizer owns the local copy of remote state. All slices are replaced
// wholesale on successful refresh and left untouched on failure. It is safe
// for concurrent use.
type Synchronizer struct {
	remote   Remote
	interval time.Duration
	ordering Ordering
	logger   *slog.Logger
	observer Observer
	now      func() time.Time

	mu        sync.Mutex
	status    remote.RunStatus
	hasStatus bool
	config    remote.StreamConfig
	hasConfig bool
	videos    []remote.VideoFile
	uploading bool
	issued    map[string]uint64
	applied   map[string]uint64
	health    map[string]*Health

	started  bool
	stopped  bool
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
	inflight sync.WaitGroup
	changes  chan struct{}
	loaded   chan struct{}
}

// New constructs a synchronizer reading from r.
func New(r Remote, opts Options) *Synchronizer {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Synchronizer{
		remote:   r,
		interval: opts.Interval,
		ordering: opts.Ordering,
		logger:   logging.NewComponentLogger(opts.Logger, "statesync"),
		observer: opts.Observer,
		now:      opts.Now,
		issued:   make(map[string]uint64),
		applied:  make(map[string]uint64),
		health:   make(map[string]*Health),
		changes:  make(chan struct{}, 1),
		loaded:   make(chan struct{}),
	}
}

// Start performs one refresh of every slice and then polls status and videos
// every interval until Stop is called or ctx ends. Configuration is never
// polled. Start returns immediately.
func (s *Synchronizer) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ErrStopped
	}
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.mu.Unlock()

	go s.run(loopCtx)
	return nil
}

// Stop disarms the poll timer, cancels in-flight refreshes, and waits for
// them to return. It is safe to call more than once.
func (s *Synchronizer) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopped = true
		cancel, done := s.cancel, s.done
		s.mu.Unlock()
		if cancel == nil {
			return
		}
		cancel()
		<-done
		s.logger.Debug("poll loop stopped")
	})
}

func (s *Synchronizer) run(ctx context.Context) {
	defer close(s.done)
	defer s.inflight.Wait()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.spawn(func() {
		_ = s.Load(ctx)
		close(s.loaded)
	})
	s.logger.Debug("poll loop started", logging.Duration("interval", s.interval))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.spawn(func() { _ = s.RefreshStatus(ctx) })
			s.spawn(func() { _ = s.RefreshVideos(ctx) })
		}
	}
}

// spawn runs fn without waiting for earlier ticks, so a slow response can
// overlap the next poll.
func (s *Synchronizer) spawn(fn func()) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		fn()
	}()
}

// Load refreshes every slice concurrently and returns the first failure.
// All three requests run to completion regardless of individual failures.
func (s *Synchronizer) Load(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error { return s.RefreshStatus(ctx) })
	g.Go(func() error { return s.RefreshConfig(ctx) })
	g.Go(func() error { return s.RefreshVideos(ctx) })
	return g.Wait()
}

// RefreshStatus fetches run status. Failure leaves the previous value in place.
func (s *Synchronizer) RefreshStatus(ctx context.Context) error {
	seq := s.issue(SliceStatus)
	started := s.now()
	status, err := s.remote.Status(services.WithSlice(ctx, SliceStatus))
	s.record(ctx, SliceStatus, err, started)
	if err != nil {
		return err
	}

	s.mu.Lock()
	applied := s.acceptLocked(SliceStatus, seq)
	if applied {
		s.status = status
		s.hasStatus = true
	}
	s.mu.Unlock()

	if applied {
		if s.observer != nil {
			s.observer.ObserveStatus(status)
		}
		s.notify()
	}
	return nil
}

// RefreshConfig fetches the stream configuration and fills the default
// performance profile when the service omits it.
func (s *Synchronizer) RefreshConfig(ctx context.Context) error {
	seq := s.issue(SliceConfig)
	started := s.now()
	cfg, err := s.remote.Config(services.WithSlice(ctx, SliceConfig))
	s.record(ctx, SliceConfig, err, started)
	if err != nil {
		return err
	}
	cfg = cfg.WithDefaults()

	s.mu.Lock()
	applied := s.acceptLocked(SliceConfig, seq)
	if applied {
		s.config = cfg
		s.hasConfig = true
	}
	s.mu.Unlock()

	if applied {
		s.notify()
	}
	return nil
}

// RefreshVideos fetches the video inventory.
func (s *Synchronizer) RefreshVideos(ctx context.Context) error {
	seq := s.issue(SliceVideos)
	started := s.now()
	videos, err := s.remote.Videos(services.WithSlice(ctx, SliceVideos))
	s.record(ctx, SliceVideos, err, started)
	if err != nil {
		return err
	}

	s.mu.Lock()
	applied := s.acceptLocked(SliceVideos, seq)
	if applied {
		s.videos = slices.Clone(videos)
	}
	s.mu.Unlock()

	if applied {
		s.notify()
	}
	return nil
}

func (s *Synchronizer) issue(slice string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued[slice]++
	return s.issued[slice]
}

// acceptLocked applies the ordering policy for a successful response.
func (s *Synchronizer) acceptLocked(slice string, seq uint64) bool {
	if s.ordering == LastIssued && seq < s.applied[slice] {
		s.logger.Debug("dropped stale response",
			logging.String(logging.FieldSlice, slice),
			logging.Int64("seq", int64(seq)),
			logging.Int64("applied_seq", int64(s.applied[slice])),
		)
		return false
	}
	if seq > s.applied[slice] {
		s.applied[slice] = seq
	}
	return true
}

// record updates poll health. Failures never reach the activity log.
func (s *Synchronizer) record(ctx context.Context, slice string, err error, started time.Time) {
	now := s.now()
	elapsed := now.Sub(started)
	if s.observer != nil {
		s.observer.ObservePoll(slice, err, elapsed)
	}
	if errors.Is(err, context.Canceled) {
		return
	}

	s.mu.Lock()
	h := s.health[slice]
	if h == nil {
		h = &Health{}
		s.health[slice] = h
	}
	wasDegraded := h.Degraded()
	if err != nil {
		h.LastFailure = now
		h.LastError = err.Error()
		h.ConsecutiveFailures++
	} else {
		h.LastSuccess = now
		h.ConsecutiveFailures = 0
	}
	failures := h.ConsecutiveFailures
	s.mu.Unlock()

	logger := logging.WithContext(services.WithSlice(ctx, slice), s.logger)
	switch {
	case err != nil && !wasDegraded:
		logging.WarnWithContext(logger, "refresh failed", "poll_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, slice+" shows the last known value"),
		)
	case err != nil:
		logger.Debug("refresh still failing", logging.Error(err), logging.Int("consecutive_failures", failures))
	case wasDegraded:
		logger.Info("refresh recovered", logging.Duration("elapsed", elapsed))
	}
}

func (s *Synchronizer) notify() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}

// Loaded is closed once the initial load started by Start has finished,
// whether or not every slice succeeded.
func (s *Synchronizer) Loaded() <-chan struct{} {
	return s.loaded
}

// Changes signals, without blocking the writer, whenever state changes.
// Multiple changes between reads coalesce into one signal.
func (s *Synchronizer) Changes() <-chan struct{} {
	return s.changes
}
