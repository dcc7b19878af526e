package statesync

import (
	"slices"
	"time"

	"loopctl/internal/remote"
)

// Health summarizes recent refresh outcomes for one slice.
type Health struct {
	LastSuccess         time.Time
	LastFailure         time.Time
	LastError           string
	ConsecutiveFailures int
}

// Degraded reports whether the most recent refresh failed.
func (h Health) Degraded() bool {
	return h.ConsecutiveFailures > 0
}

// Snapshot is a consistent copy of every slice.
type Snapshot struct {
	Status    remote.RunStatus
	HasStatus bool
	Config    remote.StreamConfig
	HasConfig bool
	Videos    []remote.VideoFile
	Uploading bool
	Health    map[string]Health
}

// Status returns the last run status and whether one has arrived yet.
func (s *Synchronizer) Status() (remote.RunStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status, s.hasStatus
}

// Config returns a copy of the working configuration and whether it has
// loaded yet.
func (s *Synchronizer) Config() (remote.StreamConfig, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config.Clone(), s.hasConfig
}

// Videos returns a copy of the last inventory. It is empty until the first
// successful refresh.
func (s *Synchronizer) Videos() []remote.VideoFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.videos)
}

// Uploading reports whether an upload is in flight.
func (s *Synchronizer) Uploading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uploading
}

// Health returns refresh health for slice.
func (s *Synchronizer) Health(slice string) Health {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h := s.health[slice]; h != nil {
		return *h
	}
	return Health{}
}

// Snapshot returns a consistent copy of all state.
func (s *Synchronizer) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	health := make(map[string]Health, len(s.health))
	for slice, h := range s.health {
		health[slice] = *h
	}
	return Snapshot{
		Status:    s.status,
		HasStatus: s.hasStatus,
		Config:    s.config.Clone(),
		HasConfig: s.hasConfig,
		Videos:    slices.Clone(s.videos),
		Uploading: s.uploading,
		Health:    health,
	}
}

// ReplaceConfig overwrites the working configuration. A local write counts
// as the newest configuration, so under LastIssued ordering it is not undone
// by a refresh issued before it.
func (s *Synchronizer) ReplaceConfig(cfg remote.StreamConfig) {
	s.mu.Lock()
	s.config = cfg.Clone()
	s.hasConfig = true
	s.bumpLocked(SliceConfig)
	s.mu.Unlock()
	s.notify()
}

// SetVideoFile sets the selected source on the working configuration and
// returns the updated copy. Nothing is sent to the service. It reports false
// and changes nothing when no configuration has loaded, since a blank working
// copy would overwrite the service's settings on the next save.
func (s *Synchronizer) SetVideoFile(path *string) (remote.StreamConfig, bool) {
	s.mu.Lock()
	if !s.hasConfig {
		s.mu.Unlock()
		return remote.StreamConfig{}, false
	}
	if path != nil {
		path = remote.StringPtr(*path)
	}
	s.config.VideoFile = path
	s.bumpLocked(SliceConfig)
	cfg := s.config.Clone()
	s.mu.Unlock()
	s.notify()
	return cfg, true
}

// SetUploading sets the advisory upload flag.
func (s *Synchronizer) SetUploading(active bool) {
	s.mu.Lock()
	s.uploading = active
	s.mu.Unlock()
	if s.observer != nil {
		s.observer.ObserveUploading(active)
	}
	s.notify()
}

func (s *Synchronizer) bumpLocked(slice string) {
	s.issued[slice]++
	s.applied[slice] = s.issued[slice]
}
