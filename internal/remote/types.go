package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Run status strings reported by the service.
const (
	StatusStopped     = "Stopped"
	StatusStreaming   = "Streaming"
	StatusStopping    = "Stopping..."
	StatusConfigError = "Config Error"
	StatusFrozen      = "Frozen (Restarting...)"
	StatusPaused      = "Paused (Upload Window)"
)

// PerformanceProfile selects the service's encoder preset.
type PerformanceProfile string

const (
	ProfileVPSOptimized PerformanceProfile = "vps_optimized"
	ProfileBalanced     PerformanceProfile = "balanced"
	ProfileHighQuality  PerformanceProfile = "high_quality"
)

// DefaultProfile is assumed whenever the service omits a profile.
const DefaultProfile = ProfileVPSOptimized

// Profiles lists the presets the service understands.
var Profiles = []PerformanceProfile{ProfileVPSOptimized, ProfileBalanced, ProfileHighQuality}

var profileLabels = map[PerformanceProfile]string{
	ProfileVPSOptimized: "VPS Optimized (4GB RAM / 4 vCPU)",
	ProfileBalanced:     "Balanced",
	ProfileHighQuality:  "High Quality",
}

// Known reports whether the service documents this profile.
func (p PerformanceProfile) Known() bool {
	_, ok := profileLabels[p]
	return ok
}

// Label returns a display name for the profile.
func (p PerformanceProfile) Label() string {
	if label, ok := profileLabels[p]; ok {
		return label
	}
	if p == "" {
		return "-"
	}
	return cases.Title(language.English).String(strings.ReplaceAll(string(p), "_", " "))
}

// Timestamp decodes the service's timestamps, which may be RFC 3339 or naive
// ISO-8601 local times. The zero value encodes as null.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		t.Time = time.Time{}
		return nil
	}
	if parsed, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		t.Time = parsed
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("timestamp: unrecognized format %q", raw)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format(time.RFC3339Nano))
}

// RunStatus is the service's view of the streaming process.
type RunStatus struct {
	Running     bool      `json:"running"`
	Status      string    `json:"status"`
	StartTime   Timestamp `json:"start_time"`
	NextRestart Timestamp `json:"next_restart"`
}

// StreamConfig is the service's stream configuration. Fields the client does
// not model are kept in Extra and sent back unchanged on save. Modelled keys
// the service omitted stay omitted on save until they are given a value.
type StreamConfig struct {
	StreamKey          string             `json:"stream_key"`
	RTMPURL            string             `json:"rtmp_url"`
	PerformanceProfile PerformanceProfile `json:"performance_profile"`
	StreamDuration     int                `json:"stream_duration"`
	UploadPause        int                `json:"upload_pause"`
	ChannelID          *string            `json:"channel_id"`
	VideoFile          *string            `json:"video_file"`

	Extra map[string]json.RawMessage `json:"-"`

	absent map[string]bool
}

type streamConfigFields StreamConfig

var knownConfigKeys = []string{
	"stream_key", "rtmp_url", "performance_profile", "stream_duration",
	"upload_pause", "channel_id", "video_file",
}

func (c *StreamConfig) UnmarshalJSON(data []byte) error {
	var fields streamConfigFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for _, key := range knownConfigKeys {
		if _, ok := all[key]; !ok {
			if fields.absent == nil {
				fields.absent = map[string]bool{}
			}
			fields.absent[key] = true
		}
		delete(all, key)
	}
	if len(all) > 0 {
		fields.Extra = all
	}
	*c = StreamConfig(fields)
	return nil
}

func (c StreamConfig) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(streamConfigFields(c))
	if err != nil || (len(c.Extra) == 0 && len(c.absent) == 0) {
		return data, err
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, err
	}
	for key := range c.absent {
		if c.unset(key) {
			delete(merged, key)
		}
	}
	for key, value := range c.Extra {
		if _, known := merged[key]; !known {
			merged[key] = value
		}
	}
	return json.Marshal(merged)
}

// Omitted reports whether the service did not send key and nothing has set it
// since.
func (c StreamConfig) Omitted(key string) bool {
	return c.absent[key] && c.unset(key)
}

func (c StreamConfig) unset(key string) bool {
	switch key {
	case "stream_key":
		return c.StreamKey == ""
	case "rtmp_url":
		return c.RTMPURL == ""
	case "performance_profile":
		return c.PerformanceProfile == ""
	case "stream_duration":
		return c.StreamDuration == 0
	case "upload_pause":
		return c.UploadPause == 0
	case "channel_id":
		return c.ChannelID == nil
	case "video_file":
		return c.VideoFile == nil
	}
	return false
}

// WithDefaults fills values the service may omit. Only the performance
// profile is defaulted.
func (c StreamConfig) WithDefaults() StreamConfig {
	if strings.TrimSpace(string(c.PerformanceProfile)) == "" {
		c.PerformanceProfile = DefaultProfile
	}
	return c
}

// Clone returns a deep copy so callers can edit without aliasing shared state.
func (c StreamConfig) Clone() StreamConfig {
	if c.ChannelID != nil {
		c.ChannelID = StringPtr(*c.ChannelID)
	}
	if c.VideoFile != nil {
		c.VideoFile = StringPtr(*c.VideoFile)
	}
	if c.Extra != nil {
		c.Extra = maps.Clone(c.Extra)
	}
	if c.absent != nil {
		c.absent = maps.Clone(c.absent)
	}
	return c
}

// ActiveSource returns the selected video path or "" when none is set.
func (c StreamConfig) ActiveSource() string {
	if c.VideoFile == nil {
		return ""
	}
	return *c.VideoFile
}

// StringPtr returns a pointer to a copy of s.
func StringPtr(s string) *string {
	return &s
}

// VideoFile is one entry of the service's video inventory.
type VideoFile struct {
	Name   string  `json:"name"`
	Path   string  `json:"path"`
	SizeMB float64 `json:"size_mb"`
}

// UploadResult is the service's answer to an upload. Older services reply
// with info and path instead of message.
type UploadResult struct {
	Message string `json:"message,omitempty"`
	Info    string `json:"info,omitempty"`
	Path    string `json:"path,omitempty"`
}

// Text returns the human-readable outcome.
func (r UploadResult) Text() string {
	if msg := strings.TrimSpace(r.Message); msg != "" {
		return msg
	}
	return strings.TrimSpace(r.Info)
}
