package remote

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Field is one displayable configuration key.
type Field struct {
	Key   string
	Value string
}

// Fields lists the configuration in a stable display order, modelled keys
// first and then any extra keys the service sent.
func (c StreamConfig) Fields() []Field {
	fields := []Field{
		{"stream_key", c.StreamKey},
		{"rtmp_url", c.RTMPURL},
		{"performance_profile", string(c.PerformanceProfile)},
		{"stream_duration", c.seconds("stream_duration", c.StreamDuration)},
		{"upload_pause", c.seconds("upload_pause", c.UploadPause)},
		{"channel_id", optional(c.ChannelID)},
		{"video_file", optional(c.VideoFile)},
	}
	keys := make([]string, 0, len(c.Extra))
	for key := range c.Extra {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		fields = append(fields, Field{Key: key, Value: string(c.Extra[key])})
	}
	return fields
}

func (c StreamConfig) seconds(key string, value int) string {
	if c.Omitted(key) {
		return ""
	}
	return strconv.Itoa(value)
}

func optional(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

// SetField edits one key of the working copy. Values are parsed for type only;
// whether they make sense is for the service to decide. An empty value clears
// the nullable keys channel_id and video_file. A numeric or text key set here
// is sent on save even when its value is zero; clearing a nullable key the
// service never sent keeps it omitted.
func (c *StreamConfig) SetField(key, value string) error {
	key = strings.ToLower(strings.TrimSpace(key))
	switch key {
	case "profile":
		key = "performance_profile"
	case "duration":
		key = "stream_duration"
	}
	if err := c.setField(key, value); err != nil {
		return err
	}
	if key != "channel_id" && key != "video_file" {
		delete(c.absent, key)
	}
	return nil
}

func (c *StreamConfig) setField(key, value string) error {
	switch key {
	case "stream_key":
		c.StreamKey = value
	case "rtmp_url":
		c.RTMPURL = strings.TrimSpace(value)
	case "performance_profile":
		c.PerformanceProfile = PerformanceProfile(strings.TrimSpace(value))
	case "stream_duration":
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%s: expected whole seconds, got %q", key, value)
		}
		c.StreamDuration = n
	case "upload_pause":
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%s: expected whole seconds, got %q", key, value)
		}
		c.UploadPause = n
	case "channel_id":
		c.ChannelID = nullable(value)
	case "video_file":
		c.VideoFile = nullable(value)
	default:
		if _, ok := c.Extra[key]; !ok {
			return fmt.Errorf("unknown configuration key %q", key)
		}
		raw := json.RawMessage(value)
		if !json.Valid(raw) {
			encoded, err := json.Marshal(value)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			raw = encoded
		}
		c.Extra[key] = raw
	}
	return nil
}

func nullable(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return StringPtr(value)
}

// ParseAssignment splits "key=value".
func ParseAssignment(arg string) (string, string, error) {
	key, value, ok := strings.Cut(arg, "=")
	if !ok || strings.TrimSpace(key) == "" {
		return "", "", fmt.Errorf("expected key=value, got %q", arg)
	}
	return strings.TrimSpace(key), value, nil
}
