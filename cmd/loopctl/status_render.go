package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"loopctl/internal/remote"
	"loopctl/internal/statesync"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 16
	statusIndent     = "  "
	timestampLayout  = "2006-01-02 15:04:05"
)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := statusKindLabel(kind)
	if message != "" {
		statusText = fmt.Sprintf("[%s] %s", statusText, message)
	} else {
		statusText = fmt.Sprintf("[%s]", statusText)
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + base + ansiReset
		}
	}
	return base
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		line = ansiBlue + line + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return []string{line, rule}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// runStatusKind maps the service's status string to a display severity.
func runStatusKind(status remote.RunStatus) statusKind {
	switch status.Status {
	case remote.StatusStreaming:
		return statusOK
	case remote.StatusConfigError:
		return statusError
	case remote.StatusStopping, remote.StatusFrozen, remote.StatusPaused:
		return statusWarn
	default:
		if status.Running {
			return statusOK
		}
		return statusInfo
	}
}

func formatTimestamp(ts remote.Timestamp) string {
	if ts.IsZero() {
		return ""
	}
	return ts.Local().Format(timestampLayout)
}

// restartCountdown describes the time left until the scheduled restart.
func restartCountdown(ts remote.Timestamp, now time.Time) string {
	if ts.IsZero() {
		return ""
	}
	remaining := ts.Sub(now).Round(time.Second)
	if remaining <= 0 {
		return formatTimestamp(ts) + " (due)"
	}
	return fmt.Sprintf("%s (in %s)", formatTimestamp(ts), remaining)
}

// streamSummary is the one-line status used by watch.
func streamSummary(snap statesync.Snapshot) string {
	if !snap.HasStatus {
		return "status unknown"
	}
	parts := []string{snap.Status.Status}
	if started := formatTimestamp(snap.Status.StartTime); started != "" {
		parts = append(parts, "since "+started)
	}
	if next := formatTimestamp(snap.Status.NextRestart); next != "" {
		parts = append(parts, "next restart "+next)
	}
	if snap.Uploading {
		parts = append(parts, "uploading")
	}
	return strings.Join(parts, ", ")
}

// renderStatus builds the full status report for a snapshot.
func renderStatus(snap statesync.Snapshot, endpointURL string, now time.Time, colorize bool) []string {
	lines := renderSectionHeader("Stream", colorize)
	lines = append(lines, renderStatusLine("Service", statusInfo, endpointURL, colorize))

	if snap.HasStatus {
		status := snap.Status
		lines = append(lines, renderStatusLine("State", runStatusKind(status), status.Status, colorize))
		lines = append(lines, renderStatusLine("Running", statusInfo, yesNo(status.Running), colorize))
		if started := formatTimestamp(status.StartTime); started != "" {
			lines = append(lines, renderStatusLine("Started", statusInfo, started, colorize))
		}
		if next := restartCountdown(status.NextRestart, now); next != "" {
			lines = append(lines, renderStatusLine("Next restart", statusInfo, next, colorize))
		}
	} else {
		lines = append(lines, renderStatusLine("State", statusError, "Unknown", colorize))
	}

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Configuration", colorize)...)
	if snap.HasConfig {
		profile := snap.Config.PerformanceProfile
		profileKind := statusInfo
		if !profile.Known() {
			profileKind = statusWarn
		}
		lines = append(lines, renderStatusLine("Profile", profileKind, profile.Label(), colorize))
		source := snap.Config.ActiveSource()
		if source == "" {
			lines = append(lines, renderStatusLine("Video source", statusWarn, "None selected", colorize))
		} else {
			lines = append(lines, renderStatusLine("Video source", statusInfo, source, colorize))
		}
	} else {
		lines = append(lines, renderStatusLine("Profile", statusWarn, "Unknown", colorize))
	}
	lines = append(lines, renderStatusLine("Videos", statusInfo, fmt.Sprintf("%d uploaded", len(snap.Videos)), colorize))
	if snap.Uploading {
		lines = append(lines, renderStatusLine("Upload", statusWarn, "In progress", colorize))
	}

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Polling", colorize)...)
	for _, slice := range []string{statesync.SliceStatus, statesync.SliceConfig, statesync.SliceVideos} {
		lines = append(lines, healthLine(slice, snap.Health[slice], colorize))
	}
	return lines
}

func healthLine(slice string, health statesync.Health, colorize bool) string {
	label := strings.ToUpper(slice[:1]) + slice[1:]
	switch {
	case health.Degraded():
		msg := fmt.Sprintf("%s (%d consecutive failures)", health.LastError, health.ConsecutiveFailures)
		if !health.LastSuccess.IsZero() {
			msg += ", last success " + health.LastSuccess.Local().Format(time.TimeOnly)
		}
		return renderStatusLine(label, statusError, msg, colorize)
	case health.LastSuccess.IsZero():
		return renderStatusLine(label, statusInfo, "Not fetched", colorize)
	default:
		return renderStatusLine(label, statusOK, "Updated "+health.LastSuccess.Local().Format(time.TimeOnly), colorize)
	}
}
