package main

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"loopctl/internal/commands"
	"loopctl/internal/remote"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range columns {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render() + "\n"
}

// renderVideoTable lists the inventory, marking the active source.
func renderVideoTable(videos []remote.VideoFile, activeSource string) string {
	if len(videos) == 0 {
		return "No videos uploaded\n"
	}
	rows := make([][]string, 0, len(videos))
	for _, video := range videos {
		marker := ""
		if commands.IsActiveSource(activeSource, video.Name) {
			marker = "*"
		}
		rows = append(rows, []string{marker, video.Name, fmt.Sprintf("%.2f", video.SizeMB), video.Path})
	}
	return renderTable(
		[]string{"", "Name", "Size (MB)", "Path"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
	)
}

// renderConfigTable lists configuration keys. The stream key is masked unless
// reveal is set.
func renderConfigTable(cfg remote.StreamConfig, reveal bool) string {
	fields := cfg.Fields()
	rows := make([][]string, 0, len(fields))
	for _, field := range fields {
		value := field.Value
		switch {
		case field.Key == "stream_key" && !reveal:
			value = maskSecret(value)
		case field.Key == "performance_profile":
			value = fmt.Sprintf("%s (%s)", value, remote.PerformanceProfile(value).Label())
		case value == "":
			value = "-"
		}
		rows = append(rows, []string{field.Key, value})
	}
	return renderTable([]string{"Key", "Value"}, rows, nil)
}

func maskSecret(value string) string {
	if value == "" {
		return "-"
	}
	if len(value) <= 4 {
		return strings.Repeat("*", len(value))
	}
	return strings.Repeat("*", len(value)-4) + value[len(value)-4:]
}
