// Package cli renders command output for emotags.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/emotags/internal/applier"
	"github.com/hyperjump/emotags/internal/models"
	"github.com/hyperjump/emotags/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputCompact is one line per rename.
	OutputCompact OutputFormat = "compact"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// titleWidth caps titles in text tables.
const titleWidth = 48

// ParseOutputFormat validates s.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case OutputText, OutputCompact, OutputJSON:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q; use text, compact, or json", s)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteReport writes the result of an apply or strip run.
func WriteReport(w io.Writer, report *applier.Report, format OutputFormat) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, report)
	case OutputCompact:
		for _, c := range report.Changes {
			fmt.Fprintf(w, "%s\t%s\n", c.OldTitle, c.NewTitle)
		}
		for _, f := range report.Failures {
			fmt.Fprintf(w, "!%s\t%s\n", f.Path, f.Error)
		}
		return nil
	default:
		writeReportText(w, report)
		return nil
	}
}

func writeReportText(w io.Writer, report *applier.Report) {
	verb := "renamed"
	if report.DryRun {
		verb = "would rename"
	}
	fmt.Fprintf(w, "%s: scanned %d notes in %dms, %s %d, unchanged %d, skipped %d, failed %d\n",
		report.Operation, report.Scanned, report.DurationMS, verb, report.Renamed,
		report.Unchanged, len(report.Skipped), len(report.Failures))
	if report.Canceled {
		fmt.Fprintln(w, "run was canceled before all notes were processed")
	}
	if len(report.Changes) > 0 {
		width := 0
		for _, c := range report.Changes {
			if cw := utils.Width(utils.Truncate(c.OldTitle, titleWidth)); cw > width {
				width = cw
			}
		}
		fmt.Fprintln(w)
		for _, c := range report.Changes {
			fmt.Fprintf(w, "  %s  ->  %s\n",
				utils.PadRight(utils.Truncate(c.OldTitle, titleWidth), width),
				utils.Truncate(c.NewTitle, titleWidth))
		}
	}
	if len(report.Skipped) > 0 {
		fmt.Fprintln(w, "\nskipped:")
		for _, s := range report.Skipped {
			fmt.Fprintf(w, "  %s (%s)\n", s.Path, s.Reason)
		}
	}
	if len(report.Failures) > 0 {
		fmt.Fprintln(w, "\nfailed:")
		for _, f := range report.Failures {
			fmt.Fprintf(w, "  %s: %s\n", f.Path, f.Error)
		}
	}
}

// WriteDecision writes the decision for one title.
func WriteDecision(w io.Writer, d *models.Decision, format OutputFormat) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, d)
	case OutputCompact:
		if d.NewTitle != "" {
			fmt.Fprintln(w, d.NewTitle)
		} else {
			fmt.Fprintln(w, d.Title)
		}
		return nil
	default:
		if d.Header != "" {
			fmt.Fprintf(w, "header: %s\n", d.Header)
		}
		fmt.Fprintf(w, "emoji:  %s\n", strings.Join(d.Emoji, " "))
		if d.NewTitle == "" {
			fmt.Fprintf(w, "action: %s (%q stays)\n", d.Action, d.Title)
		} else {
			fmt.Fprintf(w, "action: %s %q -> %q\n", d.Action, d.Title, d.NewTitle)
		}
		return nil
	}
}

// WriteRenames writes a page of the rename journal.
func WriteRenames(w io.Writer, page *models.RenamesPage, format OutputFormat) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, page)
	case OutputCompact:
		for _, r := range page.Renames {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
				r.Operation, r.Status, r.OldTitle, r.NewTitle)
		}
		return nil
	default:
		fmt.Fprintf(w, "showing %d of %d renames (offset %d)\n", len(page.Renames), page.Total, page.Offset)
		width := 0
		for _, r := range page.Renames {
			if cw := utils.Width(utils.Truncate(r.OldTitle, titleWidth)); cw > width {
				width = cw
			}
		}
		for _, r := range page.Renames {
			line := fmt.Sprintf("%s  %-5s  %-7s  %s  ->  %s",
				r.CreatedAt.Local().Format("2006-01-02 15:04:05"), r.Operation, r.Status,
				utils.PadRight(utils.Truncate(r.OldTitle, titleWidth), width),
				utils.Truncate(r.NewTitle, titleWidth))
			if r.Error != "" {
				line += "  (" + r.Error + ")"
			}
			fmt.Fprintln(w, line)
		}
		return nil
	}
}

// WriteStatus writes the server or vault status.
func WriteStatus(w io.Writer, status *models.Status, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, status)
	}
	fmt.Fprintf(w, "notes:              %d   # notes in the watched directories\n", status.Notes)
	fmt.Fprintf(w, "renames:            %d   # journal entries\n", status.Renames)
	fmt.Fprintf(w, "failed_renames:     %d\n", status.FailedRenames)
	if status.DiskUsageBytes != nil {
		fmt.Fprintf(w, "disk_usage_bytes:   %d   # journal on disk\n", *status.DiskUsageBytes)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "# directories")
	for _, d := range status.Directories {
		fmt.Fprintln(w, d)
	}
	if c := status.Config; c != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "# configuration")
		if c.DatabasePath != "" {
			fmt.Fprintf(w, "database_path:      %s\n", c.DatabasePath)
		}
		fmt.Fprintf(w, "extensions:         %s\n", strings.Join(c.Extensions, " "))
		fmt.Fprintf(w, "recursive:          %t\n", c.Recursive)
		if c.DebounceMS > 0 {
			fmt.Fprintf(w, "debounce_ms:        %d\n", c.DebounceMS)
		}
	}
	return nil
}
