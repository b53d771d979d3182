package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/datacenter/wiper/internal/journal"
)

// HistoryOptions filters the journal listing.
type HistoryOptions struct {
	Target      string
	Limit       int
	JournalPath string
}

// History lists recorded provisioning runs, newest first.
func History(ctx context.Context, opts HistoryOptions) error {
	initLogging(false, false)

	path := opts.JournalPath
	if path == "" {
		path = defaultJournalPath()
	}
	j, err := openJournal(path)
	if err != nil {
		return fmt.Errorf("opening journal %s: %w", path, err)
	}
	defer j.Close()

	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}

	var entries []journal.Entry
	if opts.Target != "" {
		entries, err = j.ByTarget(ctx, opts.Target, limit)
	} else {
		entries, err = j.Recent(ctx, limit)
	}
	if err != nil {
		return fmt.Errorf("reading journal: %w", err)
	}

	if len(entries) == 0 {
		fmt.Println("No runs recorded yet.")
		return nil
	}

	printHistory(entries)
	return nil
}

// printHistory renders the entries as a fixed-width table, failures
// with their error on a second line.
func printHistory(entries []journal.Entry) {
	fmt.Printf("%-19s  %-28s  %-16s  %-6s  %-9s  %s\n",
		"STARTED", "TARGET", "STAGE", "RESULT", "DURATION", "TRANSCRIPT")
	for _, entry := range entries {
		result := "ok"
		if !entry.Success {
			result = "failed"
		}
		transcript := entry.ArchiveKey
		if transcript == "" && entry.TranscriptSize > 0 {
			transcript = fmt.Sprintf("%d bytes", entry.TranscriptSize)
		}
		fmt.Printf("%-19s  %-28s  %-16s  %-6s  %-9s  %s\n",
			entry.StartedAt.Format("2006-01-02 15:04:05"),
			entry.Target,
			entry.Stage,
			result,
			formatRunDuration(entry.DurationMS),
			transcript)
		if entry.Error != "" {
			fmt.Printf("%21s%s\n", "", truncate(entry.Error, 90))
		}
	}
}

func formatRunDuration(ms int64) string {
	return (time.Duration(ms) * time.Millisecond).Round(time.Second).String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
