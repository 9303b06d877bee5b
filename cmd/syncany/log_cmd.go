package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/syncany/syncany-go/internal/daemonsdk"
	"github.com/syncany/syncany-go/internal/history"
)

const defaultRequestTimeout = 30 * time.Second

type logOptions struct {
	root      string
	pages     int
	highlight string
	timeout   time.Duration
	encoding  string
}

func init() {
	rootCmd.AddCommand(newLogCmd())
}

func newLogCmd() *cobra.Command {
	var opts logOptions

	logCmd := &cobra.Command{
		Use:   "log",
		Short: "Show the version history of a watched folder",
		RunE: func(cmd *cobra.Command, args []string) error {
			sdk, cfg, err := newSDK(cmd)
			if err != nil {
				return err
			}
			defer sdk.Close()
			cmd.SilenceUsage = true

			ctx := cmd.Context()
			if err := connectEvents(ctx, sdk, opts.encoding); err != nil {
				return err
			}

			bus := daemonsdk.NewLogBus(sdk.Events)
			busCtx, stopBus := context.WithCancel(ctx)
			defer stopBus()
			go bus.Run(busCtx)

			session, err := history.NewSession(cfg.Window(), bus, history.WithTimeout(opts.timeout))
			if err != nil {
				return err
			}
			defer session.Close()
			bus.Attach(session)

			return connectionError(sdk, runLog(ctx, cmd.OutOrStdout(), bus, session, opts))
		},
	}

	logCmd.Flags().StringVarP(&opts.root, "root", "r", "", "Watched folder, the first one when empty")
	logCmd.Flags().IntVarP(&opts.pages, "pages", "n", 1, "Number of windows to load, 0 loads all")
	logCmd.Flags().StringVar(&opts.highlight, "highlight", "", "Highlight the version of this date (RFC3339), the latest when empty")
	logCmd.Flags().DurationVar(&opts.timeout, "timeout", defaultRequestTimeout, "Timeout per log request")
	logCmd.Flags().StringVar(&opts.encoding, "encoding", "", "Socket encodings to offer (msgpack,json), json forces text frames")

	return logCmd
}

// runLog selects a root and a date through the model, loads up to opts.pages
// windows through the session and prints the result.
func runLog(ctx context.Context, w io.Writer, bus *daemonsdk.LogBus, session *history.Session, opts logOptions) error {
	model := history.NewModel()

	watches, err := bus.ListWatches(ctx)
	if err != nil {
		return fmt.Errorf("list watches: %w", err)
	}
	root := model.SetWatches(historyWatches(watches))
	if opts.root != "" {
		if err := model.SelectRoot(opts.root); err != nil {
			return fmt.Errorf("%w: %s", err, opts.root)
		}
		root = opts.root
	}
	if root == "" {
		fmt.Fprintln(w, gray.Render("no watched folders"))
		return nil
	}

	headers, err := bus.Headers(ctx, root)
	if err != nil {
		return fmt.Errorf("version headers: %w", err)
	}
	dates := make([]time.Time, 0, len(headers))
	for _, h := range headers {
		dates = append(dates, h.Date)
	}
	selected, _ := model.SetHeaders(root, dates)
	if opts.highlight != "" {
		selected, err = time.Parse(time.RFC3339, opts.highlight)
		if err != nil {
			return fmt.Errorf("highlight date: %w", err)
		}
	}

	if _, err := session.RequestPage(ctx, root, 0); err != nil {
		return err
	}

	var (
		entries []history.VersionEntry
		hasMore bool
		pages   int
	)
	for done := false; !done; {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case u, ok := <-session.Updates():
			if !ok {
				return history.ErrSessionClosed
			}
			switch u.Kind {
			case history.UpdateFailed:
				return u.Err
			case history.UpdateSnapshot:
				entries, hasMore = u.Entries, u.HasMore
				pages++
				if !hasMore || (opts.pages > 0 && pages >= opts.pages) {
					done = true
					continue
				}
				if _, err := session.LoadMore(ctx); err != nil {
					return err
				}
			}
		}
	}
	slog.Debug("log loaded", "root", root, "pages", pages, "entries", len(entries), "hasMore", hasMore)

	var marked time.Time
	if !selected.IsZero() {
		if entry, found, err := session.FindByDate(selected); err == nil && found {
			marked = entry.Date
		}
	}

	renderLog(w, root, entries, marked, hasMore, time.Now())
	return nil
}

func renderLog(w io.Writer, root string, entries []history.VersionEntry, marked time.Time, hasMore bool, now time.Time) {
	fmt.Fprintln(w, bold.Render(root))
	if len(entries) == 0 {
		fmt.Fprintln(w, gray.Render("  no versions with changes"))
		return
	}

	for _, e := range entries {
		line := fmt.Sprintf("%s  %s  %s", e.Date.Local().Format(time.DateTime), humanize.RelTime(e.Date, now, "ago", "from now"), e.Client)
		prefix := "  "
		if !marked.IsZero() && e.Date.Equal(marked) {
			prefix = highlight.Render("> ")
			line = highlight.Render(line)
		}
		fmt.Fprintf(w, "%s%s\n", prefix, line)

		for _, f := range e.Files {
			fmt.Fprintf(w, "      %s %s\n", changeStyle(f.Kind).Render(changeMark(f.Kind)), f.Path)
		}
	}

	if hasMore {
		fmt.Fprintln(w, gray.Render("  ... more versions, use --pages to load them"))
	}
}

func changeMark(k history.ChangeKind) string {
	switch k {
	case history.ChangeNew:
		return "+"
	case history.ChangeDeleted:
		return "-"
	default:
		return "~"
	}
}

func changeStyle(k history.ChangeKind) lipgloss.Style {
	switch k {
	case history.ChangeNew:
		return green
	case history.ChangeDeleted:
		return red
	default:
		return cyan
	}
}
