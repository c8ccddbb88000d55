package main

import (
	"fmt"
	"io"
	"path/filepath"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/flemzord/catbot/internal/stats"
	"github.com/flemzord/catbot/modules/stats/sqlite"
	"github.com/flemzord/catbot/pkg/app"
	"github.com/spf13/cobra"
)

func statsCmd() *cobra.Command {
	var dbPath, room string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print recorded counters from the stats database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dbPath == "" {
				dbPath = filepath.Join(app.DefaultDataDir(), "stats.db")
			}
			store, err := sqlite.OpenStore(cmd.Context(), dbPath)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			entries, err := store.Snapshot(cmd.Context(), room)
			if err != nil {
				return err
			}
			return printStats(cmd.OutOrStdout(), entries)
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "Path to stats.db (default $XDG_DATA_HOME/catbot/stats.db)")
	cmd.Flags().StringVar(&room, "room", "", "Only show this room ID")
	return cmd
}

func printStats(w io.Writer, entries []stats.Entry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No counters recorded.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "ROOM\tCOUNTER\tMODULE\tSUB\tVALUE\t")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n", e.Room, e.Counter, dash(e.Module), dash(e.Sub), humanize.Comma(e.Value))
	}
	return tw.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
