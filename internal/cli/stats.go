package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show database statistics",
		Run:   runStats,
	}

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	stats, err := s.Stats(cmd.Context(), getDBPath())
	if err != nil {
		exitErr("stats", err)
	}

	out := cmd.OutOrStdout()
	if formatFlag == "text" {
		fmt.Fprintf(out, "%s (%s)\n", stats.DBPath, humanize.Bytes(uint64(stats.DBSizeBytes)))
		fmt.Fprintf(out, "scans:       %s active of %s\n", humanize.Comma(int64(stats.ActiveScans)), humanize.Comma(int64(stats.TotalScans)))
		fmt.Fprintf(out, "rows:        %s\n", humanize.Comma(int64(stats.TotalRows)))
		fmt.Fprintf(out, "events:      %s\n", humanize.Comma(int64(stats.TotalEvents)))
		fmt.Fprintf(out, "diagnostics: %s\n", humanize.Comma(int64(stats.TotalProblems)))
		fmt.Fprintf(out, "units:       %d\n", len(stats.Units))
		return
	}
	printJSON(out, stats)
}
