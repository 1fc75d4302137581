package cli

import (
	"fmt"
	"strings"

	"github.com/rcliao/heulog/internal/store"
	"github.com/rcliao/heulog/internal/transcript"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search archived transcripts",
		Long:  "Search transcript events of all archived scans for a phrase, e.g. \"restart without shutdown\".",
		Args:  cobra.MinimumNArgs(1),
		Run:   runSearch,
	}

	cmd.Flags().StringP("serial", "s", "", "Filter by unit serial number")
	cmd.Flags().String("scan", "", "Filter by scan ID")
	cmd.Flags().IntP("limit", "l", 20, "Max results")

	RootCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	serial, _ := cmd.Flags().GetString("serial")
	scanID, _ := cmd.Flags().GetString("scan")
	limit, _ := cmd.Flags().GetInt("limit")
	query := strings.Join(args, " ")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	results, err := s.Search(cmd.Context(), store.SearchParams{
		Query:  query,
		Serial: serial,
		ScanID: scanID,
		Limit:  limit,
	})
	if err != nil {
		exitErr("search", err)
	}

	out := cmd.OutOrStdout()
	if formatFlag == "text" {
		for _, r := range results {
			fmt.Fprintf(out, "%s sn%s line %d: %s", r.ScanID, r.Serial, r.Line, transcript.Format(r.Event))
		}
		return
	}

	if len(results) == 0 {
		fmt.Fprintln(out, "[]")
		return
	}
	printJSON(out, results)
}
