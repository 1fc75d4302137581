package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/rcliao/heulog/internal/model"
	"github.com/rcliao/heulog/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "scans",
		Short: "List archived scans",
		Run:   runScans,
	}

	cmd.Flags().StringP("serial", "s", "", "Filter by unit serial number")
	cmd.Flags().IntP("limit", "l", 20, "Max results")
	cmd.Flags().Bool("ids-only", false, "Only output scan IDs")

	RootCmd.AddCommand(cmd)
}

func runScans(cmd *cobra.Command, args []string) {
	serial, _ := cmd.Flags().GetString("serial")
	limit, _ := cmd.Flags().GetInt("limit")
	idsOnly, _ := cmd.Flags().GetBool("ids-only")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	scans, err := s.List(cmd.Context(), store.ListParams{
		Serial: serial,
		Limit:  limit,
	})
	if err != nil {
		exitErr("list", err)
	}

	out := cmd.OutOrStdout()
	switch {
	case idsOnly:
		for _, sc := range scans {
			fmt.Fprintln(out, sc.ID)
		}
	case formatFlag == "text":
		for _, sc := range scans {
			fmt.Fprintf(out, "%s  sn%-6s log%-3d %s .. %s  %s rows, %d problems  (%s)\n",
				sc.ID, sc.Serial, sc.LogNum, sc.First, sc.Last,
				humanize.Comma(int64(sc.Rows)), sc.Unrecognized+sc.Malformed,
				humanize.Time(sc.CreatedAt))
		}
	default:
		if scans == nil {
			scans = []model.Scan{}
		}
		printJSON(out, scans)
	}
}
