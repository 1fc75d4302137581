package cli

import (
	"bufio"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/heulog/internal/tabular"
	"github.com/rcliao/heulog/internal/transcript"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export <scan-id>",
		Short: "Export an archived scan",
		Long: "Write an archived scan's CSV table to stdout, in the same layout convert writes. " +
			"With --transcript, write its transcript instead.",
		Args: cobra.ExactArgs(1),
		Run:  runExport,
	}

	cmd.Flags().Bool("transcript", false, "Export the transcript instead of the table")
	cmd.Flags().Bool("no-duplicates", false, "Leave out duplicate edge rows")

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	asTranscript, _ := cmd.Flags().GetBool("transcript")
	noDups, _ := cmd.Flags().GetBool("no-duplicates")
	id := args[0]

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	w := bufio.NewWriter(cmd.OutOrStdout())
	defer w.Flush()

	if asTranscript {
		events, err := s.Events(cmd.Context(), id)
		if err != nil {
			exitErr("export", err)
		}
		tw := transcript.New(w, transcript.Options{})
		for _, ev := range events {
			if err := tw.Write(ev); err != nil {
				exitErr("export", err)
			}
		}
		if err := tw.Flush(); err != nil {
			exitErr("export", err)
		}
		return
	}

	rows, err := s.Rows(cmd.Context(), id)
	if err != nil {
		exitErr("export", err)
	}
	fmt.Fprintln(w, tabular.Header)
	for _, r := range rows {
		if noDups && r.Duplicate {
			continue
		}
		fmt.Fprintln(w, tabular.FormatRow(r))
	}
}
