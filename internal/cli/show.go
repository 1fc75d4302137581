package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/heulog/internal/model"
	"github.com/rcliao/heulog/internal/transcript"
)

func init() {
	cmd := &cobra.Command{
		Use:   "show <scan-id>",
		Short: "Show an archived scan",
		Args:  cobra.ExactArgs(1),
		Run:   runShow,
	}

	cmd.Flags().Bool("events", false, "Include transcript events")
	cmd.Flags().Bool("diagnostics", false, "Include skipped records")

	RootCmd.AddCommand(cmd)
}

func runShow(cmd *cobra.Command, args []string) {
	withEvents, _ := cmd.Flags().GetBool("events")
	withDiags, _ := cmd.Flags().GetBool("diagnostics")
	id := args[0]

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	sc, err := s.Get(cmd.Context(), id)
	if err != nil {
		exitErr("show", err)
	}

	var events []model.Event
	if withEvents {
		if events, err = s.Events(cmd.Context(), id); err != nil {
			exitErr("events", err)
		}
	}
	var diags []model.Diagnostic
	if withDiags {
		if diags, err = s.Diagnostics(cmd.Context(), id); err != nil {
			exitErr("diagnostics", err)
		}
	}

	out := cmd.OutOrStdout()
	if formatFlag == "text" {
		fmt.Fprintf(out, "%s  sn%s log%d  %s\n", sc.ID, sc.Serial, sc.LogNum, sc.Source)
		fmt.Fprintf(out, "%s .. %s  %d lines, %d rows (%d duplicate), %d events, %d unrecognized, %d malformed\n",
			sc.First, sc.Last, sc.Lines, sc.Rows, sc.DuplicateRows, sc.Events, sc.Unrecognized, sc.Malformed)
		for _, ev := range events {
			if ev.Break {
				fmt.Fprintln(out)
			}
			fmt.Fprint(out, transcript.Format(ev))
		}
		for _, d := range diags {
			fmt.Fprintf(out, "Line %d %s\n", d.Line, d.Text)
		}
		return
	}

	printJSON(out, struct {
		*model.Scan
		Events      []model.Event      `json:"transcript,omitempty"`
		Diagnostics []model.Diagnostic `json:"diagnostics,omitempty"`
	}{sc, events, diags})
}
