package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/heulog/internal/window"
)

func init() {
	cmd := &cobra.Command{
		Use:   "locate <log>",
		Short: "Find the line range covering a time window",
		Long: "Print the start and end lines covering a time window, for convert --start/--end. " +
			"The range opens at the date record preceding the window start.",
		Args: cobra.ExactArgs(1),
		Run:  runLocate,
	}

	cmd.Flags().String("from", "", `Window start ("MM/DD/YY HH:MM")`)
	cmd.Flags().String("to", "", `Window end ("MM/DD/YY HH:MM")`)
	cmd.Flags().Int("tz", 0, "Hours added to every logged time")
	cmd.Flags().Int("date-offset", 0, "Days added to every logged date")

	RootCmd.AddCommand(cmd)
}

func runLocate(cmd *cobra.Command, args []string) {
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	opts := window.Options{TimeZoneOffset: cfg.Convert.TimeZoneOffset, DateLineOffset: cfg.Convert.DateLineOffset}
	if cmd.Flags().Changed("tz") {
		opts.TimeZoneOffset, _ = cmd.Flags().GetInt("tz")
	}
	if cmd.Flags().Changed("date-offset") {
		opts.DateLineOffset, _ = cmd.Flags().GetInt("date-offset")
	}

	w, err := locateFile(args[0], from, to, opts)
	if err != nil {
		exitErr("locate", err)
	}

	if formatFlag == "text" {
		fmt.Fprintf(cmd.OutOrStdout(), "--start %d --end %d\t# %s .. %s\n", w.StartLine, w.EndLine, w.First, w.Last)
		return
	}
	printJSON(cmd.OutOrStdout(), struct {
		StartLine int    `json:"start_line"`
		EndLine   int    `json:"end_line"`
		First     string `json:"first"`
		Last      string `json:"last"`
	}{w.StartLine, w.EndLine, w.First.String(), w.Last.String()})
}
