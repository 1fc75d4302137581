package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/heulog/internal/chart"
	"github.com/rcliao/heulog/internal/source"
)

func init() {
	cmd := &cobra.Command{
		Use:   "plot <scan-id>",
		Short: "Chart an archived scan",
		Long:  "Render inlet/outlet temperature, flow and dissipated power of an archived scan as a PNG.",
		Args:  cobra.ExactArgs(1),
		Run:   runPlot,
	}

	cmd.Flags().StringP("output", "o", "", "PNG path (default: <scan-id>.png)")
	cmd.Flags().Int("width", 960, "Width in points")
	cmd.Flags().Int("height", 540, "Height in points")

	RootCmd.AddCommand(cmd)
}

func runPlot(cmd *cobra.Command, args []string) {
	output, _ := cmd.Flags().GetString("output")
	width, _ := cmd.Flags().GetInt("width")
	height, _ := cmd.Flags().GetInt("height")
	id := args[0]
	if output == "" {
		output = id + ".png"
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	sc, err := s.Get(cmd.Context(), id)
	if err != nil {
		exitErr("plot", err)
	}
	rows, err := s.Rows(cmd.Context(), id)
	if err != nil {
		exitErr("plot", err)
	}

	title := source.BaseName(sc.Serial, sc.LogNum)
	if err := chart.Render(rows, title, output, width, height); err != nil {
		exitErr("plot", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"id":%q,"output":%q}`+"\n", id, output)
}
