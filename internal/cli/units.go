package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "units",
		Short: "List units with archived scans",
		Run:   runUnits,
	}

	RootCmd.AddCommand(cmd)
}

func runUnits(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	units, err := s.Units(cmd.Context())
	if err != nil {
		exitErr("list units", err)
	}

	out := cmd.OutOrStdout()
	if formatFlag == "text" {
		for _, u := range units {
			fmt.Fprintf(out, "sn%-6s %4d scans, last %s\n", u.Serial, u.Scans, u.LastScan)
		}
		return
	}
	printJSON(out, units)
}
