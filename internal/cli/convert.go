package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/heulog/internal/engine"
	"github.com/rcliao/heulog/internal/model"
	"github.com/rcliao/heulog/internal/source"
	"github.com/rcliao/heulog/internal/window"
)

func init() {
	cmd := &cobra.Command{
		Use:   "convert <log>",
		Short: "Convert a raw controller log",
		Long: "Convert a raw controller log into a transcript (<name>out.txt) and a CSV " +
			"telemetry table (<name>.csv), and archive the scan.",
		Args: cobra.ExactArgs(1),
		Run:  runConvert,
	}

	addConvertFlags(cmd)
	cmd.Flags().String("name", "", "Artifact base name (default: log file name without extension)")
	cmd.Flags().String("serial", "", "Unit serial number recorded with the scan")
	cmd.Flags().Int("log-num", 0, "Log number recorded with the scan")
	cmd.Flags().String("from", "", `Convert from this time on ("MM/DD/YY HH:MM")`)
	cmd.Flags().String("to", "", `Convert up to this time ("MM/DD/YY HH:MM")`)

	RootCmd.AddCommand(cmd)
}

// addConvertFlags registers the flags shared by convert and fetch.
func addConvertFlags(cmd *cobra.Command) {
	cmd.Flags().Int("start", 0, "Skip this many lines before converting")
	cmd.Flags().Int("end", 0, "Stop after this line (default: config end_line)")
	cmd.Flags().Bool("mute", false, "Suppress transcript output")
	cmd.Flags().Bool("no-transcript", false, "Do not write the transcript")
	cmd.Flags().Bool("no-tabular", false, "Do not write the CSV table")
	cmd.Flags().Bool("echo", false, "Echo transcript lines and diagnostics to stderr")
	cmd.Flags().Int("tz", 0, "Hours added to every logged time")
	cmd.Flags().Int("date-offset", 0, "Days added to every logged date")
	cmd.Flags().Int("log-version", 0, "Log format version, 1 or 2 (default: config log_version)")
	cmd.Flags().StringP("out", "o", "", "Output directory (default: config output.dir)")
	cmd.Flags().Bool("no-archive", false, "Do not archive the scan")
	cmd.Flags().String("metrics-file", "", "Write scan metrics in Prometheus text format")
}

// convertOptions merges config and flags. Flags win when set.
func convertOptions(cmd *cobra.Command) (engine.Config, string, error) {
	c := cfg.Convert
	ec := engine.Config{
		StartLine:      c.StartLine,
		EndLine:        c.EndLine,
		Mute:           c.Mute,
		TimeZoneOffset: c.TimeZoneOffset,
		DateLineOffset: c.DateLineOffset,
		LogVersion:     c.LogVersion,
	}
	flags := cmd.Flags()
	if flags.Changed("start") {
		ec.StartLine, _ = flags.GetInt("start")
	}
	if flags.Changed("end") {
		ec.EndLine, _ = flags.GetInt("end")
	}
	if flags.Changed("mute") {
		ec.Mute, _ = flags.GetBool("mute")
	}
	if flags.Changed("tz") {
		ec.TimeZoneOffset, _ = flags.GetInt("tz")
	}
	if flags.Changed("date-offset") {
		ec.DateLineOffset, _ = flags.GetInt("date-offset")
	}
	if flags.Changed("log-version") {
		ec.LogVersion, _ = flags.GetInt("log-version")
		if ec.LogVersion != 1 && ec.LogVersion != 2 {
			return ec, "", fmt.Errorf("log version must be 1 or 2, got %d", ec.LogVersion)
		}
	}

	dir := cfg.Output.Dir
	if flags.Changed("out") {
		dir, _ = flags.GetString("out")
	}
	return ec, dir, nil
}

// artifactFlags returns which artifacts to write and whether to echo.
func artifactFlags(cmd *cobra.Command) (transcript, tabular, echo bool) {
	transcript, tabular, echo = cfg.Convert.Transcript, cfg.Convert.Tabular, cfg.Convert.Echo
	if off, _ := cmd.Flags().GetBool("no-transcript"); off {
		transcript = false
	}
	if off, _ := cmd.Flags().GetBool("no-tabular"); off {
		tabular = false
	}
	if cmd.Flags().Changed("echo") {
		echo, _ = cmd.Flags().GetBool("echo")
	}
	return transcript, tabular, echo
}

func archiveEnabled(cmd *cobra.Command) bool {
	off, _ := cmd.Flags().GetBool("no-archive")
	return cfg.Store.Enabled && !off
}

func runConvert(cmd *cobra.Command, args []string) {
	path := args[0]
	name, _ := cmd.Flags().GetString("name")
	serial, _ := cmd.Flags().GetString("serial")
	logNum, _ := cmd.Flags().GetInt("log-num")
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	metricsFile, _ := cmd.Flags().GetString("metrics-file")

	ec, dir, err := convertOptions(cmd)
	if err != nil {
		exitErr("convert", err)
	}
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	if from != "" || to != "" {
		w, err := locateFile(path, from, to, window.Options{TimeZoneOffset: ec.TimeZoneOffset, DateLineOffset: ec.DateLineOffset})
		if err != nil {
			exitErr("locate window", err)
		}
		ec.StartLine, ec.EndLine = w.StartLine, w.EndLine
	}

	f, err := os.Open(path)
	if err != nil {
		exitErr("open log", err)
	}
	defer f.Close()

	transcript, tabular, echo := artifactFlags(cmd)
	res, err := runScan(cmd.Context(), scanJob{
		src:         source.Lines(f),
		base:        name,
		serial:      serial,
		logNum:      logNum,
		origin:      path,
		engine:      ec,
		art:         engine.ArtifactsFor(dir, name, transcript, tabular),
		echo:        echoWriter(cmd, echo),
		archive:     archiveEnabled(cmd),
		metricsFile: metricsFile,
	})
	if err != nil {
		exitErr("convert", err)
	}
	printJSON(cmd.OutOrStdout(), res)
}

// locateFile finds the line window for [from, to] in the log at path. An
// empty bound is open-ended.
func locateFile(path, from, to string, opts window.Options) (window.Window, error) {
	lo := model.Stamp{Date: model.Epoch, Time: model.At(0, 0)}
	hi := model.Stamp{Date: model.Date{Month: 12, Day: 31, Year: 99}, Time: model.At(23, 59), Seconds: "59.99"}
	var err error
	if from != "" {
		if lo, err = model.ParseStamp(from); err != nil {
			return window.Window{}, err
		}
	}
	if to != "" {
		if hi, err = model.ParseStamp(to); err != nil {
			return window.Window{}, err
		}
		if hi.Seconds == "" {
			hi.Seconds = "59.99"
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return window.Window{}, err
	}
	defer f.Close()
	return window.Locate(source.Lines(f), lo, hi, opts)
}
