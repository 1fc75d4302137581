package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.bug.st/serial"
	"go.uber.org/zap"

	"github.com/rcliao/heulog/internal/engine"
	"github.com/rcliao/heulog/internal/source"
)

type devicePort interface {
	source.Port
	io.Closer
}

// openPort opens the controller's serial device at baud, 8N1.
var openPort = func(path string, baud int) (devicePort, error) {
	p, err := serial.Open(path, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func init() {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download the log from a controller",
		Long: "Send the log dump command to a controller on a serial device, save the reply " +
			"as sn<serial>log<N>.txt and optionally convert it.",
		Args: cobra.NoArgs,
		Run:  runFetch,
	}

	addConvertFlags(cmd)
	cmd.Flags().String("device", "", "Serial device (default: config device.path)")
	cmd.Flags().Int("megs", 0, "Megabytes of log to request (default: config device.megs)")
	cmd.Flags().Int("log-num", 0, "Log number used in the file name (default: config device.log_num)")
	cmd.Flags().Bool("convert", false, "Convert the fetched log")

	RootCmd.AddCommand(cmd)
}

type fetchResult struct {
	Device   string      `json:"device"`
	Serial   string      `json:"serial"`
	Log      string      `json:"log"`
	Lines    int         `json:"lines"`
	Size     string      `json:"size"`
	Complete bool        `json:"complete"`
	Scan     *scanResult `json:"scan,omitempty"`
}

func runFetch(cmd *cobra.Command, args []string) {
	device := cfg.Device.Path
	if cmd.Flags().Changed("device") {
		device, _ = cmd.Flags().GetString("device")
	}
	megs := cfg.Device.Megs
	if cmd.Flags().Changed("megs") {
		megs, _ = cmd.Flags().GetInt("megs")
	}
	logNum := cfg.Device.LogNum
	if cmd.Flags().Changed("log-num") {
		logNum, _ = cmd.Flags().GetInt("log-num")
	}
	convert, _ := cmd.Flags().GetBool("convert")
	metricsFile, _ := cmd.Flags().GetString("metrics-file")

	ec, dir, err := convertOptions(cmd)
	if err != nil {
		exitErr("fetch", err)
	}

	res, dump, err := fetchLog(cmd.Context(), device, megs, logNum, dir)
	if err != nil {
		exitErr("fetch", err)
	}

	if convert {
		base := source.BaseName(res.Serial, logNum)
		transcript, tabular, echo := artifactFlags(cmd)
		sr, err := runScan(cmd.Context(), scanJob{
			src:         dump.Source(),
			base:        base,
			serial:      res.Serial,
			logNum:      logNum,
			origin:      res.Log,
			engine:      ec,
			art:         engine.ArtifactsFor(dir, base, transcript, tabular),
			echo:        echoWriter(cmd, echo),
			archive:     archiveEnabled(cmd),
			metricsFile: metricsFile,
		})
		if err != nil {
			exitErr("convert", err)
		}
		res.Scan = &sr
	}
	printJSON(cmd.OutOrStdout(), res)
}

func fetchLog(ctx context.Context, device string, megs, logNum int, dir string) (fetchResult, source.Dump, error) {
	res := fetchResult{Device: device}
	port, err := openPort(device, cfg.Device.Baud)
	if err != nil {
		return res, source.Dump{}, fmt.Errorf("open device: %w", err)
	}
	defer port.Close()

	rw, err := source.IdleTimeout(port, cfg.ReadTimeout())
	if err != nil {
		return res, source.Dump{}, err
	}
	logger.Info("fetching log", zap.String("device", device), zap.Int("baud", cfg.Device.Baud), zap.Int("megs", megs))
	dump, err := source.Fetch(ctx, rw, megs)
	if err != nil {
		return res, dump, err
	}
	if !dump.Complete {
		logger.Warn("log dump ended before its end marker", zap.Int("lines", len(dump.Lines)))
	}

	path, err := dump.WriteLog(dir, logNum, cfg.Device.Serial)
	if err != nil {
		return res, dump, err
	}
	res.Serial = dump.Serial
	if res.Serial == "" {
		res.Serial = cfg.Device.Serial
	}
	res.Log = path
	res.Lines = len(dump.Lines)
	res.Complete = dump.Complete
	if info, err := os.Stat(path); err == nil {
		res.Size = humanize.Bytes(uint64(info.Size()))
	}
	logger.Info("log saved", zap.String("path", filepath.Base(path)), zap.String("size", res.Size))
	return res, dump, nil
}
