package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rcliao/heulog/internal/engine"
	"github.com/rcliao/heulog/internal/model"
	"github.com/rcliao/heulog/internal/store"
)

// scanJob is one conversion as the convert and fetch commands run it.
type scanJob struct {
	src    engine.Source
	base   string
	serial string
	logNum int
	origin string

	engine      engine.Config
	art         engine.Artifacts
	echo        io.Writer
	archive     bool
	metricsFile string
}

type scanResult struct {
	ScanID     string `json:"scan_id,omitempty"`
	Transcript string `json:"transcript,omitempty"`
	Tabular    string `json:"tabular,omitempty"`
	Metrics    string `json:"metrics,omitempty"`
	model.Summary
}

// runScan converts job.src into its artifacts and, when archiving, records
// every row, event and diagnostic as one scan. A failed conversion leaves
// no scan behind.
func runScan(ctx context.Context, job scanJob) (scanResult, error) {
	res := scanResult{Transcript: job.art.Transcript, Tabular: job.art.Tabular}
	metrics := engine.NewMetrics()
	opts := []engine.Option{
		engine.WithLogger(logger.With(zap.String("scan", job.base))),
		engine.WithMetrics(metrics),
	}

	var rec *store.Recorder
	if job.archive {
		s, err := openStore()
		if err != nil {
			return res, fmt.Errorf("open store: %w", err)
		}
		defer s.Close()
		rec, err = s.BeginScan(ctx, store.BeginParams{Serial: job.serial, LogNum: job.logNum, Source: job.origin})
		if err != nil {
			return res, fmt.Errorf("begin scan: %w", err)
		}
		defer rec.Abort()
		opts = append(opts, engine.WithHooks(engine.Hooks{
			OnEvent:      rec.Event,
			OnRow:        rec.Row,
			OnDiagnostic: rec.Diagnostic,
		}))
	}

	sum, err := engine.Convert(job.engine, job.src, job.art, job.echo, opts...)
	res.Summary = sum
	if err != nil {
		return res, err
	}

	if rec != nil {
		sc, err := rec.Finish(sum)
		if err != nil {
			return res, fmt.Errorf("archive scan: %w", err)
		}
		res.ScanID = sc.ID
		logger.Debug("scan archived", zap.String("id", sc.ID), zap.String("db", getDBPath()))
	}

	if job.metricsFile != "" {
		if err := metrics.WriteFile(job.metricsFile); err != nil {
			return res, err
		}
		res.Metrics = job.metricsFile
	}
	return res, nil
}

// echoWriter is the command's error stream when the run echoes transcript
// lines to the console. Stdout carries only the JSON result.
func echoWriter(cmd *cobra.Command, on bool) io.Writer {
	if on {
		return cmd.ErrOrStderr()
	}
	return nil
}
