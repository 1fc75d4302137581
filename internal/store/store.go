// Package store archives conversion scans in SQLite: the scan summary, every
// tabular row, the transcript events and the skipped-record diagnostics.
package store

import (
	"context"

	"github.com/rcliao/heulog/internal/model"
)

// BeginParams describe the scan about to be recorded.
type BeginParams struct {
	Serial string
	LogNum int
	// Source is the log file path or device the records came from.
	Source string
}

// ListParams holds parameters for listing scans.
type ListParams struct {
	Serial string
	Limit  int
}

// RmParams holds parameters for deleting a scan.
type RmParams struct {
	ID   string
	Hard bool
}

// Store defines the scan archive interface.
type Store interface {
	// BeginScan opens a recording. Nothing is visible to readers until the
	// recorder finishes.
	BeginScan(ctx context.Context, p BeginParams) (*Recorder, error)

	// Get retrieves a scan by ID.
	Get(ctx context.Context, id string) (*model.Scan, error)

	// List lists scans, newest first.
	List(ctx context.Context, p ListParams) ([]model.Scan, error)

	// Rm soft-deletes (or hard-deletes) a scan.
	Rm(ctx context.Context, p RmParams) error

	// Close closes the store.
	Close() error
}
