package engine

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rcliao/heulog/internal/model"
)

// Artifacts are the output paths of one conversion. An empty path disables
// that artifact.
type Artifacts struct {
	Transcript string
	Tabular    string
}

// ArtifactsFor returns the conventional artifact paths for base in dir:
// "<base>out.txt" for the transcript and "<base>.csv" for the table.
func ArtifactsFor(dir, base string, transcript, tabular bool) Artifacts {
	var a Artifacts
	if transcript {
		a.Transcript = filepath.Join(dir, base+"out.txt")
	}
	if tabular {
		a.Tabular = filepath.Join(dir, base+".csv")
	}
	return a
}

// Convert creates the artifacts, runs one conversion of src into them and
// closes them again, whatever happens in between.
func Convert(cfg Config, src Source, art Artifacts, echo io.Writer, opts ...Option) (sum model.Summary, err error) {
	out := Outputs{Echo: echo}
	var files []*os.File
	defer func() {
		for _, f := range files {
			if cerr := f.Close(); cerr != nil {
				err = errors.Join(err, fmt.Errorf("close %s: %w", f.Name(), cerr))
			}
		}
	}()

	create := func(path string) (*os.File, error) {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
		f, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("create artifact: %w", err)
		}
		files = append(files, f)
		return f, nil
	}
	if art.Transcript != "" {
		f, err := create(art.Transcript)
		if err != nil {
			return sum, err
		}
		out.Transcript = f
	}
	if art.Tabular != "" {
		f, err := create(art.Tabular)
		if err != nil {
			return sum, err
		}
		out.Tabular = f
	}
	return New(cfg, out, opts...).Run(src)
}
