package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/rcliao/heulog/internal/model"
)

const (
	sampleLog        = "../engine/testdata/sample.log"
	goldenTranscript = "../engine/testdata/golden/sample_transcript.golden"
	goldenTabular    = "../engine/testdata/golden/sample_tabular.golden"
)

// setup points config and archive at a temp dir and clears flags left over
// from earlier commands.
func setup(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HEULOG_CONFIG", filepath.Join(dir, "heulog.yaml"))
	t.Setenv("HEULOG_DB", filepath.Join(dir, "scans.db"))
	t.Setenv("HEULOG_DEVICE", "")
	t.Setenv("HEULOG_OUT_DIR", "")
	resetFlags(RootCmd)
	return dir
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	run(t, &out, &out, args...)
	return out.String()
}

// executeSplit runs a command and returns its stdout and stderr apart.
func executeSplit(t *testing.T, args ...string) (string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	run(t, &out, &errOut, args...)
	return out.String(), errOut.String()
}

func run(t *testing.T, out, errOut *bytes.Buffer, args ...string) {
	t.Helper()
	RootCmd.SetOut(out)
	RootCmd.SetErr(errOut)
	RootCmd.SetArgs(args)
	if err := RootCmd.Execute(); err != nil {
		t.Fatalf("heulog %s: %v\n%s%s", strings.Join(args, " "), err, out.String(), errOut.String())
	}
	resetFlags(RootCmd)
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(b)
}

func TestConvertArchiveAndExport(t *testing.T) {
	dir := setup(t)
	outDir := filepath.Join(dir, "out")
	metricsPath := filepath.Join(dir, "heulog.prom")

	out := execute(t, "convert", sampleLog, "-o", outDir, "--serial", "1060", "--log-num", "18",
		"--name", "sn1060log18", "--metrics-file", metricsPath)

	var res scanResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode result: %v\n%s", err, out)
	}
	if res.ScanID == "" {
		t.Fatal("expected the scan to be archived")
	}
	if res.Rows != 27 || res.DuplicateRows != 12 || res.Unrecognized != 1 || res.Malformed != 1 {
		t.Errorf("unexpected summary: %+v", res.Summary)
	}
	if res.Transcript != filepath.Join(outDir, "sn1060log18out.txt") {
		t.Errorf("unexpected transcript path %q", res.Transcript)
	}
	if got, want := readFile(t, res.Transcript), readFile(t, goldenTranscript); got != want {
		t.Errorf("transcript differs from golden:\n%s", got)
	}
	if got, want := readFile(t, res.Tabular), readFile(t, goldenTabular); got != want {
		t.Errorf("table differs from golden:\n%s", got)
	}
	if m := readFile(t, metricsPath); !strings.Contains(m, "heulog_rows_total 27") {
		t.Errorf("metrics file missing row count:\n%s", m)
	}

	// The archive reproduces both artifacts.
	if got, want := execute(t, "export", res.ScanID), readFile(t, goldenTabular); got != want {
		t.Errorf("exported table differs from golden:\n%s", got)
	}
	if got, want := execute(t, "export", "--transcript", res.ScanID), readFile(t, goldenTranscript); got != want {
		t.Errorf("exported transcript differs from golden:\n%s", got)
	}
	noDups := execute(t, "export", "--no-duplicates", res.ScanID)
	if n := strings.Count(noDups, "\n"); n != 1+27-12 {
		t.Errorf("expected header and 15 rows, got %d lines", n)
	}

	show := execute(t, "show", "--events", "--diagnostics", res.ScanID)
	var shown struct {
		model.Scan
		Events      []model.Event      `json:"transcript"`
		Diagnostics []model.Diagnostic `json:"diagnostics"`
	}
	if err := json.Unmarshal([]byte(show), &shown); err != nil {
		t.Fatalf("decode show: %v\n%s", err, show)
	}
	if shown.Serial != "1060" || shown.LogNum != 18 || len(shown.Events) != 20 || len(shown.Diagnostics) != 2 {
		t.Errorf("unexpected scan: serial %q log %d, %d events, %d diagnostics",
			shown.Serial, shown.LogNum, len(shown.Events), len(shown.Diagnostics))
	}
	if shown.First.String() != "08/16/24 14:25:12.34" {
		t.Errorf("unexpected first stamp %q", shown.First.String())
	}

	found := execute(t, "search", "-f", "text", "restart", "without", "shutdown")
	if !strings.Contains(found, "line 14: Restart without Shutdown!") {
		t.Errorf("search missed the mystery restart:\n%s", found)
	}

	if ids := strings.TrimSpace(execute(t, "scans", "--ids-only")); ids != res.ScanID {
		t.Errorf("expected one scan %s, got %q", res.ScanID, ids)
	}
	if units := execute(t, "units", "-f", "text"); !strings.Contains(units, "sn1060") {
		t.Errorf("expected unit 1060:\n%s", units)
	}
	if stats := execute(t, "stats", "-f", "text"); !strings.Contains(stats, "rows:        27") {
		t.Errorf("unexpected stats:\n%s", stats)
	}

	png := filepath.Join(dir, "scan.png")
	execute(t, "plot", "-o", png, res.ScanID)
	if data := readFile(t, png); !strings.HasPrefix(data, "\x89PNG") {
		t.Error("expected a PNG chart")
	}

	execute(t, "rm", "--hard", res.ScanID)
	if ids := strings.TrimSpace(execute(t, "scans", "--ids-only")); ids != "" {
		t.Errorf("expected no scans after rm, got %q", ids)
	}
}

func TestConvert_NoArchive(t *testing.T) {
	dir := setup(t)
	out := execute(t, "convert", sampleLog, "-o", dir, "--no-archive", "--no-transcript")

	var res scanResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode result: %v\n%s", err, out)
	}
	if res.ScanID != "" || res.Transcript != "" {
		t.Errorf("expected table only, got %+v", res)
	}
	if _, err := os.Stat(filepath.Join(dir, "sample.csv")); err != nil {
		t.Errorf("expected sample.csv: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "sampleout.txt")); !os.IsNotExist(err) {
		t.Error("expected no transcript")
	}
}

func TestConvert_EchoKeepsResultParseable(t *testing.T) {
	dir := setup(t)
	out, errOut := executeSplit(t, "convert", sampleLog, "-o", dir, "--no-archive", "--echo")

	var res scanResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("stdout is not a JSON result: %v\n%s", err, out)
	}
	if res.Rows != 27 {
		t.Errorf("unexpected rows %d", res.Rows)
	}
	if !strings.Contains(errOut, "Restart without Shutdown!") {
		t.Errorf("expected echoed transcript on stderr:\n%s", errOut)
	}
	if strings.Contains(out, "Restart without Shutdown!") {
		t.Error("transcript leaked into the JSON result")
	}
}

func TestLocate(t *testing.T) {
	setup(t)
	out := execute(t, "locate", sampleLog, "--from", "08/16/24 14:26", "--to", "08/16/24 20:00")

	var w struct {
		StartLine int `json:"start_line"`
		EndLine   int `json:"end_line"`
	}
	if err := json.Unmarshal([]byte(out), &w); err != nil {
		t.Fatalf("decode window: %v\n%s", err, out)
	}
	// Opens at the DT on line 1, stops before the DT on line 18.
	if w.StartLine != 0 || w.EndLine != 17 {
		t.Errorf("unexpected window %+v", w)
	}
}

type fakePort struct {
	sent    bytes.Buffer
	reply   io.Reader
	timeout time.Duration
	closed  bool
}

func (p *fakePort) Write(b []byte) (int, error)          { return p.sent.Write(b) }
func (p *fakePort) SetReadTimeout(d time.Duration) error { p.timeout = d; return nil }
func (p *fakePort) Close() error                         { p.closed = true; return nil }

// Read times out with no bytes once the reply is drained, like an idle
// serial line.
func (p *fakePort) Read(b []byte) (int, error) {
	n, err := p.reply.Read(b)
	if err == io.EOF {
		return n, nil
	}
	return n, err
}

func TestFetchAndConvert(t *testing.T) {
	dir := setup(t)
	body := readFile(t, sampleLog)
	port := &fakePort{reply: strings.NewReader("frlog9770001\r\nSerial number:1060\r\n<\r\n" + body + ">\r\n")}

	var baud int
	orig := openPort
	openPort = func(_ string, b int) (devicePort, error) { baud = b; return port, nil }
	t.Cleanup(func() { openPort = orig })

	out := execute(t, "fetch", "--device", "/dev/null", "--log-num", "18", "-o", dir, "--convert")
	if got := port.sent.String(); got != "frlog9770001\n" {
		t.Errorf("unexpected dump command %q", got)
	}
	if baud != 38400 {
		t.Errorf("expected default baud 38400, got %d", baud)
	}
	if port.timeout != 5*time.Second || !port.closed {
		t.Errorf("expected port with 5s read timeout closed, got %v closed=%v", port.timeout, port.closed)
	}

	var res fetchResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode result: %v\n%s", err, out)
	}
	if res.Serial != "1060" || !res.Complete || res.Lines != 20 {
		t.Errorf("unexpected fetch: %+v", res)
	}
	if res.Log != filepath.Join(dir, "sn1060log18.txt") {
		t.Errorf("unexpected log path %q", res.Log)
	}
	if res.Scan == nil || res.Scan.ScanID == "" {
		t.Fatal("expected an archived conversion")
	}
	if got, want := readFile(t, filepath.Join(dir, "sn1060log18.csv")), readFile(t, goldenTabular); got != want {
		t.Errorf("table differs from golden:\n%s", got)
	}
}

func TestConfigShow(t *testing.T) {
	dir := setup(t)
	path := filepath.Join(dir, "heulog.yaml")
	execute(t, "config", "init", path)
	if err := os.WriteFile(path, []byte("device:\n  megs: 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out := execute(t, "config", "show")
	if !strings.Contains(out, "megs: 3") {
		t.Errorf("expected config file values:\n%s", out)
	}
	if !strings.Contains(out, "log_version: 2") {
		t.Errorf("expected defaults for unset keys:\n%s", out)
	}
}
