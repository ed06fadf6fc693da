package testutil

import (
	"flag"
	"os"
	"path/filepath"
	"regexp"
	"testing"
)

var update = flag.Bool("update", false, "update golden files")

// Golden compares output byte for byte against checked-in files.
type Golden struct {
	t       *testing.T
	baseDir string
}

// NewGolden creates a golden file helper rooted at baseDir.
func NewGolden(t *testing.T, baseDir string) *Golden {
	return &Golden{
		t:       t,
		baseDir: baseDir,
	}
}

// Path returns the location of a golden file.
func (g *Golden) Path(name string) string {
	return filepath.Join(g.baseDir, name)
}

// Read returns the content of a golden file.
func (g *Golden) Read(name string) []byte {
	g.t.Helper()

	data, err := os.ReadFile(g.Path(name))
	if err != nil {
		g.t.Fatalf("reading golden file %s: %v", g.Path(name), err)
	}
	return data
}

// Assert compares actual against the golden file. With -update the file is
// rewritten instead.
func (g *Golden) Assert(name string, actual []byte) {
	g.t.Helper()

	if *update {
		g.updateGolden(g.Path(name), actual)
		return
	}

	expected := g.Read(name)
	if string(actual) != string(expected) {
		g.t.Errorf("output mismatch for %s:\n--- expected ---\n%s\n--- actual ---\n%s",
			name, expected, actual)
	}
}

func (g *Golden) updateGolden(path string, actual []byte) {
	g.t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		g.t.Fatalf("creating golden directory: %v", err)
	}
	if err := os.WriteFile(path, actual, 0o644); err != nil {
		g.t.Fatalf("writing golden file: %v", err)
	}
	g.t.Logf("updated golden file: %s", path)
}

var (
	timestampPattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?(Z|[+-]\d{2}:\d{2})`)
	runIDPattern     = regexp.MustCompile(`\b[0-9a-f]{32}\b`)
)

// ScrubTimestamps replaces RFC 3339 instants.
func ScrubTimestamps(s string) string {
	return timestampPattern.ReplaceAllString(s, "[TIMESTAMP]")
}

// ScrubRunIDs replaces generated run ids (32 lowercase hex digits).
func ScrubRunIDs(s string) string {
	return runIDPattern.ReplaceAllString(s, "[RUN_ID]")
}
