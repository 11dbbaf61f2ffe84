package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kitops-ml/kitops-go/internal/kit"
)

// isolateEnv keeps a developer's config file and KITCTL_* variables out of
// the test.
func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("NO_COLOR", "1")
	for _, key := range []string{"KIT_BINARY", "HISTORY_DB", "REGISTRY", "VERBOSE", "PASSWORD"} {
		t.Setenv("KITCTL_"+key, "")
	}
}

// fakeKit stands in for the kit binary.
type fakeKit struct {
	mu       sync.Mutex
	calls    []kit.Invocation
	stdout   string
	exitCode int
	err      error
}

func (f *fakeKit) Execute(_ context.Context, inv kit.Invocation) (kit.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, inv)
	if f.stdout != "" && inv.Stdout != nil {
		_, _ = io.WriteString(inv.Stdout, f.stdout)
	}
	if f.err != nil {
		return kit.Result{}, f.err
	}
	if f.exitCode != 0 {
		return kit.Result{ExitCode: f.exitCode}, &kit.CommandError{
			Args:     append([]string{inv.Binary}, inv.Args...),
			ExitCode: f.exitCode,
			Stderr:   "boom",
		}
	}
	return kit.Result{Duration: 250 * time.Millisecond}, nil
}

func (f *fakeKit) argv(t *testing.T) []string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.calls, "kit was not invoked")
	last := f.calls[len(f.calls)-1]
	return append([]string{last.Binary}, last.Args...)
}

type cliResult struct {
	stdout string
	stderr string
	code   int
}

// run executes kitctl in-process against fake.
func run(t *testing.T, fake *fakeKit, stdin string, args ...string) cliResult {
	t.Helper()
	opts := &RootOptions{}
	if fake != nil {
		opts.Executor = fake
	}
	if stdin != "" {
		opts.Stdin = bytes.NewBufferString(stdin)
	}
	var stdout, stderr bytes.Buffer
	code := Execute(context.Background(), opts, args, &stdout, &stderr)
	return cliResult{stdout: stdout.String(), stderr: stderr.String(), code: code}
}

// writeTree creates files (relative path -> content) under a new temp dir.
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

const validKitfile = `manifestVersion: "1.0"
package:
  name: demo
  version: 0.1.0
code:
  - path: src
model:
  name: demo-model
  path: model/weights.bin
`
