package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitops-ml/kitops-go/internal/kit"
)

func TestKitCommands_Argv(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"info", []string{"info", "org/model:v1", "--filter", "model"}, []string{"kit", "info", "org/model:v1", "--filter", "model"}},
		{"info remote", []string{"info", "-r", "org/model:v1"}, []string{"kit", "info", "org/model:v1", "--remote"}},
		{"inspect", []string{"inspect", "org/model:v1", "--remote"}, []string{"kit", "inspect", "org/model:v1", "--remote"}},
		{"list", []string{"list"}, []string{"kit", "list"}},
		{"list repo", []string{"list", "jozu.ml/org/model"}, []string{"kit", "list", "jozu.ml/org/model"}},
		{"logout", []string{"logout"}, []string{"kit", "logout", "jozu.ml"}},
		{"logout registry flag", []string{"--registry", "localhost:5000", "logout"}, []string{"kit", "logout", "localhost:5000"}},
		{"pack", []string{"pack", "org/model:v1", "-f", "Kitfile.prod"}, []string{"kit", "pack", ".", "--tag", "org/model:v1", "--file", "Kitfile.prod"}},
		{"pull with flags", []string{"pull", "org/model:v1", "--flag", "concurrency=4", "--flag", "plain_http"}, []string{"kit", "pull", "org/model:v1", "--concurrency", "4", "--plain-http"}},
		{"push", []string{"push", "org/model:v1", "--flag", "tls-verify=false"}, []string{"kit", "push", "org/model:v1", "--tls-verify=false"}},
		{"inspect remote twice", []string{"inspect", "org/model:v1", "--remote", "--flag", "--remote"}, []string{"kit", "inspect", "org/model:v1", "--remote"}},
		{"remove", []string{"remove", "org/model:v1", "--flag", "force"}, []string{"kit", "remove", "org/model:v1", "--force"}},
		{"unpack", []string{"unpack", "org/model:v1", "-d", "out", "--filter", "model", "-o"}, []string{"kit", "unpack", "--dir", "out", "org/model:v1", "--filter", "model", "--overwrite"}},
		{"kit binary", []string{"--kit-binary", "/usr/local/bin/kit", "pull", "org/model:v1"}, []string{"/usr/local/bin/kit", "pull", "org/model:v1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateEnv(t)
			fake := &fakeKit{}

			res := run(t, fake, "", tt.args...)
			require.Equal(t, ExitSuccess, res.code, res.stderr)
			assert.Equal(t, tt.want, fake.argv(t))
		})
	}
}

func TestKitCommands_EchoAndStream(t *testing.T) {
	isolateEnv(t)
	fake := &fakeKit{stdout: "Pulled org/model:v1\n"}

	res := run(t, fake, "", "pull", "org/model:v1")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Equal(t, "% kit pull org/model:v1\nPulled org/model:v1\n", res.stdout)
}

func TestKitCommands_JSONCapturesOutput(t *testing.T) {
	isolateEnv(t)
	fake := &fakeKit{stdout: "Pulled org/model:v1\n"}

	res := run(t, fake, "", "--format", "json", "pull", "org/model:v1")
	require.Equal(t, ExitSuccess, res.code, res.stderr)

	var resp struct {
		Status string    `json:"status"`
		Data   KitOutput `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, KitOutput{Command: "pull", Output: "Pulled org/model:v1\n"}, resp.Data)
}

func TestKitCommands_KitFailure(t *testing.T) {
	isolateEnv(t)
	fake := &fakeKit{exitCode: 1}

	res := run(t, fake, "", "push", "org/model:v1")
	assert.Equal(t, ExitFailure, res.code)
	assert.Contains(t, res.stderr, ErrCodeKitFailed)
	assert.Contains(t, res.stderr, "boom")
}

func TestKitCommands_KitFailureJSON(t *testing.T) {
	isolateEnv(t)
	fake := &fakeKit{exitCode: 2}

	res := run(t, fake, "", "--format", "json", "push", "org/model:v1")
	assert.Equal(t, ExitFailure, res.code)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeKitFailed, resp.Error.Code)
}

func TestKitCommands_KitNotInstalled(t *testing.T) {
	isolateEnv(t)
	fake := &fakeKit{err: kit.ErrKitNotFound}

	res := run(t, fake, "", "list")
	assert.Equal(t, ExitCommandError, res.code)
	assert.Contains(t, res.stderr, ErrCodeKitNotFound)
}

func TestKitCommands_RemoveToleratesMissingModelKit(t *testing.T) {
	isolateEnv(t)
	fake := &fakeKit{exitCode: 1}

	res := run(t, fake, "", "remove", "org/model:v1")
	assert.Equal(t, ExitSuccess, res.code, res.stderr)
}

func TestKitCommands_InvalidArguments(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"bad reference", []string{"pull", "Not A Ref"}, "invalid ModelKit reference"},
		{"flag not accepted", []string{"pull", "org/model:v1", "--flag", "remote"}, `unknown flag "--remote"`},
		{"empty flag name", []string{"pull", "org/model:v1", "--flag", "=x"}, "missing name"},
		{"unpack without dir", []string{"unpack", "org/model:v1"}, "directory is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateEnv(t)
			fake := &fakeKit{}

			res := run(t, fake, "", tt.args...)
			assert.Equal(t, ExitCommandError, res.code)
			assert.Contains(t, res.stderr, tt.want)
			assert.Empty(t, fake.calls)
		})
	}
}

func TestLogin_PasswordStdin(t *testing.T) {
	isolateEnv(t)
	fake := &fakeKit{}

	res := run(t, fake, "hunter2\n", "login", "-u", "alice", "--password-stdin")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Equal(t, []string{"kit", "login", "jozu.ml", "--username", "alice", "--password-stdin"}, fake.argv(t))
	assert.Equal(t, "hunter2", fake.calls[0].Stdin)
	assert.NotContains(t, res.stdout, "hunter2")
}

func TestLogin_PasswordFromEnv(t *testing.T) {
	isolateEnv(t)
	t.Setenv("KITCTL_PASSWORD", "from-env")
	fake := &fakeKit{}

	res := run(t, fake, "", "login", "registry.example.com", "--username", "bob")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Equal(t, "registry.example.com", fake.argv(t)[2])
	assert.Equal(t, "from-env", fake.calls[0].Stdin)
}

func TestLogin_NoPassword(t *testing.T) {
	isolateEnv(t)
	fake := &fakeKit{}

	res := run(t, fake, "", "login", "-u", "alice")
	assert.Equal(t, ExitCommandError, res.code)
	assert.Contains(t, res.stderr, "KITCTL_PASSWORD")
	assert.Empty(t, fake.calls)
}

func TestVersion(t *testing.T) {
	isolateEnv(t)
	fake := &fakeKit{stdout: "Version: 1.6.0\nCommit: abc\n"}

	res := run(t, fake, "", "--format", "json", "version")
	require.Equal(t, ExitSuccess, res.code, res.stderr)

	var resp struct {
		Data KitOutput `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &resp))
	assert.Equal(t, "1.6.0", resp.Data.Version)
	assert.Equal(t, "Version: 1.6.0\nCommit: abc\n", resp.Data.Output)
}

func TestVersion_Require(t *testing.T) {
	isolateEnv(t)
	fake := &fakeKit{stdout: "Version: 1.6.0\n"}

	res := run(t, fake, "", "version", "--require", ">= 1.0")
	assert.Equal(t, ExitSuccess, res.code, res.stderr)

	res = run(t, fake, "", "version", "--require", ">= 2.0")
	assert.Equal(t, ExitFailure, res.code)
	assert.Contains(t, res.stderr, "unsupported kit version")
}

func TestHistory_RecordsKitInvocations(t *testing.T) {
	isolateEnv(t)
	db := filepath.Join(t.TempDir(), "history.db")
	fake := &fakeKit{}

	res := run(t, fake, "", "--history-db", db, "pull", "org/model:v1")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	fake.exitCode = 3
	res = run(t, fake, "", "--history-db", db, "push", "org/model:v1")
	require.Equal(t, ExitFailure, res.code)

	res = run(t, nil, "", "--history-db", db, "--format", "json", "history")
	require.Equal(t, ExitSuccess, res.code, res.stderr)

	var resp struct {
		Data []struct {
			ID       string   `json:"id"`
			Command  string   `json:"command"`
			Args     []string `json:"args"`
			ExitCode int      `json:"exit_code"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &resp))
	require.Len(t, resp.Data, 2)

	byCommand := map[string]int{}
	for _, e := range resp.Data {
		byCommand[e.Command] = e.ExitCode
	}
	assert.Equal(t, map[string]int{"pull": 0, "push": 3}, byCommand)

	id := resp.Data[0].ID
	res = run(t, nil, "", "--history-db", db, "history", "show", id)
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "ID:       "+id)
}

func TestHistory_Text(t *testing.T) {
	isolateEnv(t)
	db := filepath.Join(t.TempDir(), "history.db")

	res := run(t, nil, "", "--history-db", db, "history")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "No kit invocations recorded.")

	require.Equal(t, ExitSuccess, run(t, &fakeKit{}, "", "--history-db", db, "list").code)
	res = run(t, nil, "", "--history-db", db, "history", "--limit", "5")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "COMMAND")
	assert.Contains(t, res.stdout, "kit list")
}

func TestHistory_Disabled(t *testing.T) {
	isolateEnv(t)

	res := run(t, nil, "", "history")
	assert.Equal(t, ExitCommandError, res.code)
	assert.Contains(t, res.stderr, "history is disabled")
}

func TestHistory_ShowUnknownID(t *testing.T) {
	isolateEnv(t)
	db := filepath.Join(t.TempDir(), "history.db")

	res := run(t, nil, "", "--history-db", db, "history", "show", "nope")
	assert.Equal(t, ExitCommandError, res.code)
	assert.Contains(t, res.stderr, "history entry not found")
}
