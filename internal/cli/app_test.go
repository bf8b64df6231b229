package cli

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subramanyaSgb/finvault/internal/vault"
)

var profileIDPattern = regexp.MustCompile(`created: (\S+)`)

// testApp builds an App bound to a temp data dir with cheap KDF costs so
// each command invocation stays fast.
func testApp(t *testing.T, stdin string) (*App, *bytes.Buffer, string) {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "finvault.yaml")
	cfg := fmt.Sprintf(
		"data_dir: %s\nlog:\n  level: error\nkdf:\n  time: 1\n  memory_kib: 1024\n  threads: 1\n", dir)
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))

	var out bytes.Buffer
	a := &App{
		in:  bufio.NewReader(strings.NewReader(stdin)),
		out: &out,
	}
	return a, &out, cfgPath
}

func run(t *testing.T, a *App, cfgPath string, args ...string) error {
	t.Helper()
	cmd := a.rootCmd()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append(args, "--config", cfgPath))
	return cmd.ExecuteContext(context.Background())
}

func TestApp_ProfileAndEntityFlow(t *testing.T) {
	a, out, cfgPath := testApp(t, "")

	stubSecrets(t, "1234", "1234")
	require.NoError(t, run(t, a, cfgPath, "profile", "create", "Alice"))

	m := profileIDPattern.FindStringSubmatch(out.String())
	require.NotNil(t, m, "create output should carry the profile id: %s", out.String())
	profileID := m[1]

	out.Reset()
	stubSecrets(t, "1234")
	require.NoError(t, run(t, a, cfgPath, "add", "transaction",
		"--profile", profileID,
		"--data", `{"date":"2026-03-14T00:00:00Z","type":"expense","category":"food","amount":"12.50"}`))
	assert.Contains(t, out.String(), "transaction created:")

	out.Reset()
	stubSecrets(t, "1234")
	require.NoError(t, run(t, a, cfgPath, "list", "transaction", "--profile", profileID))
	assert.Contains(t, out.String(), `"category": "food"`)

	out.Reset()
	stubSecrets(t, "1234")
	err := run(t, a, cfgPath, "list", "account", "--profile", profileID)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "[]")
}

func TestApp_WrongPIN(t *testing.T) {
	a, out, cfgPath := testApp(t, "")

	stubSecrets(t, "1234", "1234")
	require.NoError(t, run(t, a, cfgPath, "profile", "create", "Alice"))
	profileID := profileIDPattern.FindStringSubmatch(out.String())[1]

	stubSecrets(t, "9999")
	err := run(t, a, cfgPath, "list", "transaction", "--profile", profileID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed attempts")
}

func TestApp_ExportImportFlow(t *testing.T) {
	a, out, cfgPath := testApp(t, "")

	stubSecrets(t, "1234", "1234")
	require.NoError(t, run(t, a, cfgPath, "profile", "create", "Alice"))
	src := profileIDPattern.FindStringSubmatch(out.String())[1]

	out.Reset()
	stubSecrets(t, "1234")
	require.NoError(t, run(t, a, cfgPath, "add", "transaction",
		"--profile", src,
		"--data", `{"date":"2026-03-14T00:00:00Z","type":"expense","category":"food","amount":"500"}`))

	artifact := filepath.Join(t.TempDir(), "backup.json")
	stubSecrets(t, "1234", "backup-pw", "backup-pw")
	require.NoError(t, run(t, a, cfgPath, "export",
		"--profile", src, "--mode", "encrypted", "--out", artifact))
	require.FileExists(t, artifact)

	out.Reset()
	stubSecrets(t, "5678", "5678")
	require.NoError(t, run(t, a, cfgPath, "profile", "create", "Bob"))
	dst := profileIDPattern.FindStringSubmatch(out.String())[1]

	out.Reset()
	stubSecrets(t, "5678", "backup-pw")
	require.NoError(t, run(t, a, cfgPath, "import", "--profile", dst, "--file", artifact))
	assert.Contains(t, out.String(), "imported 1")

	out.Reset()
	stubSecrets(t, "5678")
	require.NoError(t, run(t, a, cfgPath, "list", "transaction", "--profile", dst))
	assert.Contains(t, out.String(), `"category": "food"`)
}

func TestApp_UnknownKind(t *testing.T) {
	a, _, cfgPath := testApp(t, "")
	err := run(t, a, cfgPath, "list", "car", "--profile", "whatever")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown entity kind")
}

func TestApp_BiometricWithoutWrapper(t *testing.T) {
	v, err := vault.Open(context.Background(),
		filepath.Join(t.TempDir(), "vault.db"),
		vault.Options{Logger: zerolog.Nop()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = v.Close(context.Background()) })

	a := &App{vault: v, out: io.Discard}
	for _, args := range [][]string{
		{"enroll", "--profile", "p1"},
		{"disable", "--profile", "p1"},
	} {
		cmd := a.biometricCmd()
		cmd.SetOut(io.Discard)
		cmd.SetErr(io.Discard)
		cmd.SetArgs(args)
		err := cmd.ExecuteContext(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not available")
	}
}
