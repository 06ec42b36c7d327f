package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/fnser/internal/testutil"
)

const (
	identitySource = "x => x"
	identityTriple = `{"params":["x"],"body":"return (x);","type":"ArrowFunction"}`
	identityHash   = "f0b032b61526a396dd321036dbbeac15f096b35c174b1a5be64e23dfe2f3f49d"
	identityCID    = "bafkreiewobphhlchya25huxutdxi2c3hzlat5w7bnj6ttvdy535rjywlpm"

	generatorTriple = `{"params":["a","b"],"body":"yield a;\nyield b;\nyield 3.14;","type":"Generator"}`
)

func identityHashed() string {
	return strings.TrimSuffix(identityTriple, "}") + `,"hash":"` + identityHash + `"}`
}

// execResult captures one CLI invocation.
type execResult struct {
	stdout string
	stderr string
	err    error
}

// execute runs the root command with deterministic trace ids.
func execute(t *testing.T, stdin string, args ...string) execResult {
	t.Helper()

	cmd := NewRootCommandWith(&RootOptions{IDs: testutil.NewSequentialIDs("trace")})
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err := cmd.Execute()
	return execResult{stdout: out.String(), stderr: errOut.String(), err: err}
}

// decodeResponse parses a JSON envelope from stdout.
func decodeResponse(t *testing.T, stdout string, data any) CLIResponse {
	t.Helper()

	var raw struct {
		CLIResponse
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &raw), "stdout: %s", stdout)
	if data != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, data))
	}
	resp := raw.CLIResponse
	return resp
}

func writeTemp(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
