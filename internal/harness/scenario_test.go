package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fnser"
)

func writeScenario(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario_Valid(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/generator.yaml")
	require.NoError(t, err)

	assert.Equal(t, "generator", s.Name)
	assert.True(t, s.Options.Hash)
	assert.Equal(t, "Generator", s.Expect.Type)
	assert.Equal(t, []string{"a", "b"}, s.Expect.Params)
	require.Len(t, s.Calls, 1)
	assert.Equal(t, []any{1, 2}, s.Calls[0].Args)
	assert.Equal(t, []any{1, 2, 3.14}, s.Calls[0].Yields)
	assert.Len(t, s.Assertions, 3)
}

func TestLoadScenario_BlockScalarSource(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/named_function.yaml")
	require.NoError(t, err)

	assert.Equal(t,
		"function namedDeclaredInclude (a,b) {\n      return a.toLowerCase().startsWith(b.toLowerCase());\n    }",
		s.Source)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("testdata/scenarios/absent.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_UnknownField(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: typo
description: d
source: "x => x"
expect: {type: ArrowFunction, params: [x], body: "return (x);"}
assertion:
  - type: round_trip
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_Validation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing name",
			yaml: `{description: d, source: "x => x", expect: {type: ArrowFunction}}`,
			want: "name is required",
		},
		{
			name: "missing description",
			yaml: `{name: n, source: "x => x", expect: {type: ArrowFunction}}`,
			want: "description is required",
		},
		{
			name: "missing source",
			yaml: `{name: n, description: d, expect: {type: ArrowFunction}}`,
			want: "source is required",
		},
		{
			name: "unknown shape",
			yaml: `{name: n, description: d, source: "x => x", expect: {type: Lambda}}`,
			want: "not a known shape",
		},
		{
			name: "hash without option",
			yaml: `{name: n, description: d, source: "x => x", expect: {type: ArrowFunction, hash: abc}}`,
			want: "expect.hash requires options.hash",
		},
		{
			name: "calls with source_only",
			yaml: `{name: n, description: d, source: "x => x", options: {source_only: true}, expect: {type: ArrowFunction}, calls: [{args: [1]}]}`,
			want: "calls require reconstruction",
		},
		{
			name: "conflicting outcomes",
			yaml: `{name: n, description: d, source: "x => x", expect: {type: ArrowFunction}, calls: [{args: [1], result: 1, throws: boom}]}`,
			want: "exclusive",
		},
		{
			name: "unknown assertion",
			yaml: `{name: n, description: d, source: "x => x", expect: {type: ArrowFunction}, assertions: [{type: trace_order}]}`,
			want: `unknown type "trace_order"`,
		},
		{
			name: "tamper without hash",
			yaml: `{name: n, description: d, source: "x => x", expect: {type: ArrowFunction}, assertions: [{type: tamper_detected}]}`,
			want: "requires options.hash",
		},
		{
			name: "round trip without reconstruction",
			yaml: `{name: n, description: d, source: "x => x", options: {source_only: true}, expect: {type: ArrowFunction}, assertions: [{type: round_trip}]}`,
			want: "requires reconstruction",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenarios_Directory(t *testing.T) {
	scenarios, err := LoadScenarios("testdata/scenarios")
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)

	for i := 1; i < len(scenarios); i++ {
		assert.NotEqual(t, scenarios[i-1].Name, scenarios[i].Name)
	}
}

func TestLoadScenarios_SortedAndBothExtensions(t *testing.T) {
	dir := t.TempDir()
	body := "description: d\nsource: \"x => x\"\nexpect: {type: ArrowFunction, params: [x], body: \"return (x);\"}\n"
	writeScenario(t, dir, "b.yml", "name: second\n"+body)
	writeScenario(t, dir, "a.yaml", "name: first\n"+body)
	writeScenario(t, dir, "notes.txt", "ignored")

	scenarios, err := LoadScenarios(dir)
	require.NoError(t, err)
	require.Len(t, scenarios, 2)
	assert.Equal(t, "first", scenarios[0].Name)
	assert.Equal(t, "second", scenarios[1].Name)
}

func TestLoadScenarios_DuplicateName(t *testing.T) {
	dir := t.TempDir()
	body := "name: same\ndescription: d\nsource: \"x => x\"\nexpect: {type: ArrowFunction}\n"
	writeScenario(t, dir, "a.yaml", body)
	writeScenario(t, dir, "b.yaml", body)

	_, err := LoadScenarios(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate scenario name")
}

func TestLoadScenarios_ReportsFile(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "broken.yaml", "name: [\n")

	_, err := LoadScenarios(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.yaml")
}

func TestExpectTriple(t *testing.T) {
	e := Expect{Type: "Function", Body: "return 1;"}
	assert.Equal(t, fnser.Triple{Params: []string{}, Body: "return 1;", Type: fnser.ShapeFunction}, e.Triple())
}

func TestOptionsSerializeOptions(t *testing.T) {
	o := Options{Hash: true, Whitespace: true, SourceOnly: true}
	assert.Equal(t, fnser.SerializeOptions{Hash: true, Whitespace: true}, o.SerializeOptions())
}
