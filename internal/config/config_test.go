package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fnser"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "json", cfg.Encoder)
	assert.Equal(t, "sha2-256", cfg.Digest)
	assert.Equal(t, "1s", cfg.MatchTimeout)
	assert.Equal(t, "", cfg.Store)
	assert.Equal(t, SerializeConfig{}, cfg.Serialize)
	assert.Equal(t, DeserializeConfig{}, cfg.Deserialize)

	d, err := cfg.Timeout()
	require.NoError(t, err)
	assert.Equal(t, time.Second, d)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "fnser.yaml", `
encoder: jcs
digest: sha3-256
match_timeout: 250ms
store: /tmp/fns.db
serialize:
  hash: true
  whitespace: true
deserialize:
  verify: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "jcs", cfg.Encoder)
	assert.Equal(t, "sha3-256", cfg.Digest)
	assert.Equal(t, "/tmp/fns.db", cfg.Store)
	assert.Equal(t, fnser.SerializeOptions{Hash: true, Whitespace: true}, cfg.SerializeOptions())
	assert.Equal(t, fnser.DeserializeOptions{Hash: true}, cfg.DeserializeOptions())

	d, err := cfg.Timeout()
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, d)
}

func TestLoadYAMLPartialKeepsDefaults(t *testing.T) {
	path := writeFile(t, "fnser.yml", "serialize:\n  comments: true\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "json", cfg.Encoder)
	assert.Equal(t, "sha2-256", cfg.Digest)
	assert.True(t, cfg.Serialize.Comments)
	assert.False(t, cfg.Serialize.Hash)
}

func TestLoadEmptyYAML(t *testing.T) {
	path := writeFile(t, "empty.yaml", "")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadCUE(t *testing.T) {
	path := writeFile(t, "fnser.cue", `
encoder: "rfc8785"
digest:  "blake2b-256"
serialize: hash: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "rfc8785", cfg.Encoder)
	assert.Equal(t, "blake2b-256", cfg.Digest)
	assert.True(t, cfg.Serialize.Hash)
	assert.Equal(t, "1s", cfg.MatchTimeout)
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"unknown field", "c.yaml", "colour: blue\n"},
		{"unknown encoder", "c.yaml", "encoder: xml\n"},
		{"empty digest", "c.yaml", "digest: \"\"\n"},
		{"bad duration", "c.yaml", "match_timeout: soon\n"},
		{"numeric duration", "c.yaml", "match_timeout: 5\n"},
		{"non-bool flag", "c.yaml", "serialize:\n  hash: yes please\n"},
		{"invalid yaml", "c.yaml", "encoder: [json\n"},
		{"unknown cue field", "c.cue", "colour: \"blue\"\n"},
		{"cue syntax", "c.cue", "encoder: \n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.file, tt.content))
			require.Error(t, err)

			var cfgErr *Error
			assert.True(t, errors.As(err, &cfgErr), "got %T: %v", err, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestErrorIncludesPosition(t *testing.T) {
	path := writeFile(t, "pos.cue", "encoder: \"xml\"\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "encoder")
}

func TestCodec(t *testing.T) {
	cfg := Default()
	cfg.Encoder = "jcs"
	cfg.Digest = "sha3-256"

	codec, err := cfg.Codec()
	require.NoError(t, err)
	assert.Equal(t, "jcs", codec.Encoder().Name())
	assert.Equal(t, "sha3-256", codec.Provider().Algorithm())

	triple, err := codec.SerializeSource(context.Background(), "x => x", cfg.SerializeOptions())
	require.NoError(t, err)
	assert.Equal(t, fnser.ShapeArrowFunction, triple.Type)
}

func TestCodecDefaultsMatchPackageHash(t *testing.T) {
	codec, err := Default().Codec()
	require.NoError(t, err)

	triple, err := codec.SerializeSource(context.Background(), "x => x", fnser.SerializeOptions{Hash: true})
	require.NoError(t, err)
	assert.Equal(t, "f0b032b61526a396dd321036dbbeac15f096b35c174b1a5be64e23dfe2f3f49d", triple.Hash)
}

func TestCodecRejectsUnknownNames(t *testing.T) {
	cfg := Default()
	cfg.Digest = "md4000"
	_, err := cfg.Codec()
	assert.Error(t, err)

	cfg = Default()
	cfg.Encoder = "xml"
	_, err = cfg.Codec()
	assert.Error(t, err)

	cfg = Default()
	cfg.MatchTimeout = "later"
	_, err = cfg.Codec()
	assert.Error(t, err)
}
