// Package config loads fnser settings from YAML or CUE files.
//
// Both formats are unified with the embedded CUE schema, which supplies
// defaults and rejects unknown fields.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/roach88/fnser"
	"github.com/roach88/fnser/internal/digest"
	"github.com/roach88/fnser/internal/ir"
)

//go:embed schema.cue
var schemaSource string

// Config holds resolved settings.
type Config struct {
	Encoder      string            `json:"encoder"`
	Digest       string            `json:"digest"`
	MatchTimeout string            `json:"match_timeout"`
	Store        string            `json:"store"`
	Serialize    SerializeConfig   `json:"serialize"`
	Deserialize  DeserializeConfig `json:"deserialize"`
}

// SerializeConfig holds serialize defaults.
type SerializeConfig struct {
	Hash       bool `json:"hash"`
	Comments   bool `json:"comments"`
	Whitespace bool `json:"whitespace"`
}

// DeserializeConfig holds deserialize defaults.
type DeserializeConfig struct {
	Verify bool `json:"verify"`
}

// Error is a configuration error with the CUE position when known.
type Error struct {
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return e.Message
}

// Default returns the schema defaults.
func Default() *Config {
	cfg, err := Parse("defaults", nil)
	if err != nil {
		panic(fmt.Sprintf("config: embedded schema defaults invalid: %v", err))
	}
	return cfg
}

// Load reads and validates a configuration file. Files ending in .cue are
// parsed as CUE; anything else as YAML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return Parse(path, data)
}

// Parse validates data, named by filename, against the schema.
func Parse(filename string, data []byte) (*Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	var user cue.Value
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".cue":
		user = ctx.CompileBytes(data, cue.Filename(filename))
	default:
		var raw map[string]any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, &Error{Message: fmt.Sprintf("%s: %v", filename, err)}
		}
		if raw == nil {
			raw = map[string]any{}
		}
		user = ctx.Encode(raw)
	}
	if err := user.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	v := def.Unify(user)
	if err := v.Validate(cue.Concrete(true), cue.Final()); err != nil {
		return nil, formatCUEError(err)
	}

	var cfg Config
	if err := v.Decode(&cfg); err != nil {
		return nil, formatCUEError(err)
	}
	if _, err := cfg.Timeout(); err != nil {
		return nil, &Error{Message: err.Error()}
	}
	return &cfg, nil
}

// Timeout parses MatchTimeout.
func (c *Config) Timeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.MatchTimeout)
	if err != nil {
		return 0, fmt.Errorf("match_timeout: %w", err)
	}
	return d, nil
}

// Codec builds a codec from the configured encoder, digest and timeout.
// Extra options are applied last.
func (c *Config) Codec(extra ...fnser.Option) (*fnser.Codec, error) {
	enc, err := ir.EncoderByName(c.Encoder)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	provider, err := digest.ByName(c.Digest)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	timeout, err := c.Timeout()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	opts := []fnser.Option{
		fnser.WithEncoder(enc),
		fnser.WithDigest(provider),
		fnser.WithMatchTimeout(timeout),
	}
	return fnser.New(append(opts, extra...)...), nil
}

// SerializeOptions returns the configured serialize defaults.
func (c *Config) SerializeOptions() fnser.SerializeOptions {
	return fnser.SerializeOptions{
		Hash:       c.Serialize.Hash,
		Comments:   c.Serialize.Comments,
		Whitespace: c.Serialize.Whitespace,
	}
}

// DeserializeOptions returns the configured deserialize defaults.
func (c *Config) DeserializeOptions() fnser.DeserializeOptions {
	return fnser.DeserializeOptions{Hash: c.Deserialize.Verify}
}

// formatCUEError returns the first CUE error with its position.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	msg := first.Error()
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		return &Error{Message: msg, Pos: positions[0]}
	}
	return &Error{Message: msg}
}
