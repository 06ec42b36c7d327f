// Package digest provides the hash functions applied to encoded triples.
//
// Every provider returns the lowercase hex encoding of the raw digest.
package digest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/multiformats/go-multihash"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

// Provider turns text into a hex digest.
type Provider interface {
	Algorithm() string
	Digest(ctx context.Context, text string) (string, error)
}

// Algorithm names of the built-in providers. They follow the multihash
// table so the same names select the same functions everywhere.
const (
	NameSHA256     = "sha2-256"
	NameSHA3_256   = "sha3-256"
	NameBLAKE2b256 = "blake2b-256"
)

type sumProvider struct {
	name string
	sum  func([]byte) []byte
}

func (p sumProvider) Algorithm() string { return p.name }

func (p sumProvider) Digest(ctx context.Context, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return hex.EncodeToString(p.sum([]byte(text))), nil
}

// SHA256 returns the default provider.
func SHA256() Provider {
	return sumProvider{name: NameSHA256, sum: func(b []byte) []byte {
		s := sha256.Sum256(b)
		return s[:]
	}}
}

// SHA3_256 returns a SHA3-256 provider.
func SHA3_256() Provider {
	return sumProvider{name: NameSHA3_256, sum: func(b []byte) []byte {
		s := sha3.Sum256(b)
		return s[:]
	}}
}

// BLAKE2b256 returns a BLAKE2b-256 provider.
func BLAKE2b256() Provider {
	return sumProvider{name: NameBLAKE2b256, sum: func(b []byte) []byte {
		s := blake2b.Sum256(b)
		return s[:]
	}}
}

type multihashProvider struct {
	code uint64
	name string
}

// Multihash returns a provider backed by the multihash function registered
// under code. The hex output covers the digest only, without the multihash
// prefix.
func Multihash(code uint64) (Provider, error) {
	name, ok := multihash.Codes[code]
	if !ok {
		return nil, fmt.Errorf("unknown multihash code 0x%x", code)
	}
	if _, err := multihash.Sum(nil, code, -1); err != nil {
		return nil, fmt.Errorf("multihash %s: %w", name, err)
	}
	return multihashProvider{code: code, name: name}, nil
}

func (p multihashProvider) Algorithm() string { return p.name }

func (p multihashProvider) Digest(ctx context.Context, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	sum, err := multihash.Sum([]byte(text), p.code, -1)
	if err != nil {
		return "", fmt.Errorf("multihash %s: %w", p.name, err)
	}
	decoded, err := multihash.Decode(sum)
	if err != nil {
		return "", fmt.Errorf("multihash %s: %w", p.name, err)
	}
	return hex.EncodeToString(decoded.Digest), nil
}

// Func adapts a function to Provider.
type Func struct {
	Name string
	Fn   func(ctx context.Context, text string) (string, error)
}

func (f Func) Algorithm() string { return f.Name }

func (f Func) Digest(ctx context.Context, text string) (string, error) {
	return f.Fn(ctx, text)
}

var builtin = map[string]func() Provider{
	NameSHA256:     SHA256,
	"sha256":       SHA256,
	NameSHA3_256:   SHA3_256,
	NameBLAKE2b256: BLAKE2b256,
}

// ByName returns the provider for name. Built-in names are tried first,
// then the multihash registry.
func ByName(name string) (Provider, error) {
	if name == "" {
		return SHA256(), nil
	}
	if mk, ok := builtin[name]; ok {
		return mk(), nil
	}
	if code, ok := multihash.Names[name]; ok {
		return Multihash(code)
	}
	return nil, fmt.Errorf("unknown digest %q", name)
}

// Names returns the built-in provider names in sorted order.
func Names() []string {
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
