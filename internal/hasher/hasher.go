// Package hasher composes a canonical encoder with a digest provider.
package hasher

import (
	"context"

	"github.com/roach88/fnser/internal/digest"
	"github.com/roach88/fnser/internal/errs"
	"github.com/roach88/fnser/internal/ir"
)

// Hasher maps a value to a hex digest of its canonical encoding.
// A Hasher is immutable and safe for concurrent use.
type Hasher struct {
	enc      ir.Encoder
	provider digest.Provider
}

// New returns a Hasher. Nil arguments select the defaults.
func New(enc ir.Encoder, provider digest.Provider) *Hasher {
	if enc == nil {
		enc = ir.JSONOrder
	}
	if provider == nil {
		provider = digest.SHA256()
	}
	return &Hasher{enc: enc, provider: provider}
}

// Encoder returns the encoder in use.
func (h *Hasher) Encoder() ir.Encoder { return h.enc }

// Provider returns the digest provider in use.
func (h *Hasher) Provider() digest.Provider { return h.provider }

// Hash encodes v and digests the encoding.
//
// An encoding failure is reported as an ENCODING error and a digest failure
// as a DIGEST error; both keep the underlying error as cause.
func (h *Hasher) Hash(ctx context.Context, v any) (string, error) {
	encoded, err := h.enc.Encode(v)
	if err != nil {
		return "", errs.Wrap(errs.KindEncoding, "failed to encode function structure", err)
	}

	sum, err := h.provider.Digest(ctx, string(encoded))
	if err != nil {
		return "", errs.Wrap(errs.KindDigest, "failed to generate hash digest", err)
	}
	return sum, nil
}
