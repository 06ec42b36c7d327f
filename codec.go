package fnser

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/roach88/fnser/internal/digest"
	"github.com/roach88/fnser/internal/errs"
	"github.com/roach88/fnser/internal/hasher"
	"github.com/roach88/fnser/internal/ir"
	"github.com/roach88/fnser/internal/jsrt"
	"github.com/roach88/fnser/internal/normalize"
	"github.com/roach88/fnser/internal/shape"
)

// SerializeOptions selects what Serialize preserves and whether it hashes.
// The zero value strips comments and whitespace and does not hash.
type SerializeOptions struct {
	Hash       bool
	Comments   bool
	Whitespace bool
}

// DeserializeOptions selects whether Deserialize verifies the stored hash.
type DeserializeOptions struct {
	Hash bool
}

// Codec serializes and reconstructs callables.
//
// A Codec is immutable after New and safe for concurrent use. The callables
// it returns are not.
type Codec struct {
	hasher     *hasher.Hasher
	classifier *shape.Classifier
	logger     *slog.Logger

	enc          ir.Encoder
	provider     digest.Provider
	matchTimeout time.Duration
}

// Option configures a Codec.
type Option func(*Codec)

// WithHasher uses h for hashing. It takes precedence over WithEncoder and
// WithDigest.
func WithHasher(h *hasher.Hasher) Option {
	return func(c *Codec) {
		c.hasher = h
	}
}

// WithEncoder selects the canonical encoder.
//
// Default: JSONOrder
func WithEncoder(enc Encoder) Option {
	return func(c *Codec) {
		c.enc = enc
	}
}

// WithDigest selects the digest provider.
//
// Default: SHA-256
func WithDigest(p Provider) Option {
	return func(c *Codec) {
		c.provider = p
	}
}

// WithLogger sets the logger. Default: slog.Default() at call time.
func WithLogger(l *slog.Logger) Option {
	return func(c *Codec) {
		c.logger = l
	}
}

// WithMatchTimeout bounds each shape pattern match.
func WithMatchTimeout(d time.Duration) Option {
	return func(c *Codec) {
		c.matchTimeout = d
	}
}

// New creates a Codec.
func New(opts ...Option) *Codec {
	c := &Codec{matchTimeout: shape.DefaultMatchTimeout}
	for _, opt := range opts {
		opt(c)
	}
	if c.hasher == nil {
		c.hasher = hasher.New(c.enc, c.provider)
	}
	c.enc = c.hasher.Encoder()
	c.provider = c.hasher.Provider()
	c.classifier = shape.New(shape.WithMatchTimeout(c.matchTimeout))
	return c
}

// Encoder returns the encoder in use.
func (c *Codec) Encoder() Encoder { return c.enc }

// Provider returns the digest provider in use.
func (c *Codec) Provider() Provider { return c.provider }

func (c *Codec) log() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return slog.Default()
}

// Serialize converts fn into a triple.
//
// fn must be a callable runtime value or a *Func; anything else fails with a
// TYPE error before any source text is read. Source text that matches none
// of the six shapes fails with a CLASSIFICATION error. When opts.Hash is set
// the hash of the triple is attached; a hashing failure is reported as a
// SERIALIZATION error whose cause is the ENCODING or DIGEST error.
func (c *Codec) Serialize(ctx context.Context, fn any, opts SerializeOptions) (Triple, error) {
	src, err := jsrt.SourceOf(fn)
	if errors.Is(err, jsrt.ErrNotCallable) {
		return Triple{}, errs.NewType(jsrt.TypeName(fn))
	}
	if err != nil {
		return Triple{}, errs.Wrap(errs.KindSerialization, "failure reading function source", err)
	}

	return c.SerializeSource(ctx, src, opts)
}

// SerializeSource converts callable source text into a triple. The text is
// not evaluated.
func (c *Codec) SerializeSource(ctx context.Context, src string, opts SerializeOptions) (Triple, error) {
	normalized := normalize.Normalize(src, normalize.Options{
		KeepComments:   opts.Comments,
		KeepWhitespace: opts.Whitespace,
	})

	m, err := c.classifier.Classify(normalized, opts.Whitespace)
	if err != nil {
		return Triple{}, err
	}
	triple := m.Triple()

	c.log().Debug("function serialized",
		"type", triple.Type,
		"params", len(triple.Params))

	if !opts.Hash {
		return triple, nil
	}

	sum, err := c.hasher.Hash(ctx, triple)
	if err != nil {
		return Triple{}, errs.Wrap(errs.KindSerialization, "failure hashing serialized function", err)
	}
	triple.Hash = sum

	c.log().Debug("hash attached",
		"algorithm", c.provider.Algorithm(),
		"hash", sum)

	return triple, nil
}

// Hash returns the hash of t without its hash field.
func (c *Codec) Hash(ctx context.Context, t Triple) (string, error) {
	return c.hasher.Hash(ctx, t.Unhashed())
}

// Verify checks t's stored hash against a recomputed one.
//
// A triple without a hash fails with MISSING_HASH, a mismatch with CHECKSUM,
// and a hashing failure with DESERIALIZATION.
func (c *Codec) Verify(ctx context.Context, t Triple) error {
	if !t.Hashed() {
		return errs.New(errs.KindMissingHash, "deserialized function missing hash")
	}
	return c.verify(ctx, t.Unhashed(), t.Hash)
}

func (c *Codec) verify(ctx context.Context, unhashed any, stored string) error {
	sum, err := c.hasher.Hash(ctx, unhashed)
	if err != nil {
		return errs.Wrap(errs.KindDeserialization, "failure generating checksum", err)
	}
	if sum != stored {
		c.log().Warn("checksum mismatch",
			"algorithm", c.provider.Algorithm(),
			"computed", sum,
			"stored", stored)
		return errs.NewChecksum(sum, stored)
	}

	c.log().Debug("checksum verified", "algorithm", c.provider.Algorithm())
	return nil
}

// Deserialize builds a fresh callable from t.
//
// With opts.Hash set the stored hash is verified first; see Verify. A type
// tag outside the six shapes fails with CONSTRUCTION. Any other failure,
// such as a body that does not compile, is a DESERIALIZATION error.
func (c *Codec) Deserialize(ctx context.Context, t Triple, opts DeserializeOptions) (*Func, error) {
	if opts.Hash {
		if err := c.Verify(ctx, t); err != nil {
			return nil, err
		}
	}
	fn, err := c.construct(t)
	return fn, reconstructionError(err)
}

// DeserializeRecord builds a callable from a record decoded from JSON.
//
// Verification hashes the record exactly as received, minus its hash key,
// so fields unknown to this package still take part.
func (c *Codec) DeserializeRecord(ctx context.Context, rec Record, opts DeserializeOptions) (*Func, error) {
	if opts.Hash {
		stored, ok := rec.StoredHash()
		if !ok {
			return nil, errs.New(errs.KindMissingHash, "deserialized function missing hash")
		}
		if err := c.verify(ctx, rec.WithoutHash(), stored); err != nil {
			return nil, err
		}
	}

	t, err := ir.TripleFromRecord(rec)
	if err != nil {
		return nil, reconstructionError(err)
	}
	fn, err := c.construct(t)
	return fn, reconstructionError(err)
}

func (c *Codec) construct(t Triple) (*Func, error) {
	st, ok := t.Type.Strategy()
	if !ok {
		return nil, errs.NewConstruction(string(t.Type))
	}

	fn, err := jsrt.Construct(st, t.Params, t.Body)
	if err != nil {
		return nil, err
	}

	c.log().Debug("function deserialized",
		"type", t.Type,
		"params", len(t.Params))
	return fn, nil
}

// reconstructionError wraps err as DESERIALIZATION unless it already
// carries a reconstruction kind.
func reconstructionError(err error) error {
	if err == nil || errs.Passthrough(err) || errs.IsKind(err, errs.KindDeserialization) {
		return err
	}
	return errs.Wrap(errs.KindDeserialization, "failure deserializing", err)
}

var defaultCodec = New()

// Serialize converts fn with the default codec.
func Serialize(ctx context.Context, fn any, opts SerializeOptions) (Triple, error) {
	return defaultCodec.Serialize(ctx, fn, opts)
}

// Deserialize builds a callable from t with the default codec.
func Deserialize(ctx context.Context, t Triple, opts DeserializeOptions) (*Func, error) {
	return defaultCodec.Deserialize(ctx, t, opts)
}

// DeserializeRecord builds a callable from rec with the default codec.
func DeserializeRecord(ctx context.Context, rec Record, opts DeserializeOptions) (*Func, error) {
	return defaultCodec.DeserializeRecord(ctx, rec, opts)
}
