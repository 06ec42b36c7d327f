package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ipfs/go-cid"

	"github.com/roach88/fnser/internal/ir"
)

// Put stores t and returns its entry.
//
// Put is idempotent: storing a triple whose cid is already present keeps the
// existing seq. If the stored copy has no hash and t does, the hash is
// filled in. A differing hash never replaces a stored one.
func (s *Store) Put(ctx context.Context, t ir.Triple) (Entry, error) {
	if verrs := t.Validate(); len(verrs) > 0 {
		msgs := make([]string, len(verrs))
		for i, e := range verrs {
			msgs[i] = e.Error()
		}
		return Entry{}, fmt.Errorf("put: invalid triple: %s", strings.Join(msgs, "; "))
	}

	c, err := CIDOf(t)
	if err != nil {
		return Entry{}, fmt.Errorf("put: %w", err)
	}
	params, err := marshalParams(t.Params)
	if err != nil {
		return Entry{}, fmt.Errorf("put: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Entry{}, fmt.Errorf("put: begin: %w", err)
	}
	defer tx.Rollback()

	seq, err := nextSeq(ctx, tx)
	if err != nil {
		return Entry{}, fmt.Errorf("put: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO triples (cid, type, params, body, hash, seq)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(cid) DO UPDATE SET hash = excluded.hash
		WHERE triples.hash IS NULL AND excluded.hash IS NOT NULL
	`,
		c.String(),
		string(t.Type),
		params,
		t.Body,
		nullString(t.Hash),
		seq,
	)
	if err != nil {
		return Entry{}, fmt.Errorf("put: %w", err)
	}

	entry, err := getEntry(ctx, tx, c.String())
	if err != nil {
		return Entry{}, fmt.Errorf("put: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Entry{}, fmt.Errorf("put: commit: %w", err)
	}
	return entry, nil
}

// Tag points name at a stored triple, replacing any previous target.
// Names that parse as a CID are rejected so Resolve stays unambiguous.
func (s *Store) Tag(ctx context.Context, name string, ref cid.Cid) error {
	if name == "" {
		return fmt.Errorf("tag: empty name")
	}
	if _, err := cid.Decode(name); err == nil {
		return fmt.Errorf("tag: name %q is a cid", name)
	}

	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM triples WHERE cid = ?`, ref.String()).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("tag %s: %w", ref, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("tag: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO names (name, cid) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET cid = excluded.cid
	`, name, ref.String())
	if err != nil {
		return fmt.Errorf("tag: %w", err)
	}
	return nil
}
