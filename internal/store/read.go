package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ipfs/go-cid"

	"github.com/roach88/fnser/internal/ir"
)

// ErrNotFound is returned when no triple matches a lookup.
var ErrNotFound = errors.New("not found")

// Entry is a stored triple.
type Entry struct {
	CID    cid.Cid
	Triple ir.Triple
	Seq    int64
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

// Get returns the triple stored under c.
func (s *Store) Get(ctx context.Context, c cid.Cid) (Entry, error) {
	entry, err := getEntry(ctx, s.db, c.String())
	if err != nil {
		return Entry{}, fmt.Errorf("get %s: %w", c, err)
	}
	return entry, nil
}

// Resolve looks up ref as a cid, falling back to a name.
func (s *Store) Resolve(ctx context.Context, ref string) (Entry, error) {
	if c, err := cid.Decode(ref); err == nil {
		return s.Get(ctx, c)
	}

	var key string
	err := s.db.QueryRowContext(ctx, `SELECT cid FROM names WHERE name = ?`, ref).Scan(&key)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("resolve %q: %w", ref, ErrNotFound)
	}
	if err != nil {
		return Entry{}, fmt.Errorf("resolve %q: %w", ref, err)
	}

	entry, err := getEntry(ctx, s.db, key)
	if err != nil {
		return Entry{}, fmt.Errorf("resolve %q: %w", ref, err)
	}
	return entry, nil
}

// List returns all stored triples ordered by seq ASC, cid ASC COLLATE BINARY.
// Returns an empty slice (not nil) for an empty store.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cid, type, params, body, hash, seq
		FROM triples
		ORDER BY seq ASC, cid COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query triples: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate triples: %w", err)
	}
	return entries, nil
}

// Names returns the names pointing at c, sorted.
func (s *Store) Names(ctx context.Context, c cid.Cid) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name FROM names WHERE cid = ? ORDER BY name COLLATE BINARY ASC
	`, c.String())
	if err != nil {
		return nil, fmt.Errorf("query names: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate names: %w", err)
	}
	return names, nil
}

// NextSeq returns the seq the next new triple will receive.
func (s *Store) NextSeq(ctx context.Context) (int64, error) {
	return nextSeq(ctx, s.db)
}

func nextSeq(ctx context.Context, q querier) (int64, error) {
	var seq int64
	if err := q.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM triples`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("next seq: %w", err)
	}
	return seq, nil
}

func getEntry(ctx context.Context, q querier, key string) (Entry, error) {
	row := q.QueryRowContext(ctx, `
		SELECT cid, type, params, body, hash, seq
		FROM triples
		WHERE cid = ?
	`, key)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	return entry, err
}

func scanEntry(row scanner) (Entry, error) {
	var (
		key, typ, params, body string
		hash                   sql.NullString
		seq                    int64
	)
	if err := row.Scan(&key, &typ, &params, &body, &hash, &seq); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, err
		}
		return Entry{}, fmt.Errorf("scan triple: %w", err)
	}

	c, err := cid.Decode(key)
	if err != nil {
		return Entry{}, fmt.Errorf("scan triple: %w", err)
	}
	ps, err := unmarshalParams(params)
	if err != nil {
		return Entry{}, err
	}

	return Entry{
		CID: c,
		Triple: ir.Triple{
			Params: ps,
			Body:   body,
			Type:   ir.Shape(typ),
			Hash:   hash.String,
		},
		Seq: seq,
	}, nil
}
