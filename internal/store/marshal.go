package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	"github.com/roach88/fnser/internal/ir"
)

// CIDOf returns the content address of t: a CIDv1 (raw codec, sha2-256
// multihash) of the RFC 8785 encoding of t without its hash.
func CIDOf(t ir.Triple) (cid.Cid, error) {
	data, err := ir.MarshalCanonical(t.Unhashed())
	if err != nil {
		return cid.Undef, fmt.Errorf("cid: %w", err)
	}
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, fmt.Errorf("cid: %w", err)
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}

// marshalParams converts params to JSON TEXT for storage.
func marshalParams(params []string) (string, error) {
	data, err := ir.JSONOrder.Encode(params)
	if err != nil {
		return "", fmt.Errorf("marshal params: %w", err)
	}
	return string(data), nil
}

// unmarshalParams parses stored params. Never returns nil.
func unmarshalParams(data string) ([]string, error) {
	params := []string{}
	if err := json.Unmarshal([]byte(data), &params); err != nil {
		return nil, fmt.Errorf("unmarshal params: %w", err)
	}
	if params == nil {
		params = []string{}
	}
	return params, nil
}

// nullString stores "" as NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
