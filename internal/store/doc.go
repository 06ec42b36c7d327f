// Package store provides a SQLite-backed registry of serialized callables.
//
// Triples are stored under a content address: a CIDv1 (raw codec, sha2-256)
// of the RFC 8785 encoding of the triple without its hash. Storing the same
// callable twice is a no-op, except that a hash supplied later fills in a
// copy that was stored without one.
//
// # Ordering
//
// Every stored triple gets a seq from a logical clock. Listings are ordered
// by seq ASC, cid ASC COLLATE BINARY so results are identical across runs.
//
// # Connection
//
// A Store holds one connection in WAL mode with synchronous=NORMAL, a
// five second busy timeout and foreign keys enforced. Open checks that
// each setting took effect and migrates the schema by user_version.
package store
