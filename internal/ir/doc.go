// Package ir provides the portable representation of a serialized callable.
//
// This package contains the Triple and Shape types plus the canonical
// encoders used for hashing and content addressing. All other internal
// packages import ir; ir imports only internal/errs. This keeps the wire
// model the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Shape is a closed set of six tags; anything else fails construction
//   - The hash field is never part of the value being hashed
//   - JSON field order on the wire is params, body, type, hash
//   - No float types in encoded values - they break determinism
package ir
