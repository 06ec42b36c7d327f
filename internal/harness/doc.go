// Package harness runs conformance scenarios against the codec.
//
// A scenario names a callable's source text, the serialize options, the
// triple it must produce and calls to make on the rebuilt callable.
//
// # Scenario Format
//
//	name: scenario_name
//	description: "What this scenario validates"
//	source: "(x) => x.trim()"
//	options:
//	  hash: true
//	  comments: false
//	  whitespace: false
//	  source_only: false
//	expect:
//	  type: ArrowFunction
//	  params: [x]
//	  body: "return (x.trim());"
//	  hash: 8821...
//	  source: "function anonymous(x\n) {\nreturn (x.trim());\n}"
//	calls:
//	  - args: [" a "]
//	    result: a
//	  - args: [1, 2]
//	    yields: [1, 2]
//	  - args: [x]
//	    throws: "boom"
//	assertions:
//	  - type: round_trip
//
// # Assertion Types
//
//   - round_trip: re-serializing the rebuilt callable yields the same params and body
//   - tamper_detected: a modified body fails verification with a CHECKSUM error
//   - stored: the triple survives a put and resolve through an isolated store
//
// Every run gets a fresh in-memory store and a deterministic clock, so its
// trace is identical across runs.
package harness
