// Package fnser converts JavaScript callables into portable
// {params, body, type} triples and rebuilds callables from them.
//
// Six callable shapes are recognized: Function, AsyncFunction, Generator,
// AsyncGenerator, ArrowFunction and AsyncArrowFunction. Serialize reads a
// callable's source text, strips comments and insignificant whitespace,
// classifies it and optionally attaches a content hash. Deserialize
// optionally verifies that hash and builds a fresh callable in an isolated
// runtime.
//
// Reconstructed callables do not capture the variables their originals
// closed over, and their bodies are not sandboxed or analyzed. Only
// deserialize triples from trusted producers, with hash verification
// enabled when the channel is not trusted for integrity.
//
// With the default encoder and digest, hashes are interchangeable with those
// computed by the JavaScript library the triple format comes from.
package fnser
