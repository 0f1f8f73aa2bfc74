// Package cache implements the content-addressed stage cache.
//
// Each pipeline stage has a key derived from its parent stage's key plus the
// stage's own declared inputs (base reference, command lines, file content
// digests). Keys therefore form a chain: editing the dependency manifest
// produces a new key for the dependency stage and, transitively, for every
// stage after it, while leaving earlier stages untouched.
//
// The store maps keys to exported OCI stage archives on disk. A cache hit
// lets the pipeline seed the next stage from the stored archive without
// executing any container.
package cache
