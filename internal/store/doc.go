// Package store persists agency records.
//
// Repository is the contract the refresh pipeline depends on: read the whole
// collection in storage order, and replace one agency's latest audit by
// exact URL match. Unknown URLs are rejected, never inserted.
//
// FileStore keeps the collection in a single indented JSON array and
// rewrites it in full on every update through a temp file and a rename, so
// a reader never observes a half-written file. The postgres and mongo
// subpackages store one record per agency instead.
package store
