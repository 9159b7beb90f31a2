// Package sqlite persists overlap runs in SQLite.
//
// A run is one pipeline pass over one (sequence, frame). Its overlap
// relation, 3D boundary points and per-image strips are stored so that
// queries can be answered later without re-running the pipeline. The
// schema is managed by golang-migrate with migrations embedded in the
// binary.
//
// Dependency rule: this package imports the domain packages (overlap,
// boundary, strip, query, pipeline) but none of them import it.
package sqlite
