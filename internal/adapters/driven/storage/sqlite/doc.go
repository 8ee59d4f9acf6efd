// Package sqlite provides the persistent vector collection store.
//
// It uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO. Each collection is a row in the collections table and its chunk
// embeddings live in the vectors table as little-endian float32 blobs.
// Nearest-neighbour queries are brute-force cosine similarity computed in
// Go over the collection's rows.
//
// # Schema
//
// The schema is managed through versioned migrations in migrations/.
//
// # Data Location
//
// By default the database is stored at ~/.paperchat/data/vectors.db.
//
// # Thread Safety
//
// Reads may run concurrently. Writes to one collection are serialised by a
// per-collection mutex on top of SQLite's WAL locking.
package sqlite
