package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/paperchat/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/paperchat/internal/core/domain"
	"github.com/custodia-labs/paperchat/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.CollectionStore = (*Store)(nil)

// Store is a SQLite-backed CollectionStore.
type Store struct {
	db   *sql.DB
	path string

	mu          sync.Mutex
	collections map[string]*collection
}

// NewStore opens (or creates) the vector database in dataDir.
// If dataDir is empty, defaults to ~/.paperchat/data/vectors.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".paperchat", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "vectors.db")

	// WAL lets readers proceed while a collection is being written.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:          db,
		path:        dbPath,
		collections: make(map[string]*collection),
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// GetOrCreate returns the named collection, creating its row if absent.
// The same handle is returned for repeated calls so writers share one mutex.
func (s *Store) GetOrCreate(ctx context.Context, name string) (driven.VectorCollection, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: collection name is empty", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.collections[name]; ok {
		return c, nil
	}

	if _, err := s.db.ExecContext(ctx,
		"INSERT INTO collections (name) VALUES (?) ON CONFLICT(name) DO NOTHING", name); err != nil {
		return nil, fmt.Errorf("creating collection %s: %w", name, err)
	}

	var dims int
	if err := s.db.QueryRowContext(ctx,
		"SELECT dimensions FROM collections WHERE name = ?", name).Scan(&dims); err != nil {
		return nil, fmt.Errorf("reading collection %s: %w", name, err)
	}

	c := &collection{store: s, name: name, dimensions: dims}
	s.collections[name] = c
	return c, nil
}

// Stats summarises every collection, ordered by name.
func (s *Store) Stats(ctx context.Context) ([]domain.CollectionStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.name, c.dimensions, COUNT(v.chunk_id), COUNT(DISTINCT v.document_id)
		FROM collections c
		LEFT JOIN vectors v ON v.collection = c.name
		GROUP BY c.name, c.dimensions
		ORDER BY c.name
	`)
	if err != nil {
		return nil, fmt.Errorf("querying collection stats: %w", err)
	}
	defer rows.Close()

	var stats []domain.CollectionStats //nolint:prealloc // size unknown from query
	for rows.Next() {
		var st domain.CollectionStats
		if err := rows.Scan(&st.Name, &st.Dimensions, &st.Records, &st.Documents); err != nil {
			return nil, fmt.Errorf("scanning collection stats: %w", err)
		}
		stats = append(stats, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating collection stats: %w", err)
	}
	return stats, nil
}

// migrate applies every embedded *.up.sql newer than the recorded version.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_collections.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// collection implements driven.VectorCollection over the shared database.
type collection struct {
	store *Store
	name  string

	// writeMu serialises writers; dimensions is guarded by it.
	writeMu    sync.Mutex
	dimensions int
}

var _ driven.VectorCollection = (*collection)(nil)

// Name returns the collection name.
func (c *collection) Name() string {
	return c.name
}

// Upsert writes records in one transaction, replacing existing chunk IDs.
// The first non-empty upsert fixes the collection's dimensionality.
func (c *collection) Upsert(ctx context.Context, records []domain.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	dims := c.dimensions
	if dims == 0 {
		dims = len(records[0].Embedding)
	}
	for _, r := range records {
		if r.ChunkID == "" {
			return fmt.Errorf("%w: record without chunk id", domain.ErrInvalidInput)
		}
		if len(r.Embedding) == 0 || len(r.Embedding) != dims {
			return fmt.Errorf("%w: chunk %s has %d dimensions, collection %s expects %d",
				domain.ErrDimensionMismatch, r.ChunkID, len(r.Embedding), c.name, dims)
		}
	}

	tx, err := c.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if c.dimensions == 0 {
		if _, err := tx.ExecContext(ctx,
			"UPDATE collections SET dimensions = ? WHERE name = ?", dims, c.name); err != nil {
			return fmt.Errorf("setting dimensions: %w", err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO vectors (collection, chunk_id, document_id, text, metadata, embedding, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(collection, chunk_id) DO UPDATE SET
			document_id = excluded.document_id,
			text = excluded.text,
			metadata = excluded.metadata,
			embedding = excluded.embedding,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		metadataJSON, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling metadata: %w", err)
		}

		if _, err := stmt.ExecContext(ctx, c.name, r.ChunkID, r.DocumentID(), r.Text,
			string(metadataJSON), float32SliceToBytes(r.Embedding)); err != nil {
			return fmt.Errorf("saving vector %s: %w", r.ChunkID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	c.dimensions = dims
	return nil
}

// Nearest scans the collection and returns the k most similar records.
func (c *collection) Nearest(ctx context.Context, embedding []float32, k int) ([]domain.VectorHit, error) {
	if k <= 0 {
		return nil, nil
	}

	c.writeMu.Lock()
	dims := c.dimensions
	c.writeMu.Unlock()

	if dims == 0 {
		return nil, nil
	}
	if len(embedding) != dims {
		return nil, fmt.Errorf("%w: query has %d dimensions, collection %s expects %d",
			domain.ErrDimensionMismatch, len(embedding), c.name, dims)
	}

	rows, err := c.store.db.QueryContext(ctx,
		"SELECT chunk_id, text, metadata, embedding FROM vectors WHERE collection = ?", c.name)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	var hits []domain.VectorHit
	for rows.Next() {
		var (
			record       domain.VectorRecord
			metadataJSON string
			blob         []byte
		)
		if err := rows.Scan(&record.ChunkID, &record.Text, &metadataJSON, &blob); err != nil {
			return nil, fmt.Errorf("scanning vector: %w", err)
		}
		if err := json.Unmarshal([]byte(metadataJSON), &record.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshalling metadata: %w", err)
		}
		record.Embedding = bytesToFloat32Slice(blob)

		hits = append(hits, domain.VectorHit{
			Record:     record,
			Similarity: domain.CosineSimilarity(embedding, record.Embedding),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating vectors: %w", err)
	}

	return domain.RankHits(hits, k), nil
}

// Count returns the number of records in the collection.
func (c *collection) Count(ctx context.Context) (int, error) {
	var n int
	err := c.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM vectors WHERE collection = ?", c.name).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("counting vectors: %w", err)
	}
	return n, nil
}

// float32SliceToBytes encodes floats as little-endian IEEE 754.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice decodes a blob written by float32SliceToBytes.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
