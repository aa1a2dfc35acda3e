package vector

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// collections is the fixed set of tables SQLiteStore creates on open; the
// gateway never sees an unrecognized collection name reach the database
// layer because the protocol dispatcher validates it first.
var collections = []Collection{
	CollectionKnowledge, CollectionFixOutcomes, CollectionObservations,
	CollectionWebPages, CollectionQuarantine,
}

const schemaTemplate = `
CREATE TABLE IF NOT EXISTS %[1]s (
	id TEXT PRIMARY KEY,
	document TEXT NOT NULL,
	metadata TEXT NOT NULL DEFAULT '{}',
	embedding BLOB
);
CREATE VIRTUAL TABLE IF NOT EXISTS %[1]s_fts USING fts5(
	id UNINDEXED,
	document,
	content='%[1]s',
	content_rowid='rowid'
);
CREATE TRIGGER IF NOT EXISTS %[1]s_ai AFTER INSERT ON %[1]s BEGIN
	INSERT INTO %[1]s_fts(rowid, id, document) VALUES (new.rowid, new.id, new.document);
END;
CREATE TRIGGER IF NOT EXISTS %[1]s_ad AFTER DELETE ON %[1]s BEGIN
	INSERT INTO %[1]s_fts(%[1]s_fts, rowid, id, document) VALUES ('delete', old.rowid, old.id, old.document);
END;
CREATE TRIGGER IF NOT EXISTS %[1]s_au AFTER UPDATE ON %[1]s BEGIN
	INSERT INTO %[1]s_fts(%[1]s_fts, rowid, id, document) VALUES ('delete', old.rowid, old.id, old.document);
	INSERT INTO %[1]s_fts(rowid, id, document) VALUES (new.rowid, new.id, new.document);
END;
`

// SQLiteStore is the embedded, cgo-free, single-writer default
// implementation of Store: one WAL-mode database with an FTS5 shadow
// table per collection, plus an optional in-process cosine index layered
// on top when an EmbeddingModel is configured.
type SQLiteStore struct {
	db    *sql.DB
	embed EmbeddingModel
	index *cosineIndex
}

// Open creates (or reopens) the embedded store at path, in WAL mode, with
// the per-collection schema applied. embed may be nil; Query then falls
// back to FTS5 bm25 ranking instead of cosine distance.
func Open(path string, embed EmbeddingModel) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("vector: creating store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)")
	if err != nil {
		return nil, fmt.Errorf("vector: opening store: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("vector: pinging store: %w", err)
	}

	for _, c := range collections {
		stmt := fmt.Sprintf(schemaTemplate, string(c))
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("vector: initializing schema for %s: %w", c, err)
		}
	}

	s := &SQLiteStore{db: db, embed: embed, index: newCosineIndex()}
	if embed != nil {
		if err := s.warmIndex(context.Background()); err != nil {
			db.Close()
			return nil, fmt.Errorf("vector: warming cosine index: %w", err)
		}
	}
	return s, nil
}

// warmIndex loads every stored embedding into the in-process cosine
// index at startup, since the index itself holds no state on disk.
func (s *SQLiteStore) warmIndex(ctx context.Context) error {
	for _, c := range collections {
		rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
			`SELECT id, embedding FROM %s WHERE embedding IS NOT NULL`, string(c)))
		if err != nil {
			return err
		}
		for rows.Next() {
			var id string
			var blob []byte
			if err := rows.Scan(&id, &blob); err != nil {
				rows.Close()
				return err
			}
			s.index.put(c, id, decodeVector(blob))
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Backup snapshots the store to destPath via VACUUM INTO, the WAL-mode
// way to get a consistent copy without taking the writer offline --
// referenced by memorygateway.Server's backup method, which defers the
// actual file copy to whatever opened the store.
func (s *SQLiteStore) Backup(ctx context.Context, destPath string) error {
	if dir := filepath.Dir(destPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("vector: creating backup directory: %w", err)
		}
	}
	if _, err := s.db.ExecContext(ctx, `VACUUM INTO ?`, destPath); err != nil {
		return fmt.Errorf("vector: backing up store: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Count(ctx context.Context, collection Collection) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, string(collection))).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("vector: counting %s: %w", collection, err)
	}
	return n, nil
}

func (s *SQLiteStore) Upsert(ctx context.Context, collection Collection, documents []string, metadatas []map[string]any, ids []string) error {
	if len(documents) != len(ids) {
		return fmt.Errorf("vector: upsert %s: documents/ids length mismatch", collection)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("vector: upsert %s: %w", collection, err)
	}
	defer tx.Rollback()

	var embeddings [][]float32
	if s.embed != nil {
		embeddings, err = s.embed.Embed(ctx, documents)
		if err != nil {
			return fmt.Errorf("vector: embedding documents for %s: %w", collection, err)
		}
	}

	for i, id := range ids {
		meta := map[string]any{}
		if i < len(metadatas) && metadatas[i] != nil {
			meta = metadatas[i]
		}
		metaJSON, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("vector: marshaling metadata for %s/%s: %w", collection, id, err)
		}

		var embeddingBlob []byte
		if i < len(embeddings) {
			embeddingBlob = encodeVector(embeddings[i])
		}

		_, err = tx.ExecContext(ctx, fmt.Sprintf(`
			INSERT INTO %s (id, document, metadata, embedding) VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET document=excluded.document, metadata=excluded.metadata, embedding=excluded.embedding
		`, string(collection)), id, documents[i], string(metaJSON), embeddingBlob)
		if err != nil {
			return fmt.Errorf("vector: upserting %s/%s: %w", collection, id, err)
		}

		if embeddingBlob != nil {
			s.index.put(collection, id, embeddings[i])
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("vector: committing upsert to %s: %w", collection, err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, collection Collection, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(
		`DELETE FROM %s WHERE id IN (%s)`, string(collection), strings.Join(placeholders, ",")), args...)
	if err != nil {
		return fmt.Errorf("vector: deleting from %s: %w", collection, err)
	}
	for _, id := range ids {
		s.index.remove(collection, id)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, collection Collection, ids []string, limit int) ([]Hit, error) {
	if len(ids) > 0 {
		placeholders := make([]string, len(ids))
		args := make([]any, len(ids))
		for i, id := range ids {
			placeholders[i] = "?"
			args[i] = id
		}
		rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
			`SELECT id, document, metadata FROM %s WHERE id IN (%s)`,
			string(collection), strings.Join(placeholders, ",")), args...)
		if err != nil {
			return nil, fmt.Errorf("vector: get %s by id: %w", collection, err)
		}
		return scanHits(rows)
	}

	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT id, document, metadata FROM %s ORDER BY rowid DESC LIMIT ?`, string(collection)), limit)
	if err != nil {
		return nil, fmt.Errorf("vector: get %s by limit: %w", collection, err)
	}
	return scanHits(rows)
}

func scanHits(rows *sql.Rows) ([]Hit, error) {
	defer rows.Close()
	var hits []Hit
	for rows.Next() {
		var h Hit
		var metaJSON string
		if err := rows.Scan(&h.ID, &h.Document, &metaJSON); err != nil {
			return nil, fmt.Errorf("vector: scanning row: %w", err)
		}
		h.Metadata = map[string]any{}
		_ = json.Unmarshal([]byte(metaJSON), &h.Metadata)
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// Query returns the nResults best matches for queryTexts. With an
// EmbeddingModel configured, matching is cosine distance over the
// in-process index; otherwise it falls back to FTS5 bm25 ranking, which
// has no natural distance so Distance is left at the bm25 rank instead.
func (s *SQLiteStore) Query(ctx context.Context, collection Collection, queryTexts []string, nResults int) ([]Hit, error) {
	if len(queryTexts) == 0 {
		return nil, nil
	}
	if nResults <= 0 {
		nResults = 5
	}
	joined := strings.Join(queryTexts, " ")

	if s.embed != nil {
		vecs, err := s.embed.Embed(ctx, []string{joined})
		if err != nil {
			return nil, fmt.Errorf("vector: embedding query for %s: %w", collection, err)
		}
		if len(vecs) == 0 {
			return nil, nil
		}
		matches := s.index.search(collection, vecs[0], nResults)
		if len(matches) == 0 {
			return nil, nil
		}
		ids := make([]string, len(matches))
		distanceByID := make(map[string]float64, len(matches))
		for i, m := range matches {
			ids[i] = m.id
			distanceByID[m.id] = m.distance
		}
		hits, err := s.Get(ctx, collection, ids, 0)
		if err != nil {
			return nil, err
		}
		for i := range hits {
			hits[i].Distance = distanceByID[hits[i].ID]
		}
		return hits, nil
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT t.id, t.document, t.metadata, bm25(%[1]s_fts) AS rank
		FROM %[1]s_fts
		JOIN %[1]s t ON t.id = %[1]s_fts.id
		WHERE %[1]s_fts MATCH ?
		ORDER BY rank LIMIT ?
	`, string(collection)), ftsQuery(joined), nResults)
	if err != nil {
		return nil, fmt.Errorf("vector: fts query on %s: %w", collection, err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var h Hit
		var metaJSON string
		if err := rows.Scan(&h.ID, &h.Document, &metaJSON, &h.Distance); err != nil {
			return nil, fmt.Errorf("vector: scanning fts row: %w", err)
		}
		h.Metadata = map[string]any{}
		_ = json.Unmarshal([]byte(metaJSON), &h.Metadata)
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// ftsQuery quotes the raw query as an FTS5 phrase so punctuation and
// reserved FTS operators in free-form observation text never produce a
// syntax error from the MATCH clause.
func ftsQuery(raw string) string {
	return `"` + strings.ReplaceAll(raw, `"`, `""`) + `"`
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		bits := math.Float32bits(f)
		buf[i*4] = byte(bits)
		buf[i*4+1] = byte(bits >> 8)
		buf[i*4+2] = byte(bits >> 16)
		buf[i*4+3] = byte(bits >> 24)
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	n := len(buf) / 4
	v := make([]float32, n)
	for i := 0; i < n; i++ {
		bits := uint32(buf[i*4]) | uint32(buf[i*4+1])<<8 | uint32(buf[i*4+2])<<16 | uint32(buf[i*4+3])<<24
		v[i] = math.Float32frombits(bits)
	}
	return v
}
