// Package sqlite provides the relational-extension vector engine: chunks
// live in SQLite rows with BLOB-encoded vectors, ANN scoring runs over the
// relational store, and an FTS5 table provides the BM25 lexical
// capability. Suited to shared deployments where the index must outlive
// any single process.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/corpora-io/corpora/internal/adapters/driven/vector"
	"github.com/corpora-io/corpora/internal/core/domain"
	"github.com/corpora-io/corpora/internal/core/ports/driven"
)

// Ensure Store implements the interfaces.
var (
	_ driven.VectorStore     = (*Store)(nil)
	_ driven.LexicalSearcher = (*Store)(nil)
)

// lexicalOversample widens the FTS candidate fetch so post-filtering by
// tags and retrievability can still fill k results.
const lexicalOversample = 4

// Store is a SQLite-backed implementation of driven.VectorStore.
type Store struct {
	db       *sql.DB
	embedder driven.EmbeddingService
}

// Open opens (or creates) the chunk database at path.
// WAL mode keeps readers unblocked by writers.
func Open(path string, embedder driven.EmbeddingService) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite: database path is required")
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("sqlite: open database: %w", err)
	}

	s := &Store{db: db, embedder: embedder}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) createTables() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS chunks (
			chunk_uid    TEXT PRIMARY KEY,
			document_uid TEXT NOT NULL,
			text         TEXT NOT NULL,
			embedding    BLOB NOT NULL,
			tag_ids      TEXT NOT NULL DEFAULT '[]',
			metadata     TEXT NOT NULL DEFAULT '{}',
			retrievable  INTEGER NOT NULL DEFAULT 1
		);
		CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_uid);
		CREATE VIRTUAL TABLE IF NOT EXISTS chunks_fts USING fts5(chunk_uid UNINDEXED, text);
	`)
	if err != nil {
		return fmt.Errorf("sqlite: create tables: %w", err)
	}
	return nil
}

// Name implements driven.VectorStore.
func (s *Store) Name() string { return "sqlite" }

// Close implements driven.VectorStore.
func (s *Store) Close() error { return s.db.Close() }

// Upsert implements driven.VectorStore. The batch is written in one
// transaction: every chunk is stored or none is.
func (s *Store) Upsert(ctx context.Context, chunks []domain.VectorChunk) ([]string, error) {
	prepared, err := vector.PrepareChunks(ctx, s.embedder, s.Name(), chunks)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: begin upsert: %w", err)
	}
	defer tx.Rollback()

	uids := make([]string, len(prepared))
	for i, c := range prepared {
		tagsJSON, err := json.Marshal(c.TagIDs)
		if err != nil {
			return nil, fmt.Errorf("sqlite: marshal tag ids: %w", err)
		}
		metaJSON, err := json.Marshal(c.Metadata)
		if err != nil {
			return nil, fmt.Errorf("sqlite: marshal metadata: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO chunks (chunk_uid, document_uid, text, embedding, tag_ids, metadata, retrievable)
			VALUES (?, ?, ?, ?, ?, ?, 1)
			ON CONFLICT(chunk_uid) DO UPDATE SET
				document_uid = excluded.document_uid,
				text = excluded.text,
				embedding = excluded.embedding,
				tag_ids = excluded.tag_ids,
				metadata = excluded.metadata,
				retrievable = excluded.retrievable
		`, c.ChunkUID, c.DocumentUID, c.Text, vector.EncodeVector(c.Embedding),
			string(tagsJSON), string(metaJSON))
		if err != nil {
			return nil, fmt.Errorf("sqlite: upsert chunk %s: %w", c.ChunkUID, err)
		}

		if _, err := tx.ExecContext(ctx,
			"DELETE FROM chunks_fts WHERE chunk_uid = ?", c.ChunkUID); err != nil {
			return nil, fmt.Errorf("sqlite: refresh lexical index for %s: %w", c.ChunkUID, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO chunks_fts (chunk_uid, text) VALUES (?, ?)", c.ChunkUID, c.Text); err != nil {
			return nil, fmt.Errorf("sqlite: index chunk %s: %w", c.ChunkUID, err)
		}

		uids[i] = c.ChunkUID
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: commit upsert: %w", err)
	}
	return uids, nil
}

// DeleteForDocument implements driven.VectorStore.
func (s *Store) DeleteForDocument(ctx context.Context, documentUID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin delete: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		DELETE FROM chunks_fts WHERE chunk_uid IN
			(SELECT chunk_uid FROM chunks WHERE document_uid = ?)
	`, documentUID)
	if err != nil {
		return fmt.Errorf("sqlite: delete lexical entries for %s: %w", documentUID, err)
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM chunks WHERE document_uid = ?", documentUID); err != nil {
		return fmt.Errorf("sqlite: delete chunks for %s: %w", documentUID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit delete: %w", err)
	}
	return nil
}

// SetRetrievable implements driven.VectorStore.
func (s *Store) SetRetrievable(ctx context.Context, documentUID string, retrievable bool) error {
	val := 0
	if retrievable {
		val = 1
	}
	if _, err := s.db.ExecContext(ctx,
		"UPDATE chunks SET retrievable = ? WHERE document_uid = ?", val, documentUID); err != nil {
		return fmt.Errorf("sqlite: set retrievable for %s: %w", documentUID, err)
	}
	return nil
}

// DocumentChunkCounts implements driven.VectorStore.
func (s *Store) DocumentChunkCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT document_uid, COUNT(*) FROM chunks GROUP BY document_uid")
	if err != nil {
		return nil, fmt.Errorf("sqlite: count chunks: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var uid string
		var n int
		if err := rows.Scan(&uid, &n); err != nil {
			return nil, fmt.Errorf("sqlite: scan chunk count: %w", err)
		}
		counts[uid] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate chunk counts: %w", err)
	}
	return counts, nil
}

// AnnSearch implements driven.VectorStore: candidates are scanned from the
// relational store and scored by cosine similarity.
func (s *Store) AnnSearch(
	ctx context.Context, query string, k int, f *domain.SearchFilter,
) ([]domain.AnnHit, error) {
	if k <= 0 {
		return nil, nil
	}

	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("sqlite: embed query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT chunk_uid, document_uid, text, embedding, tag_ids, metadata, retrievable
		FROM chunks WHERE retrievable = 1
	`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query chunks: %w", err)
	}
	defer rows.Close()

	var hits []domain.AnnHit
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		if !f.Matches(&c) {
			continue
		}
		hits = append(hits, domain.AnnHit{Chunk: c, Score: vector.Cosine(queryVec, c.Embedding)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate chunks: %w", err)
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Chunk.ChunkUID < hits[j].Chunk.ChunkUID
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	for i := range hits {
		hits[i].Rank = i + 1
	}
	return hits, nil
}

// LexicalSearch implements driven.LexicalSearcher via FTS5 with BM25
// ranking. Tag and retrievability restriction happens after the FTS
// fetch, so the candidate limit grows until k hits pass the filter or
// the index has no more matches.
func (s *Store) LexicalSearch(
	ctx context.Context, query string, k int, f *domain.SearchFilter,
) ([]domain.LexicalHit, error) {
	if k <= 0 {
		return nil, nil
	}

	match := buildMatchQuery(query)
	if match == "" {
		return nil, nil
	}

	var hits []domain.LexicalHit
	for limit := k * lexicalOversample; ; limit *= 2 {
		ftsHits, exhausted, err := s.ftsCandidates(ctx, match, limit)
		if err != nil {
			return nil, err
		}

		hits = hits[:0]
		for _, h := range ftsHits {
			c, err := s.getChunk(ctx, h.uid)
			if err != nil {
				return nil, err
			}
			if c == nil || !c.Retrievable || !f.Matches(c) {
				continue
			}
			// Lower bm25 means more relevant; negate so score is
			// non-increasing with rank.
			hits = append(hits, domain.LexicalHit{Chunk: *c, Score: -h.bm25})
		}

		if len(hits) >= k || exhausted {
			break
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Chunk.ChunkUID < hits[j].Chunk.ChunkUID
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	for i := range hits {
		hits[i].Rank = i + 1
	}
	return hits, nil
}

type ftsHit struct {
	uid  string
	bm25 float64
}

// ftsCandidates fetches up to limit FTS matches in relevance order. The
// second result reports whether the index is exhausted: fewer rows than
// limit means a larger fetch cannot surface more.
func (s *Store) ftsCandidates(ctx context.Context, match string, limit int) ([]ftsHit, bool, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT chunk_uid, bm25(chunks_fts) FROM chunks_fts
		WHERE chunks_fts MATCH ?
		ORDER BY bm25(chunks_fts), chunk_uid
		LIMIT ?
	`, match, limit)
	if err != nil {
		return nil, false, fmt.Errorf("sqlite: lexical query: %w", err)
	}
	defer rows.Close()

	var hits []ftsHit
	for rows.Next() {
		var h ftsHit
		if err := rows.Scan(&h.uid, &h.bm25); err != nil {
			return nil, false, fmt.Errorf("sqlite: scan lexical hit: %w", err)
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("sqlite: iterate lexical hits: %w", err)
	}
	return hits, len(hits) < limit, nil
}

func (s *Store) getChunk(ctx context.Context, uid string) (*domain.VectorChunk, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT chunk_uid, document_uid, text, embedding, tag_ids, metadata, retrievable
		FROM chunks WHERE chunk_uid = ?
	`, uid)
	c, err := scanChunk(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChunk(row rowScanner) (domain.VectorChunk, error) {
	var c domain.VectorChunk
	var blob []byte
	var tagsJSON, metaJSON string
	var retrievable int

	if err := row.Scan(&c.ChunkUID, &c.DocumentUID, &c.Text, &blob,
		&tagsJSON, &metaJSON, &retrievable); err != nil {
		if err == sql.ErrNoRows {
			return c, err
		}
		return c, fmt.Errorf("sqlite: scan chunk: %w", err)
	}

	embedding, err := vector.DecodeVector(blob)
	if err != nil {
		return c, fmt.Errorf("sqlite: chunk %s: %w", c.ChunkUID, err)
	}
	c.Embedding = embedding

	if err := json.Unmarshal([]byte(tagsJSON), &c.TagIDs); err != nil {
		return c, fmt.Errorf("sqlite: chunk %s tag ids: %w", c.ChunkUID, err)
	}
	if err := json.Unmarshal([]byte(metaJSON), &c.Metadata); err != nil {
		return c, fmt.Errorf("sqlite: chunk %s metadata: %w", c.ChunkUID, err)
	}
	c.Retrievable = retrievable == 1
	return c, nil
}

// buildMatchQuery turns free text into an FTS5 query: each token quoted,
// joined with OR, so caller punctuation cannot break the match syntax.
func buildMatchQuery(query string) string {
	tokens := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	})
	if len(tokens) == 0 {
		return ""
	}
	quoted := make([]string, len(tokens))
	for i, t := range tokens {
		quoted[i] = `"` + t + `"`
	}
	return strings.Join(quoted, " OR ")
}
