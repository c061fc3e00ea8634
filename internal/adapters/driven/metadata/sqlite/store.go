// Package sqlite provides the SQLite-backed metadata store. Records are
// keyed by document UID for point lookup; a document_tags join table is
// the secondary access path for tag membership, and filter expressions
// compile into parameterized WHERE clauses.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/corpora-io/corpora/internal/adapters/driven/metadata/sqlite/migrations"
	"github.com/corpora-io/corpora/internal/core/domain"
	"github.com/corpora-io/corpora/internal/core/filter"
	"github.com/corpora-io/corpora/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.MetadataStore = (*Store)(nil)

const recordColumns = `d.uid, d.name, d.title, d.source_tag, d.source_url, d.source_type,
	d.file_name, d.mime_type, d.file_size, d.confidential, d.license,
	d.processing, d.tags, d.created_at, d.updated_at`

// Store is a SQLite-backed implementation of driven.MetadataStore.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the metadata database at path and applies
// pending migrations.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("metadata: database path is required")
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("metadata: open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("metadata: enable foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("metadata: run migrations: %w", err)
	}
	return s, nil
}

// Close implements driven.MetadataStore.
func (s *Store) Close() error { return s.db.Close() }

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
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
		if _, err := s.db.Exec(
			"INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// Save implements driven.MetadataStore: the document row and its tag join
// rows are replaced in one transaction.
func (s *Store) Save(ctx context.Context, record *domain.DocumentRecord) error {
	if record.UID == "" {
		return domain.ErrInvalidInput
	}

	// Timestamps are stamped into the row; the caller's record is left
	// untouched.
	now := time.Now().UTC()
	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	processingJSON, err := json.Marshal(record.Processing)
	if err != nil {
		return fmt.Errorf("metadata: marshal processing: %w", err)
	}
	tagsJSON, err := json.Marshal(record.Tags)
	if err != nil {
		return fmt.Errorf("metadata: marshal tags: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("metadata: begin save: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (uid, name, title, source_tag, source_url, source_type,
			file_name, mime_type, file_size, confidential, license,
			processing, tags, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(uid) DO UPDATE SET
			name = excluded.name,
			title = excluded.title,
			source_tag = excluded.source_tag,
			source_url = excluded.source_url,
			source_type = excluded.source_type,
			file_name = excluded.file_name,
			mime_type = excluded.mime_type,
			file_size = excluded.file_size,
			confidential = excluded.confidential,
			license = excluded.license,
			processing = excluded.processing,
			tags = excluded.tags,
			updated_at = excluded.updated_at
	`, record.UID, record.Name, record.Title,
		record.Source.SourceTag, record.Source.URL, record.Source.Type,
		record.File.Name, record.File.MIMEType, record.File.Size,
		boolToInt(record.Confidential), record.License,
		string(processingJSON), string(tagsJSON),
		filter.FormatTime(createdAt), filter.FormatTime(now))
	if err != nil {
		return fmt.Errorf("metadata: save document %s: %w", record.UID, err)
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM document_tags WHERE document_uid = ?", record.UID); err != nil {
		return fmt.Errorf("metadata: clear tags for %s: %w", record.UID, err)
	}
	for _, tag := range record.Tags {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO document_tags (document_uid, tag_id, tag_name) VALUES (?, ?, ?)
		`, record.UID, tag.ID, tag.Name); err != nil {
			return fmt.Errorf("metadata: save tag %s for %s: %w", tag.ID, record.UID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("metadata: commit save: %w", err)
	}
	return nil
}

// Get implements driven.MetadataStore.
func (s *Store) Get(ctx context.Context, uid string) (*domain.DocumentRecord, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+recordColumns+" FROM documents d WHERE d.uid = ?", uid)

	record, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return record, nil
}

// Query implements driven.MetadataStore: the filter expression compiles
// into a parameterized WHERE clause.
func (s *Store) Query(ctx context.Context, expr map[string]any) ([]domain.DocumentRecord, error) {
	preds, err := filter.Parse(expr)
	if err != nil {
		return nil, err
	}

	query := "SELECT " + recordColumns + " FROM documents d"
	where, args := filter.SQL(preds)
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY d.uid"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("metadata: query documents: %w", err)
	}
	defer rows.Close()

	var out []domain.DocumentRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("metadata: iterate documents: %w", err)
	}
	return out, nil
}

// Delete implements driven.MetadataStore. Tag join rows cascade.
func (s *Store) Delete(ctx context.Context, uid string) error {
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM documents WHERE uid = ?", uid); err != nil {
		return fmt.Errorf("metadata: delete document %s: %w", uid, err)
	}
	return nil
}

// List implements driven.MetadataStore.
func (s *Store) List(ctx context.Context) ([]domain.DocumentRecord, error) {
	return s.Query(ctx, nil)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*domain.DocumentRecord, error) {
	var record domain.DocumentRecord
	var confidential int
	var processingJSON, tagsJSON, createdAt, updatedAt string

	err := row.Scan(&record.UID, &record.Name, &record.Title,
		&record.Source.SourceTag, &record.Source.URL, &record.Source.Type,
		&record.File.Name, &record.File.MIMEType, &record.File.Size,
		&confidential, &record.License,
		&processingJSON, &tagsJSON, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("metadata: scan document: %w", err)
	}

	record.Confidential = confidential == 1
	if err := json.Unmarshal([]byte(processingJSON), &record.Processing); err != nil {
		return nil, fmt.Errorf("metadata: document %s processing: %w", record.UID, err)
	}
	if err := json.Unmarshal([]byte(tagsJSON), &record.Tags); err != nil {
		return nil, fmt.Errorf("metadata: document %s tags: %w", record.UID, err)
	}
	if record.CreatedAt, err = filter.ParseTime(createdAt); err != nil {
		return nil, fmt.Errorf("metadata: document %s created_at: %w", record.UID, err)
	}
	if record.UpdatedAt, err = filter.ParseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("metadata: document %s updated_at: %w", record.UID, err)
	}
	return &record, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
