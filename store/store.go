package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/muniqa/ingest/crawl"
	"github.com/muniqa/ingest/enrich"
)

// Store wraps the SQLite database. It implements crawl.CheckpointStore and
// receives the pipeline's enriched fragments.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// SaveProgress overwrites the single checkpoint row in one transaction.
func (s *Store) SaveProgress(ctx context.Context, p *crawl.Progress) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO progress (id, payload, saved_at) VALUES (1, ?, ?)
		ON CONFLICT (id) DO UPDATE SET payload = excluded.payload, saved_at = excluded.saved_at`,
		string(payload), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

// LoadProgress returns the saved checkpoint, or (nil, nil) when none exists.
func (s *Store) LoadProgress(ctx context.Context) (*crawl.Progress, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM progress WHERE id = 1`).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	var p crawl.Progress
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return nil, fmt.Errorf("decode progress: %w", err)
	}
	return &p, nil
}

// ClearProgress removes the checkpoint row after a clean run.
func (s *Store) ClearProgress(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM progress WHERE id = 1`); err != nil {
		return fmt.Errorf("clear progress: %w", err)
	}
	return nil
}

// SaveDocument upserts one document record keyed by source URL and replaces
// its fragments in the same transaction, so a re-crawl never leaves a
// document half-updated.
func (s *Store) SaveDocument(ctx context.Context, docID, docType string, doc crawl.Document, frags []*enrich.Fragment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (id, source_url, title, document_kind, document_type, department, content_hash, size_bytes, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (source_url) DO UPDATE SET
			title = excluded.title,
			document_kind = excluded.document_kind,
			document_type = excluded.document_type,
			department = excluded.department,
			content_hash = excluded.content_hash,
			size_bytes = excluded.size_bytes,
			last_updated = excluded.last_updated`,
		docID, doc.SourceURL, doc.Title, doc.DocumentKind, docType,
		doc.Department, doc.ContentHash, doc.SizeBytes,
		doc.LastUpdated.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}

	// The upsert may have kept an older row id; resolve it for the children.
	var ownerID string
	if err := tx.QueryRowContext(ctx,
		`SELECT id FROM documents WHERE source_url = ?`, doc.SourceURL).Scan(&ownerID); err != nil {
		return fmt.Errorf("resolve document id: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM fragments WHERE document_id = ?`, ownerID); err != nil {
		return fmt.Errorf("clear fragments: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO fragments (id, document_id, position, text, token_count, content_hash, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare fragment insert: %w", err)
	}
	defer stmt.Close()

	for _, f := range frags {
		meta, err := json.Marshal(f.Meta)
		if err != nil {
			return fmt.Errorf("marshal fragment metadata: %w", err)
		}
		if _, err := stmt.ExecContext(ctx,
			f.Meta.ID, ownerID, f.Meta.Position, f.Text,
			f.Meta.TokenCount, f.Meta.ContentHash, string(meta)); err != nil {
			return fmt.Errorf("insert fragment %d: %w", f.Meta.Position, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit document: %w", err)
	}
	return nil
}

// DocumentHash returns the stored content hash for a source URL, or "" when
// the document has never been ingested. Lets a re-crawl skip unchanged pages.
func (s *Store) DocumentHash(ctx context.Context, sourceURL string) (string, error) {
	var hash string
	err := s.db.QueryRowContext(ctx,
		`SELECT content_hash FROM documents WHERE source_url = ?`, sourceURL).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("document hash: %w", err)
	}
	return hash, nil
}

// Fragments returns the stored fragments of one document in position order.
func (s *Store) Fragments(ctx context.Context, docID string) ([]*enrich.Fragment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT text, metadata FROM fragments
		WHERE document_id = ? ORDER BY position`, docID)
	if err != nil {
		return nil, fmt.Errorf("query fragments: %w", err)
	}
	defer rows.Close()

	var out []*enrich.Fragment
	for rows.Next() {
		var text, meta string
		if err := rows.Scan(&text, &meta); err != nil {
			return nil, fmt.Errorf("scan fragment: %w", err)
		}
		f := &enrich.Fragment{Text: text}
		if err := json.Unmarshal([]byte(meta), &f.Meta); err != nil {
			return nil, fmt.Errorf("decode fragment metadata: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Counts reports the number of stored documents and fragments.
func (s *Store) Counts(ctx context.Context) (documents, fragments int, err error) {
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&documents); err != nil {
		return 0, 0, fmt.Errorf("count documents: %w", err)
	}
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM fragments`).Scan(&fragments); err != nil {
		return 0, 0, fmt.Errorf("count fragments: %w", err)
	}
	return documents, fragments, nil
}
