// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists corpus entries and their embeddings in SQLite and
// answers similarity queries with metadata filters.
package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/paper-assistant/pkg/types"
)

// ErrStoreMissing is returned by OpenExisting when the database file does not exist.
var ErrStoreMissing = errors.New("vector store not found")

// Store manages the vector store SQLite database.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the database at path and creates the schema if it
// does not exist.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// OpenExisting opens the database at path and fails with ErrStoreMissing
// when it has not been created yet. The chat command uses it so a missing
// corpus is reported instead of silently answering from nothing.
func OpenExisting(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrStoreMissing, path)
		}
		return nil, fmt.Errorf("checking store: %w", err)
	}
	return Open(path)
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS entries (
			id TEXT PRIMARY KEY,
			source_id TEXT NOT NULL,
			domain TEXT,
			paper_domain TEXT,
			citation_count INTEGER,
			date_published TEXT,
			date_published_int INTEGER,
			chunk_index INTEGER,
			text_chunk TEXT,
			title TEXT,
			authors TEXT,
			doi TEXT,
			is_abstract INTEGER NOT NULL DEFAULT 0,
			embedding BLOB
		)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_source_id ON entries(source_id)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_date ON entries(date_published_int)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_paper_domain ON entries(paper_domain)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Upsert writes entries with their vectors in one transaction. An existing
// id is overwritten, so re-indexing the same chunk is idempotent.
func (s *Store) Upsert(ctx context.Context, entries []types.CorpusEntry, vecs [][]float32) error {
	if len(entries) != len(vecs) {
		return fmt.Errorf("upsert: %d entries but %d vectors", len(entries), len(vecs))
	}
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO entries (id, source_id, domain, paper_domain, citation_count,
			date_published, date_published_int, chunk_index, text_chunk,
			title, authors, doi, is_abstract, embedding)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			source_id=excluded.source_id, domain=excluded.domain,
			paper_domain=excluded.paper_domain, citation_count=excluded.citation_count,
			date_published=excluded.date_published, date_published_int=excluded.date_published_int,
			chunk_index=excluded.chunk_index, text_chunk=excluded.text_chunk,
			title=excluded.title, authors=excluded.authors, doi=excluded.doi,
			is_abstract=excluded.is_abstract, embedding=excluded.embedding`)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	for i, e := range entries {
		authorsJSON, _ := json.Marshal(e.Metadata.Authors)
		_, err := stmt.ExecContext(ctx,
			e.ID, e.SourceID, string(e.Domain), string(e.PaperDomain), e.CitationCount,
			e.DatePublished.String(), e.DatePublishedInt, e.ChunkIndex, e.Text,
			e.Metadata.Title, string(authorsJSON), e.Metadata.DOI, e.IsAbstract,
			encodeVector(vecs[i]),
		)
		if err != nil {
			return fmt.Errorf("upserting entry %s: %w", e.ID, err)
		}
	}

	return tx.Commit()
}

const entryColumns = `id, source_id, domain, paper_domain, citation_count,
	date_published, date_published_int, chunk_index, text_chunk,
	title, authors, doi, is_abstract`

// Get returns every entry matching f, newest first, then by source and
// chunk index.
func (s *Store) Get(ctx context.Context, f Filter) ([]types.CorpusEntry, error) {
	where, args := f.where()
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM entries`+where+
			` ORDER BY date_published_int DESC, source_id, chunk_index`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying entries: %w", err)
	}
	defer rows.Close()

	var out []types.CorpusEntry
	for rows.Next() {
		e, err := scanEntry(rows, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Query returns the n entries matching f with the highest cosine similarity
// to vec. Ties keep id order.
func (s *Store) Query(ctx context.Context, vec []float32, n int, f Filter) ([]types.ScoredEntry, error) {
	if n <= 0 {
		return nil, nil
	}
	where, args := f.where()
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entryColumns+`, embedding FROM entries`+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying entries: %w", err)
	}
	defer rows.Close()

	var scored []types.ScoredEntry
	for rows.Next() {
		var blob []byte
		e, err := scanEntry(rows, &blob)
		if err != nil {
			return nil, err
		}
		scored = append(scored, types.ScoredEntry{
			CorpusEntry: e,
			Score:       CosineSimilarity(vec, decodeVector(blob)),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > n {
		scored = scored[:n]
	}
	return scored, nil
}

// Delete removes every entry matching f and returns how many were removed.
// An empty filter is rejected.
func (s *Store) Delete(ctx context.Context, f Filter) (int, error) {
	if f.IsEmpty() {
		return 0, fmt.Errorf("delete requires a filter")
	}
	where, args := f.where()
	res, err := s.db.ExecContext(ctx, `DELETE FROM entries`+where, args...)
	if err != nil {
		return 0, fmt.Errorf("deleting entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted entries: %w", err)
	}
	return int(n), nil
}

// Count returns the number of entries matching f.
func (s *Store) Count(ctx context.Context, f Filter) (int, error) {
	where, args := f.where()
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM entries`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting entries: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner, embedding *[]byte) (types.CorpusEntry, error) {
	var (
		e           types.CorpusEntry
		domain      sql.NullString
		paperDomain sql.NullString
		date        sql.NullString
		title       sql.NullString
		authorsJSON sql.NullString
		doi         sql.NullString
		isAbstract  bool
	)
	dest := []any{
		&e.ID, &e.SourceID, &domain, &paperDomain, &e.CitationCount,
		&date, &e.DatePublishedInt, &e.ChunkIndex, &e.Text,
		&title, &authorsJSON, &doi, &isAbstract,
	}
	if embedding != nil {
		dest = append(dest, embedding)
	}
	if err := row.Scan(dest...); err != nil {
		return types.CorpusEntry{}, fmt.Errorf("scanning entry: %w", err)
	}

	e.Domain = types.Domain(domain.String)
	e.PaperDomain = types.Domain(paperDomain.String)
	e.IsAbstract = isAbstract
	e.Metadata.Title = title.String
	e.Metadata.DOI = doi.String
	if authorsJSON.Valid {
		json.Unmarshal([]byte(authorsJSON.String), &e.Metadata.Authors)
	}
	if date.Valid && date.String != "" {
		if d, err := types.ParseDate(date.String); err == nil {
			e.DatePublished = d
		}
	}
	return e, nil
}

// CosineSimilarity computes the cosine similarity between two vectors.
// Mismatched lengths and zero vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	denominator := math.Sqrt(normA) * math.Sqrt(normB)
	if denominator == 0 {
		return 0
	}
	return dot / denominator
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec
}

// placeholders returns "?, ?, ..." with n markers.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
