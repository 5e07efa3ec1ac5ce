// Package store persists analysis runs, their documents and the extracted
// causal triples in SQLite.
package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/ppiankov/fincausal/internal/model"
)

// ErrNotFound is returned when a run or document does not exist
var ErrNotFound = errors.New("not found")

const timeLayout = time.RFC3339Nano

// Store is a SQLite result store. Methods are safe for concurrent use.
type Store struct {
	db  *sql.DB
	now func() time.Time

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// Run is one invocation of the CLI that saved results
type Run struct {
	ID         string
	Command    string
	StartedAt  time.Time
	FinishedAt *time.Time
	Documents  int
}

// Document is one stored report header
type Document struct {
	ID          string
	RunID       string
	Subject     string
	Source      string
	ProcessedAt time.Time
	Sentences   int
	Triples     int
}

// Match is a stored triple together with the document it came from
type Match struct {
	DocumentID string
	Subject    string
	Triple     model.CausalTriple
}

// Open opens (creating if needed) the database at path with WAL mode and
// foreign keys enabled
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	// Pragmas are per connection
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := initSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{
		db:      db,
		now:     func() time.Time { return time.Now().UTC() },
		entropy: ulid.Monotonic(rand.Reader, 0),
	}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	command TEXT NOT NULL,
	started_at TEXT NOT NULL,
	finished_at TEXT
);

CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	subject TEXT,
	source TEXT,
	processed_at TEXT NOT NULL,
	sentences INTEGER NOT NULL DEFAULT 0,
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS triples (
	document_id TEXT NOT NULL,
	position INTEGER NOT NULL,
	cause TEXT NOT NULL,
	effect TEXT NOT NULL,
	relation_type TEXT NOT NULL,
	confidence REAL NOT NULL,
	temporal_relation TEXT,
	domain_category TEXT,
	source TEXT,
	sentence INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY(document_id, position),
	FOREIGN KEY(document_id) REFERENCES documents(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_documents_run ON documents(run_id);
CREATE INDEX IF NOT EXISTS idx_triples_cause ON triples(cause);
CREATE INDEX IF NOT EXISTS idx_triples_effect ON triples(effect);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

// newID returns a time-ordered ULID
func (s *Store) newID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(s.now()), s.entropy).String()
}

// BeginRun records the start of a run
func (s *Store) BeginRun(ctx context.Context, command string) (*Run, error) {
	run := &Run{
		ID:        s.newID(),
		Command:   command,
		StartedAt: s.now(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, command, started_at) VALUES (?, ?, ?)`,
		run.ID, run.Command, run.StartedAt.Format(timeLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("begin run: %w", err)
	}
	return run, nil
}

// FinishRun stamps the run's finish time
func (s *Store) FinishRun(ctx context.Context, runID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ? WHERE id = ?`,
		s.now().Format(timeLayout), runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	return nil
}

// SaveReport stores report and its triples under runID and returns the new
// document ID
func (s *Store) SaveReport(ctx context.Context, runID string, report *model.Report) (string, error) {
	if report == nil {
		return "", errors.New("save report: nil report")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("save report: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM runs WHERE id = ?`, runID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("save report: %w", err)
	}

	docID := s.newID()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO documents (id, run_id, subject, source, processed_at, sentences) VALUES (?, ?, ?, ?, ?, ?)`,
		docID, runID, report.Subject, report.Source, report.ProcessedAt.UTC().Format(timeLayout), report.Sentences,
	)
	if err != nil {
		return "", fmt.Errorf("insert document: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO triples (document_id, position, cause, effect, relation_type, confidence, temporal_relation, domain_category, source, sentence)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("prepare triples: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, t := range report.Triples {
		var temporal, category sql.NullString
		if t.TemporalRelation != nil {
			temporal = sql.NullString{String: string(*t.TemporalRelation), Valid: true}
		}
		if t.DomainCategory != nil {
			category = sql.NullString{String: *t.DomainCategory, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			docID, i, t.Cause, t.Effect, string(t.RelationType), t.Confidence, temporal, category, t.Source, t.Sentence,
		); err != nil {
			return "", fmt.Errorf("insert triple %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit report: %w", err)
	}
	return docID, nil
}

// Run returns one run with its document count
func (s *Store) Run(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT r.id, r.command, r.started_at, r.finished_at, COUNT(d.id)
FROM runs r LEFT JOIN documents d ON d.run_id = r.id
WHERE r.id = ?
GROUP BY r.id`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// Runs lists runs newest first. limit <= 0 returns all of them.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT r.id, r.command, r.started_at, r.finished_at, COUNT(d.id)
FROM runs r LEFT JOIN documents d ON d.run_id = r.id
GROUP BY r.id
ORDER BY r.id DESC
LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// Documents lists the documents of a run in insertion order
func (s *Store) Documents(ctx context.Context, runID string) ([]Document, error) {
	if _, err := s.Run(ctx, runID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT d.id, d.run_id, d.subject, d.source, d.processed_at, d.sentences, COUNT(t.position)
FROM documents d LEFT JOIN triples t ON t.document_id = d.id
WHERE d.run_id = ?
GROUP BY d.id
ORDER BY d.id`, runID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var docs []Document
	for rows.Next() {
		var (
			d         Document
			processed string
		)
		if err := rows.Scan(&d.ID, &d.RunID, &d.Subject, &d.Source, &processed, &d.Sentences, &d.Triples); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		if d.ProcessedAt, err = time.Parse(timeLayout, processed); err != nil {
			return nil, fmt.Errorf("parse processed_at: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// Triples returns a document's triples in their original order
func (s *Store) Triples(ctx context.Context, documentID string) ([]model.CausalTriple, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM documents WHERE id = ?`, documentID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", documentID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT cause, effect, relation_type, confidence, temporal_relation, domain_category, source, sentence
FROM triples WHERE document_id = ? ORDER BY position`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list triples: %w", err)
	}
	defer func() { _ = rows.Close() }()

	triples := []model.CausalTriple{}
	for rows.Next() {
		t, err := scanTriple(rows)
		if err != nil {
			return nil, err
		}
		triples = append(triples, t)
	}
	return triples, rows.Err()
}

// Search finds stored triples whose cause or effect contains text
func (s *Store) Search(ctx context.Context, text string) ([]Match, error) {
	pattern := "%" + escapeLike(text) + "%"
	rows, err := s.db.QueryContext(ctx, `
SELECT d.id, d.subject, t.cause, t.effect, t.relation_type, t.confidence, t.temporal_relation, t.domain_category, t.source, t.sentence
FROM triples t JOIN documents d ON d.id = t.document_id
WHERE t.cause LIKE ? ESCAPE '\' OR t.effect LIKE ? ESCAPE '\'
ORDER BY d.id, t.position`, pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("search triples: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var matches []Match
	for rows.Next() {
		var (
			m                  Match
			relation, source   string
			temporal, category sql.NullString
		)
		if err := rows.Scan(&m.DocumentID, &m.Subject, &m.Triple.Cause, &m.Triple.Effect, &relation,
			&m.Triple.Confidence, &temporal, &category, &source, &m.Triple.Sentence); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		fillTriple(&m.Triple, relation, temporal, category, source)
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// DeleteRun removes a run with its documents and triples
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		run      Run
		started  string
		finished sql.NullString
	)
	if err := row.Scan(&run.ID, &run.Command, &started, &finished, &run.Documents); err != nil {
		return nil, err
	}

	var err error
	if run.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	if finished.Valid {
		ft, err := time.Parse(timeLayout, finished.String)
		if err != nil {
			return nil, fmt.Errorf("parse finished_at: %w", err)
		}
		run.FinishedAt = &ft
	}
	return &run, nil
}

func scanTriple(row scanner) (model.CausalTriple, error) {
	var (
		t                  model.CausalTriple
		relation, source   string
		temporal, category sql.NullString
	)
	if err := row.Scan(&t.Cause, &t.Effect, &relation, &t.Confidence, &temporal, &category, &source, &t.Sentence); err != nil {
		return t, fmt.Errorf("scan triple: %w", err)
	}
	fillTriple(&t, relation, temporal, category, source)
	return t, nil
}

func fillTriple(t *model.CausalTriple, relation string, temporal, category sql.NullString, source string) {
	t.RelationType = model.RelationType(relation)
	t.Source = source
	if temporal.Valid {
		t.SetTemporalRelation(model.TemporalRelation(temporal.String))
	}
	if category.Valid {
		c := category.String
		t.DomainCategory = &c
	}
}

func escapeLike(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '%' || r == '_' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}
