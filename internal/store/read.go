package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/scripthost/internal/engine"
)

// SessionSummary aggregates one session's submissions.
type SessionSummary struct {
	ID          string `json:"id"`
	Submissions int    `json:"submissions"`
	Failures    int    `json:"failures"`
	LastSeq     int64  `json:"last_seq"`
}

const submissionColumns = `id, session_id, seq, script_hash, code, references_json, namespaces_json, status, return_value, error`

// History returns the submissions of one session ordered by seq. An empty
// sessionID returns every session's submissions ordered by (session_id, seq).
//
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) History(ctx context.Context, sessionID string) ([]engine.SubmissionRecord, error) {
	var rows *sql.Rows
	var err error
	if sessionID == "" {
		rows, err = s.db.QueryContext(ctx, `
			SELECT `+submissionColumns+`
			FROM submissions
			ORDER BY session_id COLLATE BINARY ASC, seq ASC
		`)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT `+submissionColumns+`
			FROM submissions
			WHERE session_id = ?
			ORDER BY seq ASC
		`, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	defer rows.Close()

	records := []engine.SubmissionRecord{}
	for rows.Next() {
		rec, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submissions: %w", err)
	}
	return records, nil
}

// FindByScriptHash returns every submission of identical code, across
// sessions.
func (s *Store) FindByScriptHash(ctx context.Context, hash string) ([]engine.SubmissionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+submissionColumns+`
		FROM submissions
		WHERE script_hash = ?
		ORDER BY session_id COLLATE BINARY ASC, seq ASC
	`, hash)
	if err != nil {
		return nil, fmt.Errorf("query submissions by hash: %w", err)
	}
	defer rows.Close()

	records := []engine.SubmissionRecord{}
	for rows.Next() {
		rec, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submissions: %w", err)
	}
	return records, nil
}

// Sessions summarizes every recorded session ordered by ID.
func (s *Store) Sessions(ctx context.Context) ([]SessionSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id,
		       COUNT(*),
		       SUM(CASE WHEN status = 'success' THEN 0 ELSE 1 END),
		       MAX(seq)
		FROM submissions
		GROUP BY session_id
		ORDER BY session_id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	summaries := []SessionSummary{}
	for rows.Next() {
		var sum SessionSummary
		if err := rows.Scan(&sum.ID, &sum.Submissions, &sum.Failures, &sum.LastSeq); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return summaries, nil
}

// LastSeq returns the highest seq recorded for a session, or 0.
func (s *Store) LastSeq(ctx context.Context, sessionID string) (int64, error) {
	var seq sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(seq) FROM submissions WHERE session_id = ?`, sessionID,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("query last seq: %w", err)
	}
	return seq.Int64, nil
}

func scanSubmission(rows *sql.Rows) (engine.SubmissionRecord, error) {
	var rec engine.SubmissionRecord
	var refs, namespaces, status string
	if err := rows.Scan(
		&rec.ID,
		&rec.SessionID,
		&rec.Seq,
		&rec.ScriptHash,
		&rec.Code,
		&refs,
		&namespaces,
		&status,
		&rec.ReturnValue,
		&rec.Error,
	); err != nil {
		return engine.SubmissionRecord{}, fmt.Errorf("scan submission: %w", err)
	}

	var err error
	if rec.References, err = unmarshalList(refs); err != nil {
		return engine.SubmissionRecord{}, err
	}
	if rec.Namespaces, err = unmarshalList(namespaces); err != nil {
		return engine.SubmissionRecord{}, err
	}
	rec.Status = engine.Status(status)
	return rec, nil
}
