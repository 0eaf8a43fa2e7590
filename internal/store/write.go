package store

import (
	"context"
	"fmt"

	"github.com/roach88/scripthost/internal/engine"
)

// RecordSubmission journals one submission. It implements engine.Recorder.
//
// Uses ON CONFLICT(id) DO NOTHING: re-recording the same submission is a
// no-op. A different submission reusing (session_id, seq) is an error.
func (s *Store) RecordSubmission(ctx context.Context, rec engine.SubmissionRecord) error {
	refs, err := marshalList(rec.References)
	if err != nil {
		return fmt.Errorf("record submission: %w", err)
	}
	namespaces, err := marshalList(rec.Namespaces)
	if err != nil {
		return fmt.Errorf("record submission: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO submissions
		(id, session_id, seq, script_hash, code, references_json, namespaces_json, status, return_value, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		rec.ID,
		rec.SessionID,
		rec.Seq,
		rec.ScriptHash,
		rec.Code,
		refs,
		namespaces,
		string(rec.Status),
		rec.ReturnValue,
		rec.Error,
	)
	if err != nil {
		return fmt.Errorf("record submission: %w", err)
	}
	return nil
}
