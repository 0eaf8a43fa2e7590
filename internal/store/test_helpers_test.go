package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/scripthost/internal/digest"
	"github.com/roach88/scripthost/internal/engine"
)

// createTestStore opens a fresh database in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRecord builds a successful record with a real submission ID.
func createTestRecord(sessionID string, seq int64, code string) engine.SubmissionRecord {
	return engine.SubmissionRecord{
		ID:         digest.MustSubmissionID(sessionID, seq, code),
		SessionID:  sessionID,
		Seq:        seq,
		ScriptHash: digest.ScriptHash(code),
		Code:       code,
		Status:     engine.StatusSuccess,
	}
}
