package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/scripthost/internal/engine"
)

func TestOpen_AppliesPragmas(t *testing.T) {
	s := createTestStore(t)

	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("synchronous", "1"))
	assert.NoError(t, s.verifyPragma("busy_timeout", "5000"))
	assert.NoError(t, s.verifyPragma("user_version", "1"))
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.RecordSubmission(context.Background(), createTestRecord("s1", 1, "x")))
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	history, err := s2.History(context.Background(), "s1")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestOpen_BadPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "dir", "db.sqlite"))
	assert.Error(t, err)
}

func TestClose_NilDB(t *testing.T) {
	assert.NoError(t, (&Store{}).Close())
}

func TestRecordSubmission_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	rec := createTestRecord("s1", 1, "fmt.Println(1)")
	rec.References = []string{"stdlib", "/lib/a.go"}
	rec.Namespaces = []string{"fmt"}
	rec.ReturnValue = "42"
	require.NoError(t, s.RecordSubmission(ctx, rec))

	failed := createTestRecord("s1", 2, "bad(")
	failed.Status = engine.StatusCompilationFailed
	failed.Error = "compilation failed: COMPILE: expected )"
	require.NoError(t, s.RecordSubmission(ctx, failed))

	history, err := s.History(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, history, 2)

	assert.Equal(t, rec, history[0])
	assert.Equal(t, []string{}, history[1].References)
	assert.Equal(t, engine.StatusCompilationFailed, history[1].Status)
	assert.Equal(t, failed.Error, history[1].Error)
}

func TestRecordSubmission_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	rec := createTestRecord("s1", 1, "x")

	require.NoError(t, s.RecordSubmission(ctx, rec))
	require.NoError(t, s.RecordSubmission(ctx, rec))

	history, err := s.History(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestRecordSubmission_SeqConflict(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	require.NoError(t, s.RecordSubmission(ctx, createTestRecord("s1", 1, "x")))
	err := s.RecordSubmission(ctx, createTestRecord("s1", 1, "y"))
	assert.Error(t, err)
}

func TestRecordSubmission_RejectsUnknownStatus(t *testing.T) {
	rec := createTestRecord("s1", 1, "x")
	rec.Status = "exploded"
	assert.Error(t, createTestStore(t).RecordSubmission(context.Background(), rec))
}

func TestHistory_OrderingAndEmpty(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	empty, err := s.History(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	for _, rec := range []engine.SubmissionRecord{
		createTestRecord("b", 2, "b2"),
		createTestRecord("a", 1, "a1"),
		createTestRecord("b", 1, "b1"),
	} {
		require.NoError(t, s.RecordSubmission(ctx, rec))
	}

	all, err := s.History(ctx, "")
	require.NoError(t, err)
	var codes []string
	for _, rec := range all {
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []string{"a1", "b1", "b2"}, codes)
}

func TestSessions(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	failed := createTestRecord("a", 2, "boom")
	failed.Status = engine.StatusExecutionFailed
	for _, rec := range []engine.SubmissionRecord{
		createTestRecord("a", 1, "ok"),
		failed,
		createTestRecord("b", 1, "ok"),
	} {
		require.NoError(t, s.RecordSubmission(ctx, rec))
	}

	sessions, err := s.Sessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []SessionSummary{
		{ID: "a", Submissions: 2, Failures: 1, LastSeq: 2},
		{ID: "b", Submissions: 1, Failures: 0, LastSeq: 1},
	}, sessions)

	last, err := s.LastSeq(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(2), last)

	last, err = s.LastSeq(ctx, "none")
	require.NoError(t, err)
	assert.Equal(t, int64(0), last)
}

func TestFindByScriptHash(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	require.NoError(t, s.RecordSubmission(ctx, createTestRecord("a", 1, "same")))
	require.NoError(t, s.RecordSubmission(ctx, createTestRecord("b", 1, "same")))
	require.NoError(t, s.RecordSubmission(ctx, createTestRecord("b", 2, "other")))

	matches, err := s.FindByScriptHash(ctx, createTestRecord("x", 1, "same").ScriptHash)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "a", matches[0].SessionID)
	assert.Equal(t, "b", matches[1].SessionID)
}

func TestMarshalList(t *testing.T) {
	data, err := marshalList(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", data)

	data, err = marshalList([]string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, `["a","b"]`, data)

	items, err := unmarshalList(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, items)

	_, err = unmarshalList("{")
	assert.Error(t, err)
}
