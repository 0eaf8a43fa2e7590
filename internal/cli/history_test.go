package cli

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/scripthost/internal/digest"
	"github.com/roach88/scripthost/internal/engine"
	"github.com/roach88/scripthost/internal/store"
)

// seedHistory writes two sessions to a fresh database and returns its path.
func seedHistory(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.db")
	st, err := store.Open(path)
	require.NoError(t, err)
	defer st.Close()

	records := []struct {
		session string
		seq     int64
		code    string
		status  engine.Status
		errMsg  string
	}{
		{"session-a", 1, "using \"fmt\";\n#line 1 \"/w/a.csx\"\nFirst()", engine.StatusSuccess, ""},
		{"session-a", 2, "Second()", engine.StatusExecutionFailed, "execution failed: boom"},
		{"session-b", 1, "Second()", engine.StatusSuccess, ""},
	}
	for _, r := range records {
		require.NoError(t, st.RecordSubmission(context.Background(), engine.SubmissionRecord{
			ID:         digest.MustSubmissionID(r.session, r.seq, r.code),
			SessionID:  r.session,
			Seq:        r.seq,
			ScriptHash: digest.ScriptHash(r.code),
			Code:       r.code,
			Status:     r.status,
			Error:      r.errMsg,
		}))
	}
	return path
}

func TestHistory_ListsAllSubmissions(t *testing.T) {
	opts, _ := testOptions(t)
	db := seedHistory(t)

	out, _, err := runCommand(NewHistoryCommand(opts), "--db", db)
	require.NoError(t, err)

	assert.Equal(t,
		"session-a #1 success First()\n"+
			"session-a #2 execution_failed Second()\n"+
			"    execution failed: boom\n"+
			"session-b #1 success Second()\n",
		out)
}

func TestHistory_FiltersBySession(t *testing.T) {
	opts, _ := testOptions(t)
	opts.HistoryDB = seedHistory(t)

	out, _, err := runCommand(NewHistoryCommand(opts), "--session", "session-b")
	require.NoError(t, err)
	assert.Equal(t, "session-b #1 success Second()\n", out)
}

func TestHistory_FiltersByScriptHash(t *testing.T) {
	opts, _ := testOptions(t)
	db := seedHistory(t)

	out, _, err := runCommand(NewHistoryCommand(opts), "--db", db, "--hash", digest.ScriptHash("Second()"))
	require.NoError(t, err)
	assert.Contains(t, out, "session-a #2")
	assert.Contains(t, out, "session-b #1")
	assert.NotContains(t, out, "First()")
}

func TestHistory_Sessions(t *testing.T) {
	opts, _ := testOptions(t)
	db := seedHistory(t)

	out, _, err := runCommand(NewHistoryCommand(opts), "--db", db, "--sessions")
	require.NoError(t, err)
	assert.Equal(t,
		"session-a  2 submission(s)  1 failure(s)  last seq 2\n"+
			"session-b  1 submission(s)  0 failure(s)  last seq 1\n",
		out)
}

func TestHistory_JSON(t *testing.T) {
	opts, _ := testOptions(t)
	opts.Format = "json"
	db := seedHistory(t)

	out, _, err := runCommand(NewHistoryCommand(opts), "--db", db, "--session", "session-a")
	require.NoError(t, err)

	var resp struct {
		Status string                    `json:"status"`
		Data   []engine.SubmissionRecord `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data, 2)
	assert.Equal(t, engine.StatusExecutionFailed, resp.Data[1].Status)
}

func TestHistory_Empty(t *testing.T) {
	opts, _ := testOptions(t)
	db := seedHistory(t)

	out, _, err := runCommand(NewHistoryCommand(opts), "--db", db, "--session", "nobody")
	require.NoError(t, err)
	assert.Equal(t, "No submissions recorded.\n", out)
}

func TestHistory_DatabaseFromConfig(t *testing.T) {
	opts, _ := testOptions(t)
	db := seedHistory(t)
	writeFile(t, opts.Dir, "scripthost.yaml", "history_db: "+db+"\n")

	out, _, err := runCommand(NewHistoryCommand(opts), "--sessions")
	require.NoError(t, err)
	assert.Contains(t, out, "session-a")
}

func TestHistory_MissingDatabase(t *testing.T) {
	opts, _ := testOptions(t)

	out, _, err := runCommand(NewHistoryCommand(opts), "--db", filepath.Join(opts.Dir, "nope.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E002]")
}

func TestHistory_NoDatabaseConfigured(t *testing.T) {
	opts, _ := testOptions(t)

	_, _, err := runCommand(NewHistoryCommand(opts))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "no history database")
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "Go()", firstLine("\nusing \"fmt\";\n#line 1 \"/x\"\n  Go()  \nMore()"))
	assert.Equal(t, "", firstLine("using \"fmt\";"))
}
