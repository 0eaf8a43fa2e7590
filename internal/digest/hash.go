package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes. The version suffix leaves room for algorithm changes.
const (
	DomainSubmission = "scripthost/submission/v1"
	DomainScript     = "scripthost/script/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SubmissionID identifies one submission within a pack session.
func SubmissionID(sessionID string, seq int64, code string) (string, error) {
	canonical, err := MarshalCanonical(map[string]any{
		"session_id": sessionID,
		"seq":        seq,
		"code":       code,
	})
	if err != nil {
		return "", fmt.Errorf("SubmissionID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainSubmission, canonical), nil
}

// ScriptHash identifies assembled source text independent of any session.
// Two submissions of the same text hash equal.
func ScriptHash(code string) string {
	canonical, _ := MarshalCanonical(code)
	return hashWithDomain(DomainScript, canonical)
}

// MustSubmissionID is like SubmissionID but panics on error.
func MustSubmissionID(sessionID string, seq int64, code string) string {
	id, err := SubmissionID(sessionID, seq, code)
	if err != nil {
		panic(err)
	}
	return id
}
