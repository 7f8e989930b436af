// Package hash computes the content and metadata digests that staleness
// checking is built on. All digests are hex-encoded SHA-256 and deterministic
// for identical input.
package hash

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"time"

	"github.com/quillnotes/quill/pkg/note"
)

// Sum digests the given parts. Parts are length-prefixed before hashing, so
// Sum("ab", "c") and Sum("a", "bc") differ.
func Sum(parts ...string) string {
	h := sha256.New()
	var lenBuf [8]byte
	for _, p := range parts {
		binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(p)))
		h.Write(lenBuf[:])
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Name digests a note's name line.
func Name(n *note.Note) string {
	return Sum(n.Name)
}

// Body digests a note's body lines.
func Body(n *note.Note) string {
	return Sum(n.BodyText())
}

// Field digests a single metadata field value, already canonicalized.
func Field(v string) string {
	return Sum(v)
}

// CanonTime canonicalizes a time for hashing: RFC 3339 in UTC.
func CanonTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// FieldValue returns the canonical string value of a named field of a note.
// The second return value is false for unknown field names.
func FieldValue(n *note.Note, field string) (string, bool) {
	switch field {
	case "name":
		return n.Name, true
	case "body", "text":
		return n.BodyText(), true
	case "path":
		return n.Path, true
	case "created":
		return CanonTime(n.Created), true
	case "modified":
		return CanonTime(n.Modified), true
	case "viewed":
		return CanonTime(n.Viewed), true
	default:
		return "", false
	}
}
