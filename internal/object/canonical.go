package object

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// HashBytes computes the SHA-256 of data as a lowercase hex Hash.
func HashBytes(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// HashBlob returns the identity of raw blob content.
func HashBlob(data []byte) Hash {
	return HashBytes(data)
}

// CanonicalTree serializes tree entries to their canonical JSON form:
// entries sorted by name ascending, stable field order, no extraneous
// whitespace. Two trees with the same logical content always produce the
// same bytes regardless of submission order.
func CanonicalTree(entries []TreeEntry) []byte {
	sorted := make([]TreeEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})
	data, err := json.Marshal(Tree{Entries: sorted})
	if err != nil {
		// Tree contains only strings; Marshal cannot fail.
		panic(fmt.Sprintf("canonical tree marshal: %v", err))
	}
	return data
}

// HashTree returns the identity of a tree: SHA-256 of its canonical form.
func HashTree(entries []TreeEntry) Hash {
	return HashBytes(CanonicalTree(entries))
}

// CanonicalCommit serializes a commit to its canonical JSON form. Field
// order follows the struct declaration, which encoding/json preserves, so
// the output is deterministic. A nil parents slice normalizes to [].
func CanonicalCommit(c Commit) []byte {
	if c.Parents == nil {
		c.Parents = []Hash{}
	}
	data, err := json.Marshal(c)
	if err != nil {
		panic(fmt.Sprintf("canonical commit marshal: %v", err))
	}
	return data
}

// HashCommit returns the identity of a commit.
func HashCommit(c Commit) Hash {
	return HashBytes(CanonicalCommit(c))
}

// ParseTree decodes stored tree content. Content that lacks an "entries"
// array is rejected as malformed.
func ParseTree(data []byte) (Tree, error) {
	var raw struct {
		Entries *[]TreeEntry `json:"entries"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Tree{}, fmt.Errorf("parse tree: %w", err)
	}
	if raw.Entries == nil {
		return Tree{}, fmt.Errorf("parse tree: missing entries array")
	}
	return Tree{Entries: *raw.Entries}, nil
}

// ParseCommit decodes stored commit content and verifies the required
// fields survived the round trip.
func ParseCommit(data []byte) (Commit, error) {
	var c Commit
	if err := json.Unmarshal(data, &c); err != nil {
		return Commit{}, fmt.Errorf("parse commit: %w", err)
	}
	if err := ValidateCommit(c); err != nil {
		return Commit{}, fmt.Errorf("parse commit: %w", err)
	}
	return c, nil
}
