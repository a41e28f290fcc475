package object

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	hashPattern = regexp.MustCompile(`^[a-f0-9]{64}$`)
	idPattern   = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
)

// ReservedMainName is the fixed name of the main reference; tags may not
// shadow it.
const ReservedMainName = "main"

// ValidHash reports whether s is a well-formed object hash.
func ValidHash(s string) bool {
	return hashPattern.MatchString(s)
}

// ValidID reports whether s is a well-formed repository or user identifier.
func ValidID(s string) bool {
	return idPattern.MatchString(s)
}

// ValidTagName reports whether s is an acceptable tag name.
func ValidTagName(s string) bool {
	if s == "" || len(s) > 100 || s == ReservedMainName {
		return false
	}
	if strings.ContainsAny(s, "/ \t\n") {
		return false
	}
	return true
}

// ValidateTree checks every entry for the required fields, naming the first
// offending entry on failure.
func ValidateTree(entries []TreeEntry) error {
	for i, e := range entries {
		if e.Name == "" {
			return fmt.Errorf("tree entry %d: name is required", i)
		}
		if e.Mode == "" {
			return fmt.Errorf("tree entry %q: mode is required", e.Name)
		}
		if e.Type != string(KindBlob) && e.Type != string(KindTree) {
			return fmt.Errorf("tree entry %q: type must be blob or tree, got %q", e.Name, e.Type)
		}
		if !ValidHash(string(e.Hash)) {
			return fmt.Errorf("tree entry %q: hash must be 64 lowercase hex characters", e.Name)
		}
	}
	return nil
}

// ValidateCommit checks the commit invariants: tree and parent hashes are
// well formed, both signatures carry an email and timestamp, and the
// message is non-blank.
func ValidateCommit(c Commit) error {
	if !ValidHash(string(c.Tree)) {
		return fmt.Errorf("commit: tree must be 64 lowercase hex characters")
	}
	for i, p := range c.Parents {
		if !ValidHash(string(p)) {
			return fmt.Errorf("commit: parent %d is not a valid hash", i)
		}
	}
	if err := validateSignature("author", c.Author); err != nil {
		return err
	}
	if err := validateSignature("committer", c.Committer); err != nil {
		return err
	}
	if strings.TrimSpace(c.Message) == "" {
		return fmt.Errorf("commit: message must not be blank")
	}
	return nil
}

func validateSignature(role string, s Signature) error {
	if s.Email == "" {
		return fmt.Errorf("commit: %s email is required", role)
	}
	if s.Timestamp <= 0 {
		return fmt.Errorf("commit: %s timestamp is required", role)
	}
	return nil
}
