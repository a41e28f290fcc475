package object

// Hash is a 64-character lowercase hex-encoded SHA-256 digest.
type Hash string

// Kind identifies how stored content is interpreted.
type Kind string

const (
	KindBlob   Kind = "blob"
	KindTree   Kind = "tree"
	KindCommit Kind = "commit"
)

// TreeEntry is one named entry in a tree, pointing at a blob or a subtree.
type TreeEntry struct {
	Mode string `json:"mode"`
	Type string `json:"type"`
	Hash Hash   `json:"hash"`
	Name string `json:"name"`
}

// Tree holds a list of entries. Entries are sorted by name before hashing
// so logically identical trees always share an identity.
type Tree struct {
	Entries []TreeEntry `json:"entries"`
}

// Signature records authorship of a commit.
type Signature struct {
	Email     string `json:"email"`
	Timestamp int64  `json:"timestamp"`
}

// Commit points at a tree snapshot with parentage and authorship. Tree and
// parent hashes are format-checked only; the store never resolves them, so
// objects may be uploaded out of order.
type Commit struct {
	Tree      Hash      `json:"tree"`
	Parents   []Hash    `json:"parents"`
	Author    Signature `json:"author"`
	Committer Signature `json:"committer"`
	Message   string    `json:"message"`
}
