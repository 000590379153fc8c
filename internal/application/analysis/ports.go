// Package analysis implements the disclosure-analysis pipeline: chunked
// feature extraction from a patent specification, tournament distillation,
// reference passage indexing, and per-feature disclosure analysis against
// the indexed references.
package analysis

import "context"

// Message is one role-tagged turn of a model conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// LanguageModel is the completion port.  Implementations live under
// internal/intelligence/llm and own per-call timeout and retry; callers
// treat any error as a degraded unit of work, never a pipeline abort.
type LanguageModel interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// TextEmbedder turns texts into dense vectors for the passage store.
type TextEmbedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Passage is one indexed slice of a reference document together with the
// title of the document it came from.  The title is the provenance string
// surfaced in the final report.
type Passage struct {
	Text  string
	Title string
}

// ScoredPassage is a search hit.
type ScoredPassage struct {
	Passage
	Score float32
}

// PassageStore is the vector-index port.  A namespace isolates one job's
// passages from every other job's; it is created before indexing and torn
// down after the job reaches a terminal state.
type PassageStore interface {
	EnsureNamespace(ctx context.Context, namespace string) error
	Insert(ctx context.Context, namespace string, passages []Passage, vectors [][]float32) error
	Search(ctx context.Context, namespace string, vector []float32, topK int) ([]ScoredPassage, error)
	DropNamespace(ctx context.Context, namespace string) error
}

// TextExtractor converts an uploaded document into plain text.  An empty
// result is valid; the pipeline tolerates documents with no extractable text.
type TextExtractor interface {
	Extract(ctx context.Context, storageKey string, data []byte) (string, error)
}

// DocumentStore is the object-storage port for uploaded documents.
type DocumentStore interface {
	Fetch(ctx context.Context, storageKey string) ([]byte, error)
	Remove(ctx context.Context, storageKeys []string) error
}

// JobLocker is the cross-process mutex port.  Acquire returns ok=false when
// another worker already holds the job, which callers treat as a duplicate
// trigger and drop silently.
type JobLocker interface {
	Acquire(ctx context.Context, jobID string) (release func(), ok bool, err error)
}
