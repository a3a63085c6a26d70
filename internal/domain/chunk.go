package domain

import "strconv"

// Strategy tells how a chunk's embedding input was produced.
type Strategy string

// Chunk strategies.
const (
	StrategyVerbatim   Strategy = "verbatim"
	StrategySummarized Strategy = "summarized"
)

// Chunk is one indexable unit derived from a Document.
type Chunk struct {
	ID          string
	Index       int
	EmbedText   string
	DisplayText string
	Strategy    Strategy
	Metadata    map[string]string
}

// ChunkID returns the id of the i-th chunk of a multi-chunk document.
func ChunkID(docID string, i int) string {
	return docID + "__c" + strconv.Itoa(i)
}

// DedupIDs lists the ids whose presence marks a document as already indexed.
func DedupIDs(docID string) []string {
	return []string{docID, ChunkID(docID, 0)}
}
