package domain

// IndexEntry is the persisted form of a chunk.
type IndexEntry struct {
	ID          string
	Vector      []float32
	DisplayText string
	Metadata    map[string]string
}

// Hit is a single nearest-neighbor match returned by the index store.
type Hit struct {
	ID          string
	DisplayText string
	Metadata    map[string]string
	Distance    float64 // cosine distance
}

// Similarity converts cosine distance to similarity.
func (h Hit) Similarity() float64 {
	return 1 - h.Distance
}
