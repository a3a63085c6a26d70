package index

import (
	"encoding/binary"
	"math"

	"github.com/kailas-cloud/archivist/internal/domain"
)

// Reserved hash fields. Metadata keys never start with "__".
const (
	fieldID     = "__id"
	fieldText   = "__text"
	fieldVector = "__vector"
)

// buildHashFields flattens one chunk entry into hash fields for HSET.
func buildHashFields(e domain.IndexEntry) map[string]string {
	m := make(map[string]string, 3+len(e.Metadata))
	for k, v := range e.Metadata {
		m[k] = v
	}
	m[fieldID] = e.ID
	m[fieldText] = e.DisplayText
	m[fieldVector] = vectorToBytes(e.Vector)
	return m
}

// parseHashFields rebuilds an entry from hash fields. The vector is decoded
// only when present.
func parseHashFields(id string, m map[string]string) domain.IndexEntry {
	e := domain.IndexEntry{ID: id, Metadata: make(map[string]string, len(m))}
	for k, v := range m {
		switch k {
		case fieldID:
			e.ID = v
		case fieldText:
			e.DisplayText = v
		case fieldVector:
			e.Vector = bytesToVector(v)
		default:
			e.Metadata[k] = v
		}
	}
	return e
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

// bytesToVector deserializes a binary string back to []float32.
func bytesToVector(s string) []float32 {
	if len(s)%4 != 0 {
		return nil
	}
	v := make([]float32, len(s)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32([]byte(s[i*4 : i*4+4])))
	}
	return v
}
