// Package chunker decides how a document is represented in the index.
//
// Short texts are embedded verbatim. Long texts are embedded through a
// generated summary, and texts that split into several paragraphs become
// one chunk per (merged) paragraph. Lengths are measured in characters.
package chunker

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/archivist/internal/domain"
)

// Default thresholds.
const (
	DefaultShort        = 600
	DefaultDisplayLimit = 500
)

var blankLineRe = regexp.MustCompile(`\n[ \t\r]*\n`)

// Options tunes the chunking thresholds. Zero values select the defaults.
type Options struct {
	// Short is the length below which a text is embedded as is.
	Short int
	// DisplayLimit caps the stored preview of a summarized chunk.
	DisplayLimit int
}

// Engine splits documents into chunks.
type Engine struct {
	summarizer   domain.Summarizer
	short        int
	displayLimit int
}

// New creates an Engine. The summarizer is only called for long units.
func New(summarizer domain.Summarizer, opts Options) *Engine {
	if opts.Short <= 0 {
		opts.Short = DefaultShort
	}
	if opts.DisplayLimit <= 0 {
		opts.DisplayLimit = DefaultDisplayLimit
	}
	return &Engine{
		summarizer:   summarizer,
		short:        opts.Short,
		displayLimit: opts.DisplayLimit,
	}
}

// Chunk splits a document using its body, metadata, and context hint.
func (e *Engine) Chunk(ctx context.Context, doc domain.Document) ([]domain.Chunk, error) {
	return e.Split(ctx, doc.ID, doc.Body, doc.Metadata(), doc.Context)
}

// Split produces the ordered chunks for text. An empty text yields no chunks.
// A summarizer failure fails the whole text.
func (e *Engine) Split(
	ctx context.Context, docID, text string, meta map[string]string, hint string,
) ([]domain.Chunk, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	if runeLen(text) < e.short {
		return []domain.Chunk{e.verbatim(docID, 0, text, meta)}, nil
	}

	paras := MergeParagraphs(Paragraphs(text), e.short/2)
	if len(paras) <= 1 {
		c, err := e.summarized(ctx, docID, 0, text, meta, hint)
		if err != nil {
			return nil, err
		}
		return []domain.Chunk{c}, nil
	}

	chunks := make([]domain.Chunk, 0, len(paras))
	for i, p := range paras {
		id := domain.ChunkID(docID, i)
		if runeLen(p) < e.short {
			chunks = append(chunks, e.verbatim(id, i, p, meta))
			continue
		}
		c, err := e.summarized(ctx, id, i, p, meta, hint)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, nil
}

func (e *Engine) verbatim(id string, index int, text string, meta map[string]string) domain.Chunk {
	return domain.Chunk{
		ID:          id,
		Index:       index,
		EmbedText:   text,
		DisplayText: text,
		Strategy:    domain.StrategyVerbatim,
		Metadata:    chunkMeta(meta, domain.StrategyVerbatim, index),
	}
}

func (e *Engine) summarized(
	ctx context.Context, id string, index int, text string, meta map[string]string, hint string,
) (domain.Chunk, error) {
	summary, err := e.summarizer.Summarize(ctx, text, hint)
	if err != nil {
		return domain.Chunk{}, fmt.Errorf("summarize %s: %w", id, err)
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return domain.Chunk{}, fmt.Errorf("summarize %s: empty summary: %w", id, domain.ErrSummarizerError)
	}

	return domain.Chunk{
		ID:          id,
		Index:       index,
		EmbedText:   summary,
		DisplayText: Truncate(text, e.displayLimit),
		Strategy:    domain.StrategySummarized,
		Metadata:    chunkMeta(meta, domain.StrategySummarized, index),
	}, nil
}

// Paragraphs splits text on blank lines, dropping empty paragraphs.
func Paragraphs(text string) []string {
	var out []string
	for _, p := range blankLineRe.Split(strings.ReplaceAll(text, "\r\n", "\n"), -1) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// MergeParagraphs joins adjacent paragraphs while the joined text stays
// under limit characters, counting the two-character separator.
func MergeParagraphs(paras []string, limit int) []string {
	var (
		out []string
		buf string
	)
	for _, p := range paras {
		switch {
		case buf == "":
			buf = p
		case runeLen(buf)+runeLen(p)+2 < limit:
			buf += "\n\n" + p
		default:
			out = append(out, buf)
			buf = p
		}
	}
	if buf != "" {
		out = append(out, buf)
	}
	return out
}

// Truncate returns the first n characters of s.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

func chunkMeta(meta map[string]string, s domain.Strategy, index int) map[string]string {
	m := make(map[string]string, len(meta)+2)
	for k, v := range meta {
		m[k] = v
	}
	m[domain.MetaStrategy] = string(s)
	m[domain.MetaChunkIndex] = strconv.Itoa(index)
	return m
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }
