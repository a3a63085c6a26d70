package domain

import (
	"strings"
)

// Metadata keys shared by every stored chunk.
const (
	MetaDocID      = "doc_id"
	MetaSource     = "source"
	MetaTitle      = "title"
	MetaStrategy   = "strategy"
	MetaChunkIndex = "chunk_index"
	MetaSection    = "section"
	MetaType       = "type"
	MetaDate       = "date"
	MetaYear       = "year"
	MetaTags       = "tags"
	MetaAccess     = "access"
	MetaURL        = "url"
	MetaAuthor     = "author"
	MetaAuthorKey  = "author_key"
	MetaChannel    = "channel"
)

// MetadataKeys lists every metadata key a chunk may carry.
func MetadataKeys() []string {
	return []string{
		MetaDocID, MetaSource, MetaTitle, MetaStrategy, MetaChunkIndex,
		MetaSection, MetaType, MetaDate, MetaYear, MetaTags, MetaAccess,
		MetaURL, MetaAuthor, MetaAuthorKey, MetaChannel,
	}
}

// Document is one normalized source unit before chunking.
// The shared fields live here; source-specific fields live in Payload.
type Document struct {
	ID      string
	Title   string
	Body    string
	Context string // hint for the summarizer, never indexed
	Payload Payload
}

// Payload is the source-specific part of a Document.
// The set of implementations is closed to this package.
type Payload interface {
	Source() Source
	fields() map[string]string
}

// Source reports which archive part produced the document.
func (d Document) Source() Source {
	if d.Payload == nil {
		return ""
	}
	return d.Payload.Source()
}

// Metadata flattens the document into the string map stored next to each chunk.
// Empty values are omitted.
func (d Document) Metadata() map[string]string {
	m := map[string]string{
		MetaDocID:  d.ID,
		MetaSource: string(d.Source()),
		MetaTitle:  d.Title,
	}
	if d.Payload != nil {
		for k, v := range d.Payload.fields() {
			m[k] = v
		}
	}
	for k, v := range m {
		if v == "" {
			delete(m, k)
		}
	}
	return m
}

// CatalogEntry is an annotated entry of the corpus catalog.
type CatalogEntry struct {
	Section string
}

// Source implements Payload.
func (CatalogEntry) Source() Source { return SourceCorpus }

func (p CatalogEntry) fields() map[string]string {
	return map[string]string{
		MetaSection: p.Section,
		MetaType:    "annotation",
	}
}

// DiaryPost is a dated diary entry.
type DiaryPost struct {
	Date   string // YYYY-MM-DD
	Tags   []string
	Access string
	URL    string
}

// Source implements Payload.
func (DiaryPost) Source() Source { return SourceDiary }

func (p DiaryPost) fields() map[string]string {
	return map[string]string{
		MetaDate:   p.Date,
		MetaYear:   yearOf(p.Date),
		MetaTags:   strings.Join(p.Tags, ","),
		MetaAccess: p.Access,
		MetaURL:    p.URL,
	}
}

// Poem is a single poem by a known author.
type Poem struct {
	Author    string
	AuthorKey string
	Year      string
}

// Source implements Payload.
func (Poem) Source() Source { return SourcePoetry }

func (p Poem) fields() map[string]string {
	return map[string]string{
		MetaAuthor:    p.Author,
		MetaAuthorKey: p.AuthorKey,
		MetaYear:      p.Year,
	}
}

// ChatPost is a message exported from a chat channel.
type ChatPost struct {
	Date    string
	Channel string
	URL     string
}

// Source implements Payload.
func (ChatPost) Source() Source { return SourceChat }

func (p ChatPost) fields() map[string]string {
	return map[string]string{
		MetaDate:    p.Date,
		MetaYear:    yearOf(p.Date),
		MetaChannel: p.Channel,
		MetaURL:     p.URL,
	}
}

func yearOf(date string) string {
	if len(date) >= 4 {
		return date[:4]
	}
	return ""
}
