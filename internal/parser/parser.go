// Package parser turns archive files into normalized documents.
//
// Parsers never fail on content: a file that does not follow its layout, or
// whose body is empty after trimming, yields no document and is counted as
// unparsed. Errors are reserved for I/O.
package parser

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/archivist/internal/domain"
	"github.com/kailas-cloud/archivist/internal/logger"
)

// Collection is everything one source yields for a single run.
type Collection struct {
	Documents  []domain.Document
	Candidates int // files or catalog entries inspected
	Unparsed   int // candidates that produced no document
}

// Reader lists and parses the candidate files of one source.
type Reader interface {
	Source() domain.Source
	Read(ctx context.Context) (Collection, error)
	// Root is the file or directory the reader scans.
	Root() string
}

// FileParser converts one file into a document. rel is the path relative to
// the reader root using forward slashes.
type FileParser func(rel string, data []byte) (domain.Document, bool)

// DirReader walks a directory tree and parses every Markdown file in it.
type DirReader struct {
	source domain.Source
	root   string
	parse  FileParser
}

// NewDirReader creates a reader for Markdown files below root.
func NewDirReader(source domain.Source, root string, parse FileParser) *DirReader {
	return &DirReader{source: source, root: root, parse: parse}
}

// NewDiaryReader reads diary posts laid out as <root>/<year>/<date-n>.md.
func NewDiaryReader(root string) *DirReader {
	return NewDirReader(domain.SourceDiary, root, ParseDiaryPost)
}

// NewPoetryReader reads poems laid out as <root>/<author_key>/<slug>.md.
func NewPoetryReader(root string) *DirReader {
	return NewDirReader(domain.SourcePoetry, root, ParsePoem)
}

// NewChatReader reads exported chat posts anywhere below root.
func NewChatReader(root string) *DirReader {
	return NewDirReader(domain.SourceChat, root, ParseChatPost)
}

// Source implements Reader.
func (r *DirReader) Source() domain.Source { return r.source }

// Root implements Reader.
func (r *DirReader) Root() string { return r.root }

// Read implements Reader. Files are visited in lexical order. Only an error
// on the root itself fails the read; unreadable files below it are logged
// and counted as unparsed.
func (r *DirReader) Read(ctx context.Context) (Collection, error) {
	var col Collection
	log := logger.FromContext(ctx)

	err := filepath.WalkDir(r.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == r.root {
				return err
			}
			if d != nil && d.IsDir() {
				log.Warn("Unreadable directory skipped", zap.String("path", path), zap.Error(err))
				return filepath.SkipDir
			}
			log.Warn("Unreadable file skipped", zap.String("path", path), zap.Error(err))
			col.Candidates++
			col.Unparsed++
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		name := d.Name()
		if d.IsDir() {
			if path != r.root && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || !strings.EqualFold(filepath.Ext(name), ".md") {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			log.Warn("Unreadable file skipped", zap.String("path", path), zap.Error(err))
			col.Candidates++
			col.Unparsed++
			return nil
		}
		rel, err := filepath.Rel(r.root, path)
		if err != nil {
			return fmt.Errorf("relative path %s: %w", path, err)
		}

		col.Candidates++
		doc, ok := r.parse(filepath.ToSlash(rel), data)
		if !ok {
			col.Unparsed++
			return nil
		}
		col.Documents = append(col.Documents, doc)
		return nil
	})
	if err != nil {
		return Collection{}, fmt.Errorf("walk %s: %w", r.root, err)
	}

	return col, nil
}

// stem returns the file name of rel without directory and extension.
func stem(rel string) string {
	base := rel
	if i := strings.LastIndexByte(base, '/'); i >= 0 {
		base = base[i+1:]
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// pathKey joins the directories and stem of rel with underscores.
func pathKey(rel string) string {
	name := stem(rel)
	i := strings.LastIndexByte(rel, '/')
	if i < 0 {
		return name
	}
	return strings.ReplaceAll(rel[:i], "/", "_") + "_" + name
}

// parentDir returns the name of the directory directly containing rel.
func parentDir(rel string) string {
	dir := rel
	i := strings.LastIndexByte(dir, '/')
	if i < 0 {
		return ""
	}
	dir = dir[:i]
	if j := strings.LastIndexByte(dir, '/'); j >= 0 {
		dir = dir[j+1:]
	}
	return dir
}
