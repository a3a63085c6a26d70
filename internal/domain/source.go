package domain

import (
	"fmt"
	"strings"
)

// Source identifies the part of the archive a document came from.
type Source string

// Archive sources.
const (
	SourceCorpus Source = "corpus"
	SourceDiary  Source = "diary"
	SourcePoetry Source = "poetry"
	SourceChat   Source = "chat"
)

// Legacy names still used by older clients and stored configs.
var sourceAliases = map[string]Source{
	"lj":       SourceDiary,
	"telegram": SourceChat,
}

// Sources returns all sources in indexing order.
func Sources() []Source {
	return []Source{SourceCorpus, SourceDiary, SourcePoetry, SourceChat}
}

// SourceNames returns canonical names followed by accepted aliases.
func SourceNames() []string {
	return []string{"corpus", "diary", "poetry", "chat", "lj", "telegram"}
}

// ParseSource resolves a canonical source name or alias.
func ParseSource(s string) (Source, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for _, src := range Sources() {
		if string(src) == name {
			return src, nil
		}
	}
	if src, ok := sourceAliases[name]; ok {
		return src, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSource, s)
}

func (s Source) String() string { return string(s) }
