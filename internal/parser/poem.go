package parser

import (
	"regexp"
	"strings"

	"github.com/kailas-cloud/archivist/internal/domain"
)

// PoemIDPrefix prefixes ids of poems.
const PoemIDPrefix = "poem_"

var poemLabelRe = regexp.MustCompile(`^(Автор|Author|Год|Year):\s*(.*)$`)

// ParsePoem parses a poem file:
//
//	# title
//
//	Автор: full name
//	Год: year
//
//	body
//
// The year line is optional. Everything after the labeled block is the body.
// The containing directory is the author key; a poem outside any author
// directory does not follow the layout.
func ParsePoem(rel string, data []byte) (domain.Document, bool) {
	authorKey := parentDir(rel)
	if authorKey == "" {
		return domain.Document{}, false
	}

	lines := strings.Split(normalizeNewlines(string(data)), "\n")

	i := skipBlank(lines, 0)
	var title string
	if i < len(lines) {
		if t, ok := strings.CutPrefix(strings.TrimSpace(lines[i]), "# "); ok {
			title = strings.TrimSpace(t)
			i++
		}
	}

	var author, year string
	for i = skipBlank(lines, i); i < len(lines); i++ {
		m := poemLabelRe.FindStringSubmatch(strings.TrimSpace(lines[i]))
		if m == nil {
			break
		}
		switch m[1] {
		case "Автор", "Author":
			author = strings.TrimSpace(m[2])
		case "Год", "Year":
			year = strings.TrimSpace(m[2])
		}
	}

	body := strings.TrimSpace(strings.Join(lines[min(i, len(lines)):], "\n"))
	if body == "" {
		return domain.Document{}, false
	}

	slug := stem(rel)
	if title == "" {
		title = slug
	}

	hint := title
	if author != "" {
		hint = author + ", " + title
	}

	return domain.Document{
		ID:      PoemIDPrefix + authorKey + "_" + slug,
		Title:   title,
		Body:    body,
		Context: hint,
		Payload: domain.Poem{
			Author:    author,
			AuthorKey: authorKey,
			Year:      year,
		},
	}, true
}

func skipBlank(lines []string, i int) int {
	for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
		i++
	}
	return i
}
