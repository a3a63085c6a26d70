package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/archivist/internal/domain"
)

const diaryRU = `# Осенний город

**Дата:** 2004-10-07
**URL:** https://example.livejournal.com/1.html
**Доступ:** публичный
**Теги:** осень, город,

---

Листья на мостовой.
`

func TestParseDiaryPost_RussianLabels(t *testing.T) {
	doc, ok := ParseDiaryPost("2004/2004-10-07-1.md", []byte(diaryRU))
	require.True(t, ok)

	assert.Equal(t, "lj_2004-10-07-1", doc.ID)
	assert.Equal(t, "Осенний город", doc.Title)
	assert.Equal(t, "Листья на мостовой.", doc.Body)
	assert.Equal(t, "2004-10-07: Осенний город", doc.Context)

	post, isDiary := doc.Payload.(domain.DiaryPost)
	require.True(t, isDiary)
	assert.Equal(t, "2004-10-07", post.Date)
	assert.Equal(t, []string{"осень", "город"}, post.Tags)
	assert.Equal(t, "публичный", post.Access)
	assert.Equal(t, "https://example.livejournal.com/1.html", post.URL)
}

func TestParseDiaryPost_EnglishLabels(t *testing.T) {
	text := "# Title\n\n**Date:** 2010-01-02\n**Tags:** a\n**Access:** friends\n\n---\n\nbody\n"
	doc, ok := ParseDiaryPost("2010/2010-01-02-5.md", []byte(text))
	require.True(t, ok)

	post := doc.Payload.(domain.DiaryPost)
	assert.Equal(t, "2010-01-02", post.Date)
	assert.Equal(t, []string{"a"}, post.Tags)
	assert.Equal(t, "friends", post.Access)
}

func TestParseDiaryPost_UntitledFallsBackToStem(t *testing.T) {
	text := "# (без заголовка)\n\n**Дата:** 2004-10-07\n\n---\n\nтекст\n"
	doc, ok := ParseDiaryPost("2004/2004-10-07-9.md", []byte(text))
	require.True(t, ok)
	assert.Equal(t, "2004-10-07-9", doc.Title)
}

func TestParseDiaryPost_DateFromFileName(t *testing.T) {
	doc, ok := ParseDiaryPost("2004/2004-10-07-9.md", []byte("# T\n---\nbody"))
	require.True(t, ok)
	assert.Equal(t, "2004-10-07", doc.Payload.(domain.DiaryPost).Date)
}

func TestParseDiaryPost_Absent(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"no rule", "# T\n\n**Дата:** 2004-10-07\n\nbody without separator\n"},
		{"empty body", "# T\n\n---\n\n   \n\n"},
		{"empty file", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := ParseDiaryPost("2004/x.md", []byte(tt.text))
			assert.False(t, ok)
		})
	}
}

func TestParseDiaryPost_BodyKeepsLaterRules(t *testing.T) {
	text := "# T\n---\nfirst\n\n---\n\nsecond"
	doc, ok := ParseDiaryPost("a.md", []byte(text))
	require.True(t, ok)
	assert.True(t, strings.HasSuffix(doc.Body, "second"))
	assert.True(t, strings.HasPrefix(doc.Body, "first"))
}

func TestParseDiaryPost_CRLF(t *testing.T) {
	text := strings.ReplaceAll(diaryRU, "\n", "\r\n")
	doc, ok := ParseDiaryPost("2004/2004-10-07-1.md", []byte(text))
	require.True(t, ok)
	assert.Equal(t, "Осенний город", doc.Title)
	assert.Equal(t, "Листья на мостовой.", doc.Body)
}
