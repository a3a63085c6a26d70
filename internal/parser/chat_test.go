package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/archivist/internal/domain"
)

func TestParseChatPost(t *testing.T) {
	text := "# Заметка\n\n**Дата:** 2023-05-01\n**URL:** https://t.me/c/1\n\n---\n\nсообщение\n"
	doc, ok := ParseChatPost("notes/2023-05-01-1.md", []byte(text))
	require.True(t, ok)

	assert.Equal(t, "tg_notes_2023-05-01-1", doc.ID)
	assert.Equal(t, domain.SourceChat, doc.Source())

	p := doc.Payload.(domain.ChatPost)
	assert.Equal(t, "2023-05-01", p.Date)
	assert.Equal(t, "notes", p.Channel)
	assert.Equal(t, "https://t.me/c/1", p.URL)
}

func TestParseChatPost_ExplicitChannel(t *testing.T) {
	text := "# T\n**Channel:** spark\n---\nbody"
	doc, ok := ParseChatPost("x.md", []byte(text))
	require.True(t, ok)
	assert.Equal(t, "spark", doc.Payload.(domain.ChatPost).Channel)
}

func TestParseChatPost_IDsDistinctAcrossChannels(t *testing.T) {
	text := []byte("# T\n---\nbody")
	alpha, ok := ParseChatPost("alpha/2024-01-01-1.md", text)
	require.True(t, ok)
	beta, ok := ParseChatPost("beta/2024-01-01-1.md", text)
	require.True(t, ok)
	nested, ok := ParseChatPost("alpha/2024/2024-01-01-1.md", text)
	require.True(t, ok)
	root, ok := ParseChatPost("2024-01-01-1.md", text)
	require.True(t, ok)

	assert.Equal(t, "tg_alpha_2024-01-01-1", alpha.ID)
	assert.Equal(t, "tg_beta_2024-01-01-1", beta.ID)
	assert.Equal(t, "tg_alpha_2024_2024-01-01-1", nested.ID)
	assert.Equal(t, "tg_2024-01-01-1", root.ID)
}

func TestParseChatPost_EmptyBody(t *testing.T) {
	_, ok := ParseChatPost("x.md", []byte("# T\n---\n\n"))
	assert.False(t, ok)
}
