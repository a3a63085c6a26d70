package parser

import (
	"github.com/kailas-cloud/archivist/internal/domain"
)

// ChatIDPrefix prefixes ids of chat posts.
const ChatIDPrefix = "tg_"

// ParseChatPost parses an exported chat post: the diary layout without tags.
// Posts are keyed by their directory path and file name, since exports of
// different channels reuse the same file names.
func ParseChatPost(rel string, data []byte) (domain.Document, bool) {
	p, ok := splitPost(string(data))
	if !ok || p.body == "" {
		return domain.Document{}, false
	}

	name := stem(rel)
	date := p.labels[labelDate]
	if date == "" {
		date = datePrefix.FindString(name)
	}
	channel := p.labels[labelChannel]
	if channel == "" {
		channel = parentDir(rel)
	}
	title := p.titleOr(name)

	return domain.Document{
		ID:      ChatIDPrefix + pathKey(rel),
		Title:   title,
		Body:    p.body,
		Context: dateHint(date, title),
		Payload: domain.ChatPost{
			Date:    date,
			Channel: channel,
			URL:     p.labels[labelURL],
		},
	}, true
}
