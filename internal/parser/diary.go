package parser

import (
	"github.com/kailas-cloud/archivist/internal/domain"
)

// DiaryIDPrefix prefixes ids of diary posts.
const DiaryIDPrefix = "lj_"

// ParseDiaryPost parses a diary post file. The date falls back to the
// YYYY-MM-DD prefix of the file name.
func ParseDiaryPost(rel string, data []byte) (domain.Document, bool) {
	p, ok := splitPost(string(data))
	if !ok || p.body == "" {
		return domain.Document{}, false
	}

	name := stem(rel)
	date := p.labels[labelDate]
	if date == "" {
		date = datePrefix.FindString(name)
	}
	title := p.titleOr(name)

	return domain.Document{
		ID:      DiaryIDPrefix + name,
		Title:   title,
		Body:    p.body,
		Context: dateHint(date, title),
		Payload: domain.DiaryPost{
			Date:   date,
			Tags:   splitTags(p.labels[labelTags]),
			Access: p.labels[labelAccess],
			URL:    p.labels[labelURL],
		},
	}, true
}
