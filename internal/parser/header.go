package parser

import (
	"regexp"
	"strings"
)

// Header labels understood by the diary and chat layouts. Exports exist in
// both Russian and English.
const (
	labelDate    = "date"
	labelTags    = "tags"
	labelAccess  = "access"
	labelURL     = "url"
	labelChannel = "channel"
)

var labelAliases = map[string]string{
	"дата":    labelDate,
	"date":    labelDate,
	"теги":    labelTags,
	"tags":    labelTags,
	"доступ":  labelAccess,
	"access":  labelAccess,
	"url":     labelURL,
	"канал":   labelChannel,
	"channel": labelChannel,
}

var (
	boldLabelRe = regexp.MustCompile(`^\*\*([^*]+?):\*\*\s*(.*)$`)
	datePrefix  = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})`)
)

// untitled markers written by the exporters when a post has no subject.
var untitled = map[string]bool{
	"(без заголовка)": true,
	"(no title)":      true,
	"(untitled)":      true,
}

// post is a Markdown file split into its header block and body.
type post struct {
	title  string
	labels map[string]string
	body   string
}

// splitPost splits text at the first horizontal rule. The header holds the
// "# title" line and bolded labeled lines; the body is everything after the
// rule. ok is false when there is no rule.
func splitPost(text string) (post, bool) {
	lines := strings.Split(normalizeNewlines(text), "\n")

	rule := -1
	for i, line := range lines {
		if strings.TrimSpace(line) == "---" {
			rule = i
			break
		}
	}
	if rule < 0 {
		return post{}, false
	}

	p := post{labels: make(map[string]string)}
	for _, line := range lines[:rule] {
		line = strings.TrimSpace(line)
		if title, ok := strings.CutPrefix(line, "# "); ok && p.title == "" {
			p.title = strings.TrimSpace(title)
			continue
		}
		m := boldLabelRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if key, ok := labelAliases[strings.ToLower(strings.TrimSpace(m[1]))]; ok {
			p.labels[key] = strings.TrimSpace(m[2])
		}
	}
	p.body = strings.TrimSpace(strings.Join(lines[rule+1:], "\n"))

	return p, true
}

// titleOr returns the post title unless it is missing or an untitled marker.
func (p post) titleOr(fallback string) string {
	if p.title == "" || untitled[strings.ToLower(p.title)] {
		return fallback
	}
	return p.title
}

// splitTags splits a comma separated tag list.
func splitTags(s string) []string {
	var tags []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// dateHint joins date and title the way the summarizer expects its hint.
func dateHint(date, title string) string {
	if date == "" {
		return title
	}
	return date + ": " + title
}

func normalizeNewlines(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	return strings.ReplaceAll(s, "\r\n", "\n")
}
