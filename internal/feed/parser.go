package feed

import (
	"html"
	"io"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"
)

type Parser struct {
	parser *gofeed.Parser
	strip  *bluemonday.Policy
}

func NewParser() *Parser {
	return &Parser{
		parser: gofeed.NewParser(),
		strip:  bluemonday.StrictPolicy(),
	}
}

// Parse decodes an RSS, Atom or JSON Feed document into items attributed
// to src. Anything else yields a KindInvalidFeed error.
func (p *Parser) Parse(reader io.Reader, src Source) ([]Item, error) {
	doc, err := p.parser.Parse(reader)
	if err != nil {
		return nil, &FetchError{Kind: KindInvalidFeed, URL: src.URL, Err: err}
	}

	items := make([]Item, 0, len(doc.Items))
	for _, it := range doc.Items {
		if it == nil {
			continue
		}
		items = append(items, Item{
			Title:       strings.TrimSpace(it.Title),
			Link:        it.Link,
			Description: p.summary(it),
			PubDate:     pubDate(it),
			Category:    src.Category,
			Source:      src.Name,
		})
	}

	return items, nil
}

// summary prefers the plain-text summary and falls back to the full content,
// both stripped of markup.
func (p *Parser) summary(it *gofeed.Item) string {
	if s := p.PlainText(it.Description); s != "" {
		return s
	}
	return p.PlainText(it.Content)
}

// PlainText strips markup, decodes entities and collapses whitespace.
func (p *Parser) PlainText(s string) string {
	if s == "" {
		return ""
	}
	s = html.UnescapeString(p.strip.Sanitize(s))
	return strings.Join(strings.Fields(s), " ")
}

// pubDate keeps the publisher's own date string when present, otherwise an
// RFC 3339 rendering of whatever date gofeed could recover.
func pubDate(it *gofeed.Item) string {
	if it.Published != "" {
		return it.Published
	}
	if it.PublishedParsed != nil {
		return it.PublishedParsed.UTC().Format(time.RFC3339)
	}
	if it.UpdatedParsed != nil {
		return it.UpdatedParsed.UTC().Format(time.RFC3339)
	}
	return it.Updated
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
