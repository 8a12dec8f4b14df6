// Package dom turns page markup into the element inventory plans are grounded on.
package dom

import (
	"ai-test-agent/internal/entity"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

const maxTextRunes = 100

var skippedTags = map[string]bool{
	"script": true,
	"style":  true,
	"svg":    true,
	"path":   true,
}

// BuildInventory lists every element of markup in document order, except
// script, style, svg and path elements. An empty head, which the parser adds
// around body-only markup, is left out too.
func BuildInventory(markup string) []entity.DomElement {
	if strings.TrimSpace(markup) == "" {
		return []entity.DomElement{}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return []entity.DomElement{}
	}

	items := make([]entity.DomElement, 0)

	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		tag := goquery.NodeName(s)
		if skippedTags[tag] {
			return
		}

		if tag == "head" && s.Children().Length() == 0 {
			return
		}

		item := entity.DomElement{
			Tag:           tag,
			ID:            s.AttrOr("id", ""),
			Role:          s.AttrOr("role", ""),
			TestID:        s.AttrOr("data-testid", ""),
			Placeholder:   s.AttrOr("placeholder", ""),
			Label:         s.AttrOr("aria-label", ""),
			Text:          truncateRunes(strippedText(s.Get(0)), maxTextRunes),
			CSSCandidates: CSSCandidates(s.AttrOr("class", "")),
		}

		items = append(items, item)
	})

	return items
}

// CSSCandidates derives one prefix selector per class token. The prefix is
// the part before the first hyphen, which drops generated hash suffixes.
func CSSCandidates(class string) []string {
	tokens := strings.Fields(class)
	out := make([]string, 0, len(tokens))

	for _, token := range tokens {
		stable, _, _ := strings.Cut(token, "-")
		out = append(out, fmt.Sprintf(`[class^="%s"]`, stable))
	}

	return out
}

// strippedText concatenates the trimmed text nodes below n, ignoring the
// content of script and style elements.
func strippedText(n *html.Node) string {
	var sb strings.Builder

	var walk func(*html.Node)
	walk = func(node *html.Node) {
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			switch c.Type {
			case html.TextNode:
				sb.WriteString(strings.TrimSpace(c.Data))
			case html.ElementNode:
				if c.Data == "script" || c.Data == "style" {
					continue
				}
				walk(c)
			}
		}
	}
	walk(n)

	return sb.String()
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}

	return string(runes[:limit])
}
