package scraper

import (
	"io"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"

	"github.com/nao1215/seoaudit/internal/model"
)

// skippedElements never contribute visible text.
var skippedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"svg":      true,
	"head":     true,
}

// pageParser collects on-page facts in a single walk over the DOM.
type pageParser struct {
	baseURL *url.URL
	result  *model.OnPage
	text    strings.Builder
}

// ParsePage parses HTML and extracts the on-page SEO facts: title, meta
// description, canonical, robots directive, language, h1-h4 headings in
// document order, link counts, image alt coverage and visible word count.
// Relative links are resolved against baseURL.
func ParsePage(baseURL string, content io.Reader) (*model.OnPage, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	doc, err := html.Parse(content)
	if err != nil {
		return nil, err
	}

	p := &pageParser{
		baseURL: u,
		result:  &model.OnPage{Headings: make([]model.HeadingItem, 0)},
	}
	p.walk(doc)
	p.result.WordCount = wordCount(p.text.String())
	return p.result, nil
}

func (p *pageParser) walk(n *html.Node) {
	switch n.Type {
	case html.ElementNode:
		p.processElement(n)
		if n.Data == "head" {
			// Still walk head for title and meta, without collecting text.
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				p.walkHead(c)
			}
			return
		}
		if skippedElements[n.Data] {
			return
		}
	case html.TextNode:
		p.text.WriteString(n.Data)
		p.text.WriteString(" ")
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		p.walk(c)
	}
}

func (p *pageParser) walkHead(n *html.Node) {
	if n.Type == html.ElementNode {
		p.processElement(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		p.walkHead(c)
	}
}

func (p *pageParser) processElement(n *html.Node) {
	switch n.Data {
	case "html":
		if lang := getAttr(n, "lang"); lang != "" {
			p.result.Lang = lang
		}

	case "title":
		if p.result.Title == "" {
			p.result.Title = collapse(nodeText(n))
		}

	case "meta":
		name := strings.ToLower(getAttr(n, "name"))
		content := collapse(getAttr(n, "content"))
		switch name {
		case "description":
			if p.result.MetaDescription == "" {
				p.result.MetaDescription = content
			}
		case "robots":
			p.result.Robots = content
		}

	case "link":
		if strings.EqualFold(getAttr(n, "rel"), "canonical") {
			p.result.Canonical = p.resolveURL(getAttr(n, "href"))
		}

	case "h1", "h2", "h3", "h4":
		if text := collapse(nodeText(n)); text != "" {
			p.result.Headings = append(p.result.Headings, model.HeadingItem{Tag: n.Data, Text: text})
		}

	case "a":
		if link := p.resolveURL(getAttr(n, "href")); link != "" {
			p.classifyLink(link)
		}

	case "img":
		p.result.ImageCount++
		if strings.TrimSpace(getAttr(n, "alt")) == "" {
			p.result.ImagesWithoutAlt++
		}
	}
}

// resolveURL resolves href against the base URL. Non-navigational links
// (javascript:, mailto:, tel:, data:, bare fragments) resolve to "".
func (p *pageParser) resolveURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	lower := strings.ToLower(href)
	for _, prefix := range []string{"javascript:", "mailto:", "tel:", "data:"} {
		if strings.HasPrefix(lower, prefix) {
			return ""
		}
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return p.baseURL.ResolveReference(u).String()
}

// classifyLink counts a link as internal when it shares the page's host,
// ignoring a leading "www.".
func (p *pageParser) classifyLink(link string) {
	u, err := url.Parse(link)
	if err != nil {
		return
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return
	}
	if sameSite(u.Hostname(), p.baseURL.Hostname()) {
		p.result.InternalLinks++
		return
	}
	p.result.ExternalLinks++
}

func sameSite(a, b string) bool {
	a = strings.TrimPrefix(strings.ToLower(a), "www.")
	b = strings.TrimPrefix(strings.ToLower(b), "www.")
	return a == b
}

// extractText returns the visible body text of an HTML document.
// It backs up readability when that finds no article.
func extractText(content io.Reader) string {
	doc, err := html.Parse(content)
	if err != nil {
		return ""
	}
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skippedElements[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				sb.WriteString(t)
				sb.WriteString("\n")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return normalizeText(sb.String())
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

var (
	multiSpace   = regexp.MustCompile(`[ \t\x{00a0}]+`)
	multiNewline = regexp.MustCompile(`\n{3,}`)
)

// normalizeText converts s to NFC and squeezes runs of blanks and empty lines.
func normalizeText(s string) string {
	s = norm.NFC.String(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = multiSpace.ReplaceAllString(s, " ")
	s = multiNewline.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// collapse normalizes s onto a single line.
func collapse(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
