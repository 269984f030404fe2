package rssfeeds

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

const (
	WorkerCount      = 5
	extractorTimeout = 30 * time.Second
	maxPageBytes     = 5 << 20
)

// Extraction carries the text recovered from an article page. RuleText comes
// from the source's site rule; ReadableText is only filled when the rule
// found nothing.
type Extraction struct {
	RuleText     string
	ReadableText string
}

// BodyExtractor downloads an article page and recovers its body text.
type BodyExtractor interface {
	Extract(ctx context.Context, link string, rule Rule) (Extraction, error)
}

// HTMLExtractor implements BodyExtractor with goquery site rules and a
// go-readability fallback.
type HTMLExtractor struct {
	client    *http.Client
	userAgent string
}

func NewHTMLExtractor(client *http.Client, userAgent string) *HTMLExtractor {
	if client == nil {
		client = &http.Client{Timeout: extractorTimeout}
	}
	return &HTMLExtractor{client: client, userAgent: userAgent}
}

func (e *HTMLExtractor) Extract(ctx context.Context, link string, rule Rule) (Extraction, error) {
	if link == "" {
		return Extraction{}, fmt.Errorf("article URL is empty")
	}
	pageURL, err := url.Parse(link)
	if err != nil {
		return Extraction{}, fmt.Errorf("invalid article URL %q: %w", link, err)
	}

	raw, err := e.fetch(ctx, link)
	if err != nil {
		return Extraction{}, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return Extraction{}, fmt.Errorf("failed to parse %s: %w", link, err)
	}

	out := Extraction{RuleText: TextByRule(doc, rule)}
	if out.RuleText == "" {
		if article, err := readability.FromReader(bytes.NewReader(raw), pageURL); err == nil {
			out.ReadableText = strings.TrimSpace(article.TextContent)
		}
	}
	return out, nil
}

func (e *HTMLExtractor) fetch(ctx context.Context, link string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, err
	}
	if e.userAgent != "" {
		req.Header.Set("User-Agent", e.userAgent)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", link, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("failed to fetch %s: status %d", link, resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
}

// TextByRule finds the first element matching rule and concatenates the text
// of every <p> inside it.
func TextByRule(doc *goquery.Document, rule Rule) string {
	var selector string
	switch rule.By {
	case ByID:
		selector = "#" + rule.Value
	case ByClass:
		selector = "." + rule.Value
	default:
		selector = rule.Value
	}
	if selector == "" {
		return ""
	}

	var sb strings.Builder
	doc.Find(selector).First().Find("p").Each(func(_ int, p *goquery.Selection) {
		sb.WriteString(p.Text())
	})
	return sb.String()
}

// StripHTML returns the text content of an HTML fragment such as an RSS
// description.
func StripHTML(fragment string) string {
	if !strings.Contains(fragment, "<") {
		return strings.TrimSpace(fragment)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.TrimSpace(fragment)
	}
	return strings.TrimSpace(doc.Text())
}
