package rssfeeds

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/html"
)

const (
	PTTBaseURL       = "https://www.ptt.cc"
	pttStockIndex    = "/bbs/stock/index.html"
	pttSourceName    = "PTT Stock Board"
	pttPrevPageLabel = "‹ 上頁"
	pttTimeLayout    = "Mon Jan _2 15:04:05 2006"
	pttMaxPages      = 50
)

// ForumPost is one scraped forum post.
type ForumPost struct {
	Title     string
	URL       string
	Body      string
	Timestamp time.Time
}

// ForumSource yields forum posts until limit of them have been accepted.
type ForumSource interface {
	Name() string
	Fetch(ctx context.Context, limit int, accept func(ForumPost) bool) ([]ForumPost, error)
}

// PTTSource scrapes the PTT Stock board, walking index pages backwards.
type PTTSource struct {
	client  *http.Client
	baseURL string
	index   string
}

func NewPTTSource(client *http.Client, baseURL string) *PTTSource {
	if client == nil {
		client = &http.Client{Timeout: extractorTimeout}
	}
	if baseURL == "" {
		baseURL = PTTBaseURL
	}
	return &PTTSource{client: client, baseURL: strings.TrimRight(baseURL, "/"), index: pttStockIndex}
}

func (p *PTTSource) Name() string { return pttSourceName }

type pttLink struct {
	title string
	href  string
}

func (p *PTTSource) Fetch(ctx context.Context, limit int, accept func(ForumPost) bool) ([]ForumPost, error) {
	var posts []ForumPost
	page := p.index

	for pages := 0; pages < pttMaxPages && page != "" && len(posts) < limit; pages++ {
		doc, err := p.document(ctx, page)
		if err != nil {
			return posts, err
		}
		links, prev := parsePTTIndex(doc)

		for _, link := range links {
			if len(posts) >= limit {
				break
			}
			post, err := p.post(ctx, link)
			if err != nil {
				log.Warn().Err(err).Str("url", p.baseURL+link.href).Msg("skipping forum post")
				continue
			}
			if accept == nil || accept(post) {
				posts = append(posts, post)
			}
		}
		page = prev
	}
	return posts, nil
}

func (p *PTTSource) post(ctx context.Context, link pttLink) (ForumPost, error) {
	doc, err := p.document(ctx, link.href)
	if err != nil {
		return ForumPost{}, err
	}
	body, ok := pttBody(doc)
	if !ok {
		return ForumPost{}, fmt.Errorf("post has no metaline")
	}
	ts, err := pttTimestamp(doc)
	if err != nil {
		return ForumPost{}, err
	}
	return ForumPost{Title: link.title, URL: p.baseURL + link.href, Body: body, Timestamp: ts}, nil
}

func (p *PTTSource) document(ctx context.Context, path string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.AddCookie(&http.Cookie{Name: "over18", Value: "1"})

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch %s: status %d", path, resp.StatusCode)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(bytes.NewReader(raw))
}

// parsePTTIndex returns the post links on an index page and the href of the
// previous page, if any. Deleted posts have no anchor and are left out.
func parsePTTIndex(doc *goquery.Document) ([]pttLink, string) {
	var links []pttLink
	doc.Find(".title").Each(func(_ int, s *goquery.Selection) {
		a := s.Find("a").First()
		href, ok := a.Attr("href")
		if !ok || href == "" {
			return
		}
		links = append(links, pttLink{title: strings.TrimSpace(a.Text()), href: href})
	})

	var prev string
	doc.Find(".btn.wide").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.TrimSpace(s.Text()) == pttPrevPageLabel {
			prev, _ = s.Attr("href")
			return false
		}
		return true
	})
	return links, prev
}

// pttBody collects the bare text that follows the last metaline, up to the
// first push comment.
func pttBody(doc *goquery.Document) (string, bool) {
	metas := doc.Find(".article-metaline")
	if metas.Length() == 0 {
		return "", false
	}

	var sb strings.Builder
	for n := metas.Last().Nodes[0].NextSibling; n != nil; n = n.NextSibling {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(n.Data)
		case html.ElementNode:
			if firstClass(n) == "push" {
				return cleanPTTText(sb.String()), true
			}
		}
	}
	return cleanPTTText(sb.String()), true
}

func firstClass(n *html.Node) string {
	for _, attr := range n.Attr {
		if attr.Key == "class" {
			if fields := strings.Fields(attr.Val); len(fields) > 0 {
				return fields[0]
			}
		}
	}
	return ""
}

func cleanPTTText(text string) string {
	for _, noise := range []string{"\n", "  ", "===", "---"} {
		text = strings.ReplaceAll(text, noise, "")
	}
	return text
}

func pttTimestamp(doc *goquery.Document) (time.Time, error) {
	var value string
	doc.Find(".article-metaline").Each(func(_ int, s *goquery.Selection) {
		if strings.TrimSpace(s.Find(".article-meta-tag").Text()) == "時間" {
			value = strings.TrimSpace(s.Find(".article-meta-value").Text())
		}
	})
	if value == "" {
		return time.Time{}, fmt.Errorf("post has no timestamp")
	}
	ts, err := time.ParseInLocation(pttTimeLayout, value, Taipei)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid post timestamp %q: %w", value, err)
	}
	return ts, nil
}
