package rssfeeds

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// Taipei is the fixed UTC+8 zone all article timestamps are stored in.
var Taipei = time.FixedZone("UTC+8", 8*60*60)

// FeedItem is the subset of an RSS entry ingestion needs.
type FeedItem struct {
	Title       string
	Link        string
	Description string
	Published   time.Time
}

// FeedFetcher retrieves the current entries of a source's feed.
type FeedFetcher interface {
	Fetch(ctx context.Context, src Source) ([]FeedItem, error)
}

// GofeedFetcher fetches RSS/Atom feeds with gofeed.
type GofeedFetcher struct {
	parser *gofeed.Parser
}

func NewGofeedFetcher(userAgent string) *GofeedFetcher {
	parser := gofeed.NewParser()
	if userAgent != "" {
		parser.UserAgent = userAgent
	}
	return &GofeedFetcher{parser: parser}
}

func (f *GofeedFetcher) Fetch(ctx context.Context, src Source) ([]FeedItem, error) {
	feed, err := f.parser.ParseURLWithContext(src.FeedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed %s: %w", src.FeedURL, err)
	}
	return itemsFromFeed(feed), nil
}

// ParseFeed parses a feed document already in memory.
func ParseFeed(data string) ([]FeedItem, error) {
	feed, err := gofeed.NewParser().ParseString(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}
	return itemsFromFeed(feed), nil
}

func itemsFromFeed(feed *gofeed.Feed) []FeedItem {
	items := make([]FeedItem, 0, len(feed.Items))
	for _, item := range feed.Items {
		var published time.Time
		if item.PublishedParsed != nil {
			published = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			published = *item.UpdatedParsed
		}
		if !published.IsZero() {
			published = published.In(Taipei)
		}

		description := item.Description
		if description == "" {
			description = item.Content
		}

		items = append(items, FeedItem{
			Title:       strings.TrimSpace(item.Title),
			Link:        strings.TrimSpace(item.Link),
			Description: description,
			Published:   published,
		})
	}
	return items
}
