package rssfeeds

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

type Priority string

const (
	PriorityHigh Priority = "high"
	PriorityLow  Priority = "low"
)

// Selector kinds for site rules.
const (
	ByTag   = "tag"
	ByID    = "id"
	ByClass = "class"
)

// Rule locates the element holding an article's paragraphs.
type Rule struct {
	By    string `yaml:"by" json:"by"`
	Value string `yaml:"value" json:"value"`
}

// Source is one RSS feed and the rule used to scrape its article pages.
type Source struct {
	Name     string   `yaml:"name" json:"name"`
	FeedURL  string   `yaml:"feed_url" json:"feed_url"`
	Priority Priority `yaml:"priority" json:"priority"`
	Rule     Rule     `yaml:"rule" json:"rule"`
}

type sourcesFile struct {
	Sources []Source `yaml:"sources"`
}

// DefaultSources lists the Taiwanese finance feeds, high priority first.
func DefaultSources() []Source {
	article := Rule{By: ByTag, Value: "article"}
	return []Source{
		{Name: "鉅亨網 (Anue)", FeedURL: "https://news.cnyes.com/rss/v1/news/category/tw_stock", Priority: PriorityHigh, Rule: Rule{By: ByID, Value: "article-container"}},
		{Name: "MoneyDJ 理財網", FeedURL: "https://www.moneydj.com/kmdj/RssCenter.aspx?svc=NW&fno=1&arg=X0000000", Priority: PriorityHigh, Rule: article},
		{Name: "Yahoo 奇摩股市", FeedURL: "https://tw.stock.yahoo.com/rss?category=tw-market", Priority: PriorityHigh, Rule: article},
		{Name: "鉅亨網 (Anue)", FeedURL: "https://news.cnyes.com/rss/v1/news/category/all", Priority: PriorityHigh, Rule: Rule{By: ByID, Value: "article-container"}},
		{Name: "經濟新聞網", FeedURL: "https://udn.com/news/rssfeed/6645", Priority: PriorityHigh, Rule: article},
		{Name: "商業週刊", FeedURL: "https://cmsapi.businessweekly.com.tw/?CategoryId=efd99109-9e15-422e-97f0-078b21322450&TemplateId=8E19CF43-50E5-4093-B72D-70A912962D55", Priority: PriorityLow, Rule: article},
		{Name: "TechOrange 科技報橘", FeedURL: "https://techorange.com/feed/", Priority: PriorityLow, Rule: article},
		{Name: "Inside (科技媒體)", FeedURL: "https://www.inside.com.tw/feed/rss", Priority: PriorityLow, Rule: Rule{By: ByID, Value: "article_content"}},
		{Name: "中央社財經 (CNA)", FeedURL: "https://feeds.feedburner.com/rsscna/finance", Priority: PriorityLow, Rule: Rule{By: ByClass, Value: "centralContent"}},
		{Name: "工商時報", FeedURL: "https://www.ctee.com.tw/rss_web/livenews/ctee", Priority: PriorityLow, Rule: article},
	}
}

// LoadSources reads a YAML sources file:
//
//	sources:
//	  - name: 中央社財經 (CNA)
//	    feed_url: https://feeds.feedburner.com/rsscna/finance
//	    priority: low
//	    rule: {by: class, value: centralContent}
func LoadSources(path string) ([]Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sources file: %w", err)
	}
	var file sourcesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse sources file: %w", err)
	}
	for i := range file.Sources {
		if err := file.Sources[i].validate(); err != nil {
			return nil, fmt.Errorf("source %d: %w", i, err)
		}
	}
	return file.Sources, nil
}

func (s *Source) validate() error {
	if s.Name == "" || s.FeedURL == "" {
		return fmt.Errorf("name and feed_url are required")
	}
	switch s.Priority {
	case "":
		s.Priority = PriorityLow
	case PriorityHigh, PriorityLow:
	default:
		return fmt.Errorf("unknown priority %q", s.Priority)
	}
	switch s.Rule.By {
	case "":
		s.Rule = Rule{By: ByTag, Value: "article"}
	case ByTag, ByID, ByClass:
		if s.Rule.Value == "" {
			return fmt.Errorf("rule value is required")
		}
	default:
		return fmt.Errorf("unknown rule selector %q", s.Rule.By)
	}
	return nil
}

// byPriority orders sources high priority first, keeping file order within a tier.
func byPriority(sources []Source) []Source {
	out := append([]Source(nil), sources...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority == PriorityHigh && out[j].Priority != PriorityHigh
	})
	return out
}
