package rssfeeds

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSources(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
sources:
  - name: 中央社財經 (CNA)
    feed_url: https://feeds.feedburner.com/rsscna/finance
    rule: {by: class, value: centralContent}
  - name: 鉅亨網 (Anue)
    feed_url: https://news.cnyes.com/rss/v1/news/category/tw_stock
    priority: high
    rule: {by: id, value: article-container}
  - name: 工商時報
    feed_url: https://www.ctee.com.tw/rss_web/livenews/ctee
`), 0o644))

	sources, err := LoadSources(path)
	require.NoError(t, err)
	require.Len(t, sources, 3)
	assert.Equal(t, PriorityLow, sources[0].Priority)
	assert.Equal(t, Rule{By: ByTag, Value: "article"}, sources[2].Rule)

	ordered := byPriority(sources)
	assert.Equal(t, "鉅亨網 (Anue)", ordered[0].Name)
	assert.Equal(t, "中央社財經 (CNA)", ordered[1].Name)
	assert.Equal(t, "工商時報", ordered[2].Name)
}

func TestLoadSourcesRejectsBadRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
sources:
  - name: x
    feed_url: https://example.com/rss
    rule: {by: xpath, value: //p}
`), 0o644))

	_, err := LoadSources(path)
	assert.ErrorContains(t, err, "unknown rule selector")

	_, err = LoadSources(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDefaultSources(t *testing.T) {
	sources := DefaultSources()
	require.Len(t, sources, 10)
	for _, s := range sources[:5] {
		assert.Equal(t, PriorityHigh, s.Priority, s.Name)
	}
	for _, s := range sources[5:] {
		assert.Equal(t, PriorityLow, s.Priority, s.Name)
	}
}
