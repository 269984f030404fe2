package rssfeeds

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>鉅亨網</title>
<item>
  <title> 台積電法說會 </title>
  <link>https://news.cnyes.com/news/id/1</link>
  <description>&lt;p&gt;摘要&lt;/p&gt;</description>
  <pubDate>Wed, 16 Oct 2024 01:21:33 +0000</pubDate>
</item>
<item>
  <title>沒有時間</title>
  <link>https://news.cnyes.com/news/id/2</link>
</item>
</channel></rss>`

func TestParseFeed(t *testing.T) {
	items, err := ParseFeed(sampleRSS)
	require.NoError(t, err)
	require.Len(t, items, 2)

	first := items[0]
	assert.Equal(t, "台積電法說會", first.Title)
	assert.Equal(t, "https://news.cnyes.com/news/id/1", first.Link)
	assert.Equal(t, "<p>摘要</p>", first.Description)
	assert.Equal(t, 9, first.Published.Hour())
	_, offset := first.Published.Zone()
	assert.Equal(t, 8*3600, offset)
	assert.True(t, first.Published.Equal(time.Date(2024, 10, 16, 1, 21, 33, 0, time.UTC)))

	assert.True(t, items[1].Published.IsZero())
}
