package rssfeeds

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadKeywordFilter(t *testing.T) {
	dir := t.TempDir()
	keywords := filepath.Join(dir, "keyword_filter_set_zh.csv")
	stocks := filepath.Join(dir, "TW_stock_list.csv")
	require.NoError(t, os.WriteFile(keywords, []byte("\ufeffKeyword,Note\n升息,macro\n財報,\n\n升息,dup\n"), 0o644))
	require.NoError(t, os.WriteFile(stocks, []byte("Code,Cleaned company names\n2330,台積電\n2454,聯發科\n"), 0o644))

	f, err := LoadKeywordFilter(
		KeywordFile{Path: keywords, Column: "Keyword"},
		KeywordFile{Path: stocks, Column: "Cleaned company names"},
	)
	require.NoError(t, err)
	assert.Equal(t, 4, f.Len())

	assert.Equal(t, []string{"台積電", "財報"}, f.Match("台積電公布財報", "內容"))
	assert.Equal(t, []string{"升息"}, f.Match("央行決議", "今日宣布升息半碼"))
	assert.Empty(t, f.Match("天氣預報", "明天下雨"))
}

func TestLoadKeywordFilterMissingColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "k.csv")
	require.NoError(t, os.WriteFile(path, []byte("Word\nx\n"), 0o644))
	_, err := LoadKeywordFilter(KeywordFile{Path: path, Column: "Keyword"})
	assert.ErrorContains(t, err, `column "Keyword" not found`)
}
