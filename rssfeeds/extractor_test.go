package rssfeeds

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const articlePage = `<html><body>
<header><p>網站導覽</p></header>
<div id="article-container"><p>台積電今日公布</p><p>第三季財報。</p></div>
<article><p>聯發科</p><div><p>發表新晶片</p></div></article>
<section class="centralContent other"><p>央行</p><p>升息半碼</p></section>
</body></html>`

func TestTextByRule(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(articlePage))
	require.NoError(t, err)

	cases := []struct {
		rule Rule
		want string
	}{
		{Rule{By: ByID, Value: "article-container"}, "台積電今日公布第三季財報。"},
		{Rule{By: ByTag, Value: "article"}, "聯發科發表新晶片"},
		{Rule{By: ByClass, Value: "centralContent"}, "央行升息半碼"},
		{Rule{By: ByID, Value: "article_content"}, ""},
		{Rule{}, ""},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, TextByRule(doc, c.rule), "%+v", c.rule)
	}
}

func TestStripHTML(t *testing.T) {
	assert.Equal(t, "plain text", StripHTML("  plain text "))
	assert.Equal(t, "加權指數上漲", StripHTML(`<p>加權指數<b>上漲</b></p>`))
	assert.Equal(t, "", StripHTML(""))
}

func TestHTMLExtractor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			assert.Equal(t, "newsbot-test", r.Header.Get("User-Agent"))
			_, _ = w.Write([]byte(articlePage))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	e := NewHTMLExtractor(server.Client(), "newsbot-test")

	out, err := e.Extract(context.Background(), server.URL+"/ok", Rule{By: ByID, Value: "article-container"})
	require.NoError(t, err)
	assert.Equal(t, "台積電今日公布第三季財報。", out.RuleText)
	assert.Empty(t, out.ReadableText)

	_, err = e.Extract(context.Background(), server.URL+"/missing", Rule{By: ByTag, Value: "article"})
	assert.ErrorContains(t, err, "status 404")

	_, err = e.Extract(context.Background(), "", Rule{})
	assert.Error(t, err)
}
