package deduplication

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"ascii punctuation", "TSMC reports record profit!", "TSMC reports record profit"},
		{"newlines joined without space", "line one.\nline two\n", "line oneline two"},
		{"crlf keeps carriage return", "a\r\nb", "a\rb"},
		{"underscore and brackets", "a_b [c] {d} (e)", "ab c d e"},
		{"cjk untouched", "台積電第三季營收創新高", "台積電第三季營收創新高"},
		{"fullwidth punctuation kept", "台積電，營收創新高！", "台積電，營收創新高！"},
		{"mixed", "聯發科(2454)：法說會\n重點", "聯發科2454：法說會重點"},
		{"casing preserved", "Apple, Inc.", "Apple Inc"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, Normalize(c.in), "Normalize(%q)", c.in)
		})
	}
}
