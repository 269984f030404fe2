package rssfeeds

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// KeywordFile names a CSV file and the header of the column holding keywords.
type KeywordFile struct {
	Path   string
	Column string
}

// KeywordFilter keeps articles mentioning at least one keyword.
type KeywordFilter struct {
	keywords []string
}

// NewKeywordFilter builds a filter from keywords; blanks and repeats are dropped.
func NewKeywordFilter(keywords []string) *KeywordFilter {
	set := make(map[string]struct{}, len(keywords))
	for _, k := range keywords {
		if k = strings.TrimSpace(k); k != "" {
			set[k] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return &KeywordFilter{keywords: out}
}

// LoadKeywordFilter reads every file and merges their keyword columns.
func LoadKeywordFilter(files ...KeywordFile) (*KeywordFilter, error) {
	var all []string
	for _, f := range files {
		keywords, err := readKeywordColumn(f)
		if err != nil {
			return nil, err
		}
		all = append(all, keywords...)
	}
	return NewKeywordFilter(all), nil
}

func readKeywordColumn(f KeywordFile) ([]string, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open keyword file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", f.Path, err)
	}
	column := -1
	for i, name := range header {
		if strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")) == f.Column {
			column = i
			break
		}
	}
	if column < 0 {
		return nil, fmt.Errorf("column %q not found in %s", f.Column, f.Path)
	}

	var keywords []string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", f.Path, err)
		}
		if column < len(record) {
			keywords = append(keywords, record[column])
		}
	}
	return keywords, nil
}

// Len returns the number of distinct keywords.
func (f *KeywordFilter) Len() int { return len(f.keywords) }

// Match returns the keywords contained in title or body, sorted.
func (f *KeywordFilter) Match(title, body string) []string {
	var found []string
	for _, k := range f.keywords {
		if strings.Contains(title, k) || strings.Contains(body, k) {
			found = append(found, k)
		}
	}
	return found
}
