package deduplication

import (
	"context"
	"fmt"
	"strings"
)

// Strategy names a vectorization approach.
type Strategy string

const (
	StrategyLexical  Strategy = "lexical"
	StrategySemantic Strategy = "semantic"
)

// ParseStrategy maps user input onto a known Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategyLexical:
		return StrategyLexical, nil
	case StrategySemantic:
		return StrategySemantic, nil
	default:
		return "", fmt.Errorf("unknown similarity strategy %q", s)
	}
}

// Vectorizer turns a corpus into one vector per document. Row i of the
// returned matrix corresponds to corpus[i].
type Vectorizer interface {
	Fit(ctx context.Context, corpus []string) (*Matrix, error)
	Name() string
}
