package skyline

import (
	"fmt"

	"github.com/prometheus/prometheus/model/labels"
)

// Query is a boolean predicate over a tag map. Implementations are immutable
// and safe for concurrent use.
type Query interface {
	// Matches reports whether the tag map satisfies the predicate.
	Matches(tags map[string]string) bool
	// String renders the predicate in postfix form.
	String() string
}

// TrueQuery matches every series.
type TrueQuery struct{}

func (TrueQuery) Matches(map[string]string) bool { return true }
func (TrueQuery) String() string                 { return ":true" }

// FalseQuery matches no series.
type FalseQuery struct{}

func (FalseQuery) Matches(map[string]string) bool { return false }
func (FalseQuery) String() string                 { return ":false" }

// EqualQuery matches series whose tag Key has exactly value Value. A missing
// key never matches.
type EqualQuery struct {
	Key   string
	Value string
}

func (q EqualQuery) Matches(tags map[string]string) bool {
	v, ok := tags[q.Key]
	return ok && v == q.Value
}

func (q EqualQuery) String() string {
	return fmt.Sprintf("%s,%s,:eq", q.Key, q.Value)
}

// RegexQuery matches series whose tag Key matches the anchored pattern.
// Matching is delegated to the Prometheus fast regex matcher, which anchors
// the pattern and pre-compiles literal and prefix fast paths.
type RegexQuery struct {
	Key     string
	Pattern string
	matcher *labels.FastRegexMatcher
}

// NewRegexQuery compiles a regex predicate.
func NewRegexQuery(key, pattern string) (RegexQuery, error) {
	m, err := labels.NewFastRegexMatcher(pattern)
	if err != nil {
		return RegexQuery{}, fmt.Errorf("invalid regex %q: %w", pattern, err)
	}
	return RegexQuery{Key: key, Pattern: pattern, matcher: m}, nil
}

func (q RegexQuery) Matches(tags map[string]string) bool {
	v, ok := tags[q.Key]
	return ok && q.matcher.MatchString(v)
}

func (q RegexQuery) String() string {
	return fmt.Sprintf("%s,%s,:re", q.Key, q.Pattern)
}

// HasKeyQuery matches series that carry the tag Key with any value.
type HasKeyQuery struct {
	Key string
}

func (q HasKeyQuery) Matches(tags map[string]string) bool {
	_, ok := tags[q.Key]
	return ok
}

func (q HasKeyQuery) String() string {
	return q.Key + ",:has"
}

// AndQuery matches series satisfying both sub-predicates.
type AndQuery struct {
	Q1, Q2 Query
}

func (q AndQuery) Matches(tags map[string]string) bool {
	return q.Q1.Matches(tags) && q.Q2.Matches(tags)
}

func (q AndQuery) String() string {
	return q.Q1.String() + "," + q.Q2.String() + ",:and"
}

// OrQuery matches series satisfying either sub-predicate.
type OrQuery struct {
	Q1, Q2 Query
}

func (q OrQuery) Matches(tags map[string]string) bool {
	return q.Q1.Matches(tags) || q.Q2.Matches(tags)
}

func (q OrQuery) String() string {
	return q.Q1.String() + "," + q.Q2.String() + ",:or"
}

// NotQuery inverts a predicate.
type NotQuery struct {
	Q Query
}

func (q NotQuery) Matches(tags map[string]string) bool {
	return !q.Q.Matches(tags)
}

func (q NotQuery) String() string {
	return q.Q.String() + ",:not"
}
