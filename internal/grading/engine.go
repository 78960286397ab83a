package grading

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownKind = errors.New("unknown answer kind")

const (
	KindExact     = "exact"
	KindChoice    = "choice"
	KindShortWord = "short_word"
	KindNumeric   = "numeric"
)

// Answer is the minimal view of a question response needed to decide correctness.
// Key holds the accepted answers; numeric keys may carry tol=/reltol= modifiers.
type Answer struct {
	Kind  string
	Key   []string
	Given string
}

// Strategy decides correctness for a single kind of answer.
type Strategy interface {
	Correct(ctx context.Context, a Answer) (bool, error)
}

// Grader routes by answer kind to the correct Strategy.
type Grader interface {
	Correct(ctx context.Context, a Answer) (bool, error)
}

type defaultGrader struct {
	strategies map[string]Strategy
}

func (g *defaultGrader) Correct(ctx context.Context, a Answer) (bool, error) {
	kind := strings.TrimSpace(a.Kind)
	if kind == "" {
		kind = KindExact
	}
	s, ok := g.strategies[kind]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownKind, a.Kind)
	}
	return s.Correct(ctx, a)
}

// Engine options

type Option func(*config)

type config struct {
	MaxEditDistance int // for short-word fuzzy
}

func WithMaxEditDistance(n int) Option { return func(c *config) { c.MaxEditDistance = n } }

// NewDefaultGrader installs built-in strategies.
func NewDefaultGrader(opts ...Option) Grader {
	cfg := &config{MaxEditDistance: 1}
	for _, o := range opts {
		o(cfg)
	}
	return &defaultGrader{
		strategies: map[string]Strategy{
			KindExact:     exactStrategy{},
			KindChoice:    choiceStrategy{},
			KindShortWord: shortWordStrategy{maxEdit: cfg.MaxEditDistance},
			KindNumeric:   numericStrategy{},
		},
	}
}

// SplitKey turns a stored "a|b|c" answer into its alternatives.
func SplitKey(s string) []string {
	parts := strings.Split(s, "|")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// --- Strategies ---

type exactStrategy struct{}

func (exactStrategy) Correct(_ context.Context, a Answer) (bool, error) {
	given := strings.TrimSpace(a.Given)
	for _, k := range a.Key {
		if strings.EqualFold(given, strings.TrimSpace(k)) {
			return true, nil
		}
	}
	return false, nil
}

// choiceStrategy compares comma-separated option sets, order-insensitive.
type choiceStrategy struct{}

func (choiceStrategy) Correct(_ context.Context, a Answer) (bool, error) {
	if len(a.Key) == 0 {
		return false, nil
	}
	given := toSet(splitChoices(a.Given))
	for _, k := range a.Key {
		if setEqual(toSet(splitChoices(k)), given) {
			return true, nil
		}
	}
	return false, nil
}

type shortWordStrategy struct{ maxEdit int }

func (s shortWordStrategy) Correct(_ context.Context, a Answer) (bool, error) {
	normGiven := normalize(a.Given)
	if normGiven == "" {
		return false, nil
	}
	for _, k := range a.Key {
		nk := normalize(k)
		if nk == normGiven {
			return true, nil
		}
		if s.maxEdit > 0 && levenshtein(nk, normGiven) <= s.maxEdit {
			return true, nil
		}
	}
	return false, nil
}

// helpers

func splitChoices(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func toSet(arr []string) map[string]struct{} {
	m := make(map[string]struct{}, len(arr))
	for _, s := range arr {
		m[s] = struct{}{}
	}
	return m
}

func setEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
