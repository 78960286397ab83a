package grading

import (
	"context"
	"errors"
	"testing"
)

func TestGrader_Kinds(t *testing.T) {
	g := NewDefaultGrader()
	ctx := context.Background()

	cases := []struct {
		name string
		in   Answer
		want bool
	}{
		{"exact case-insensitive", Answer{Kind: KindExact, Key: []string{"Paris"}, Given: " paris "}, true},
		{"exact default kind", Answer{Key: []string{"O(n log n)"}, Given: "O(n log n)"}, true},
		{"exact wrong", Answer{Kind: KindExact, Key: []string{"Paris"}, Given: "Lyon"}, false},
		{"choice order-insensitive", Answer{Kind: KindChoice, Key: []string{"a,c"}, Given: "C, A"}, true},
		{"choice missing option", Answer{Kind: KindChoice, Key: []string{"a,c"}, Given: "a"}, false},
		{"short word fuzzy", Answer{Kind: KindShortWord, Key: []string{"recursion"}, Given: "recursoin"}, false},
		{"short word one edit", Answer{Kind: KindShortWord, Key: []string{"recursion"}, Given: "recursio"}, true},
		{"short word punctuation", Answer{Kind: KindShortWord, Key: []string{"base case"}, Given: "Base  case!"}, true},
		{"short word empty", Answer{Kind: KindShortWord, Key: []string{"x"}, Given: "  "}, false},
		{"numeric equal", Answer{Kind: KindNumeric, Key: []string{"2.5"}, Given: "2.50"}, true},
		{"numeric abs tol", Answer{Kind: KindNumeric, Key: []string{"3.14159", "tol=0.01"}, Given: "3.14"}, true},
		{"numeric rel tol", Answer{Kind: KindNumeric, Key: []string{"100", "reltol=0.05"}, Given: "96"}, true},
		{"numeric out of tol", Answer{Kind: KindNumeric, Key: []string{"100", "reltol=0.05"}, Given: "90"}, false},
		{"numeric garbage", Answer{Kind: KindNumeric, Key: []string{"1"}, Given: "one"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := g.Correct(ctx, tc.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("Correct(%+v) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestGrader_UnknownKind(t *testing.T) {
	_, err := NewDefaultGrader().Correct(context.Background(), Answer{Kind: "essay", Key: []string{"x"}, Given: "x"})
	if !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}

func TestSplitKey(t *testing.T) {
	got := SplitKey(" 100 | reltol=0.05 ||")
	if len(got) != 2 || got[0] != "100" || got[1] != "reltol=0.05" {
		t.Fatalf("SplitKey = %q", got)
	}
}

func TestLevenshtein(t *testing.T) {
	if d := levenshtein("kitten", "sitting"); d != 3 {
		t.Fatalf("levenshtein = %d, want 3", d)
	}
	if d := levenshtein("", "abc"); d != 3 {
		t.Fatalf("levenshtein empty = %d, want 3", d)
	}
}
