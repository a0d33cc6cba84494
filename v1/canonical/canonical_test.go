package canonical

import (
	"errors"
	"testing"

	devlockerrors "github.com/mirkobrombin/go-devlock/v1/errors"
)

func TestCanonicalizeIdempotent(t *testing.T) {
	inputs := []string{
		"gpu-pool",
		"Pool With Spaces",
		"café",    // precomposed é
		"café",   // decomposed e + combining acute
		"Ḍ̇", // Ḋ + combining dot below, reorders under NFC
		"мой-пул",
		"プール",
	}
	for _, in := range inputs {
		once, err := Canonicalize(in)
		if err != nil {
			t.Fatalf("Canonicalize(%q): %v", in, err)
		}
		twice, err := Canonicalize(once)
		if err != nil {
			t.Fatalf("Canonicalize(Canonicalize(%q)): %v", in, err)
		}
		if once != twice {
			t.Fatalf("not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestCanonicalizeEquivalentSpellings(t *testing.T) {
	a, err := Canonicalize("café")
	if err != nil {
		t.Fatalf("precomposed: %v", err)
	}
	b, err := Canonicalize("café")
	if err != nil {
		t.Fatalf("decomposed: %v", err)
	}
	if a != b {
		t.Fatalf("equivalent spellings disagree: %q vs %q", a, b)
	}
}

func TestCanonicalizeRejectsEmpty(t *testing.T) {
	if _, err := Canonicalize(""); err == nil {
		t.Fatal("expected error for empty name")
	}
}

func TestCanonicalizeRejectsInvalidUTF8(t *testing.T) {
	_, err := Canonicalize("bad\xff\xfepool")
	if err == nil {
		t.Fatal("expected error for invalid UTF-8")
	}
	var nerr *devlockerrors.NormalizationError
	if !errors.As(err, &nerr) {
		t.Fatalf("expected NormalizationError, got %T", err)
	}
	if nerr.Input == "" {
		t.Fatal("error should carry the offending input")
	}
}
