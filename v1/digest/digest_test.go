package digest

import (
	"bytes"
	"crypto/sha256"
	"testing"
)

const testLabel = "DevLock Pool Name Mutex Stable Suffix v1"

func TestDigestMatchesWireLayout(t *testing.T) {
	p, err := Open(testLabel)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	got, err := p.Digest("gpu-pool")
	if err != nil {
		t.Fatalf("digest: %v", err)
	}

	// Independently: SHA-256(UTF-16LE(label)+NUL ++ UTF-16LE(name)+NUL).
	h := sha256.New()
	h.Write(encodeUTF16LE(testLabel))
	h.Write(encodeUTF16LE("gpu-pool"))
	want := h.Sum(nil)

	if !bytes.Equal(got[:], want) {
		t.Fatalf("digest layout mismatch:\n got %x\nwant %x", got, want)
	}
}

func TestDigestDeterministic(t *testing.T) {
	p, err := Open(testLabel)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	a, err := p.Digest("pool-a")
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	b, err := p.Digest("pool-a")
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	if a != b {
		t.Fatalf("digest not deterministic: %x vs %x", a, b)
	}
}

func TestDigestDistinctNames(t *testing.T) {
	p, err := Open(testLabel)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	seen := make(map[[Size]byte]string)
	for _, name := range []string{"a", "b", "ab", "A", "pool-0", "pool-1", "пул", "プール"} {
		d, err := p.Digest(name)
		if err != nil {
			t.Fatalf("digest(%q): %v", name, err)
		}
		if prev, ok := seen[d]; ok {
			t.Fatalf("collision between %q and %q", prev, name)
		}
		seen[d] = name
	}
}

func TestDigestLabelSeparation(t *testing.T) {
	p1, err := Open("label one")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	p2, err := Open("label two")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	a, err := p1.Digest("same-name")
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	b, err := p2.Digest("same-name")
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	if a == b {
		t.Fatal("different labels must not produce the same digest")
	}
}

func TestDigestConcurrentCallers(t *testing.T) {
	p, err := Open(testLabel)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	want, err := p.Digest("shared")
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	done := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				d, err := p.Digest("shared")
				if err != nil {
					done <- err
					return
				}
				if d != want {
					done <- &mismatchError{}
					return
				}
			}
			done <- nil
		}()
	}
	for i := 0; i < 8; i++ {
		if err := <-done; err != nil {
			t.Fatalf("concurrent digest: %v", err)
		}
	}
}

type mismatchError struct{}

func (*mismatchError) Error() string { return "digest mismatch" }

func TestDigestAfterCloseFails(t *testing.T) {
	p, err := Open(testLabel)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	p.Close()
	if _, err := p.Digest("anything"); err == nil {
		t.Fatal("expected error after Close")
	}
}
