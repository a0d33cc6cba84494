// Package digest derives the fixed-size identifier a pool name maps to.
//
// A Provider is opened once per isolation scope and shared by all lock
// requests; every Digest call builds its own hash instance from the shared
// provider state, so concurrent callers never interfere and a failed request
// cannot corrupt the provider.
//
// The digest byte layout is a frozen wire contract: SHA-256 over the
// domain-separation label encoded as UTF-16LE including a two-byte NUL
// terminator, followed by the canonical pool name encoded the same way.
// Cooperating processes built against other implementations must reproduce
// these exact bytes to derive identical mutex names.
package digest

import (
	"crypto/sha256"
	"encoding"
	"errors"
	"unicode/utf16"

	devlockerrors "github.com/mirkobrombin/go-devlock/v1/errors"
)

// Size is the digest length in bytes.
const Size = sha256.Size

var errClosed = errors.New("provider closed")

// Provider is the process-wide hashing context. The label is absorbed once
// at open time; each Digest call clones that state into a fresh instance.
type Provider struct {
	seed []byte
}

// Open creates a Provider for the given domain-separation label.
func Open(label string) (*Provider, error) {
	h := sha256.New()
	if _, err := h.Write(encodeUTF16LE(label)); err != nil {
		return nil, &devlockerrors.CryptoError{Op: "absorb label", Err: err}
	}
	m, ok := h.(encoding.BinaryMarshaler)
	if !ok {
		return nil, &devlockerrors.CryptoError{Op: "open", Err: errors.New("hash state not exportable")}
	}
	seed, err := m.MarshalBinary()
	if err != nil {
		return nil, &devlockerrors.CryptoError{Op: "open", Err: err}
	}
	return &Provider{seed: seed}, nil
}

// Digest hashes the canonical name under the provider's label and returns
// the 32-byte identifier. Failures are fatal to this call only.
func (p *Provider) Digest(canonical string) ([Size]byte, error) {
	var out [Size]byte
	if p == nil || p.seed == nil {
		return out, &devlockerrors.CryptoError{Op: "instance", Err: errClosed}
	}
	h := sha256.New()
	u, ok := h.(encoding.BinaryUnmarshaler)
	if !ok {
		return out, &devlockerrors.CryptoError{Op: "instance", Err: errors.New("hash state not importable")}
	}
	if err := u.UnmarshalBinary(p.seed); err != nil {
		return out, &devlockerrors.CryptoError{Op: "instance", Err: err}
	}
	if _, err := h.Write(encodeUTF16LE(canonical)); err != nil {
		return out, &devlockerrors.CryptoError{Op: "update", Err: err}
	}
	copy(out[:], h.Sum(nil))
	return out, nil
}

// Close releases the provider state. Digest calls after Close fail with a
// CryptoError.
func (p *Provider) Close() {
	p.seed = nil
}

// encodeUTF16LE renders s as UTF-16 little-endian including the two-byte NUL
// terminator. The terminator is part of the digest wire contract.
func encodeUTF16LE(s string) []byte {
	code := utf16.Encode([]rune(s))
	b := make([]byte, 0, 2*len(code)+2)
	for _, c := range code {
		b = append(b, byte(c), byte(c>>8))
	}
	return append(b, 0, 0)
}
