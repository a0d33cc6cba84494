// Package canonical converts user-supplied pool names into a canonical
// Unicode form so that visually or logically equivalent spellings always
// derive the same lock identity. The canonical form is used only as hash
// input and is never persisted.
package canonical

import (
	"errors"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	devlockerrors "github.com/mirkobrombin/go-devlock/v1/errors"
)

var (
	errEmpty       = errors.New("empty name")
	errInvalidUTF8 = errors.New("not valid UTF-8")
)

// Canonicalize returns the Unicode Normalization Form C representation of
// name. It is deterministic and idempotent: Canonicalize(Canonicalize(x))
// equals Canonicalize(x) for every valid input.
func Canonicalize(name string) (string, error) {
	if name == "" {
		return "", &devlockerrors.NormalizationError{Input: name, Err: errEmpty}
	}
	// norm passes invalid UTF-8 through byte-for-byte; reject it up front so
	// distinct byte sequences cannot alias the same identity.
	if !utf8.ValidString(name) {
		return "", &devlockerrors.NormalizationError{Input: name, Err: errInvalidUTF8}
	}
	if norm.NFC.IsNormalString(name) {
		return name, nil
	}
	return norm.NFC.String(name), nil
}
