package ard

import (
	"strings"

	"github.com/cespare/xxhash/v2"
)

// NormalizePath canonicalizes a game path the way the archive hashes it:
// backslashes become forward slashes, ASCII letters are lowercased and a
// leading slash is added if missing. Non-ASCII runes are left untouched.
//
// NormalizePath is idempotent.
func NormalizePath(p string) string {
	p = strings.Map(func(r rune) rune {
		switch {
		case r == '\\':
			return '/'
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return r
		}
	}, p)

	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

// HashPath returns the xxHash64 (seed 0) of the normalized path.
// Every string hashes, including the empty string, which normalizes to "/".
func HashPath(p string) uint64 {
	return HashNormalized(NormalizePath(p))
}

// HashNormalized hashes p as-is. The caller guarantees p is already normalized.
func HashNormalized(p string) uint64 {
	return xxhash.Sum64String(p)
}
