package state

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// ScopeKey derives the storage scope for a session token. Stored rows are
// keyed by the digest so a database dump never exposes live session tokens.
func ScopeKey(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
