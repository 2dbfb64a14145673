package domain

import (
	"crypto/sha256"
	"encoding/hex"
)

// CacheRequest is the content-addressed identity of one outbound model call.
// Payload holds only the semantically relevant subset of the call (messages,
// model identifier, request options); volatile fields like timestamps or
// client identifiers must never be part of it. The hash is computed once at
// construction and the value is immutable afterwards.
type CacheRequest struct {
	// Payload is the canonical JSON serialization of the request subset.
	Payload []byte
	// Salt is the cache version salt mixed into the hash. Bumping it
	// invalidates every previously recorded entry without deleting them.
	Salt string
	// Hash is the hex digest of salt and payload.
	Hash string
}

// NewCacheRequest canonicalizes payload and computes its content hash.
// Identical payloads always yield identical hashes regardless of field
// insertion order.
func NewCacheRequest(payload any, salt string) (CacheRequest, error) {
	canonical, err := CanonicalJSON(payload)
	if err != nil {
		return CacheRequest{}, err
	}

	h := sha256.New()
	h.Write([]byte(salt))
	h.Write([]byte{0})
	h.Write(canonical)

	return CacheRequest{
		Payload: canonical,
		Salt:    salt,
		Hash:    hex.EncodeToString(h.Sum(nil)),
	}, nil
}
