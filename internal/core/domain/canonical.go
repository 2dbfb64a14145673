package domain

import (
	"bytes"
	"encoding/json"
	"errors"
)

// CanonicalJSON serializes v to JSON with all object keys sorted recursively.
// Two payloads that are semantically equal but were built with different field
// insertion order always produce identical bytes, so content hashes never miss
// on key order alone.
func CanonicalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Join(ErrCanonicalizeFailed, err)
	}

	// Round-trip through untyped maps: encoding/json emits map keys in sorted
	// order, which gives us the canonical form for free. UseNumber preserves
	// the textual representation of numbers so large integers survive.
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, errors.Join(ErrCanonicalizeFailed, err)
	}

	canonical, err := json.Marshal(generic)
	if err != nil {
		return nil, errors.Join(ErrCanonicalizeFailed, err)
	}
	return canonical, nil
}
