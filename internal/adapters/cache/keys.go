// Package cache provides the typed facades over the layered replay store:
// namespaced keys, per-hash locking, slotted response caching and the
// cache-aware fetch path used by the executor.
package cache

import (
	"fmt"
	"strings"
)

// KindModelCall is the cache kind for chat completion calls.
const KindModelCall = "model"

// Raw store keys are namespaced as
//
//	{kind}|{salt}:response:{hash}          plain response
//	{kind}|{salt}:response:{hash}:{slot}   slotted response
//	{kind}|{salt}:request:{hash}           originating request, for diagnostics
//
// kind separates cache families (model calls vs. anything else sharing the
// store); salt versions a family without touching other families' entries.
func namespace(kind, salt string) string {
	return kind + "|" + salt
}

func responseKey(kind, salt, hash string) string {
	return fmt.Sprintf("%s:response:%s", namespace(kind, salt), hash)
}

func slottedResponseKey(kind, salt, hash string, slot int) string {
	return fmt.Sprintf("%s:response:%s:%d", namespace(kind, salt), hash, slot)
}

func requestKey(kind, salt, hash string) string {
	return fmt.Sprintf("%s:request:%s", namespace(kind, salt), hash)
}

// requestKeyPrefix matches every recorded request in a namespace.
func requestKeyPrefix(kind, salt string) string {
	return namespace(kind, salt) + ":request:"
}

func isRequestKey(key, kind, salt string) bool {
	return strings.HasPrefix(key, requestKeyPrefix(kind, salt))
}
