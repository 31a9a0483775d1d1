package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// CacheKeyHexLen is the number of hex characters kept from the params digest.
const CacheKeyHexLen = 12

// ComputeCacheKey builds a cache key of the form cache:<operation>:<digest>.
// The digest is the first 12 hex characters of SHA256 over the JSON encoding
// of params. encoding/json writes map keys in sorted order, so equal maps
// always produce equal keys.
func ComputeCacheKey(operation string, params map[string]any) string {
	if params == nil {
		params = map[string]any{}
	}
	data, err := json.Marshal(params)
	if err != nil {
		// Unencodable params (channels, funcs) fall back to their printed form.
		data = []byte(fmt.Sprintf("%v", params))
	}

	hash := sha256.Sum256(data)
	return fmt.Sprintf("cache:%s:%s", operation, hex.EncodeToString(hash[:])[:CacheKeyHexLen])
}

// CacheKeyPrefix returns the prefix shared by every key of an operation.
func CacheKeyPrefix(operation string) string {
	return "cache:" + operation + ":"
}
