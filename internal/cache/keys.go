package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// KeyGenerator derives cache keys for outbound requests
type KeyGenerator struct {
	// IncludeHeaders are request headers that vary the cached response
	IncludeHeaders []string
}

// DefaultKeyGenerator varies keys on the negotiated format and the caller's credentials
func DefaultKeyGenerator() *KeyGenerator {
	return &KeyGenerator{IncludeHeaders: []string{"Accept", "Authorization"}}
}

// PathPrefix is the key prefix shared by every cached read of path and of
// the paths below it. /people covers /people.json and /people/1.json.
func PathPrefix(path string) string {
	p, _, _ := strings.Cut(path, "?")
	return http.MethodGet + ":" + p
}

// GenerateKey returns a key of the form GET:<path>:<hash>. The hash covers the
// sorted query and the configured headers.
func (kg *KeyGenerator) GenerateKey(method, path string, header http.Header) string {
	p, rawQuery, _ := strings.Cut(path, "?")

	var parts []string
	if rawQuery != "" {
		query, err := url.ParseQuery(rawQuery)
		if err != nil {
			parts = append(parts, rawQuery)
		} else {
			var queryParts []string
			for key, values := range query {
				for _, value := range values {
					queryParts = append(queryParts, key+"="+value)
				}
			}
			sort.Strings(queryParts)
			parts = append(parts, strings.Join(queryParts, "&"))
		}
	}

	for _, name := range kg.IncludeHeaders {
		if value := header.Get(name); value != "" {
			parts = append(parts, name+"="+value)
		}
	}

	hash := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return method + ":" + p + ":" + hex.EncodeToString(hash[:16])
}
