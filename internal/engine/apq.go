package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"

	language "github.com/quivergraph/quiver/internal/language"
)

// DocumentCache stores validated documents for automatic persisted queries,
// keyed by the client-supplied sha256 hash. Implementations must be safe
// for concurrent use.
type DocumentCache interface {
	Get(hash string) (*language.QueryDocument, bool)
	Put(hash string, doc *language.QueryDocument)
}

// memoryDocumentCache is the default trust-on-first-use in-process cache.
type memoryDocumentCache struct {
	mu   sync.RWMutex
	docs map[string]*language.QueryDocument
}

// NewMemoryDocumentCache returns an unbounded in-memory DocumentCache.
func NewMemoryDocumentCache() DocumentCache {
	return &memoryDocumentCache{docs: map[string]*language.QueryDocument{}}
}

func (c *memoryDocumentCache) Get(hash string) (*language.QueryDocument, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	doc, ok := c.docs[hash]
	return doc, ok
}

func (c *memoryDocumentCache) Put(hash string, doc *language.QueryDocument) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs[hash] = doc
}

// persistedQueryHash extracts the sha256 hash from the request extensions,
// following the persistedQuery extension convention.
func persistedQueryHash(extensions map[string]any) string {
	pq, ok := extensions["persistedQuery"].(map[string]any)
	if !ok {
		return ""
	}
	hash, _ := pq["sha256Hash"].(string)
	return hash
}

func sha256Hex(query string) string {
	sum := sha256.Sum256([]byte(query))
	return hex.EncodeToString(sum[:])
}
