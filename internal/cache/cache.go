// Package cache stores rule cascade verdicts so unchanged records are not
// re-classified across runs.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/ppiankov/histograde/internal/model"
)

// KeyPrefix versions the key space; bump it when cascade output changes
const KeyPrefix = "histograde:v1:"

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// ClassificationKey identifies a cascade verdict. The same text classified
// under a different mode or ceiling is a different entry.
func ClassificationKey(text string, mode model.DifferentiationMode, ceiling int) string {
	h := sha256.New()
	h.Write([]byte(mode.String()))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(ceiling)))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return KeyPrefix + hex.EncodeToString(h.Sum(nil))
}

// ClassificationStore reads and writes cascade verdicts through a Cache
type ClassificationStore struct {
	cache  Cache
	hits   atomic.Int64
	misses atomic.Int64
}

// NewClassificationStore wraps c
func NewClassificationStore(c Cache) *ClassificationStore {
	return &ClassificationStore{cache: c}
}

// Get returns a cached verdict. Undecodable entries count as misses.
func (s *ClassificationStore) Get(key string) (model.Classification, bool) {
	data, ok := s.cache.Get(key)
	if !ok {
		s.misses.Add(1)
		return model.Classification{}, false
	}

	var c model.Classification
	if err := json.Unmarshal(data, &c); err != nil || len(c.Grades) == 0 {
		s.misses.Add(1)
		return model.Classification{}, false
	}
	s.hits.Add(1)
	return c, true
}

// Set stores a verdict with the cache's default TTL
func (s *ClassificationStore) Set(key string, c model.Classification) error {
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return s.cache.Set(key, data, 0)
}

// Len returns the number of verdicts held in memory, or -1 when the
// backing cache cannot tell
func (s *ClassificationStore) Len() int {
	if l, ok := s.cache.(interface{ Len() int }); ok {
		return l.Len()
	}
	return -1
}

// Stats returns hit and miss counts since creation
func (s *ClassificationStore) Stats() (hits, misses int64) {
	return s.hits.Load(), s.misses.Load()
}
