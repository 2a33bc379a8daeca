package ml

import (
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// PredictionCache remembers model outputs by encoded row. Entries are keyed
// by artifact generation so a reload never serves a stale price.
type PredictionCache struct {
	cache *lru.Cache[string, float64]
}

// NewPredictionCache returns nil when size is not positive; a nil cache
// never hits.
func NewPredictionCache(size int) (*PredictionCache, error) {
	if size <= 0 {
		return nil, nil
	}
	c, err := lru.New[string, float64](size)
	if err != nil {
		return nil, err
	}
	return &PredictionCache{cache: c}, nil
}

func (c *PredictionCache) Get(generation uint64, row EncodedRow) (float64, bool) {
	if c == nil {
		return 0, false
	}
	return c.cache.Get(cacheKey(generation, row))
}

func (c *PredictionCache) Add(generation uint64, row EncodedRow, price float64) {
	if c == nil {
		return
	}
	c.cache.Add(cacheKey(generation, row), price)
}

// Purge drops every entry.
func (c *PredictionCache) Purge() {
	if c == nil {
		return
	}
	c.cache.Purge()
}

func (c *PredictionCache) Len() int {
	if c == nil {
		return 0
	}
	return c.cache.Len()
}

func cacheKey(generation uint64, row EncodedRow) string {
	var b strings.Builder
	b.WriteString(strconv.FormatUint(generation, 10))
	for _, v := range row.Values {
		b.WriteByte('|')
		b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	}
	return b.String()
}
