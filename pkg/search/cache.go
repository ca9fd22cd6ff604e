package search

import (
	"math"

	"github.com/charmbracelet/log"

	"github.com/bastiangx/pinyinserve/pkg/spelling"
)

// PathCache keeps the segmentations of recently typed buffers. Segmentation
// depends only on the buffer and the fuzzy toggles, so entries never go stale
// when the lexicon learns.
type PathCache struct {
	paths       map[string][]spelling.Path
	accessTime  map[string]int64
	accessCount int64
	hits        int64
	maxEntries  int
}

// NewPathCache returns a cache holding up to maxEntries buffers. A size of
// zero or less disables caching.
func NewPathCache(maxEntries int) *PathCache {
	return &PathCache{
		paths:      make(map[string][]spelling.Path),
		accessTime: make(map[string]int64),
		maxEntries: maxEntries,
	}
}

func cacheKey(raw []rune, fc spelling.FuzzyConfig) string {
	flags := []rune{'0', '0', '|'}
	if fc.Initial {
		flags[0] = '1'
	}
	if fc.Final {
		flags[1] = '1'
	}
	return string(flags) + string(raw)
}

// Get returns the cached paths for raw under fc.
func (pc *PathCache) Get(raw []rune, fc spelling.FuzzyConfig) ([]spelling.Path, bool) {
	if pc.maxEntries <= 0 {
		return nil, false
	}
	k := cacheKey(raw, fc)
	paths, ok := pc.paths[k]
	if ok {
		pc.hits++
		pc.accessTime[k] = pc.getNextAccessTime()
	}
	return paths, ok
}

// Put stores paths for raw under fc, evicting the least recently used buffer when full.
func (pc *PathCache) Put(raw []rune, fc spelling.FuzzyConfig, paths []spelling.Path) {
	if pc.maxEntries <= 0 {
		return
	}
	k := cacheKey(raw, fc)
	if _, ok := pc.paths[k]; !ok && len(pc.paths) >= pc.maxEntries {
		pc.evictLRU()
	}
	pc.paths[k] = paths
	pc.accessTime[k] = pc.getNextAccessTime()
}

// Clear drops every cached buffer.
func (pc *PathCache) Clear() {
	pc.paths = make(map[string][]spelling.Path)
	pc.accessTime = make(map[string]int64)
}

// Stats reports cache occupancy and hits.
func (pc *PathCache) Stats() map[string]int {
	return map[string]int{
		"pathCacheEntries": len(pc.paths),
		"maxPathEntries":   pc.maxEntries,
		"pathCacheHits":    int(pc.hits),
	}
}

func (pc *PathCache) getNextAccessTime() int64 {
	pc.accessCount++
	return pc.accessCount
}

func (pc *PathCache) evictLRU() {
	var oldestKey string
	var oldestTime int64 = math.MaxInt64

	for k, t := range pc.accessTime {
		if t < oldestTime {
			oldestTime = t
			oldestKey = k
		}
	}

	if oldestKey != "" {
		delete(pc.paths, oldestKey)
		delete(pc.accessTime, oldestKey)
		log.Debugf("Evicted buffer %q from path cache", oldestKey)
	}
}
