// Package search turns a raw keystroke buffer into the ranked candidate list:
// every segmentation is matched against the store, the hits are merged by
// word and ordered so longer interpretations come first.
package search

import (
	"sort"
	"sync"

	"github.com/bastiangx/pinyinserve/pkg/dictionary"
	"github.com/bastiangx/pinyinserve/pkg/spelling"
)

// DefaultMaxCandidates caps the candidate list.
const DefaultMaxCandidates = 80

// Matcher is the part of the dictionary store the engine reads.
type Matcher interface {
	Match(alts [][]spelling.ID, visit func(depth int, entries []dictionary.Entry))
}

// Candidate is one conversion offered for the start of a buffer.
type Candidate struct {
	Word string
	// Entry is the lexicon entry behind Word. It has no spelling for a literal.
	Entry dictionary.Entry
	// Consumed is how many raw runes choosing this candidate commits.
	Consumed int
	// Literal marks the raw text offered back unconverted.
	Literal bool
}

// Result is a ranked candidate list.
type Result struct {
	Candidates []Candidate
	// Total counts the candidates before the cap.
	Total int
	// Spelling is the best interpretation of the buffer, apostrophe separated.
	Spelling string
}

// Options tune an Engine.
type Options struct {
	MaxCandidates int
	MaxPaths      int
	PathCacheSize int
}

// DefaultOptions returns the stock limits.
func DefaultOptions() Options {
	return Options{
		MaxCandidates: DefaultMaxCandidates,
		MaxPaths:      spelling.DefaultMaxPaths,
		PathCacheSize: 64,
	}
}

// Engine searches one store.
type Engine struct {
	store     Matcher
	segmenter *spelling.Segmenter
	max       int

	mu    sync.Mutex
	cache *PathCache
}

// New returns an engine over store.
func New(store Matcher, opts Options) *Engine {
	if opts.MaxCandidates <= 0 {
		opts.MaxCandidates = DefaultMaxCandidates
	}
	return &Engine{
		store:     store,
		segmenter: spelling.NewSegmenter(opts.MaxPaths),
		max:       opts.MaxCandidates,
		cache:     NewPathCache(opts.PathCacheSize),
	}
}

// Segment returns the interpretations of raw, served from the path cache when possible.
func (en *Engine) Segment(raw []rune, fc spelling.FuzzyConfig) []spelling.Path {
	folded := spelling.FoldRunes(raw)
	en.mu.Lock()
	defer en.mu.Unlock()
	if paths, ok := en.cache.Get(folded, fc); ok {
		return paths
	}
	paths := en.segmenter.Segment(folded, fc)
	en.cache.Put(folded, fc, paths)
	return paths
}

// CacheStats reports the path cache counters.
func (en *Engine) CacheStats() map[string]int {
	en.mu.Lock()
	defer en.mu.Unlock()
	return en.cache.Stats()
}

// Search ranks the candidates for raw. The result depends only on the store
// contents, raw and fc.
func (en *Engine) Search(raw []rune, fc spelling.FuzzyConfig) Result {
	if len(raw) == 0 {
		return Result{}
	}
	paths := en.Segment(raw, fc)

	best := make(map[string]Candidate)
	complete := false
	for _, p := range paths {
		if p.Complete() {
			complete = true
		}
		if len(p.Syllables) == 0 {
			continue
		}
		en.store.Match(p.Alternatives(), func(depth int, entries []dictionary.Entry) {
			consumed := p.ConsumedAt(depth)
			if consumed == 0 {
				return
			}
			for _, e := range entries {
				c := Candidate{Word: e.Word, Entry: e, Consumed: consumed}
				if old, ok := best[e.Word]; !ok || better(c, old) {
					best[e.Word] = c
				}
			}
		})
	}

	list := make([]Candidate, 0, len(best)+1)
	for _, c := range best {
		list = append(list, c)
	}
	sortCandidates(list)

	res := Result{}
	if len(paths) > 0 {
		res.Spelling = paths[0].Normalized()
	}
	var literal *Candidate
	if !complete {
		text := string(raw)
		literal = &Candidate{Word: text, Entry: dictionary.NewEntry(text, nil, 0), Consumed: len(raw), Literal: true}
		res.Total = len(list) + 1
	} else {
		res.Total = len(list)
	}

	limit := en.max
	if literal != nil {
		limit--
	}
	if len(list) > limit {
		list = list[:limit]
	}
	if literal != nil {
		list = append(list, *literal)
	}
	res.Candidates = list
	return res
}

// better reports whether a should replace b for the same word.
func better(a, b Candidate) bool {
	if a.Consumed != b.Consumed {
		return a.Consumed > b.Consumed
	}
	return a.Entry.Weight > b.Entry.Weight
}

func sortCandidates(list []Candidate) {
	sort.Slice(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.Consumed != b.Consumed {
			return a.Consumed > b.Consumed
		}
		if a.Entry.Weight != b.Entry.Weight {
			return a.Entry.Weight > b.Entry.Weight
		}
		if a.Entry.DisplayLen != b.Entry.DisplayLen {
			return a.Entry.DisplayLen < b.Entry.DisplayLen
		}
		return a.Word < b.Word
	})
}
