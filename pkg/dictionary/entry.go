// Package dictionary is the lexicon store: an immutable system lexicon loaded from a binary blob,
// merged with a user lexicon that learns from selections and is persisted next to it.
package dictionary

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/bastiangx/pinyinserve/pkg/spelling"
)

// Entry is one word of the lexicon with the spelling that types it.
type Entry struct {
	Word       string
	Spelling   []spelling.ID
	Weight     uint32
	DisplayLen int
}

// NewEntry builds an entry, computing its display length from the word.
func NewEntry(word string, spl []spelling.ID, weight uint32) Entry {
	return Entry{
		Word:       word,
		Spelling:   spl,
		Weight:     weight,
		DisplayLen: utf8.RuneCountInString(word),
	}
}

// recordKey identifies an entry by word and spelling.
func (e Entry) recordKey() string {
	return e.Word + "|" + string(encodeKey(e.Spelling))
}

// Less orders entries by weight descending, then display length, then word.
func Less(a, b Entry) bool {
	if a.Weight != b.Weight {
		return a.Weight > b.Weight
	}
	if a.DisplayLen != b.DisplayLen {
		return a.DisplayLen < b.DisplayLen
	}
	return a.Word < b.Word
}

// SortEntries sorts in place with Less.
func SortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool { return Less(entries[i], entries[j]) })
}

// Association is a word likely to follow some history text.
type Association struct {
	Word   string
	Weight uint32
}

// SortAssociations orders by weight descending, then length, then text.
func SortAssociations(as []Association) {
	sort.SliceStable(as, func(i, j int) bool {
		a, b := as[i], as[j]
		if a.Weight != b.Weight {
			return a.Weight > b.Weight
		}
		la, lb := utf8.RuneCountInString(a.Word), utf8.RuneCountInString(b.Word)
		if la != lb {
			return la < lb
		}
		return strings.Compare(a.Word, b.Word) < 0
	})
}

// encodeKey turns a spelling into a trie key, two bytes per syllable.
func encodeKey(ids []spelling.ID) []byte {
	key := make([]byte, 0, len(ids)*2)
	for _, id := range ids {
		key = appendID(key, id)
	}
	return key
}

func appendID(key []byte, id spelling.ID) []byte {
	return append(key, byte(id>>8), byte(id))
}

func addWeight(base uint32, count uint32, boost uint32) uint32 {
	sum := uint64(base) + uint64(count)*uint64(boost)
	if sum > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(sum)
}
