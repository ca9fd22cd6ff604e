// Package predict offers next words for committed text from the association table.
package predict

import (
	"strings"

	"github.com/bastiangx/pinyinserve/pkg/dictionary"
)

const (
	// DefaultMaxPredicts caps the prediction list.
	DefaultMaxPredicts = 64
	// DefaultHistoryWindow is the longest suffix of history tried after the
	// whole history.
	DefaultHistoryWindow = 4
)

// Associator is the part of the dictionary store predictions read.
type Associator interface {
	Associations(history string) []dictionary.Association
}

// Predictor looks up the whole history and then its trailing suffixes.
type Predictor struct {
	src    Associator
	window int
	max    int
}

// New returns a predictor. Non-positive limits take the defaults.
func New(src Associator, window, max int) *Predictor {
	if window <= 0 {
		window = DefaultHistoryWindow
	}
	if max <= 0 {
		max = DefaultMaxPredicts
	}
	return &Predictor{src: src, window: window, max: max}
}

// Predict returns the likely next words, best first. Words following a longer
// piece of history rank above those following a shorter one; within one piece
// they go by weight. A miss is an empty list.
func (p *Predictor) Predict(history string) []string {
	out := []string{}
	seen := make(map[string]bool)
	for _, key := range p.keys([]rune(strings.TrimSpace(history))) {
		matches := append([]dictionary.Association(nil), p.src.Associations(key)...)
		dictionary.SortAssociations(matches)
		for _, a := range matches {
			if seen[a.Word] {
				continue
			}
			seen[a.Word] = true
			out = append(out, a.Word)
			if len(out) == p.max {
				return out
			}
		}
	}
	return out
}

// keys lists the whole history followed by its proper suffixes no longer than
// the window, longest first.
func (p *Predictor) keys(runes []rune) []string {
	if len(runes) == 0 {
		return nil
	}
	keys := []string{string(runes)}
	start := 1
	if len(runes) > p.window {
		start = len(runes) - p.window
	}
	for ; start < len(runes); start++ {
		keys = append(keys, string(runes[start:]))
	}
	return keys
}
