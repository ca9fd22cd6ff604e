package spelling

import (
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

// DefaultMaxPaths bounds the number of interpretations kept for one buffer.
const DefaultMaxPaths = 128

// Kind tells how a piece of raw input was recognized as a syllable.
type Kind uint8

const (
	KindExact   Kind = iota // piece is a syllable of the table
	KindFuzzy               // piece is a syllable only through a fuzzy pair
	KindPartial             // piece ends the buffer and is the start of longer syllables
	KindInitial             // piece is a bare initial standing for any syllable it starts
)

// Syllable is one recognized piece of the raw buffer.
// Start and End are rune offsets; Next also skips the separators that follow.
type Syllable struct {
	Text  string
	Start int
	End   int
	Next  int
	IDs   []ID
	Kind  Kind
}

// Path is one interpretation of a raw buffer: the syllables it was cut into
// and the fragment nothing could be made of.
type Path struct {
	Syllables []Syllable
	Literal   string
	Consumed  int
}

// Complete reports whether every raw character was parsed into syllables.
func (p Path) Complete() bool {
	return p.Literal == ""
}

// ConsumedAt is the number of raw runes covered by the first k syllables.
func (p Path) ConsumedAt(k int) int {
	if k <= 0 || k > len(p.Syllables) {
		return 0
	}
	return p.Syllables[k-1].Next
}

// Alternatives returns the syllable ID set of every syllable in order.
func (p Path) Alternatives() [][]ID {
	alts := make([][]ID, len(p.Syllables))
	for i, s := range p.Syllables {
		alts[i] = s.IDs
	}
	return alts
}

// Normalized renders the path with apostrophes between syllables.
func (p Path) Normalized() string {
	parts := make([]string, 0, len(p.Syllables)+1)
	for _, s := range p.Syllables {
		parts = append(parts, s.Text)
	}
	if p.Literal != "" {
		parts = append(parts, p.Literal)
	}
	return strings.Join(parts, "'")
}

// Key identifies a path by its consumption and syllable texts.
func (p Path) Key() string {
	return strings.Join([]string{strconv.Itoa(p.Consumed), p.Normalized()}, "|")
}

// chain is a path under construction. Paths that continue the same way share
// one tail, so a memo entry costs one node whatever the length of the buffer.
type chain struct {
	syl     Syllable
	tail    *chain // nil on the end node, which holds the literal
	literal string
	count   int
	penalty int // syllables not read exactly
	rank    int // index in the sorted list of its start position
}

func (c *chain) path(n int) Path {
	p := Path{Syllables: make([]Syllable, 0, c.count), Literal: c.literal}
	for ; c.tail != nil; c = c.tail {
		p.Syllables = append(p.Syllables, c.syl)
	}
	p.Consumed = n - utf8.RuneCountInString(p.Literal)
	return p
}

// Segmenter splits raw buffers into syllable paths.
type Segmenter struct {
	MaxPaths int
}

// NewSegmenter makes a segmenter keeping at most maxPaths interpretations.
func NewSegmenter(maxPaths int) *Segmenter {
	if maxPaths <= 0 {
		maxPaths = DefaultMaxPaths
	}
	return &Segmenter{MaxPaths: maxPaths}
}

// Segment returns every interpretation of raw, best first. Complete paths come
// before paths with a literal suffix. raw must already be folded.
func (sg *Segmenter) Segment(raw []rune, fc FuzzyConfig) []Path {
	n := len(raw)
	if n == 0 {
		return nil
	}
	// memo[i] holds the interpretations of raw[i:].
	memo := make([][]*chain, n+1)
	memo[n] = []*chain{{}}
	for pos := n - 1; pos >= 0; pos-- {
		memo[pos] = sg.suffixes(raw, pos, fc, memo)
	}

	set := make(map[string]bool, len(memo[0]))
	paths := make([]Path, 0, len(memo[0]))
	for _, c := range memo[0] {
		p := c.path(n)
		if k := p.Key(); !set[k] {
			set[k] = true
			paths = append(paths, p)
		}
	}
	return paths
}

func (sg *Segmenter) suffixes(raw []rune, pos int, fc FuzzyConfig, memo [][]*chain) []*chain {
	if p := skipSeparators(raw, pos); p > pos {
		return memo[p]
	}
	opts := options(raw, pos, fc)
	if len(opts) == 0 {
		return []*chain{{literal: string(raw[pos:])}}
	}
	var out []*chain
	ends := make(map[int]bool, len(opts))
	for _, opt := range opts {
		// same piece, same rest: the first reading of a piece wins
		if ends[opt.End] {
			continue
		}
		ends[opt.End] = true
		for _, rest := range memo[opt.Next] {
			c := &chain{
				syl:     opt,
				tail:    rest,
				literal: rest.literal,
				count:   rest.count + 1,
				penalty: rest.penalty,
			}
			if opt.Kind != KindExact {
				c.penalty++
			}
			out = append(out, c)
		}
	}
	sortChains(out)
	if len(out) > sg.MaxPaths {
		out = out[:sg.MaxPaths]
	}
	for i, c := range out {
		c.rank = i
	}
	return out
}

// sortChains orders paths starting at one position by literal length, then
// inexact syllables, then syllable count, then rendered text. Pieces from one
// start differ only in length, and a shorter piece renders first; with equal
// first pieces the order of the tails decides.
func sortChains(cs []*chain) {
	sort.Slice(cs, func(i, j int) bool {
		a, b := cs[i], cs[j]
		if la, lb := len(a.literal), len(b.literal); la != lb {
			return la < lb
		}
		if a.penalty != b.penalty {
			return a.penalty < b.penalty
		}
		if a.count != b.count {
			return a.count < b.count
		}
		if a.syl.End != b.syl.End {
			return a.syl.End < b.syl.End
		}
		return a.tail.rank < b.tail.rank
	})
}

// options lists every syllable that can start at p.
func options(raw []rune, p int, fc FuzzyConfig) []Syllable {
	n := len(raw)
	maxL := 0
	for p+maxL < n && maxL < MaxSyllableLen && isLetter(raw[p+maxL]) {
		maxL++
	}
	if maxL == 0 {
		return nil
	}
	var opts []Syllable
	full := false
	for l := maxL; l >= 1; l-- {
		piece := string(raw[p : p+l])
		ids := fc.Expand(piece)
		kind := KindFuzzy
		// only exact syllables suppress the bare-initial reading, so turning on
		// a fuzzy toggle never takes an interpretation away
		if _, exact := syllableIDs[piece]; exact {
			kind = KindExact
			full = true
		}
		if p+l == n {
			if ext := fc.ExpandPrefix(piece); len(ext) > len(ids) {
				ids = ext
				if kind != KindExact {
					kind = KindPartial
				}
			}
		}
		if len(ids) == 0 {
			continue
		}
		if kind == KindPartial && IsInitial(piece) {
			kind = KindInitial
		}
		opts = append(opts, newSyllable(raw, p, l, ids, kind))
	}
	if !full {
		if in, _ := splitInitial(string(raw[p : p+maxL])); in != "" {
			opts = append(opts, newSyllable(raw, p, len(in), fc.ExpandPrefix(in), KindInitial))
		}
	}
	return opts
}

func newSyllable(raw []rune, p, l int, ids []ID, kind Kind) Syllable {
	return Syllable{
		Text:  string(raw[p : p+l]),
		Start: p,
		End:   p + l,
		Next:  skipSeparators(raw, p+l),
		IDs:   ids,
		Kind:  kind,
	}
}

func skipSeparators(raw []rune, p int) int {
	for p < len(raw) && IsSeparatorOrSpace(raw[p]) {
		p++
	}
	return p
}
