package spelling

import (
	"fmt"
	"sort"
	"strings"
)

// Pairs maps a phonetic unit to the units it is confused with. Pairs are symmetric.
type Pairs map[string][]string

// DefaultInitialPairs are the initial consonants commonly merged by southern speakers.
var DefaultInitialPairs = []string{"z:zh", "c:ch", "s:sh", "n:l", "f:h", "r:l"}

// DefaultFinalPairs are the nasal finals commonly merged.
var DefaultFinalPairs = []string{"an:ang", "en:eng", "in:ing", "ian:iang", "uan:uang"}

// ParsePairs builds a Pairs table from "a:b" items.
func ParsePairs(items []string) (Pairs, error) {
	p := make(Pairs)
	for _, item := range items {
		a, b, ok := strings.Cut(strings.TrimSpace(item), ":")
		if !ok || a == "" || b == "" || a == b {
			return nil, fmt.Errorf("invalid fuzzy pair %q", item)
		}
		p.add(a, b)
		p.add(b, a)
	}
	for k := range p {
		sort.Strings(p[k])
	}
	return p, nil
}

func (p Pairs) add(a, b string) {
	for _, v := range p[a] {
		if v == b {
			return
		}
	}
	p[a] = append(p[a], b)
}

func mustPairs(items []string) Pairs {
	p, err := ParsePairs(items)
	if err != nil {
		panic(err)
	}
	return p
}

// FuzzyConfig holds the two fuzzy toggles and the pair tables they enable.
type FuzzyConfig struct {
	Initial      bool
	Final        bool
	InitialPairs Pairs
	FinalPairs   Pairs
}

// DefaultFuzzy returns a config with both toggles off and the default tables.
func DefaultFuzzy() FuzzyConfig {
	return FuzzyConfig{
		InitialPairs: mustPairs(DefaultInitialPairs),
		FinalPairs:   mustPairs(DefaultFinalPairs),
	}
}

// Variants returns piece and every spelling it is equivalent to under the
// enabled toggles. piece itself is always first.
func (fc FuzzyConfig) Variants(piece string) []string {
	out := []string{piece}
	if !fc.Initial && !fc.Final {
		return out
	}
	in, fin := splitInitial(piece)
	ins := []string{in}
	if fc.Initial && in != "" {
		ins = append(ins, fc.InitialPairs[in]...)
	}
	fins := []string{fin}
	if fc.Final && fin != "" {
		fins = append(fins, fc.FinalPairs[fin]...)
	}
	seen := map[string]bool{piece: true}
	for _, i := range ins {
		for _, f := range fins {
			v := i + f
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	return out
}

// Expand returns the syllable IDs piece stands for, fuzzy variants included.
func (fc FuzzyConfig) Expand(piece string) []ID {
	var ids []ID
	for _, v := range fc.Variants(piece) {
		if id, ok := syllableIDs[v]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// ExpandPrefix returns every syllable that starts with piece or one of its initial variants.
func (fc FuzzyConfig) ExpandPrefix(piece string) []ID {
	seen := make(map[ID]bool)
	var ids []ID
	for _, v := range fc.Variants(piece) {
		for _, id := range byPrefix[v] {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
