package spelling

import (
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func normalizedSet(paths []Path) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = p.Normalized()
	}
	return out
}

func TestLookupAndString(t *testing.T) {
	id, ok := Lookup("zhuang")
	require.True(t, ok)
	assert.Equal(t, "zhuang", id.String())

	_, ok = Lookup("shong")
	assert.False(t, ok)
	assert.Equal(t, "", ID(0).String())
	assert.False(t, ID(Count()+1).Valid())
}

func TestParse(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
		ok       bool
	}{
		{"pin'yin", "pin'yin", true},
		{"pin yin", "pin'yin", true},
		{"zhongguo", "zhong'guo", true},
		{"ＰＩＮ", "pin", true},
		{"qq", "", false},
		{"", "", false},
	}
	for _, tc := range testCases {
		ids, ok := Parse(tc.input)
		assert.Equal(t, tc.ok, ok, tc.input)
		if ok {
			assert.Equal(t, tc.expected, Join(ids), tc.input)
		}
	}
}

func TestParsePairsRejectsGarbage(t *testing.T) {
	_, err := ParsePairs([]string{"zzh"})
	assert.Error(t, err)
	_, err = ParsePairs([]string{"z:z"})
	assert.Error(t, err)

	p, err := ParsePairs([]string{"n:l", "r:l"})
	require.NoError(t, err)
	assert.Equal(t, []string{"n", "r"}, p["l"])
}

func TestVariants(t *testing.T) {
	fc := DefaultFuzzy()
	assert.Equal(t, []string{"zi"}, fc.Variants("zi"))

	fc.Initial = true
	assert.ElementsMatch(t, []string{"zi", "zhi"}, fc.Variants("zi"))

	fc.Final = true
	assert.ElementsMatch(t, []string{"zan", "zhan", "zang", "zhang"}, fc.Variants("zan"))
	assert.ElementsMatch(t, []string{"yin", "ying"}, fc.Variants("yin"))
}

func TestSegmentPrefersWholeSyllables(t *testing.T) {
	sg := NewSegmenter(0)
	paths := sg.Segment([]rune("zhengzai"), DefaultFuzzy())
	require.NotEmpty(t, paths)
	assert.Equal(t, "zheng'zai", paths[0].Normalized())
	assert.True(t, paths[0].Complete())
	assert.Equal(t, 8, paths[0].Consumed)
}

func TestSegmentKeepsAmbiguousSplits(t *testing.T) {
	sg := NewSegmenter(0)
	got := normalizedSet(sg.Segment([]rune("xian"), DefaultFuzzy()))
	assert.Contains(t, got, "xian")
	assert.Contains(t, got, "xi'an")
	assert.Equal(t, "xian", got[0])

	got = normalizedSet(sg.Segment([]rune("fangan"), DefaultFuzzy()))
	assert.Contains(t, got, "fang'an")
	assert.Contains(t, got, "fan'gan")
}

func TestSegmentNoDuplicates(t *testing.T) {
	sg := NewSegmenter(0)
	paths := sg.Segment([]rune("pinyin"), DefaultFuzzy())
	seen := make(map[string]bool)
	for _, p := range paths {
		assert.False(t, seen[p.Key()], "duplicate path %s", p.Key())
		seen[p.Key()] = true
	}
}

func TestSegmentInitialReadOnce(t *testing.T) {
	sg := NewSegmenter(0)
	n := 0
	for _, p := range sg.Segment([]rune("zh"), DefaultFuzzy()) {
		if p.Normalized() == "zh" {
			n++
		}
	}
	assert.Equal(t, 1, n)
}

func segmentBytes(sg *Segmenter, raw []rune) uint64 {
	var before, after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)
	sg.Segment(raw, DefaultFuzzy())
	runtime.ReadMemStats(&after)
	return after.TotalAlloc - before.TotalAlloc
}

func TestSegmentLongBuffer(t *testing.T) {
	sg := NewSegmenter(0)
	raw := []rune(strings.Repeat("pinyin", 100))
	paths := sg.Segment(raw, DefaultFuzzy())
	require.NotEmpty(t, paths)
	assert.LessOrEqual(t, len(paths), DefaultMaxPaths)
	assert.Equal(t, strings.TrimSuffix(strings.Repeat("pin'yin'", 100), "'"), paths[0].Normalized())
	assert.Equal(t, 600, paths[0].Consumed)

	// doubling the buffer roughly doubles the memory
	short := segmentBytes(sg, []rune(strings.Repeat("pinyin", 40)))
	long := segmentBytes(sg, []rune(strings.Repeat("pinyin", 80)))
	assert.Less(t, long, 3*short)
}

func BenchmarkSegmentLong(b *testing.B) {
	sg := NewSegmenter(0)
	raw := []rune(strings.Repeat("pinyin", 40))
	fc := DefaultFuzzy()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		sg.Segment(raw, fc)
	}
}

func TestSegmentSeparator(t *testing.T) {
	sg := NewSegmenter(0)
	paths := sg.Segment([]rune("xi'an"), DefaultFuzzy())
	require.NotEmpty(t, paths)
	assert.Equal(t, "xi'an", paths[0].Normalized())
	assert.Equal(t, 3, paths[0].ConsumedAt(1))
	assert.Equal(t, 5, paths[0].ConsumedAt(2))
	for _, p := range paths {
		assert.NotEqual(t, "xian", p.Normalized())
	}
}

func TestSegmentAbbreviation(t *testing.T) {
	sg := NewSegmenter(0)
	paths := sg.Segment([]rune("nh"), DefaultFuzzy())
	require.NotEmpty(t, paths)
	assert.Equal(t, "n'h", paths[0].Normalized())
	assert.Equal(t, KindInitial, paths[0].Syllables[0].Kind)
	ni, _ := Lookup("ni")
	assert.Contains(t, paths[0].Syllables[0].IDs, ni)
}

func TestSegmentTrailingPartial(t *testing.T) {
	sg := NewSegmenter(0)
	paths := sg.Segment([]rune("pinyi"), DefaultFuzzy())
	require.NotEmpty(t, paths)
	yin, _ := Lookup("yin")
	best := paths[0]
	require.Equal(t, "pin'yi", best.Normalized())
	assert.Contains(t, best.Syllables[1].IDs, yin)
}

func TestSegmentLiteralSuffix(t *testing.T) {
	sg := NewSegmenter(0)
	paths := sg.Segment([]rune("ai1"), DefaultFuzzy())
	require.NotEmpty(t, paths)
	for _, p := range paths {
		assert.False(t, p.Complete())
	}
	assert.Equal(t, "1", paths[0].Literal)
	assert.Equal(t, 2, paths[0].Consumed)

	paths = sg.Segment([]rune("123"), DefaultFuzzy())
	require.Len(t, paths, 1)
	assert.Equal(t, "123", paths[0].Literal)
	assert.Equal(t, 0, paths[0].Consumed)
}

func TestSegmentFuzzyOnlySyllable(t *testing.T) {
	sg := NewSegmenter(0)
	off := sg.Segment([]rune("shongshan"), DefaultFuzzy())
	for _, p := range off {
		assert.NotEqual(t, "shong'shan", p.Normalized())
	}

	fc := DefaultFuzzy()
	fc.Initial = true
	on := normalizedSet(sg.Segment([]rune("shongshan"), fc))
	assert.Contains(t, on, "shong'shan")
	// everything found without fuzzy is still there
	for _, p := range off {
		assert.Contains(t, on, p.Normalized())
	}
}

func TestSegmentEmpty(t *testing.T) {
	assert.Empty(t, NewSegmenter(0).Segment(nil, DefaultFuzzy()))
}

func TestFoldRunesKeepsLength(t *testing.T) {
	raw := []rune("ＰinＹＩＮ'ﬁ")
	got := FoldRunes(raw)
	require.Len(t, got, len(raw))
	assert.Equal(t, "pinyin'ﬁ", string(got))
}
