package search

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bastiangx/pinyinserve/pkg/dictionary"
	"github.com/bastiangx/pinyinserve/pkg/spelling"
)

type word struct {
	text     string
	spelling string
	weight   uint32
}

func newStore(t *testing.T, words ...word) *dictionary.Store {
	t.Helper()
	b := dictionary.NewBuilder()
	for _, w := range words {
		ids, ok := spelling.Parse(w.spelling)
		require.True(t, ok, w.spelling)
		require.NoError(t, b.Add(w.text, ids, w.weight))
	}
	var buf bytes.Buffer
	_, err := b.WriteTo(&buf)
	require.NoError(t, err)
	s, err := dictionary.Load(dictionary.RangeSource(bytes.NewReader(buf.Bytes()), 0, int64(buf.Len())), "", dictionary.DefaultOptions())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func texts(res Result) []string {
	out := make([]string, len(res.Candidates))
	for i, c := range res.Candidates {
		out[i] = c.Word
	}
	return out
}

var off = spelling.DefaultFuzzy()

func TestLongerConsumptionFirst(t *testing.T) {
	en := New(newStore(t, word{"拼", "pin", 100}, word{"拼音", "pin'yin", 200}), DefaultOptions())

	res := en.Search([]rune("pinyin"), off)
	assert.Equal(t, []string{"拼音", "拼"}, texts(res))
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 6, res.Candidates[0].Consumed)
	assert.Equal(t, 3, res.Candidates[1].Consumed)
	assert.Equal(t, "pin'yin", res.Spelling)
}

func TestRankingTieBreaks(t *testing.T) {
	en := New(newStore(t,
		word{"先", "xian", 300},
		word{"西安", "xi'an", 300},
		word{"线", "xian", 500},
		word{"现", "xian", 300},
	), DefaultOptions())

	res := en.Search([]rune("xian"), off)
	require.Len(t, res.Candidates, 4)
	// weight first, then display length, then text
	assert.Equal(t, []string{"线", "先", "现", "西安"}, texts(res))
}

func TestTrailingPartialSyllable(t *testing.T) {
	en := New(newStore(t, word{"拼", "pin", 100}, word{"拼音", "pin'yin", 200}), DefaultOptions())

	res := en.Search([]rune("pinyi"), off)
	require.NotEmpty(t, res.Candidates)
	assert.Equal(t, "拼音", res.Candidates[0].Word)
	assert.Equal(t, 5, res.Candidates[0].Consumed)
}

func TestAbbreviatedInput(t *testing.T) {
	en := New(newStore(t, word{"你好", "ni'hao", 900}, word{"南海", "nan'hai", 100}), DefaultOptions())

	res := en.Search([]rune("nh"), off)
	assert.Equal(t, []string{"你好", "南海"}, texts(res))
}

func TestLiteralFallback(t *testing.T) {
	en := New(newStore(t, word{"拼", "pin", 100}), DefaultOptions())

	res := en.Search([]rune("pin1"), off)
	require.Len(t, res.Candidates, 2)
	assert.Equal(t, "拼", res.Candidates[0].Word)
	assert.Equal(t, 3, res.Candidates[0].Consumed)
	last := res.Candidates[1]
	assert.True(t, last.Literal)
	assert.Equal(t, "pin1", last.Word)
	assert.Equal(t, 4, last.Consumed)

	res = en.Search([]rune("pin"), off)
	for _, c := range res.Candidates {
		assert.False(t, c.Literal)
	}
}

func TestNeverZeroConsumption(t *testing.T) {
	en := New(newStore(t, word{"拼", "pin", 100}, word{"西安", "xi'an", 1}), DefaultOptions())
	for _, in := range []string{"'pin", "pin'", "xi'an", "  ", "'", "123", "ＰＩＮ"} {
		for _, c := range en.Search([]rune(in), off).Candidates {
			assert.Greater(t, c.Consumed, 0, in)
			assert.LessOrEqual(t, c.Consumed, len([]rune(in)), in)
		}
	}
}

func TestCapKeepsTotal(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxCandidates = 1
	en := New(newStore(t, word{"拼", "pin", 100}, word{"拼音", "pin'yin", 200}), opts)

	res := en.Search([]rune("pinyin"), off)
	assert.Equal(t, []string{"拼音"}, texts(res))
	assert.Equal(t, 2, res.Total)

	res = en.Search([]rune("pinyin1"), off)
	require.Len(t, res.Candidates, 1)
	assert.True(t, res.Candidates[0].Literal)
}

func TestSearchIsDeterministic(t *testing.T) {
	en := New(newStore(t,
		word{"方案", "fang'an", 10},
		word{"反感", "fan'gan", 10},
		word{"放", "fang", 10},
		word{"饭", "fan", 10},
	), DefaultOptions())

	first := en.Search([]rune("fangan"), off)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, en.Search([]rune("fangan"), off))
	}
	assert.Contains(t, texts(first), "方案")
	assert.Contains(t, texts(first), "反感")
}

func TestFuzzyOnlyAdds(t *testing.T) {
	en := New(newStore(t,
		word{"宗", "zong", 100},
		word{"中", "zhong", 500},
		word{"总是", "zong'shi", 50},
		word{"中山", "zhong'shan", 70},
	), DefaultOptions())

	plain := en.Search([]rune("zongsan"), off)
	fc := spelling.DefaultFuzzy()
	fc.Initial = true
	fc.Final = true
	fuzzy := en.Search([]rune("zongsan"), fc)

	assert.NotContains(t, texts(plain), "中山")
	assert.Contains(t, texts(fuzzy), "中山")
	for _, w := range texts(plain) {
		assert.Contains(t, texts(fuzzy), w)
	}
}

func TestPathCacheEvicts(t *testing.T) {
	pc := NewPathCache(2)
	pc.Put([]rune("a"), off, nil)
	pc.Put([]rune("b"), off, nil)
	_, ok := pc.Get([]rune("a"), off)
	require.True(t, ok)
	pc.Put([]rune("c"), off, nil)

	_, ok = pc.Get([]rune("b"), off)
	assert.False(t, ok)
	_, ok = pc.Get([]rune("a"), off)
	assert.True(t, ok)

	fc := off
	fc.Initial = true
	_, ok = pc.Get([]rune("a"), fc)
	assert.False(t, ok)
	assert.Equal(t, 2, pc.Stats()["pathCacheEntries"])
}
