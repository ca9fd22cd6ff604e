package decoder

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bastiangx/pinyinserve/pkg/config"
	"github.com/bastiangx/pinyinserve/pkg/dictionary"
	"github.com/bastiangx/pinyinserve/pkg/spelling"
)

type fixture struct {
	sysPath  string
	userPath string
}

func writeDict(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	b := dictionary.NewBuilder()
	add := func(word, spl string, weight uint32) {
		ids, ok := spelling.Parse(spl)
		require.True(t, ok, spl)
		require.NoError(t, b.Add(word, ids, weight))
	}
	add("拼", "pin", 100)
	add("拼音", "pin'yin", 200)
	add("音", "yin", 90)
	add("中", "zhong", 300)
	add("宗", "zong", 100)
	require.NoError(t, b.AddAssociation("拼音", "输入法", 5))
	require.NoError(t, b.AddAssociation("中华人民共和国", "成立", 10))

	sysPath := filepath.Join(dir, "pinyin.dict")
	f, err := os.Create(sysPath)
	require.NoError(t, err)
	_, err = b.WriteTo(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	return fixture{sysPath: sysPath, userPath: filepath.Join(dir, "user.msgpack")}
}

func openDecoder(t *testing.T) (*Decoder, fixture) {
	t.Helper()
	fx := writeDict(t)
	d := New(nil)
	require.True(t, d.OpenPath(fx.sysPath, fx.userPath))
	t.Cleanup(d.Close)
	return d, fx
}

func TestSearchAndChoose(t *testing.T) {
	d, _ := openDecoder(t)

	assert.Equal(t, []string{"拼音", "拼"}, d.SearchAll("pinyin"))
	assert.Equal(t, 0, d.GetSpellingString().DecodedLen)
	assert.Equal(t, 2, d.SearchAllCount("pinyin"))
	assert.Equal(t, "拼音", d.GetCandidate(0))

	assert.Equal(t, 6, d.Choose(0))
	assert.Equal(t, 6, d.GetFixedLen())
	cands, err := d.Candidates()
	require.NoError(t, err)
	assert.Empty(t, cands)

	sp := d.GetSpellingString()
	assert.Equal(t, "pinyin", sp.Raw)
	assert.Equal(t, "pin'yin", sp.Normalized)
	assert.Equal(t, 6, sp.DecodedLen)
}

func TestInvalidCandidate(t *testing.T) {
	d, _ := openDecoder(t)
	d.SearchAll("pin")

	assert.Equal(t, 0, d.Choose(42))
	assert.Equal(t, "", d.GetCandidate(-1))
	_, err := d.Pick(42)
	assert.ErrorIs(t, err, ErrInvalidCandidate)
	assert.Equal(t, 0, d.GetFixedLen())
}

func TestUnavailableBeforeOpenAndAfterClose(t *testing.T) {
	check := func(t *testing.T, d *Decoder) {
		assert.Empty(t, d.SearchAll("pinyin"))
		assert.NotNil(t, d.SearchAll("pinyin"))
		assert.Equal(t, 0, d.SearchAllCount("pinyin"))
		assert.Equal(t, 0, d.Choose(0))
		assert.Equal(t, "", d.GetCandidate(0))
		assert.Equal(t, 0, d.GetFixedLen())
		assert.Equal(t, SpellingString{}, d.GetSpellingString())
		assert.Empty(t, d.GetAllPredicts("拼音"))
		d.ResetSearch()
		d.FlushCache()
		d.EnableFinalVowelFuzzy(true)

		_, err := d.Search("pinyin")
		assert.ErrorIs(t, err, ErrQueryUnavailable)
		_, err = d.Predict("拼音")
		assert.ErrorIs(t, err, ErrQueryUnavailable)
		assert.ErrorIs(t, d.Flush(), ErrQueryUnavailable)
	}

	t.Run("never opened", func(t *testing.T) {
		check(t, New(nil))
	})
	t.Run("closed", func(t *testing.T) {
		d, _ := openDecoder(t)
		d.Close()
		check(t, d)
		d.Close()
	})
}

func TestFailedOpenLatches(t *testing.T) {
	d, fx := openDecoder(t)
	require.NotEmpty(t, d.SearchAll("pin"))

	bad := filepath.Join(t.TempDir(), "bad.dict")
	require.NoError(t, os.WriteFile(bad, []byte("PYDC garbage"), 0644))
	assert.False(t, d.OpenPath(bad, fx.userPath))
	assert.Empty(t, d.SearchAll("pin"))
	err := d.Status()
	assert.ErrorIs(t, err, ErrQueryUnavailable)

	err = d.OpenSource(dictionary.PathSource(bad), "")
	assert.ErrorIs(t, err, ErrCorrupt)
	assert.False(t, d.OpenPath(filepath.Join(t.TempDir(), "missing.dict"), ""))
	assert.ErrorIs(t, d.OpenSource(dictionary.PathSource("/nonexistent/x.dict"), ""), ErrSourceUnavailable)

	require.True(t, d.OpenPath(fx.sysPath, fx.userPath))
	assert.NoError(t, d.Status())
	assert.NotEmpty(t, d.SearchAll("pin"))
}

func TestOpenDescriptor(t *testing.T) {
	fx := writeDict(t)
	f, err := os.Open(fx.sysPath)
	require.NoError(t, err)
	info, err := f.Stat()
	require.NoError(t, err)

	d := New(nil)
	defer d.Close()
	ok := d.OpenDescriptor(f.Fd(), 0, info.Size(), "")
	f.Close()
	require.True(t, ok)
	assert.Equal(t, []string{"拼音", "拼"}, d.SearchAll("pinyin"))
}

func TestResetIsIdempotent(t *testing.T) {
	d, _ := openDecoder(t)
	d.SearchAll("pinyin")
	d.Choose(1)

	d.ResetSearch()
	once := d.GetSpellingString()
	d.ResetSearch()
	assert.Equal(t, once, d.GetSpellingString())
	assert.Equal(t, 0, d.GetFixedLen())
	assert.Equal(t, "", once.Raw)
}

func TestSearchIsDeterministic(t *testing.T) {
	d, _ := openDecoder(t)
	d.EnableInitialConsonantFuzzy(true)
	first := d.SearchAll("zongpinyin")
	for i := 0; i < 3; i++ {
		assert.Equal(t, first, d.SearchAll("zongpinyin"))
	}
}

func TestFuzzyToggles(t *testing.T) {
	d, _ := openDecoder(t)

	plain := d.SearchAll("zong")
	assert.Equal(t, []string{"宗"}, plain)

	d.SearchAll("zong")
	d.EnableInitialConsonantFuzzy(true)
	cands, err := d.Candidates()
	require.NoError(t, err)
	require.Len(t, cands, 2)
	assert.Equal(t, "中", cands[0].Word)

	fuzzy := d.SearchAll("zong")
	for _, w := range plain {
		assert.Contains(t, fuzzy, w)
	}
	initial, final := d.Fuzzy()
	assert.True(t, initial)
	assert.False(t, final)
}

func TestLearningSurvivesReopen(t *testing.T) {
	d, fx := openDecoder(t)

	d.SearchAll("pinyin")
	require.Equal(t, 3, d.Choose(1))
	require.Equal(t, []string{"音"}, d.SearchAll("yin"))
	d.SearchAll("pinyin")
	d.Choose(1)
	assert.Equal(t, 6, d.Choose(0))
	d.Close()

	again := New(nil)
	defer again.Close()
	require.True(t, again.OpenPath(fx.sysPath, fx.userPath))
	st, err := again.Stats()
	require.NoError(t, err)
	assert.Equal(t, 3, st.UserRecords)
	assert.Equal(t, []string{"拼音", "拼"}, again.SearchAll("pinyin"))
	assert.Contains(t, again.GetAllPredicts("拼"), "音")
}

func TestPredicts(t *testing.T) {
	d, _ := openDecoder(t)
	assert.Equal(t, []string{"输入法"}, d.GetAllPredicts("拼音"))
	assert.Equal(t, []string{"输入法"}, d.GetAllPredicts("我的拼音"))
	assert.Equal(t, []string{"成立"}, d.GetAllPredicts("中华人民共和国"))
	assert.Equal(t, []string{"成立"}, d.GetAllPredicts(" 中华人民共和国\n"))
	assert.Empty(t, d.GetAllPredicts("没有"))
}

func TestConfigLimits(t *testing.T) {
	fx := writeDict(t)
	cfg := config.DefaultConfig()
	cfg.Engine.MaxCandidates = 1
	d := New(cfg)
	defer d.Close()
	require.True(t, d.OpenPath(fx.sysPath, ""))

	assert.Equal(t, []string{"拼音"}, d.SearchAll("pinyin"))
	assert.Equal(t, 2, d.SearchAllCount("pinyin"))
}

func TestKeywordLimit(t *testing.T) {
	d, _ := openDecoder(t)
	d.SearchAll("pinyin")

	long := strings.Repeat("pinyin", 43)
	_, err := d.Search(long)
	assert.ErrorIs(t, err, ErrKeywordTooLong)
	assert.Empty(t, d.SearchAll(long))
	assert.Equal(t, 0, d.SearchAllCount(long))
	assert.Equal(t, "pinyin", d.GetSpellingString().Raw)

	cands, err := d.Search(strings.Repeat("pinyin", 42))
	require.NoError(t, err)
	require.NotEmpty(t, cands)
	assert.Equal(t, "拼音", cands[0].Word)
	assert.Equal(t, 6, cands[0].Consumed)
}

func TestKeywordLimitDisabled(t *testing.T) {
	fx := writeDict(t)
	cfg := config.DefaultConfig()
	cfg.Engine.MaxKeywordBytes = 0
	d := New(cfg)
	defer d.Close()
	require.True(t, d.OpenPath(fx.sysPath, ""))

	cands, err := d.Search(strings.Repeat("pinyin", 100))
	require.NoError(t, err)
	require.NotEmpty(t, cands)
	assert.Equal(t, "拼音", cands[0].Word)
}

func TestUnreadableUserLexicon(t *testing.T) {
	fx := writeDict(t)
	require.NoError(t, os.Mkdir(fx.userPath, 0755))

	d := New(nil)
	defer d.Close()
	err := d.OpenSource(dictionary.PathSource(fx.sysPath), fx.userPath)
	assert.ErrorIs(t, err, ErrSourceUnavailable)
	assert.ErrorIs(t, d.Status(), ErrQueryUnavailable)
	assert.Empty(t, d.SearchAll("pin"))
}
