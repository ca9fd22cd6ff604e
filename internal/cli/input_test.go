package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bastiangx/pinyinserve/pkg/config"
	"github.com/bastiangx/pinyinserve/pkg/decoder"
	"github.com/bastiangx/pinyinserve/pkg/dictionary"
	"github.com/bastiangx/pinyinserve/pkg/spelling"
)

func openDecoder(t *testing.T) *decoder.Decoder {
	t.Helper()
	dir := t.TempDir()
	b := dictionary.NewBuilder()
	for spl, word := range map[string]string{"pin": "拼", "pin'yin": "拼音", "yin": "音"} {
		ids, ok := spelling.Parse(spl)
		require.True(t, ok)
		require.NoError(t, b.Add(word, ids, 100))
	}
	path := filepath.Join(dir, "pinyin.dict")
	f, err := os.Create(path)
	require.NoError(t, err)
	_, err = b.WriteTo(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	d := decoder.New(nil)
	require.True(t, d.OpenPath(path, filepath.Join(dir, "user.msgpack")))
	t.Cleanup(d.Close)
	return d
}

func TestConsoleSession(t *testing.T) {
	d := openDecoder(t)
	in := strings.NewReader("pinyin\n:c 2\n1\n:s\n:fi on\n:bogus\n:q\nnever\n")
	var out bytes.Buffer
	h := NewInputHandler(d, config.DefaultConfig().CLI, in, &out)
	require.NoError(t, h.Start())

	text := out.String()
	assert.Contains(t, text, "拼音")
	assert.Contains(t, text, "Unknown command")
	assert.Equal(t, 7, h.requestCount)
	assert.Equal(t, 6, d.GetFixedLen())
}

func TestConsoleEndsOnEOF(t *testing.T) {
	d := openDecoder(t)
	var out bytes.Buffer
	h := NewInputHandler(d, config.CliConfig{DefaultLimit: 1}, strings.NewReader("pin\n"), &out)
	require.NoError(t, h.Start())
	assert.Contains(t, out.String(), "Found")
}

func TestParseSwitch(t *testing.T) {
	on, err := parseSwitch("ON")
	require.NoError(t, err)
	assert.True(t, on)
	off, err := parseSwitch("0")
	require.NoError(t, err)
	assert.False(t, off)
	_, err = parseSwitch("maybe")
	assert.Error(t, err)
}

func TestSaveFuzzyToConfig(t *testing.T) {
	d := openDecoder(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := config.DefaultConfig()

	var out bytes.Buffer
	h := NewInputHandler(d, cfg.CLI, strings.NewReader(":save\n"), &out)
	require.NoError(t, h.Start())
	assert.Contains(t, out.String(), "No config file")

	h = NewInputHandler(d, cfg.CLI, strings.NewReader(":ff on\n:save\n"), &out)
	h.PersistTo(cfg, path)
	require.NoError(t, h.Start())

	loaded, err := config.LoadConfig(path)
	require.NoError(t, err)
	assert.True(t, loaded.Fuzzy.Final)
	assert.False(t, loaded.Fuzzy.Initial)
}
