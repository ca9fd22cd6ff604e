package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitConfigCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg, err := InitConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, 255, cfg.Engine.MaxKeywordBytes)
	assert.FileExists(t, path)

	again, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoadConfigRecoversSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[engine]
max_candidates = "lots"
max_paths = 50
max_keyword_bytes = 512

[fuzzy]
initial = true
initial_pairs = ["z:zh", "n:l"]

[dict]
system_path = "/opt/dict/pinyin.dict"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 80, cfg.Engine.MaxCandidates)
	assert.Equal(t, 50, cfg.Engine.MaxPaths)
	assert.Equal(t, 512, cfg.Engine.MaxKeywordBytes)
	assert.Equal(t, 4, cfg.Engine.HistoryWindow)
	assert.True(t, cfg.Fuzzy.Initial)
	assert.Equal(t, []string{"z:zh", "n:l"}, cfg.Fuzzy.InitialPairs)
	assert.Equal(t, "/opt/dict/pinyin.dict", cfg.Dict.SystemPath)
	assert.Equal(t, DefaultConfig().CLI, cfg.CLI)
}

func TestUnparseableConfigFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[engine\nmax_candidates = = 3"), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestSpellingFuzzy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Fuzzy.Final = true
	fc, err := cfg.SpellingFuzzy()
	require.NoError(t, err)
	assert.True(t, fc.Final)
	assert.Equal(t, []string{"zh"}, fc.InitialPairs["z"])

	cfg.Fuzzy.FinalPairs = []string{"an"}
	_, err = cfg.SpellingFuzzy()
	assert.Error(t, err)
}

func TestSetFuzzySaves(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := DefaultConfig()
	on := true
	require.NoError(t, cfg.SetFuzzy(path, &on, nil))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.True(t, loaded.Fuzzy.Initial)
	assert.False(t, loaded.Fuzzy.Final)
}
