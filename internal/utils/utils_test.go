package utils

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatWithCommas(t *testing.T) {
	cases := map[int]string{
		0:        "0",
		999:      "999",
		1000:     "1,000",
		320000:   "320,000",
		-1234567: "-1,234,567",
	}
	for n, want := range cases {
		assert.Equal(t, want, FormatWithCommas(n))
	}
}

func TestPathResolverFindsConfigDirFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "data"), 0755))
	target := filepath.Join(dir, "data", "pinyin.dict")
	require.NoError(t, os.WriteFile(target, []byte("PYDC"), 0644))

	pr, err := NewPathResolver(dir)
	require.NoError(t, err)

	got, err := pr.FindFile("data/pinyin.dict")
	require.NoError(t, err)
	assert.Equal(t, target, got)

	got, err = pr.FindFile(target)
	require.NoError(t, err)
	assert.Equal(t, target, got)

	_, err = pr.FindFile("missing-" + filepath.Base(dir) + ".dict")
	assert.ErrorIs(t, err, os.ErrNotExist)

	assert.Equal(t, filepath.Join(dir, "user.msgpack"), pr.UserFile("user.msgpack"))
	assert.Equal(t, "/abs/u.msgpack", pr.UserFile("/abs/u.msgpack"))
}

func TestExtractStrings(t *testing.T) {
	data := map[string]any{
		"ok":  []any{"z:zh", "c:ch"},
		"bad": []any{"z:zh", int64(1)},
	}
	got, ok := ExtractStrings(data, "ok")
	assert.True(t, ok)
	assert.Equal(t, []string{"z:zh", "c:ch"}, got)
	_, ok = ExtractStrings(data, "bad")
	assert.False(t, ok)
	_, ok = ExtractStrings(data, "missing")
	assert.False(t, ok)
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "out.bin")

	require.NoError(t, WriteFileAtomic(path, func(w io.Writer) error {
		_, err := io.WriteString(w, "first")
		return err
	}))
	boom := errors.New("boom")
	err := WriteFileAtomic(path, func(w io.Writer) error {
		io.WriteString(w, "partial")
		return boom
	})
	assert.ErrorIs(t, err, boom)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
