package dictionary

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectFileFormat(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, data []byte) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, data, 0644))
		return p
	}

	testCases := []struct {
		path     string
		expected FileFormat
		wantErr  bool
	}{
		{write("sys.dict", testBlob(t)), FormatBinary, false},
		{write("renamed.txt", testBlob(t)), FormatBinary, false},
		{write("words.txt", []byte("拼音 pin'yin 200\n")), FormatLexicon, false},
		{write("pairs.assoc", []byte("拼音 输入法 5\n")), FormatAssociations, false},
		{write("stub.dict", []byte(Magic)), FormatUnknown, true},
		{write("empty.txt", nil), FormatUnknown, true},
		{write("binary.txt", []byte{0xff, 0xfe, 0x00, 0x80}), FormatUnknown, true},
	}
	for _, tc := range testCases {
		got, err := DetectFileFormat(tc.path)
		if tc.wantErr {
			assert.Error(t, err, tc.path)
			continue
		}
		require.NoError(t, err, tc.path)
		assert.Equal(t, tc.expected, got, tc.path)
	}
}
