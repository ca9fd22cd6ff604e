package dictionary

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/log"
)

// FileFormat represents the dictionary file formats the tools understand
type FileFormat int

const (
	FormatUnknown FileFormat = iota
	FormatBinary             // compiled system dictionary
	FormatLexicon            // "word spelling weight" text
	FormatAssociations       // "history next weight" text
)

// FormatInfo contains metadata about a dictionary file format
type FormatInfo struct {
	Format      FileFormat
	Description string
	Extensions  []string
	MinSize     int64
}

var supportedFormats = map[FileFormat]FormatInfo{
	FormatBinary: {
		Format:      FormatBinary,
		Description: "Binary Pinyin Dictionary",
		Extensions:  []string{".dict", ".bin"},
		MinSize:     int64(len(Magic)) + 2 + 4 + 4,
	},
	FormatLexicon: {
		Format:      FormatLexicon,
		Description: "Text Lexicon",
		Extensions:  []string{".txt"},
		MinSize:     1,
	},
	FormatAssociations: {
		Format:      FormatAssociations,
		Description: "Text Associations",
		Extensions:  []string{".assoc"},
		MinSize:     1,
	},
}

func (f FileFormat) String() string {
	if info, ok := supportedFormats[f]; ok {
		return info.Description
	}
	return "Unknown"
}

// DetectFileFormat looks at the header of a file, then at its extension
func DetectFileFormat(filename string) (FileFormat, error) {
	file, err := os.Open(filename)
	if err != nil {
		return FormatUnknown, fmt.Errorf("failed to open file %s: %w", filename, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return FormatUnknown, fmt.Errorf("failed to stat file %s: %w", filename, err)
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return FormatUnknown, fmt.Errorf("failed to read from %s: %w", filename, err)
	}
	head = head[:n]

	if strings.HasPrefix(string(head), Magic) {
		if info.Size() < supportedFormats[FormatBinary].MinSize {
			return FormatUnknown, fmt.Errorf("file %s is too small (%d bytes) for a binary dictionary", filename, info.Size())
		}
		log.Debugf("File %s detected as %s", filename, FormatBinary)
		return FormatBinary, nil
	}

	if !isText(head) {
		return FormatUnknown, fmt.Errorf("unable to detect format for file %s", filename)
	}
	ext := strings.ToLower(filepath.Ext(filename))
	for _, f := range []FileFormat{FormatAssociations, FormatLexicon} {
		for _, e := range supportedFormats[f].Extensions {
			if ext == e {
				log.Debugf("File %s detected as %s", filename, f)
				return f, nil
			}
		}
	}
	return FormatLexicon, nil
}

// isText reports whether b is UTF-8, allowing a rune cut in half at the end
func isText(b []byte) bool {
	for i := 0; i < utf8.UTFMax && len(b) > 0; i++ {
		if utf8.Valid(b) {
			return true
		}
		b = b[:len(b)-1]
	}
	return false
}

// GetFormatInfo returns information about a specific format
func GetFormatInfo(format FileFormat) (FormatInfo, bool) {
	info, exists := supportedFormats[format]
	return info, exists
}
