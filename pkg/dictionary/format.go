package dictionary

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/charmbracelet/log"

	"github.com/bastiangx/pinyinserve/pkg/spelling"
)

// Magic opens every system dictionary blob.
const Magic = "PYDC"

// Version is the binary layout written by Builder.
const Version uint16 = 1

const (
	maxWordBytes = 1<<16 - 1
	maxSyllables = 1<<8 - 1
)

var (
	// ErrSourceUnavailable means the dictionary bytes could not be opened or read.
	ErrSourceUnavailable = errors.New("dictionary source unavailable")
	// ErrCorrupt means the bytes were read but are not a valid dictionary.
	ErrCorrupt = errors.New("dictionary corrupt")
)

// systemData is the decoded content of a blob.
type systemData struct {
	entries []Entry
	assocs  map[string][]Association
}

// readError classifies a failure while decoding: running out of bytes is
// corruption, anything else came from the source.
func readError(what string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: truncated %s", ErrCorrupt, what)
	}
	return fmt.Errorf("%w: failed to read %s: %v", ErrSourceUnavailable, what, err)
}

// readSystem decodes a blob. maxWords of zero disables the entry count check.
func readSystem(r io.Reader, maxWords int) (*systemData, error) {
	reader := bufio.NewReader(r)

	magic := make([]byte, len(Magic))
	if _, err := io.ReadFull(reader, magic); err != nil {
		return nil, readError("header", err)
	}
	if string(magic) != Magic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrCorrupt, magic)
	}
	var version uint16
	if err := binary.Read(reader, binary.LittleEndian, &version); err != nil {
		return nil, readError("version", err)
	}
	if version != Version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, version)
	}

	var count uint32
	if err := binary.Read(reader, binary.LittleEndian, &count); err != nil {
		return nil, readError("entry count", err)
	}
	if maxWords > 0 && int64(count) > int64(maxWords) {
		return nil, fmt.Errorf("%w: %d entries exceeds limit %d", ErrCorrupt, count, maxWords)
	}
	log.Debugf("Loading dictionary with %d entries", count)

	data := &systemData{
		entries: make([]Entry, 0, count),
		assocs:  make(map[string][]Association),
	}
	for i := uint32(0); i < count; i++ {
		word, err := readString(reader, "word")
		if err != nil {
			return nil, err
		}
		var sylCount uint8
		if err := binary.Read(reader, binary.LittleEndian, &sylCount); err != nil {
			return nil, readError("syllable count", err)
		}
		if sylCount == 0 {
			return nil, fmt.Errorf("%w: entry %q has no syllables", ErrCorrupt, word)
		}
		ids := make([]spelling.ID, sylCount)
		if err := binary.Read(reader, binary.LittleEndian, ids); err != nil {
			return nil, readError("syllables", err)
		}
		for _, id := range ids {
			if !id.Valid() {
				return nil, fmt.Errorf("%w: syllable id %d out of range in %q", ErrCorrupt, id, word)
			}
		}
		var weight uint32
		if err := binary.Read(reader, binary.LittleEndian, &weight); err != nil {
			return nil, readError("weight", err)
		}
		data.entries = append(data.entries, NewEntry(word, ids, weight))
	}

	var assocCount uint32
	if err := binary.Read(reader, binary.LittleEndian, &assocCount); err != nil {
		return nil, readError("association count", err)
	}
	for i := uint32(0); i < assocCount; i++ {
		history, err := readString(reader, "history")
		if err != nil {
			return nil, err
		}
		var n uint16
		if err := binary.Read(reader, binary.LittleEndian, &n); err != nil {
			return nil, readError("association size", err)
		}
		for j := uint16(0); j < n; j++ {
			word, err := readString(reader, "associated word")
			if err != nil {
				return nil, err
			}
			var weight uint32
			if err := binary.Read(reader, binary.LittleEndian, &weight); err != nil {
				return nil, readError("association weight", err)
			}
			data.assocs[history] = append(data.assocs[history], Association{Word: word, Weight: weight})
		}
	}

	log.Debugf("Dictionary decoded: %d entries, %d association keys", len(data.entries), len(data.assocs))
	return data, nil
}

func readString(r io.Reader, what string) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", readError(what+" length", err)
	}
	if n == 0 {
		return "", fmt.Errorf("%w: empty %s", ErrCorrupt, what)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", readError(what, err)
	}
	return string(buf), nil
}

// Builder collects entries and associations and writes them as a blob.
type Builder struct {
	entries map[string]Entry
	assocs  map[string]map[string]uint32
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		entries: make(map[string]Entry),
		assocs:  make(map[string]map[string]uint32),
	}
}

// Add adds a word typed by spl. Adding the same word and spelling again keeps
// the higher weight.
func (b *Builder) Add(word string, spl []spelling.ID, weight uint32) error {
	if word == "" || len(word) > maxWordBytes {
		return fmt.Errorf("invalid word %q", word)
	}
	if len(spl) == 0 || len(spl) > maxSyllables {
		return fmt.Errorf("word %q has %d syllables", word, len(spl))
	}
	for _, id := range spl {
		if !id.Valid() {
			return fmt.Errorf("word %q has invalid syllable id %d", word, id)
		}
	}
	e := NewEntry(word, append([]spelling.ID(nil), spl...), weight)
	k := e.recordKey()
	if old, ok := b.entries[k]; ok && old.Weight >= weight {
		return nil
	}
	b.entries[k] = e
	return nil
}

// AddAssociation records that next tends to follow history.
func (b *Builder) AddAssociation(history, next string, weight uint32) error {
	if history == "" || next == "" || len(history) > maxWordBytes || len(next) > maxWordBytes {
		return fmt.Errorf("invalid association %q -> %q", history, next)
	}
	m := b.assocs[history]
	if m == nil {
		m = make(map[string]uint32)
		b.assocs[history] = m
	}
	if weight > m[next] {
		m[next] = weight
	}
	return nil
}

// Merge adds everything in o to b with the same rules as Add and AddAssociation.
func (b *Builder) Merge(o *Builder) {
	for k, e := range o.entries {
		if old, ok := b.entries[k]; !ok || e.Weight > old.Weight {
			b.entries[k] = e
		}
	}
	for history, nexts := range o.assocs {
		for next, w := range nexts {
			// already validated when added to o
			_ = b.AddAssociation(history, next, w)
		}
	}
}

// Len is the number of distinct entries added.
func (b *Builder) Len() int {
	return len(b.entries)
}

// WriteTo writes the blob. Output is deterministic for the same content.
func (b *Builder) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: bufio.NewWriter(w)}

	keys := make([]string, 0, len(b.entries))
	for k := range b.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	cw.write([]byte(Magic))
	cw.put(Version)
	cw.put(uint32(len(keys)))
	for _, k := range keys {
		e := b.entries[k]
		cw.writeString(e.Word)
		cw.put(uint8(len(e.Spelling)))
		cw.put(e.Spelling)
		cw.put(e.Weight)
	}

	histories := make([]string, 0, len(b.assocs))
	for h := range b.assocs {
		histories = append(histories, h)
	}
	sort.Strings(histories)
	cw.put(uint32(len(histories)))
	for _, h := range histories {
		nexts := make([]string, 0, len(b.assocs[h]))
		for n := range b.assocs[h] {
			nexts = append(nexts, n)
		}
		sort.Strings(nexts)
		if len(nexts) > 1<<16-1 {
			nexts = nexts[:1<<16-1]
		}
		cw.writeString(h)
		cw.put(uint16(len(nexts)))
		for _, n := range nexts {
			cw.writeString(n)
			cw.put(b.assocs[h][n])
		}
	}

	if cw.err == nil {
		cw.err = cw.w.(*bufio.Writer).Flush()
	}
	return cw.n, cw.err
}

type countingWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (c *countingWriter) write(p []byte) {
	if c.err != nil {
		return
	}
	n, err := c.w.Write(p)
	c.n += int64(n)
	c.err = err
}

func (c *countingWriter) put(v any) {
	if c.err != nil {
		return
	}
	c.n += int64(binary.Size(v))
	c.err = binary.Write(c.w, binary.LittleEndian, v)
}

func (c *countingWriter) writeString(s string) {
	c.put(uint16(len(s)))
	c.write([]byte(s))
}
