package dictionary

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/mozillazg/go-pinyin"

	"github.com/bastiangx/pinyinserve/pkg/spelling"
)

var pinyinArgs = func() pinyin.Args {
	a := pinyin.NewArgs()
	a.Style = pinyin.Normal
	return a
}()

func isFieldSep(r rune) bool {
	return r == '\t' || r == '=' || r == ' '
}

// DeriveSpelling computes the spelling of a Chinese word, taking the first
// reading of every character. It fails when a character has no reading.
func DeriveSpelling(word string) ([]spelling.ID, error) {
	readings := pinyin.LazyPinyin(word, pinyinArgs)
	if len(readings) != utf8.RuneCountInString(word) {
		return nil, fmt.Errorf("no reading for every character of %q", word)
	}
	ids := make([]spelling.ID, len(readings))
	for i, r := range readings {
		id, ok := spelling.Lookup(strings.ReplaceAll(r, "ü", "v"))
		if !ok {
			return nil, fmt.Errorf("reading %q of %q is not a syllable", r, word)
		}
		ids[i] = id
	}
	return ids, nil
}

// ParseLexicon reads "word [spelling] [weight]" lines into b. Fields are
// separated by tabs, spaces or '='. A spelling spread over several fields is
// joined; a missing spelling is derived from the word. Lines starting with
// '#' are comments. Bad lines are skipped and logged. It returns how many
// lines were added.
func ParseLexicon(r io.Reader, b *Builder) (int, error) {
	scanner := bufio.NewScanner(r)
	added, lineNo := 0, 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.FieldsFunc(line, isFieldSep)
		if len(fields) == 0 {
			continue
		}
		word := fields[0]
		rest := fields[1:]

		var weight uint32
		if len(rest) > 0 {
			if w, err := strconv.ParseUint(rest[len(rest)-1], 10, 32); err == nil {
				weight = uint32(w)
				rest = rest[:len(rest)-1]
			}
		}

		var ids []spelling.ID
		var err error
		if len(rest) > 0 {
			var ok bool
			if ids, ok = spelling.Parse(strings.Join(rest, "'")); !ok {
				err = fmt.Errorf("bad spelling %q", strings.Join(rest, " "))
			}
		} else {
			ids, err = DeriveSpelling(word)
		}
		if err == nil {
			err = b.Add(word, ids, weight)
		}
		if err != nil {
			log.Warnf("Skipping lexicon line %d: %v", lineNo, err)
			continue
		}
		added++
	}
	if err := scanner.Err(); err != nil {
		return added, fmt.Errorf("failed to read lexicon: %w", err)
	}
	return added, nil
}

// ParseAssociations reads "history next [weight]" lines into b.
func ParseAssociations(r io.Reader, b *Builder) (int, error) {
	scanner := bufio.NewScanner(r)
	added, lineNo := 0, 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.FieldsFunc(line, isFieldSep)
		if len(fields) < 2 {
			log.Warnf("Skipping association line %d: need history and next word", lineNo)
			continue
		}
		weight := uint64(1)
		if len(fields) > 2 {
			w, err := strconv.ParseUint(fields[2], 10, 32)
			if err != nil {
				log.Warnf("Skipping association line %d: bad weight %q", lineNo, fields[2])
				continue
			}
			weight = w
		}
		if err := b.AddAssociation(fields[0], fields[1], uint32(weight)); err != nil {
			log.Warnf("Skipping association line %d: %v", lineNo, err)
			continue
		}
		added++
	}
	if err := scanner.Err(); err != nil {
		return added, fmt.Errorf("failed to read associations: %w", err)
	}
	return added, nil
}
