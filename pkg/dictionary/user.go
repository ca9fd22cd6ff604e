package dictionary

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/bastiangx/pinyinserve/internal/utils"
	"github.com/bastiangx/pinyinserve/pkg/spelling"
)

const userFileVersion = 1

// userRecord is a learned word: a selected entry and how often it was chosen.
type userRecord struct {
	Word     string        `msgpack:"w"`
	Spelling []spelling.ID `msgpack:"s"`
	Weight   uint32        `msgpack:"b"`
	Count    uint32        `msgpack:"c"`
	LastUsed uint64        `msgpack:"t"`
}

func (r *userRecord) entry(boost uint32) Entry {
	e := NewEntry(r.Word, r.Spelling, addWeight(r.Weight, r.Count, boost))
	return e
}

type userAssoc struct {
	History string `msgpack:"h"`
	Next    string `msgpack:"n"`
	Count   uint32 `msgpack:"c"`
}

// userFile is the on-disk user lexicon.
type userFile struct {
	Version int          `msgpack:"v"`
	Seq     uint64       `msgpack:"seq"`
	Records []userRecord `msgpack:"r"`
	Assocs  []userAssoc  `msgpack:"a"`
}

// readUserFile loads the lexicon at path. A missing file is an empty lexicon.
// Bytes that cannot be read fail with ErrSourceUnavailable and no lexicon; bytes
// that do not decode fail with ErrCorrupt and an empty one.
func readUserFile(path string) (*userFile, error) {
	empty := &userFile{Version: userFileVersion}
	if path == "" {
		return empty, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return empty, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read user lexicon %s: %v", ErrSourceUnavailable, path, err)
	}
	var uf userFile
	if err := msgpack.NewDecoder(bytes.NewReader(data)).Decode(&uf); err != nil {
		return empty, fmt.Errorf("%w: failed to decode user lexicon %s: %v", ErrCorrupt, path, err)
	}
	if uf.Version != userFileVersion {
		return empty, fmt.Errorf("%w: user lexicon %s has unsupported version %d", ErrCorrupt, path, uf.Version)
	}
	return &uf, nil
}

// writeUserFile replaces the file at path with uf through a temp file and rename.
func writeUserFile(path string, uf *userFile) error {
	return utils.WriteFileAtomic(path, func(w io.Writer) error {
		if err := msgpack.NewEncoder(w).Encode(uf); err != nil {
			return fmt.Errorf("failed to encode user lexicon: %w", err)
		}
		return nil
	})
}
