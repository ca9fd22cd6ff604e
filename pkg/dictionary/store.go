package dictionary

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"

	"github.com/bastiangx/pinyinserve/pkg/spelling"
)

// ErrClosed is returned by mutations on a closed store.
var ErrClosed = errors.New("dictionary closed")

// Options tune loading and learning.
type Options struct {
	// MaxWordCount rejects blobs declaring more entries. Zero disables the check.
	MaxWordCount int
	// UsageBoost is added to a user record's weight per selection.
	UsageBoost uint32
	// FlushEvery writes the user lexicon after this many changes. Zero only
	// writes on Flush and Close.
	FlushEvery int
}

// DefaultOptions returns the stock options.
func DefaultOptions() Options {
	return Options{
		MaxWordCount: 320000,
		UsageBoost:   1000,
		FlushEvery:   16,
	}
}

// Stats describes the loaded content.
type Stats struct {
	SystemEntries int
	UserRecords   int
	Associations  int
}

// Store merges the system lexicon with the user lexicon. Lookups may run
// concurrently; mutations are serialized.
type Store struct {
	mu   sync.RWMutex
	opts Options

	system    *patricia.Trie // spelling key -> []Entry
	sysCount  int
	sysAssocs map[string][]Association

	user       *patricia.Trie // spelling key -> []*userRecord
	records    map[string]*userRecord
	userAssocs map[string]map[string]uint32
	userPath   string
	seq        uint64
	dirty      int

	closed bool
}

// Load reads the system dictionary from src and the user lexicon from
// userPath. An empty userPath keeps learning in memory only. A user lexicon
// that cannot be decoded is logged and replaced by an empty one; one that
// cannot be read fails the load so a flush never overwrites it.
func Load(src Source, userPath string, opts Options) (*Store, error) {
	sec, closer, err := src.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer closer.Close()

	data, err := readSystem(sec, opts.MaxWordCount)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", src, err)
	}

	s := &Store{
		opts:       opts,
		system:     patricia.NewTrie(),
		sysCount:   len(data.entries),
		sysAssocs:  data.assocs,
		user:       patricia.NewTrie(),
		records:    make(map[string]*userRecord),
		userAssocs: make(map[string]map[string]uint32),
		userPath:   userPath,
	}

	groups := make(map[string][]Entry)
	for _, e := range data.entries {
		k := string(encodeKey(e.Spelling))
		groups[k] = append(groups[k], e)
	}
	for k, entries := range groups {
		SortEntries(entries)
		s.system.Insert(patricia.Prefix(k), entries)
	}

	uf, err := readUserFile(userPath)
	if errors.Is(err, ErrSourceUnavailable) {
		return nil, err
	}
	if err != nil {
		log.Warnf("User lexicon unusable, starting empty: %v", err)
	}
	s.restore(uf)

	log.Debugf("Store loaded from %s: %d system entries, %d user records", src, s.sysCount, len(s.records))
	return s, nil
}

func (s *Store) restore(uf *userFile) {
	s.seq = uf.Seq
	for i := range uf.Records {
		rec := uf.Records[i]
		if err := validRecord(rec); err != nil {
			log.Warnf("Dropping user record: %v", err)
			continue
		}
		s.insertRecord(&rec)
	}
	for _, a := range uf.Assocs {
		if a.History == "" || a.Next == "" {
			continue
		}
		s.userAssoc(a.History)[a.Next] += a.Count
	}
}

func validRecord(rec userRecord) error {
	if rec.Word == "" || len(rec.Spelling) == 0 {
		return fmt.Errorf("empty record %q", rec.Word)
	}
	for _, id := range rec.Spelling {
		if !id.Valid() {
			return fmt.Errorf("record %q has invalid syllable id %d", rec.Word, id)
		}
	}
	return nil
}

func (s *Store) insertRecord(rec *userRecord) {
	e := Entry{Word: rec.Word, Spelling: rec.Spelling}
	k := e.recordKey()
	if old, ok := s.records[k]; ok {
		old.Count += rec.Count
		if rec.LastUsed > old.LastUsed {
			old.LastUsed = rec.LastUsed
		}
		return
	}
	s.records[k] = rec
	key := patricia.Prefix(encodeKey(rec.Spelling))
	var list []*userRecord
	if item := s.user.Get(key); item != nil {
		list = item.([]*userRecord)
	}
	s.user.Set(key, append(list, rec))
}

func (s *Store) userAssoc(history string) map[string]uint32 {
	m := s.userAssocs[history]
	if m == nil {
		m = make(map[string]uint32)
		s.userAssocs[history] = m
	}
	return m
}

// Lookup returns the entries typed exactly by path, best first.
func (s *Store) Lookup(path []spelling.ID) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil
	}
	return s.lookupLocked(encodeKey(path))
}

func (s *Store) lookupLocked(key []byte) []Entry {
	var out []Entry
	if item := s.system.Get(patricia.Prefix(key)); item != nil {
		out = append(out, item.([]Entry)...)
	}
	if item := s.user.Get(patricia.Prefix(key)); item != nil {
		pos := make(map[string]int, len(out))
		for i, e := range out {
			pos[e.Word] = i
		}
		for _, rec := range item.([]*userRecord) {
			e := rec.entry(s.opts.UsageBoost)
			if i, ok := pos[e.Word]; ok {
				if e.Weight > out[i].Weight {
					out[i] = e
				}
				continue
			}
			pos[e.Word] = len(out)
			out = append(out, e)
		}
		SortEntries(out)
	}
	return out
}

// Match walks every spelling drawn from alts, one id set per syllable, and
// calls visit with the entries found at each depth. Only ids that start some
// stored spelling are followed. visit must not call back into the store.
func (s *Store) Match(alts [][]spelling.ID, visit func(depth int, entries []Entry)) {
	if len(alts) == 0 {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	s.matchLocked(nil, alts, 0, visit)
}

func (s *Store) matchLocked(key []byte, alts [][]spelling.ID, depth int, visit func(int, []Entry)) {
	for _, id := range alts[depth] {
		next := appendID(key[:len(key):len(key)], id)
		p := patricia.Prefix(next)
		if !s.system.MatchSubtree(p) && !s.user.MatchSubtree(p) {
			continue
		}
		if entries := s.lookupLocked(next); len(entries) > 0 {
			visit(depth+1, entries)
		}
		if depth+1 < len(alts) {
			s.matchLocked(next, alts, depth+1, visit)
		}
	}
}

// RecordUsage notes that e was selected. The first selection creates a user
// record with e's weight, later ones raise its count.
func (s *Store) RecordUsage(e Entry) error {
	if e.Word == "" || len(e.Spelling) == 0 {
		return fmt.Errorf("cannot record empty entry %q", e.Word)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.seq++
	k := e.recordKey()
	if rec, ok := s.records[k]; ok {
		rec.Count++
		rec.LastUsed = s.seq
	} else {
		base := e.Weight
		if item := s.system.Get(patricia.Prefix(encodeKey(e.Spelling))); item != nil {
			for _, se := range item.([]Entry) {
				if se.Word == e.Word {
					base = se.Weight
					break
				}
			}
		}
		s.insertRecord(&userRecord{
			Word:     e.Word,
			Spelling: append([]spelling.ID(nil), e.Spelling...),
			Weight:   base,
			Count:    1,
			LastUsed: s.seq,
		})
	}
	return s.touchLocked()
}

// RecordAssociation notes that next was committed right after history.
func (s *Store) RecordAssociation(history, next string) error {
	if history == "" || next == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.userAssoc(history)[next]++
	return s.touchLocked()
}

func (s *Store) touchLocked() error {
	s.dirty++
	if s.opts.FlushEvery > 0 && s.dirty >= s.opts.FlushEvery {
		return s.flushLocked()
	}
	return nil
}

// Associations returns the words known to follow history, best first.
func (s *Store) Associations(history string) []Association {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed || history == "" {
		return nil
	}
	weights := make(map[string]uint32)
	for _, a := range s.sysAssocs[history] {
		if a.Weight > weights[a.Word] {
			weights[a.Word] = a.Weight
		}
	}
	for next, count := range s.userAssocs[history] {
		weights[next] = addWeight(weights[next], count, s.opts.UsageBoost)
	}
	if len(weights) == 0 {
		return nil
	}
	out := make([]Association, 0, len(weights))
	for w, weight := range weights {
		out = append(out, Association{Word: w, Weight: weight})
	}
	SortAssociations(out)
	return out
}

// Flush writes pending user changes.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return s.flushLocked()
}

func (s *Store) flushLocked() error {
	if s.userPath == "" || s.dirty == 0 {
		s.dirty = 0
		return nil
	}
	uf := &userFile{Version: userFileVersion, Seq: s.seq}
	keys := make([]string, 0, len(s.records))
	for k := range s.records {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		uf.Records = append(uf.Records, *s.records[k])
	}
	histories := make([]string, 0, len(s.userAssocs))
	for h := range s.userAssocs {
		histories = append(histories, h)
	}
	sort.Strings(histories)
	for _, h := range histories {
		nexts := make([]string, 0, len(s.userAssocs[h]))
		for n := range s.userAssocs[h] {
			nexts = append(nexts, n)
		}
		sort.Strings(nexts)
		for _, n := range nexts {
			uf.Assocs = append(uf.Assocs, userAssoc{History: h, Next: n, Count: s.userAssocs[h][n]})
		}
	}
	if err := writeUserFile(s.userPath, uf); err != nil {
		return err
	}
	log.Debugf("User lexicon flushed: %d records, %d associations", len(uf.Records), len(uf.Assocs))
	s.dirty = 0
	return nil
}

// Close flushes and releases the store. Every later lookup finds nothing.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	err := s.flushLocked()
	s.closed = true
	s.system = nil
	s.user = nil
	s.records = nil
	s.sysAssocs = nil
	s.userAssocs = nil
	return err
}

// Stats reports the loaded content.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return Stats{}
	}
	n := 0
	for _, as := range s.sysAssocs {
		n += len(as)
	}
	for _, m := range s.userAssocs {
		n += len(m)
	}
	return Stats{SystemEntries: s.sysCount, UserRecords: len(s.records), Associations: n}
}
