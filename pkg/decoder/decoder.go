/*
Package decoder is the engine instance a host holds: it owns the dictionary
store, the composition session, the predictor and the fuzzy toggles.

Every host operation comes in two forms. The error-returning form (Search,
Pick, Lookup, Predict, ...) reports ErrQueryUnavailable before a successful
open or after close, and ErrInvalidCandidate for an unknown id. The boundary
form (SearchAll, Choose, GetCandidate, GetAllPredicts, ...) collapses those
errors into empty or zero results and never panics.
*/
package decoder

import (
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/bastiangx/pinyinserve/pkg/composition"
	"github.com/bastiangx/pinyinserve/pkg/config"
	"github.com/bastiangx/pinyinserve/pkg/dictionary"
	"github.com/bastiangx/pinyinserve/pkg/predict"
	"github.com/bastiangx/pinyinserve/pkg/search"
	"github.com/bastiangx/pinyinserve/pkg/spelling"
)

var (
	// ErrQueryUnavailable means no dictionary is open.
	ErrQueryUnavailable = errors.New("decoder unavailable")
	// ErrInvalidCandidate means the id is not in the current candidate list.
	ErrInvalidCandidate = composition.ErrInvalidCandidate
	// ErrKeywordTooLong means a search buffer is over the configured byte limit.
	ErrKeywordTooLong = errors.New("keyword too long")
	// ErrSourceUnavailable and ErrCorrupt are the open failures.
	ErrSourceUnavailable = dictionary.ErrSourceUnavailable
	ErrCorrupt           = dictionary.ErrCorrupt
)

// SpellingString is the decoding state of the current buffer.
type SpellingString = composition.Spelling

// Decoder is one engine instance. It is safe to share; calls are serialized.
type Decoder struct {
	mu  sync.Mutex
	cfg *config.Config

	fuzzy spelling.FuzzyConfig

	store     *dictionary.Store
	engine    *search.Engine
	session   *composition.Session
	predictor *predict.Predictor
	lastErr   error
}

// New returns a decoder with nothing open. A nil cfg takes the defaults. Bad
// fuzzy pair tables in cfg fall back to the default tables.
func New(cfg *config.Config) *Decoder {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	fc, err := cfg.SpellingFuzzy()
	if err != nil {
		log.Warnf("Invalid fuzzy tables, using defaults: %v", err)
		fc = spelling.DefaultFuzzy()
		fc.Initial, fc.Final = cfg.Fuzzy.Initial, cfg.Fuzzy.Final
	}
	return &Decoder{cfg: cfg, fuzzy: fc, lastErr: ErrQueryUnavailable}
}

func (d *Decoder) storeOptions() dictionary.Options {
	opts := dictionary.DefaultOptions()
	opts.MaxWordCount = d.cfg.Dict.MaxWordCountValidation
	if d.cfg.Dict.UsageBoost >= 0 {
		opts.UsageBoost = uint32(d.cfg.Dict.UsageBoost)
	}
	opts.FlushEvery = d.cfg.Dict.FlushEvery
	return opts
}

// OpenSource loads the system dictionary from src and the user lexicon at
// userPath, replacing whatever was open. On failure the decoder stays
// unavailable until the next successful open.
func (d *Decoder) OpenSource(src dictionary.Source, userPath string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closeLocked()
	store, err := dictionary.Load(src, userPath, d.storeOptions())
	if err != nil {
		d.lastErr = err
		log.Errorf("Failed to open dictionary: %v", err)
		return err
	}

	d.store = store
	d.engine = search.New(store, search.Options{
		MaxCandidates: d.cfg.Engine.MaxCandidates,
		MaxPaths:      d.cfg.Engine.MaxPaths,
		PathCacheSize: d.cfg.Engine.PathCacheSize,
	})
	d.session = composition.New(d.engine, store, d.fuzzy)
	d.predictor = predict.New(store, d.cfg.Engine.HistoryWindow, d.cfg.Engine.MaxPredicts)
	d.lastErr = nil
	st := store.Stats()
	log.Debugf("Decoder open: %d system entries, %d user records", st.SystemEntries, st.UserRecords)
	return nil
}

// Open is OpenSource reporting success as a bool.
func (d *Decoder) Open(src dictionary.Source, userPath string) bool {
	return d.OpenSource(src, userPath) == nil
}

// OpenPath opens the system dictionary file at sysPath.
func (d *Decoder) OpenPath(sysPath, userPath string) bool {
	return d.Open(dictionary.PathSource(sysPath), userPath)
}

// OpenDescriptor opens length bytes at offset of the open descriptor fd.
func (d *Decoder) OpenDescriptor(fd uintptr, offset, length int64, userPath string) bool {
	return d.Open(dictionary.DescriptorSource(fd, offset, length), userPath)
}

// Close flushes the user lexicon and releases the dictionary.
func (d *Decoder) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closeLocked()
	d.lastErr = ErrQueryUnavailable
}

func (d *Decoder) closeLocked() {
	if d.store == nil {
		return
	}
	if err := d.store.Close(); err != nil {
		log.Warnf("Failed to flush user lexicon on close: %v", err)
	}
	d.store = nil
	d.engine = nil
	d.session = nil
	d.predictor = nil
}

// Status returns nil when a dictionary is open, else why not.
func (d *Decoder) Status() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.statusLocked()
}

func (d *Decoder) statusLocked() error {
	if d.session != nil {
		return nil
	}
	if d.lastErr != nil && !errors.Is(d.lastErr, ErrQueryUnavailable) {
		return fmt.Errorf("%w: %v", ErrQueryUnavailable, d.lastErr)
	}
	return ErrQueryUnavailable
}

// Search replaces the buffer with keyword and returns the candidates. A
// keyword over the byte limit is refused and leaves the composition as it was.
func (d *Decoder) Search(keyword string) ([]search.Candidate, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.statusLocked(); err != nil {
		return nil, err
	}
	if limit := d.cfg.Engine.MaxKeywordBytes; limit > 0 && len(keyword) > limit {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrKeywordTooLong, len(keyword), limit)
	}
	d.session.Search(keyword)
	return d.session.Candidates(), nil
}

// Count returns the number of candidates of the current buffer before the cap.
func (d *Decoder) Count() (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.statusLocked(); err != nil {
		return 0, err
	}
	return d.session.Total(), nil
}

// Pick commits candidate id and returns the new fixed length.
func (d *Decoder) Pick(id int) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.statusLocked(); err != nil {
		return 0, err
	}
	return d.session.Choose(id)
}

// Lookup returns candidate id of the current list.
func (d *Decoder) Lookup(id int) (search.Candidate, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.statusLocked(); err != nil {
		return search.Candidate{}, err
	}
	return d.session.Candidate(id)
}

// Candidates returns the current list.
func (d *Decoder) Candidates() ([]search.Candidate, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.statusLocked(); err != nil {
		return nil, err
	}
	return d.session.Candidates(), nil
}

// Spelling reports the decoding state of the buffer.
func (d *Decoder) Spelling() (SpellingString, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.statusLocked(); err != nil {
		return SpellingString{}, err
	}
	return d.session.Spelling(), nil
}

// Composed returns the text committed so far in this composition.
func (d *Decoder) Composed() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.statusLocked(); err != nil {
		return "", err
	}
	return d.session.Composed(), nil
}

// Predict returns the likely words after history. A miss is an empty list.
func (d *Decoder) Predict(history string) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.statusLocked(); err != nil {
		return nil, err
	}
	return d.predictor.Predict(history), nil
}

// Flush writes pending user lexicon changes.
func (d *Decoder) Flush() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.statusLocked(); err != nil {
		return err
	}
	return d.store.Flush()
}

// Stats reports the open dictionary.
func (d *Decoder) Stats() (dictionary.Stats, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.statusLocked(); err != nil {
		return dictionary.Stats{}, err
	}
	return d.store.Stats(), nil
}

// CacheStats reports the segmentation cache counters.
func (d *Decoder) CacheStats() (map[string]int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.statusLocked(); err != nil {
		return nil, err
	}
	return d.engine.CacheStats(), nil
}

// ResetSearch empties the composition.
func (d *Decoder) ResetSearch() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.session != nil {
		d.session.Reset()
	}
}

// SearchAll is Search returning the candidate texts.
func (d *Decoder) SearchAll(keyword string) []string {
	cands, err := d.Search(keyword)
	if err != nil {
		return []string{}
	}
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.Word
	}
	return out
}

// SearchAllCount searches keyword and returns the candidate count before the cap.
func (d *Decoder) SearchAllCount(keyword string) int {
	if _, err := d.Search(keyword); err != nil {
		return 0
	}
	n, _ := d.Count()
	return n
}

// Choose is Pick returning 0 on any failure.
func (d *Decoder) Choose(id int) int {
	fixed, err := d.Pick(id)
	if err != nil {
		log.Debugf("Choose %d: %v", id, err)
		return 0
	}
	return fixed
}

// GetCandidate returns the text of candidate id, or "" when there is none.
func (d *Decoder) GetCandidate(id int) string {
	c, err := d.Lookup(id)
	if err != nil {
		return ""
	}
	return c.Word
}

// GetFixedLen returns the count of committed raw runes.
func (d *Decoder) GetFixedLen() int {
	sp, err := d.Spelling()
	if err != nil {
		return 0
	}
	return sp.DecodedLen
}

// FlushCache recomputes the candidates of the uncommitted suffix.
func (d *Decoder) FlushCache() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.session != nil {
		d.session.FlushCache()
	}
}

// GetSpellingString is Spelling returning the zero value when unavailable.
func (d *Decoder) GetSpellingString() SpellingString {
	sp, _ := d.Spelling()
	return sp
}

// GetAllPredicts is Predict returning an empty list when unavailable.
func (d *Decoder) GetAllPredicts(history string) []string {
	out, err := d.Predict(history)
	if err != nil {
		return []string{}
	}
	return out
}

// EnableInitialConsonantFuzzy toggles merging of confusable initials.
func (d *Decoder) EnableInitialConsonantFuzzy(enable bool) {
	d.setFuzzy(func(fc *spelling.FuzzyConfig) { fc.Initial = enable })
}

// EnableFinalVowelFuzzy toggles merging of confusable finals.
func (d *Decoder) EnableFinalVowelFuzzy(enable bool) {
	d.setFuzzy(func(fc *spelling.FuzzyConfig) { fc.Final = enable })
}

// Fuzzy returns the current fuzzy toggles.
func (d *Decoder) Fuzzy() (initial, final bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fuzzy.Initial, d.fuzzy.Final
}

func (d *Decoder) setFuzzy(change func(*spelling.FuzzyConfig)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	change(&d.fuzzy)
	if d.session != nil {
		d.session.SetFuzzy(d.fuzzy)
	}
}
