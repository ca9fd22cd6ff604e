// Package composition holds the state of one active input: the raw buffer,
// the prefix already committed by choices, and the candidates for the rest.
package composition

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/bastiangx/pinyinserve/pkg/dictionary"
	"github.com/bastiangx/pinyinserve/pkg/search"
	"github.com/bastiangx/pinyinserve/pkg/spelling"
)

// ErrInvalidCandidate is returned for an id outside the current candidate list.
var ErrInvalidCandidate = errors.New("invalid candidate id")

// State is the coarse phase of a session.
type State int

const (
	Empty State = iota
	Composing
	Committed
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Composing:
		return "composing"
	case Committed:
		return "committed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Learner receives what the user picked.
type Learner interface {
	RecordUsage(e dictionary.Entry) error
	RecordAssociation(history, next string) error
}

// Spelling describes the buffer being decoded.
type Spelling struct {
	Normalized string
	Raw        string
	DecodedLen int
}

// Session is one composition. It is not safe for concurrent use.
type Session struct {
	engine  *search.Engine
	learner Learner
	fuzzy   spelling.FuzzyConfig

	raw    []rune
	fixed  int
	chosen []search.Candidate
	result search.Result
}

// New returns an empty session.
func New(engine *search.Engine, learner Learner, fuzzy spelling.FuzzyConfig) *Session {
	return &Session{engine: engine, learner: learner, fuzzy: fuzzy}
}

// Search replaces the buffer with keyword and computes fresh candidates.
func (s *Session) Search(keyword string) {
	s.raw = []rune(keyword)
	s.fixed = 0
	s.chosen = nil
	s.refresh()
}

func (s *Session) refresh() {
	if s.fixed >= len(s.raw) {
		s.result = search.Result{}
		return
	}
	s.result = s.engine.Search(s.raw[s.fixed:], s.fuzzy)
}

// Choose commits candidate id and returns the new fixed length. On an unknown
// id the session is left as it was.
func (s *Session) Choose(id int) (int, error) {
	c, err := s.Candidate(id)
	if err != nil {
		return 0, err
	}
	if !c.Literal {
		if err := s.learner.RecordUsage(c.Entry); err != nil {
			log.Warnf("Failed to record usage of %q: %v", c.Word, err)
		}
	}
	s.chosen = append(s.chosen, c)
	s.fixed += c.Consumed
	if s.fixed > len(s.raw) {
		s.fixed = len(s.raw)
	}
	if s.fixed == len(s.raw) {
		s.learn()
	}
	s.refresh()
	return s.fixed, nil
}

// learn records a composition committed in several picks as one phrase, and
// each consecutive pair as an association.
func (s *Session) learn() {
	if len(s.chosen) < 2 {
		return
	}
	for i := 1; i < len(s.chosen); i++ {
		if err := s.learner.RecordAssociation(s.chosen[i-1].Word, s.chosen[i].Word); err != nil {
			log.Warnf("Failed to record association: %v", err)
		}
	}

	var word strings.Builder
	var ids []spelling.ID
	weight := ^uint32(0)
	for _, c := range s.chosen {
		if c.Literal {
			return
		}
		word.WriteString(c.Word)
		ids = append(ids, c.Entry.Spelling...)
		if c.Entry.Weight < weight {
			weight = c.Entry.Weight
		}
	}
	phrase := dictionary.NewEntry(word.String(), ids, weight)
	if err := s.learner.RecordUsage(phrase); err != nil {
		log.Warnf("Failed to learn phrase %q: %v", phrase.Word, err)
		return
	}
	log.Debugf("Learned phrase %q (%s)", phrase.Word, spelling.Join(ids))
}

// Reset discards the buffer, the choices and the candidates.
func (s *Session) Reset() {
	s.raw = nil
	s.fixed = 0
	s.chosen = nil
	s.result = search.Result{}
}

// State reports the phase of the session.
func (s *Session) State() State {
	switch {
	case len(s.raw) == 0:
		return Empty
	case s.fixed == len(s.raw):
		return Committed
	default:
		return Composing
	}
}

// Spelling reports the raw buffer, its normalized form and the fixed length.
// The normalized form spells the committed words followed by the best reading
// of the rest.
func (s *Session) Spelling() Spelling {
	parts := make([]string, 0, len(s.chosen)+1)
	for _, c := range s.chosen {
		if c.Literal {
			parts = append(parts, c.Word)
		} else {
			parts = append(parts, spelling.Join(c.Entry.Spelling))
		}
	}
	if s.result.Spelling != "" {
		parts = append(parts, s.result.Spelling)
	}
	return Spelling{
		Normalized: strings.Join(parts, string(spelling.Separator)),
		Raw:        string(s.raw),
		DecodedLen: s.fixed,
	}
}

// FixedLen is the count of raw runes committed by choices.
func (s *Session) FixedLen() int {
	return s.fixed
}

// Composed is the text of the committed choices.
func (s *Session) Composed() string {
	var b strings.Builder
	for _, c := range s.chosen {
		b.WriteString(c.Word)
	}
	return b.String()
}

// FlushCache recomputes the candidates of the uncommitted suffix.
func (s *Session) FlushCache() {
	s.refresh()
}

// SetFuzzy changes the fuzzy configuration and recomputes the candidates.
// Choices already made stay.
func (s *Session) SetFuzzy(fc spelling.FuzzyConfig) {
	s.fuzzy = fc
	s.refresh()
}

// Fuzzy returns the current fuzzy configuration.
func (s *Session) Fuzzy() spelling.FuzzyConfig {
	return s.fuzzy
}

// Candidate returns candidate id of the current list.
func (s *Session) Candidate(id int) (search.Candidate, error) {
	if id < 0 || id >= len(s.result.Candidates) {
		return search.Candidate{}, fmt.Errorf("%w: %d of %d", ErrInvalidCandidate, id, len(s.result.Candidates))
	}
	return s.result.Candidates[id], nil
}

// Candidates returns the current list. The slice must not be modified.
func (s *Session) Candidates() []search.Candidate {
	return s.result.Candidates
}

// Total is the number of candidates before the cap.
func (s *Session) Total() int {
	return s.result.Total
}
