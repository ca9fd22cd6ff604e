package server

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/bastiangx/pinyinserve/pkg/config"
	"github.com/bastiangx/pinyinserve/pkg/decoder"
	"github.com/bastiangx/pinyinserve/pkg/search"
)

// Server handles the IPC for one decoder
type Server struct {
	dec      *decoder.Decoder
	cfg      config.ServerConfig
	session  string
	reader   *msgpack.Decoder
	out      *bufio.Writer
	writer   *msgpack.Encoder
	requests int
}

// NewServer creates a server using stdin/stdout for IPC
func NewServer(dec *decoder.Decoder, cfg config.ServerConfig) *Server {
	return NewServerWithIO(dec, cfg, os.Stdin, os.Stdout)
}

// NewServerWithIO creates a server on the given streams
func NewServerWithIO(dec *decoder.Decoder, cfg config.ServerConfig, r io.Reader, w io.Writer) *Server {
	out := bufio.NewWriter(w)
	return &Server{
		dec:     dec,
		cfg:     cfg,
		session: uuid.NewString(),
		reader:  msgpack.NewDecoder(bufio.NewReader(r)),
		out:     out,
		writer:  msgpack.NewEncoder(out),
	}
}

// Session is the id announced in the ready frame
func (s *Server) Session() string {
	return s.session
}

// Start sends the ready frame and serves requests until the input ends
func (s *Server) Start() error {
	log.Debugf("Starting server, session %s", s.session)

	if err := s.send(ReadyFrame{Status: "ready", Session: s.session}); err != nil {
		return err
	}

	for {
		var req Request
		if err := s.reader.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				log.Debug("Client closed input")
				return nil
			}
			log.Errorf("Decoding request: %v", err)
			// the stream cannot be resynchronized after a bad frame
			err = fmt.Errorf("failed to decode request: %w", err)
			if sendErr := s.send(Response{Status: "error", Error: "invalid msgpack request", Code: 400}); sendErr != nil {
				err = errors.Join(err, sendErr)
			}
			return err
		}
		s.requests++
		if s.cfg.LogRequests {
			log.Infof("Request %s: %s", req.ID, req.Op)
		}
		if err := s.send(s.handle(req)); err != nil {
			return err
		}
	}
}

func (s *Server) send(v any) error {
	if err := s.writer.Encode(v); err != nil {
		log.Errorf("Encoding response: %v", err)
		return err
	}
	return s.out.Flush()
}

func errorResponse(id string, err error) Response {
	code := 500
	switch {
	case errors.Is(err, decoder.ErrQueryUnavailable):
		code = 503
	case errors.Is(err, decoder.ErrInvalidCandidate):
		code = 404
	case errors.Is(err, errBadRequest), errors.Is(err, decoder.ErrKeywordTooLong):
		code = 400
	}
	return Response{ID: id, Status: "error", Error: err.Error(), Code: code}
}

var errBadRequest = errors.New("bad request")

// handle runs one request against the decoder
func (s *Server) handle(req Request) Response {
	start := time.Now()
	resp, err := s.dispatch(req)
	if err != nil {
		resp = errorResponse(req.ID, err)
		log.Debugf("Request %s (%s) failed: %v", req.ID, req.Op, err)
	} else {
		resp.ID = req.ID
		resp.Status = "ok"
	}
	resp.TimeTaken = time.Since(start).Microseconds()
	return resp
}

func (s *Server) dispatch(req Request) (Response, error) {
	switch req.Op {
	case "search":
		if req.Keyword == "" {
			return Response{}, fmt.Errorf("%w: missing 'k' parameter", errBadRequest)
		}
		if limit := s.cfg.MaxKeywordLen; limit > 0 && utf8.RuneCountInString(req.Keyword) > limit {
			return Response{}, fmt.Errorf("%w: keyword exceeds maximum length of %d", errBadRequest, limit)
		}
		cands, err := s.dec.Search(req.Keyword)
		if err != nil {
			return Response{}, err
		}
		return s.listResponse(cands)
	case "choose":
		fixed, err := s.dec.Pick(req.Candidate)
		if err != nil {
			return Response{}, err
		}
		cands, err := s.dec.Candidates()
		if err != nil {
			return Response{}, err
		}
		resp, err := s.listResponse(cands)
		resp.Fixed = fixed
		return resp, err
	case "candidate":
		c, err := s.dec.Lookup(req.Candidate)
		if err != nil {
			return Response{}, err
		}
		return Response{Suggestions: toSuggestions([]search.Candidate{c}), Count: 1}, nil
	case "reset":
		s.dec.ResetSearch()
		return Response{}, nil
	case "spelling":
		sp, err := s.dec.Spelling()
		if err != nil {
			return Response{}, err
		}
		return Response{
			Spelling: &SpellingFrame{Normalized: sp.Normalized, Raw: sp.Raw, DecodedLen: sp.DecodedLen},
			Fixed:    sp.DecodedLen,
		}, nil
	case "predict":
		words, err := s.dec.Predict(req.History)
		if err != nil {
			return Response{}, err
		}
		return Response{Predicts: words, Count: len(words)}, nil
	case "fuzzy_initial":
		s.dec.EnableInitialConsonantFuzzy(req.On)
		return Response{}, nil
	case "fuzzy_final":
		s.dec.EnableFinalVowelFuzzy(req.On)
		return Response{}, nil
	case "flush":
		return Response{}, s.dec.Flush()
	case "health":
		st, err := s.dec.Stats()
		if err != nil {
			return Response{}, err
		}
		cache, err := s.dec.CacheStats()
		if err != nil {
			return Response{}, err
		}
		fi, ff := s.dec.Fuzzy()
		return Response{Health: &HealthFrame{
			SystemEntries: st.SystemEntries,
			UserRecords:   st.UserRecords,
			Associations:  st.Associations,
			FuzzyInitial:  fi,
			FuzzyFinal:    ff,
			Requests:      s.requests,
			CacheEntries:  cache["pathCacheEntries"],
			CacheHits:     cache["pathCacheHits"],
		}}, nil
	default:
		return Response{}, fmt.Errorf("%w: unknown op %q", errBadRequest, req.Op)
	}
}

func (s *Server) listResponse(cands []search.Candidate) (Response, error) {
	total, err := s.dec.Count()
	if err != nil {
		return Response{}, err
	}
	return Response{Suggestions: toSuggestions(cands), Count: total}, nil
}

func toSuggestions(cands []search.Candidate) []Suggestion {
	out := make([]Suggestion, len(cands))
	for i, c := range cands {
		out[i] = Suggestion{Word: c.Word, Consumed: c.Consumed, Literal: c.Literal}
	}
	return out
}
