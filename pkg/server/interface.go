/*
Package server implements msgpack IPC for the pinyin decoder.

The server reads a stream of msgpack requests from stdin and writes one
msgpack response per request to stdout. Messages are processed
synchronously, in order, with timing info included in responses.

# IPC

A ready frame is sent as soon as the server starts:

	{"status": "ready", "session": "5b0c..."}

Each request carries an ID, an op and the fields that op needs:

	{"id": "1", "op": "search", "k": "pinyin"}

The server responds with the ranked candidates of the buffer, the count
before the cap and the time taken in microseconds:

	{"id": "1", "status": "ok", "s": [{"w": "拼音", "n": 6}, {"w": "拼", "n": 3}], "c": 2, "t": 85}

Choosing a candidate commits it and returns the new fixed length along with
the candidates of what is left:

	{"id": "2", "op": "choose", "c": 0}
	{"id": "2", "status": "ok", "f": 6, "s": [], "c": 0}

# Ops

	search         k: keyword          replaces the buffer
	choose         c: candidate id     commits a candidate
	candidate      c: candidate id     returns one candidate
	reset                              empties the composition
	spelling                           returns {n, r, d}: normalized, raw, decoded length
	predict        h: history          next words after committed text
	fuzzy_initial  on: bool            toggles initial consonant fuzzy matching
	fuzzy_final    on: bool            toggles final vowel fuzzy matching
	flush                              writes the user lexicon
	health                             returns dictionary counts

Failed ops answer with status "error", a message in "e" and a code: 400 for a
bad request, 404 for an unknown candidate, 503 while no dictionary is open.
*/
package server

// Request is one client message.
type Request struct {
	ID        string `msgpack:"id"`
	Op        string `msgpack:"op"`
	Keyword   string `msgpack:"k,omitempty"`
	Candidate int    `msgpack:"c,omitempty"`
	History   string `msgpack:"h,omitempty"`
	On        bool   `msgpack:"on,omitempty"`
}

// Suggestion is one candidate in a response.
type Suggestion struct {
	Word     string `msgpack:"w"`
	Consumed int    `msgpack:"n"`
	Literal  bool   `msgpack:"l,omitempty"`
}

// SpellingFrame is the decoding state of the buffer.
type SpellingFrame struct {
	Normalized string `msgpack:"n"`
	Raw        string `msgpack:"r"`
	DecodedLen int    `msgpack:"d"`
}

// HealthFrame reports what is loaded.
type HealthFrame struct {
	SystemEntries int  `msgpack:"sys"`
	UserRecords   int  `msgpack:"user"`
	Associations  int  `msgpack:"assoc"`
	FuzzyInitial  bool `msgpack:"fi"`
	FuzzyFinal    bool `msgpack:"ff"`
	Requests      int  `msgpack:"req"`
	CacheEntries  int  `msgpack:"ce"`
	CacheHits     int  `msgpack:"ch"`
}

// Response answers one request.
type Response struct {
	ID          string         `msgpack:"id"`
	Status      string         `msgpack:"status"`
	Suggestions []Suggestion   `msgpack:"s,omitempty"`
	Predicts    []string       `msgpack:"p,omitempty"`
	Count       int            `msgpack:"c"`
	Fixed       int            `msgpack:"f,omitempty"`
	Spelling    *SpellingFrame `msgpack:"sp,omitempty"`
	Health      *HealthFrame   `msgpack:"hl,omitempty"`
	Error       string         `msgpack:"e,omitempty"`
	Code        int            `msgpack:"code,omitempty"`
	TimeTaken   int64          `msgpack:"t"`
}

// ReadyFrame is sent once when the server starts.
type ReadyFrame struct {
	Status  string `msgpack:"status"`
	Session string `msgpack:"session"`
}
