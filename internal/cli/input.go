// Package cli provides an interactive console over the decoder for debugging
// segmentation, ranking and learning in real-time.
package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/bastiangx/pinyinserve/internal/utils"
	"github.com/bastiangx/pinyinserve/pkg/config"
	"github.com/bastiangx/pinyinserve/pkg/decoder"
	"github.com/bastiangx/pinyinserve/pkg/search"
)

var (
	wordStyle = lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#286983", Dark: "#9ccfd8"})
	literalStyle = lipgloss.NewStyle().Italic(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#797593", Dark: "#908caa"})
	fixedStyle = lipgloss.NewStyle().Underline(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#d7827e", Dark: "#ea9a97"})
)

const help = `commands:
  <letters>       search the buffer
  <n> | :c <n>    choose candidate n (1-based)
  :r              reset the composition
  :s              show the spelling
  :p <text>       predict after text
  :fi on|off      initial consonant fuzzy
  :ff on|off      final vowel fuzzy
  :flush          write the user lexicon
  :save           store the fuzzy toggles in the config file
  :stats          dictionary counts
  :q              quit`

// InputHandler reads console lines and drives one decoder.
type InputHandler struct {
	dec          *decoder.Decoder
	in           io.Reader
	out          *log.Logger
	limit        int
	showSpelling bool
	requestCount int

	cfg     *config.Config
	cfgPath string
}

// NewInputHandler creates a console on in, printing to out.
func NewInputHandler(dec *decoder.Decoder, cfg config.CliConfig, in io.Reader, out io.Writer) *InputHandler {
	return &InputHandler{
		dec: dec,
		in:  in,
		out: log.NewWithOptions(out, log.Options{
			ReportTimestamp: false,
			Level:           log.GetLevel(),
		}),
		limit:        cfg.DefaultLimit,
		showSpelling: cfg.ShowSpelling,
	}
}

// PersistTo lets :save write the fuzzy toggles into cfg at path.
func (h *InputHandler) PersistTo(cfg *config.Config, path string) {
	h.cfg = cfg
	h.cfgPath = path
}

// Start begins the console loop. It returns nil on :q or end of input.
func (h *InputHandler) Start() error {
	h.out.Print("PinyinServe CLI [BETA]")
	h.out.Print("type pinyin and press Enter, :h for commands (Ctrl+C to exit)")

	scanner := bufio.NewScanner(h.in)
	for {
		h.out.Print("> ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
				return err
			}
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !h.handleInput(line) {
			return nil
		}
	}
}

// handleInput runs one console line. It returns false to quit.
func (h *InputHandler) handleInput(line string) bool {
	h.requestCount++

	if n, err := strconv.Atoi(line); err == nil {
		h.choose(n)
		return true
	}
	if !strings.HasPrefix(line, ":") {
		h.search(line)
		return true
	}

	cmd, arg, _ := strings.Cut(line[1:], " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case "q", "quit":
		return false
	case "h", "help":
		h.out.Print(help)
	case "c":
		n, err := strconv.Atoi(arg)
		if err != nil {
			h.out.Errorf("Not a candidate number: %q", arg)
			return true
		}
		h.choose(n)
	case "r":
		h.dec.ResetSearch()
		h.out.Print("reset")
	case "s":
		h.printSpelling()
	case "p":
		h.predict(arg)
	case "fi", "ff":
		on, err := parseSwitch(arg)
		if err != nil {
			h.out.Errorf("%v", err)
			return true
		}
		if cmd == "fi" {
			h.dec.EnableInitialConsonantFuzzy(on)
		} else {
			h.dec.EnableFinalVowelFuzzy(on)
		}
		initial, final := h.dec.Fuzzy()
		h.out.Print("fuzzy", "initial", initial, "final", final)
		h.printCandidates()
	case "flush":
		if err := h.dec.Flush(); err != nil {
			h.out.Errorf("Flush failed: %v", err)
			return true
		}
		h.out.Print("user lexicon written")
	case "save":
		if h.cfg == nil || h.cfgPath == "" {
			h.out.Error("No config file to save to")
			return true
		}
		initial, final := h.dec.Fuzzy()
		if err := h.cfg.SetFuzzy(h.cfgPath, &initial, &final); err != nil {
			h.out.Errorf("Save failed: %v", err)
			return true
		}
		h.out.Printf("fuzzy toggles saved to %s", h.cfgPath)
	case "stats":
		st, err := h.dec.Stats()
		if err != nil {
			h.out.Errorf("%v", err)
			return true
		}
		h.out.Printf("system: %s  user: %s  assoc: %s",
			utils.FormatWithCommas(st.SystemEntries),
			utils.FormatWithCommas(st.UserRecords),
			utils.FormatWithCommas(st.Associations))
		if cache, err := h.dec.CacheStats(); err == nil {
			h.out.Print("path cache", "entries", cache["pathCacheEntries"], "hits", cache["pathCacheHits"])
		}
	default:
		h.out.Errorf("Unknown command %q, :h for help", cmd)
	}
	return true
}

func parseSwitch(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "1", "true":
		return true, nil
	case "off", "0", "false":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}

func (h *InputHandler) search(keyword string) {
	start := time.Now()
	if _, err := h.dec.Search(keyword); err != nil {
		h.out.Errorf("Search failed: %v", err)
		return
	}
	log.Debugf("Took [ %v ] for '%s'", time.Since(start), keyword)
	h.printCandidates()
}

func (h *InputHandler) choose(n int) {
	fixed, err := h.dec.Pick(n - 1)
	if err != nil {
		h.out.Errorf("Choose %d: %v", n, err)
		return
	}
	composed, _ := h.dec.Composed()
	h.out.Printf("committed %s (fixed %d)", fixedStyle.Render(composed), fixed)
	h.printCandidates()
}

func (h *InputHandler) predict(history string) {
	if history == "" {
		history, _ = h.dec.Composed()
	}
	words, err := h.dec.Predict(history)
	if err != nil {
		h.out.Errorf("Predict failed: %v", err)
		return
	}
	if len(words) == 0 {
		h.out.Warnf("No predictions after '%s'", history)
		return
	}
	if h.limit > 0 && len(words) > h.limit {
		words = words[:h.limit]
	}
	for i, w := range words {
		h.out.Printf("%2d. %s", i+1, wordStyle.Render(w))
	}
}

func (h *InputHandler) printSpelling() {
	sp, err := h.dec.Spelling()
	if err != nil {
		h.out.Errorf("%v", err)
		return
	}
	h.out.Print("spelling", "raw", sp.Raw, "normalized", sp.Normalized, "decoded", sp.DecodedLen)
}

func (h *InputHandler) printCandidates() {
	cands, err := h.dec.Candidates()
	if err != nil {
		h.out.Errorf("%v", err)
		return
	}
	if h.showSpelling {
		h.printSpelling()
	}
	if len(cands) == 0 {
		h.out.Warn("No candidates")
		return
	}
	total, _ := h.dec.Count()
	shown := cands
	if h.limit > 0 && len(shown) > h.limit {
		shown = shown[:h.limit]
	}
	h.out.Printf("Found %d candidates:", total)
	for i, c := range shown {
		h.out.Print(formatCandidate(i+1, c))
	}
}

func formatCandidate(n int, c search.Candidate) string {
	if c.Literal {
		return fmt.Sprintf("%2d. %s", n, literalStyle.Render(c.Word))
	}
	return fmt.Sprintf("%2d. %-20s (len: %d, weight: %s)", n, wordStyle.Render(c.Word),
		c.Consumed, utils.FormatWithCommas(int(c.Entry.Weight)))
}
