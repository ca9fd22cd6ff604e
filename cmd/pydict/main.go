// Copyright 2025 The PinyinServe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Command pydict compiles text lexicons and association lists into the
// binary system dictionary read by pinyinserve.
//
//	pydict -o data/pinyin.dict words.txt phrases.txt next.assoc
//
// Lexicon lines are "word [spelling] [weight]"; a missing spelling is derived
// from the hanzi. Association lines are "history next [weight]". Files are
// told apart by their extension, .assoc for associations.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/bastiangx/pinyinserve/internal/logger"
	"github.com/bastiangx/pinyinserve/internal/utils"
	"github.com/bastiangx/pinyinserve/pkg/dictionary"
)

var okStyle = lipgloss.NewStyle().Bold(true).
	Foreground(lipgloss.AdaptiveColor{Light: "#286983", Dark: "#9ccfd8"})

func main() {
	out := flag.String("o", "data/pinyin.dict", "Output dictionary")
	debugMode := flag.Bool("d", false, "Toggle debug mode")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: pydict [-o out.dict] [-d] file.txt|file.assoc ...\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	logger.Setup(*debugMode)

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	b, err := compileAll(flag.Args())
	if err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}

	size, err := writeAtomic(*out, b)
	if err != nil {
		log.Errorf("Failed to write %s: %v", *out, err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "%s %s: %s entries, %s bytes\n", okStyle.Render("wrote"), *out,
		utils.FormatWithCommas(b.Len()), utils.FormatWithCommas(int(size)))
}

// compileAll parses every input on its own builder, then merges them in
// argument order.
func compileAll(paths []string) (*dictionary.Builder, error) {
	parts := make([]*dictionary.Builder, len(paths))
	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for i, path := range paths {
		g.Go(func() error {
			b := dictionary.NewBuilder()
			n, err := compile(b, path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			log.Infof("%s: %s lines", path, utils.FormatWithCommas(n))
			parts[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := dictionary.NewBuilder()
	for _, p := range parts {
		out.Merge(p)
	}
	return out, nil
}

func compile(b *dictionary.Builder, path string) (int, error) {
	format, err := dictionary.DetectFileFormat(path)
	if err != nil {
		return 0, err
	}
	if info, ok := dictionary.GetFormatInfo(format); ok {
		log.Debugf("%s detected as %s %v", path, info.Description, info.Extensions)
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	switch format {
	case dictionary.FormatLexicon:
		return dictionary.ParseLexicon(f, b)
	case dictionary.FormatAssociations:
		return dictionary.ParseAssociations(f, b)
	case dictionary.FormatBinary:
		return 0, fmt.Errorf("already a compiled dictionary")
	default:
		return 0, fmt.Errorf("unsupported format %s", format)
	}
}

func writeAtomic(path string, w io.WriterTo) (int64, error) {
	var n int64
	err := utils.WriteFileAtomic(path, func(out io.Writer) error {
		var err error
		n, err = w.WriteTo(out)
		return err
	})
	return n, err
}
