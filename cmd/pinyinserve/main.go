// Copyright 2025 The PinyinServe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package main implements the pinyin decoding server and CLI [DBG] application.

Note: This is a BETA release. APIs and functionality may rapidly change.

PinyinServe turns raw pinyin keystrokes into ranked Chinese candidates. It
segments the buffer into syllables, matches every segmentation against a
compiled system dictionary plus a learned user lexicon, and lets a host commit
candidates piece by piece. It runs as a MessagePack IPC server for input
method frontends, or as an interactive console for testing.

# Usage

Start the server with default settings:

	pinyinserve

Use a custom dictionary and enable debug mode:

	pinyinserve -dict /path/to/pinyin.dict -d

Run the console:

	pinyinserve -c -limit 10

A host that already opened the dictionary can hand over the descriptor:

	pinyinserve -fd 3 -offset 4096 -length 1048576

# Configuration

Runtime configuration lives in a TOML file created with defaults on first run:

	[engine]
	max_candidates = 80
	max_paths = 128

	[dict]
	system_path = "data/pinyin.dict"
	user_path = "user.msgpack"

	[fuzzy]
	initial = false
	final = false
	initial_pairs = ["z:zh", "c:ch", "s:sh", "n:l", "f:h", "r:l"]

Relative dictionary paths are looked up next to the executable, in the
working dir and in the config dir. The user lexicon is written to the config
dir.

# IPC Protocol

See package server. Logs go to stderr so stdout carries only msgpack frames.

# Command Line Flags

	-config string
	    Path to a config file (default [UserConfigDir]/pinyinserve/config.toml)
	-rebuild-config
	    Rewrite the default config file and exit
	-dict string
	    System dictionary (default from config)
	-user string
	    User lexicon (default from config)
	-fd int
	    Read the system dictionary from this open descriptor
	-offset, -length int
	    Byte range of the dictionary inside -fd
	-fi, -ff
	    Enable initial consonant or final vowel fuzzy matching
	-d  Enable debug mode with detailed logging
	-c  Run in CLI mode instead of server mode
	-limit int
	    Candidates shown per line in CLI mode
*/
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/bastiangx/pinyinserve/internal/cli"
	"github.com/bastiangx/pinyinserve/internal/logger"
	"github.com/bastiangx/pinyinserve/internal/utils"
	"github.com/bastiangx/pinyinserve/pkg/config"
	"github.com/bastiangx/pinyinserve/pkg/decoder"
	"github.com/bastiangx/pinyinserve/pkg/dictionary"
	"github.com/bastiangx/pinyinserve/pkg/server"
)

const (
	Version = "0.1.0-beta"
	AppName = "pinyinserve"
	gh      = "https://github.com/bastiangx/pinyinserve"
)

// sigHandler closes the decoder, which flushes the user lexicon, then exits.
func sigHandler(dec *decoder.Decoder) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		fmt.Fprintf(os.Stderr, "\nExiting...\n")
		dec.Close()
		os.Exit(0)
	}()
}

// main only manages the flow; the work lives in the decoder, server and cli packages.
func main() {
	showVersion := flag.Bool("version", false, "Show current version")
	configPath := flag.String("config", "", "Path to a custom config file")
	rebuildConfig := flag.Bool("rebuild-config", false, "Rewrite the default config file with builtin defaults and exit")
	dictPath := flag.String("dict", "", "System dictionary file (default from config)")
	userPath := flag.String("user", "", "User lexicon file (default from config)")
	fd := flag.Int("fd", -1, "Read the system dictionary from an open file descriptor")
	offset := flag.Int64("offset", 0, "Offset of the dictionary inside -fd")
	length := flag.Int64("length", 0, "Length of the dictionary inside -fd (0 for the rest)")
	fuzzyInitial := flag.Bool("fi", false, "Enable initial consonant fuzzy matching")
	fuzzyFinal := flag.Bool("ff", false, "Enable final vowel fuzzy matching")
	debugMode := flag.Bool("d", false, "Toggle debug mode")
	cliMode := flag.Bool("c", false, "Run CLI -- useful for testing and debugging")
	limit := flag.Int("limit", 0, "Candidates to show in CLI mode (default from config)")

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	logger.Setup(*debugMode)

	if *rebuildConfig {
		if err := config.RebuildConfigFile(); err != nil {
			log.Fatalf("Failed to rebuild config: %v", err)
		}
		log.Infof("Config rebuilt at %s", config.GetActiveConfigPath(""))
		os.Exit(0)
	}

	cfg, activePath, err := config.LoadConfigWithPriority(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Debugf("Using config file: (%s)", config.GetActiveConfigPath(activePath))

	configDir := ""
	if activePath != "" {
		configDir = filepath.Dir(activePath)
	} else if dir, err := config.GetConfigDir(); err == nil {
		configDir = dir
	}

	pathResolver, err := utils.NewPathResolver(configDir)
	if err != nil {
		log.Fatalf("Failed to initialize path resolver: %v", err)
	}
	if *debugMode {
		for k, v := range pathResolver.GetRuntimeInfo() {
			log.Debug("runtime", k, v)
		}
	}

	// flags override the config only when given
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "fi":
			cfg.Fuzzy.Initial = *fuzzyInitial
		case "ff":
			cfg.Fuzzy.Final = *fuzzyFinal
		case "limit":
			cfg.CLI.DefaultLimit = *limit
		}
	})

	user := cfg.Dict.UserPath
	if *userPath != "" {
		user = *userPath
	}
	user = pathResolver.UserFile(user)

	dec := decoder.New(cfg)
	sigHandler(dec)
	defer dec.Close()

	var src dictionary.Source
	if *fd >= 0 {
		src = dictionary.DescriptorSource(uintptr(*fd), *offset, *length)
	} else {
		sys := cfg.Dict.SystemPath
		if *dictPath != "" {
			sys = *dictPath
		}
		resolved, err := pathResolver.FindFile(sys)
		if err != nil {
			log.Errorf("System dictionary %s not found (looked in %s first)", sys, resolved)
			log.Print("Did you forget to compile it with pydict?")
			os.Exit(1)
		}
		src = dictionary.PathSource(resolved)
	}
	log.Debugf("Opening %s, user lexicon %s", src, user)

	if err := dec.OpenSource(src, user); err != nil {
		log.Errorf("Failed to open dictionary: %v", err)
		os.Exit(1)
	}

	if *cliMode {
		inputHandler := cli.NewInputHandler(dec, cfg.CLI, os.Stdin, os.Stdout)
		inputHandler.PersistTo(cfg, activePath)
		if err := inputHandler.Start(); err != nil {
			log.Errorf("CLI error: %v", err)
			os.Exit(1)
		}
		return
	}

	log.Debug("spawning IPC")
	srv := server.NewServer(dec, cfg.Server)
	showStartupInfo(dec, src, srv.Session())

	if err := srv.Start(); err != nil {
		log.Errorf("Server stopped: %v", err)
		dec.Close()
		os.Exit(1)
	}
}

func printVersion() {
	l := log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    false,
		ReportTimestamp: false,
	})
	styles := log.DefaultStyles()
	styles.Values["version"] = lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"}).
		Background(lipgloss.AdaptiveColor{Light: "#f2e9e1", Dark: "#26233a"})
	styles.Values["gh"] = lipgloss.NewStyle().Italic(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	l.SetStyles(styles)

	l.Print("")
	l.Print("[ PinyinServe ] Pinyin to hanzi, as you type")
	l.Print("", "version", Version)
	l.Print("")
	l.Print("use -h or --help to see available options")
	l.Print("Github Repo", "gh", gh)
}

// showStartupInfo prints to stderr; stdout belongs to the IPC stream.
func showStartupInfo(dec *decoder.Decoder, src dictionary.Source, session string) {
	banner := lipgloss.NewStyle().Bold(true).
		Border(lipgloss.NormalBorder(), true, false).
		Padding(0, 1)
	fmt.Fprintln(os.Stderr, banner.Render("PinyinServe"))

	st, _ := dec.Stats()
	initial, final := dec.Fuzzy()
	currentLevel := log.GetLevel()
	log.SetLevel(log.InfoLevel)
	log.Infof("Version: %s", Version)
	log.Infof("Process ID: [ %d ]", os.Getpid())
	log.Infof("Session: %s", session)
	log.Infof("dictionary: ( %s )", src)
	log.Info("entries", "system", utils.FormatWithCommas(st.SystemEntries),
		"user", utils.FormatWithCommas(st.UserRecords))
	log.Info("fuzzy", "initial", initial, "final", final)
	log.Info("status: ready")
	log.SetLevel(currentLevel)
}
