/*
Package config manages TOML config for pinyinserve.
*/
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/bastiangx/pinyinserve/internal/utils"
	"github.com/bastiangx/pinyinserve/pkg/spelling"
)

// Config holds the entire config structure
type Config struct {
	Engine EngineConfig `toml:"engine"`
	Dict   DictConfig   `toml:"dict"`
	Fuzzy  FuzzyConfig  `toml:"fuzzy"`
	Server ServerConfig `toml:"server"`
	CLI    CliConfig    `toml:"cli"`
}

// EngineConfig bounds the decoding work.
type EngineConfig struct {
	MaxCandidates int `toml:"max_candidates"`
	MaxPaths      int `toml:"max_paths"`
	MaxPredicts   int `toml:"max_predicts"`
	HistoryWindow int `toml:"history_window"`
	PathCacheSize int `toml:"path_cache_size"`
	// MaxKeywordBytes rejects longer search buffers. Zero disables the check.
	MaxKeywordBytes int `toml:"max_keyword_bytes"`
}

// DictConfig holds dictionary options.
type DictConfig struct {
	SystemPath             string `toml:"system_path"`
	UserPath               string `toml:"user_path"`
	MaxWordCountValidation int    `toml:"max_word_count_validation"`
	UsageBoost             int    `toml:"usage_boost"`
	FlushEvery             int    `toml:"flush_every"`
}

// FuzzyConfig holds the fuzzy toggles and the "a:b" pair tables.
type FuzzyConfig struct {
	Initial      bool     `toml:"initial"`
	Final        bool     `toml:"final"`
	InitialPairs []string `toml:"initial_pairs"`
	FinalPairs   []string `toml:"final_pairs"`
}

// ServerConfig has server related options.
type ServerConfig struct {
	MaxKeywordLen int  `toml:"max_keyword_len"`
	LogRequests   bool `toml:"log_requests"`
}

// CliConfig holds cli interface options.
type CliConfig struct {
	DefaultLimit int  `toml:"default_limit"`
	ShowSpelling bool `toml:"show_spelling"`
}

// GetConfigDir returns the config directory with fallback priority:
// 1. ~/.config/
// 2. ~/Library/Application Support/ (macOS)
// 3. Current executable dir
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Errorf("Failed to get home directory: %v", err)
		return utils.GetExecutableDir()
	}
	primaryPath := filepath.Join(homeDir, ".config", "pinyinserve")
	if result := utils.CheckDirStatus(primaryPath); result.Writable {
		return primaryPath, nil
	}
	macOSPath := filepath.Join(homeDir, "Library", "Application Support", "pinyinserve")
	if result := utils.CheckDirStatus(macOSPath); result.Writable {
		return macOSPath, nil
	}
	execDir, err := utils.GetExecutableDir()
	if err != nil {
		log.Errorf("Failed to get executable directory: %v", err)
		return "", err
	}
	return execDir, nil
}

// GetDefaultConfigPath returns the default path for config.toml
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}

// LoadConfigWithPriority loads config with priority:
// 1. Custom path from --config flag
// 2. Default path: [UserConfigDir]/pinyinserve/config.toml
// 3. Builtin defaults
func LoadConfigWithPriority(customConfigPath string) (*Config, string, error) {
	if customConfigPath != "" {
		if _, statErr := os.Stat(customConfigPath); statErr == nil {
			config, err := LoadConfig(customConfigPath)
			if err != nil {
				log.Warnf("Failed to load custom config from %s: %v. Trying default path...", customConfigPath, err)
			} else {
				log.Debugf("Loaded config from custom path: %s", customConfigPath)
				return config, customConfigPath, nil
			}
		} else {
			log.Warnf("Custom config file not found at %s: %v. Trying default path...", customConfigPath, statErr)
		}
	}
	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		log.Warnf("Failed to determine default config path: %v. Using built-in defaults...", err)
		return DefaultConfig(), "", nil
	}

	config, err := InitConfig(defaultPath)
	if err != nil {
		log.Warnf("Failed to load/create config at default path %s: %v. Using builtin defaults...", defaultPath, err)
		return DefaultConfig(), "", nil
	}
	log.Debugf("Loaded config from default path: %s", defaultPath)
	return config, defaultPath, nil
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			MaxCandidates:   80,
			MaxPaths:        spelling.DefaultMaxPaths,
			MaxPredicts:     64,
			HistoryWindow:   4,
			PathCacheSize:   64,
			MaxKeywordBytes: 255,
		},
		Dict: DictConfig{
			SystemPath:             "data/pinyin.dict",
			UserPath:               "user.msgpack",
			MaxWordCountValidation: 320000,
			UsageBoost:             1000,
			FlushEvery:             16,
		},
		Fuzzy: FuzzyConfig{
			InitialPairs: append([]string(nil), spelling.DefaultInitialPairs...),
			FinalPairs:   append([]string(nil), spelling.DefaultFinalPairs...),
		},
		Server: ServerConfig{
			MaxKeywordLen: 64,
		},
		CLI: CliConfig{
			DefaultLimit: 10,
			ShowSpelling: true,
		},
	}
}

// SpellingFuzzy builds the fuzzy configuration the segmenter works with.
func (c *Config) SpellingFuzzy() (spelling.FuzzyConfig, error) {
	initial, err := spelling.ParsePairs(c.Fuzzy.InitialPairs)
	if err != nil {
		return spelling.FuzzyConfig{}, fmt.Errorf("fuzzy.initial_pairs: %w", err)
	}
	final, err := spelling.ParsePairs(c.Fuzzy.FinalPairs)
	if err != nil {
		return spelling.FuzzyConfig{}, fmt.Errorf("fuzzy.final_pairs: %w", err)
	}
	return spelling.FuzzyConfig{
		Initial:      c.Fuzzy.Initial,
		Final:        c.Fuzzy.Final,
		InitialPairs: initial,
		FinalPairs:   final,
	}, nil
}

// InitConfig loads config from file or creates default if missing
func InitConfig(configPath string) (*Config, error) {
	configDir := filepath.Dir(configPath)

	if err := utils.EnsureDir(configDir); err != nil {
		log.Warnf("Failed to create config directory %s: %v. Using built-in defaults...", configDir, err)
		return DefaultConfig(), nil
	}

	if !utils.FileExists(configPath) {
		config := DefaultConfig()
		if err := SaveConfig(config, configPath); err != nil {
			log.Warnf("Failed to create default config file at %s: %v. Using built-in defaults...", configPath, err)
			return DefaultConfig(), nil
		}
		log.Debugf("Created default config file at: %s", configPath)
		return config, nil
	}

	config, err := LoadConfig(configPath)
	if err != nil {
		log.Warnf("Failed to load config from %s: %v. Using built-in defaults...", configPath, err)
		return DefaultConfig(), nil
	}
	return config, nil
}

// LoadConfig loads from a TOML file
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	if err := utils.LoadTOMLFile(configPath, config); err != nil {
		return tryPartialParse(configPath)
	}
	return config, nil
}

// tryPartialParse keeps every section that still decodes
func tryPartialParse(configPath string) (*Config, error) {
	config := DefaultConfig()

	tempConfig, err := utils.ParseTOMLWithRecovery(configPath)
	if err != nil {
		log.Warnf("Could not parse any valid configuration from %s: %v. Using all defaults.", configPath, err)
		return config, nil
	}

	if section, ok := utils.ExtractSection(tempConfig, "engine"); ok {
		extractEngineConfig(section, &config.Engine)
	}
	if section, ok := utils.ExtractSection(tempConfig, "dict"); ok {
		extractDictConfig(section, &config.Dict)
	}
	if section, ok := utils.ExtractSection(tempConfig, "fuzzy"); ok {
		extractFuzzyConfig(section, &config.Fuzzy)
	}
	if section, ok := utils.ExtractSection(tempConfig, "server"); ok {
		extractServerConfig(section, &config.Server)
	}
	if section, ok := utils.ExtractSection(tempConfig, "cli"); ok {
		extractCliConfig(section, &config.CLI)
	}
	return config, nil
}

func extractEngineConfig(data map[string]any, engine *EngineConfig) {
	if val, ok := utils.ExtractInt64(data, "max_candidates"); ok {
		engine.MaxCandidates = val
	}
	if val, ok := utils.ExtractInt64(data, "max_paths"); ok {
		engine.MaxPaths = val
	}
	if val, ok := utils.ExtractInt64(data, "max_predicts"); ok {
		engine.MaxPredicts = val
	}
	if val, ok := utils.ExtractInt64(data, "history_window"); ok {
		engine.HistoryWindow = val
	}
	if val, ok := utils.ExtractInt64(data, "path_cache_size"); ok {
		engine.PathCacheSize = val
	}
	if val, ok := utils.ExtractInt64(data, "max_keyword_bytes"); ok {
		engine.MaxKeywordBytes = val
	}
}

func extractDictConfig(data map[string]any, dict *DictConfig) {
	if val, ok := utils.ExtractString(data, "system_path"); ok {
		dict.SystemPath = val
	}
	if val, ok := utils.ExtractString(data, "user_path"); ok {
		dict.UserPath = val
	}
	if val, ok := utils.ExtractInt64(data, "max_word_count_validation"); ok {
		dict.MaxWordCountValidation = val
	}
	if val, ok := utils.ExtractInt64(data, "usage_boost"); ok {
		dict.UsageBoost = val
	}
	if val, ok := utils.ExtractInt64(data, "flush_every"); ok {
		dict.FlushEvery = val
	}
}

func extractFuzzyConfig(data map[string]any, fuzzy *FuzzyConfig) {
	if val, ok := utils.ExtractBool(data, "initial"); ok {
		fuzzy.Initial = val
	}
	if val, ok := utils.ExtractBool(data, "final"); ok {
		fuzzy.Final = val
	}
	if val, ok := utils.ExtractStrings(data, "initial_pairs"); ok {
		fuzzy.InitialPairs = val
	}
	if val, ok := utils.ExtractStrings(data, "final_pairs"); ok {
		fuzzy.FinalPairs = val
	}
}

func extractServerConfig(data map[string]any, server *ServerConfig) {
	if val, ok := utils.ExtractInt64(data, "max_keyword_len"); ok {
		server.MaxKeywordLen = val
	}
	if val, ok := utils.ExtractBool(data, "log_requests"); ok {
		server.LogRequests = val
	}
}

func extractCliConfig(data map[string]any, cli *CliConfig) {
	if val, ok := utils.ExtractInt64(data, "default_limit"); ok {
		cli.DefaultLimit = val
	}
	if val, ok := utils.ExtractBool(data, "show_spelling"); ok {
		cli.ShowSpelling = val
	}
}

// RebuildConfigFile force creates a new config.toml at default
func RebuildConfigFile() error {
	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		return err
	}
	configDir := filepath.Dir(defaultPath)
	if err := utils.EnsureDir(configDir); err != nil {
		return err
	}
	return utils.SaveTOMLFile(DefaultConfig(), defaultPath)
}

// GetActiveConfigPath returns the absolute path of loaded config file
func GetActiveConfigPath(configPath string) string {
	if configPath == "" {
		if defaultPath, err := GetDefaultConfigPath(); err == nil {
			return defaultPath
		}
		return "unknown"
	}
	return utils.GetAbsolutePath(configPath)
}

// SaveConfig saves into a TOML file
func SaveConfig(config *Config, configPath string) error {
	return utils.SaveTOMLFile(config, configPath)
}

// SetFuzzy changes the fuzzy toggles and saves to file
func (c *Config) SetFuzzy(configPath string, initial, final *bool) error {
	if initial != nil {
		c.Fuzzy.Initial = *initial
	}
	if final != nil {
		c.Fuzzy.Final = *final
	}
	return SaveConfig(c, configPath)
}
