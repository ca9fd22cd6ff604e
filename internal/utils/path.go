package utils

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/charmbracelet/log"
)

// PathResolver finds dictionary files relative to the binary, the working
// dir and the config dir.
type PathResolver struct {
	executablePath string
	executableDir  string
	homeDir        string
	configDir      string
}

// NewPathResolver creates a path resolver rooted at the running executable.
// configDir is searched after the executable and working dirs.
func NewPathResolver(configDir string) (*PathResolver, error) {
	execPath, err := os.Executable()
	if err != nil {
		return nil, err
	}
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		return nil, err
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Warnf("Could not determine home directory: %v", err)
		homeDir = os.TempDir()
	}

	pr := &PathResolver{
		executablePath: execPath,
		executableDir:  filepath.Dir(execPath),
		homeDir:        homeDir,
		configDir:      configDir,
	}
	log.Debugf("PathResolver initialized: exec=%s, configDir=%s", execPath, configDir)
	return pr, nil
}

// Candidates lists where a file named by p is looked for, in order.
func (pr *PathResolver) Candidates(p string) []string {
	if p == "" {
		return nil
	}
	if filepath.IsAbs(p) {
		return []string{p}
	}
	candidates := []string{filepath.Join(pr.executableDir, p)}
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, p))
	}
	if pr.configDir != "" {
		candidates = append(candidates, filepath.Join(pr.configDir, p))
	}
	base := filepath.Base(p)
	candidates = append(candidates,
		filepath.Join(pr.executableDir, "data", base),
		filepath.Join(filepath.Dir(pr.executableDir), "data", base),
	)
	if pr.configDir != "" {
		candidates = append(candidates, filepath.Join(pr.configDir, "data", base))
	}
	return candidates
}

// FindFile returns the first candidate of p that is a regular file.
// When none exists the first candidate is returned with os.ErrNotExist.
func (pr *PathResolver) FindFile(p string) (string, error) {
	candidates := pr.Candidates(p)
	for _, c := range candidates {
		if st, err := os.Stat(c); err == nil && st.Mode().IsRegular() {
			log.Debugf("Found %s at %s", p, c)
			return c, nil
		}
		log.Debugf("Candidate not found: %s", c)
	}
	if len(candidates) == 0 {
		return "", os.ErrNotExist
	}
	return candidates[0], os.ErrNotExist
}

// UserFile resolves a writable path: relative paths land in the config dir.
func (pr *PathResolver) UserFile(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	if pr.configDir != "" {
		return filepath.Join(pr.configDir, p)
	}
	return filepath.Join(pr.executableDir, p)
}

// GetRuntimeInfo returns debug information about the current runtime environment
func (pr *PathResolver) GetRuntimeInfo() map[string]string {
	cwd, _ := os.Getwd()
	info := map[string]string{
		"executable_path": pr.executablePath,
		"executable_dir":  pr.executableDir,
		"current_dir":     cwd,
		"home_dir":        pr.homeDir,
		"config_dir":      pr.configDir,
		"os":              runtime.GOOS,
		"arch":            runtime.GOARCH,
	}
	for _, envVar := range []string{"HOME", "XDG_CONFIG_HOME", "APPDATA"} {
		if value := os.Getenv(envVar); value != "" {
			info["env_"+strings.ToLower(envVar)] = value
		}
	}
	return info
}
