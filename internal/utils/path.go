package utils

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/charmbracelet/log"
)

// PathResolver finds the artifact directory when the binary is started from
// somewhere other than the repository root.
type PathResolver struct {
	executableDir string
	configDir     string
	required      []string
}

// NewPathResolver creates a resolver that accepts a directory only when every
// file in required is present in it.
func NewPathResolver(required ...string) (*PathResolver, error) {
	execDir, err := GetExecutableDir()
	if err != nil {
		return nil, err
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Warnf("Could not determine home directory: %v", err)
		homeDir = os.TempDir()
	}
	pr := &PathResolver{
		executableDir: execDir,
		configDir:     platformConfigDir(homeDir),
		required:      required,
	}
	log.Debugf("PathResolver initialized: execDir=%s, configDir=%s", execDir, pr.configDir)
	return pr, nil
}

// platformConfigDir returns the appropriate config directory for the platform
func platformConfigDir(homeDir string) string {
	switch runtime.GOOS {
	case "linux":
		if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
			return filepath.Join(configHome, "symptoserve")
		}
		return filepath.Join(homeDir, ".config", "symptoserve")
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "symptoserve")
		}
		return filepath.Join(homeDir, "AppData", "Roaming", "symptoserve")
	default:
		return filepath.Join(homeDir, ".config", "symptoserve")
	}
}

// GetDataDir resolves the directory holding the artifacts.
// It tries multiple locations in order of preference:
// 1. User-specified path (absolute, or relative to the working directory)
// 2. Relative to executable directory
// 3. data/ next to or above the executable, then under the config dir
// When nothing qualifies the first candidate is returned so the caller's
// load error names the path the user asked for.
func (pr *PathResolver) GetDataDir(userSpecifiedPath string) string {
	candidates := pr.Candidates(userSpecifiedPath)
	for _, path := range candidates {
		if pr.IsValidDataDir(path) {
			log.Debugf("Found valid data directory: %s", path)
			return path
		}
		log.Debugf("Data directory candidate not valid: %s", path)
	}
	return candidates[0]
}

// Candidates lists the directories GetDataDir tries, in order.
func (pr *PathResolver) Candidates(userSpecifiedPath string) []string {
	var candidates []string
	if userSpecifiedPath != "" {
		if filepath.IsAbs(userSpecifiedPath) {
			candidates = append(candidates, userSpecifiedPath)
		} else {
			if cwd, err := os.Getwd(); err == nil {
				candidates = append(candidates, filepath.Join(cwd, userSpecifiedPath))
			}
			candidates = append(candidates, filepath.Join(pr.executableDir, userSpecifiedPath))
		}
	}
	return append(candidates,
		filepath.Join(pr.executableDir, "data"),
		filepath.Join(filepath.Dir(pr.executableDir), "data"),
		filepath.Join(pr.configDir, "data"),
	)
}

// IsValidDataDir checks that path is a directory holding every required file.
func (pr *PathResolver) IsValidDataDir(path string) bool {
	if stat, err := os.Stat(path); err != nil || !stat.IsDir() {
		return false
	}
	for _, name := range pr.required {
		if !FileExists(filepath.Join(path, name)) {
			return false
		}
	}
	return true
}

// GetConfigDir returns the config directory
func (pr *PathResolver) GetConfigDir() string {
	return pr.configDir
}
