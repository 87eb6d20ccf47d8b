package services

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ResolveTool searches for an executable in PATH and then in common install
// locations. Services started by init systems often run with a minimal PATH.
func ResolveTool(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	if path, err := exec.LookPath(name); err == nil {
		return path
	}

	homeDir, _ := os.UserHomeDir()
	searchPaths := []string{
		"/usr/local/bin",                        // system / Homebrew (Intel)
		"/usr/bin",                              // system
		"/opt/homebrew/bin",                     // Homebrew (Apple Silicon)
		"/opt/conda/bin",                        // conda images
		filepath.Join(homeDir, ".local", "bin"), // pip user install
		filepath.Join(homeDir, "miniconda3", "bin"),
	}
	for _, dir := range searchPaths {
		fullPath := filepath.Join(dir, name)
		if _, err := os.Stat(fullPath); err == nil {
			return fullPath
		}
	}

	// Return original name as fallback
	return name
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(dir string) string {
	if !strings.HasPrefix(dir, "~") {
		return dir
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return dir
	}
	return filepath.Join(homeDir, dir[1:])
}

// OutputPath names the dubbed file for a job: <base>_dubbed_<lang>_<id8>.mp4
// inside dir, or next to the source when dir is empty.
func OutputPath(dir, sourcePath, lang, jobID string) string {
	if dir == "" {
		dir = filepath.Dir(sourcePath)
	}
	dir = ExpandHome(dir)

	base := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
	id := jobID
	if len(id) > 8 {
		id = id[:8]
	}
	return filepath.Join(dir, fmt.Sprintf("%s_dubbed_%s_%s.mp4", base, lang, id))
}
