package h264encoder

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
)

var (
	pathMu       sync.RWMutex
	overridePath string
)

// installDirs lists package-manager install locations tried after PATH.
var installDirs = map[string][]string{
	"windows": {`C:\ffmpeg\bin`, `C:\Program Files\ffmpeg\bin`, `C:\Program Files (x86)\ffmpeg\bin`},
	"darwin":  {"/opt/homebrew/bin", "/usr/local/bin", "/usr/bin"},
	"linux":   {"/usr/bin", "/usr/local/bin", "/snap/bin"},
}

// SetFFmpegPath overrides ffmpeg discovery. An empty path restores it.
func SetFFmpegPath(path string) {
	pathMu.Lock()
	defer pathMu.Unlock()
	overridePath = path
}

// IsFFmpegAvailable reports whether FindFFmpeg would succeed.
func IsFFmpegAvailable() bool {
	_, err := FindFFmpeg()
	return err == nil
}

// FindFFmpeg resolves the ffmpeg binary. An explicit override or FFMPEG_PATH
// must exist; otherwise PATH is searched, then the platform install dirs.
func FindFFmpeg() (string, error) {
	pathMu.RLock()
	override := overridePath
	pathMu.RUnlock()

	if override != "" {
		return requireFile(override, "override")
	}
	if env := os.Getenv("FFMPEG_PATH"); env != "" {
		return requireFile(env, "FFMPEG_PATH")
	}

	name := "ffmpeg"
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	if path, err := exec.LookPath(name); err == nil {
		return path, nil
	}
	for _, dir := range installDirs[runtime.GOOS] {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", ErrFFmpegNotFound
}

func requireFile(path, source string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: %s %s", ErrFFmpegNotFound, source, path)
	}
	return path, nil
}
