// Package dirlibrary provides a media library backed by a directory.
package dirlibrary

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/user/videowriter/pkg/ports"
)

// maxNameAttempts bounds the search for a free file name.
const maxNameAttempts = 1000

// Library copies recordings into a base directory.
type Library struct {
	baseDir string
	fs      ports.FileSystem
	log     ports.Logger
}

// New creates a library rooted at baseDir.
func New(baseDir string, fs ports.FileSystem, log ports.Logger) *Library {
	return &Library{
		baseDir: baseDir,
		fs:      fs,
		log:     log.WithComponent("library"),
	}
}

// Save copies the file at path into the library. Existing entries are never
// overwritten; a numeric suffix is added instead.
func (l *Library) Save(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := l.fs.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := l.fs.MkdirAll(l.baseDir); err != nil {
		return fmt.Errorf("create library dir: %w", err)
	}

	dst, err := l.freeName(filepath.Base(path))
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := l.fs.WriteFile(dst, data); err != nil {
		return fmt.Errorf("write %s: %w", dst, err)
	}
	l.log.Debug("Copied %s to %s", path, dst)
	return nil
}

func (l *Library) freeName(name string) (string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 0; i < maxNameAttempts; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s-%d%s", stem, i, ext)
		}
		dst := filepath.Join(l.baseDir, candidate)
		exists, err := l.fs.Exists(dst)
		if err != nil {
			return "", fmt.Errorf("stat %s: %w", dst, err)
		}
		if !exists {
			return dst, nil
		}
	}
	return "", fmt.Errorf("no free name for %s in %s", name, l.baseDir)
}

var _ ports.MediaLibrary = (*Library)(nil)
