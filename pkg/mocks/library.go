package mocks

import (
	"context"
	"sync"

	"github.com/user/videowriter/pkg/ports"
)

// MediaLibrary is a mock implementation of ports.MediaLibrary.
type MediaLibrary struct {
	SaveFunc func(ctx context.Context, path string) error

	mu    sync.Mutex
	Saved []string
}

func (m *MediaLibrary) Save(ctx context.Context, path string) error {
	if m.SaveFunc != nil {
		if err := m.SaveFunc(ctx, path); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Saved = append(m.Saved, path)
	return nil
}

// SavedPaths returns the saved paths.
func (m *MediaLibrary) SavedPaths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Saved...)
}

var _ ports.MediaLibrary = (*MediaLibrary)(nil)
