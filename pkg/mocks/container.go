package mocks

import (
	"sync"

	"github.com/user/videowriter/pkg/ports"
)

// ContainerWriter is a mock implementation of ports.ContainerWriter that
// records every call.
type ContainerWriter struct {
	OpenFunc       func(path string, cfg ports.ContainerConfig) error
	WriteVideoFunc func(s ports.VideoSample) error
	WriteAudioFunc func(s ports.AudioSample) error
	FinalizeFunc   func() error

	mu        sync.Mutex
	Path      string
	Config    ports.ContainerConfig
	Video     []ports.VideoSample
	Audio     []ports.AudioSample
	Finalized bool
	Aborted   bool
}

func (m *ContainerWriter) Open(path string, cfg ports.ContainerConfig) error {
	if m.OpenFunc != nil {
		if err := m.OpenFunc(path, cfg); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Path, m.Config = path, cfg
	return nil
}

func (m *ContainerWriter) WriteVideo(s ports.VideoSample) error {
	if m.WriteVideoFunc != nil {
		if err := m.WriteVideoFunc(s); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Video = append(m.Video, s)
	return nil
}

func (m *ContainerWriter) WriteAudio(s ports.AudioSample) error {
	if m.WriteAudioFunc != nil {
		if err := m.WriteAudioFunc(s); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Audio = append(m.Audio, s)
	return nil
}

func (m *ContainerWriter) Finalize() error {
	if m.FinalizeFunc != nil {
		if err := m.FinalizeFunc(); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Finalized = true
	return nil
}

func (m *ContainerWriter) Abort() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Aborted = true
	return nil
}

// Snapshot returns copies of the recorded samples.
func (m *ContainerWriter) Snapshot() (video []ports.VideoSample, audio []ports.AudioSample) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append(video, m.Video...), append(audio, m.Audio...)
}

// State reports whether Finalize and Abort were called.
func (m *ContainerWriter) State() (finalized, aborted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Finalized, m.Aborted
}

var _ ports.ContainerWriter = (*ContainerWriter)(nil)
