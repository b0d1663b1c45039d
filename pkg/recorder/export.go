package recorder

import (
	"context"
	"fmt"
)

// SaveToLibrary imports the completed file into the media library in the
// background. The outcome arrives as OnSavedToLibrary or OnError (wrapping
// ErrExportFailure), once per call. It fails immediately unless the session
// is Completed.
func (s *Session) SaveToLibrary(ctx context.Context) error {
	if st := State(s.state.Load()); st != StateCompleted {
		return fmt.Errorf("save to library while %s: %w", st, ErrInvalidState)
	}
	if s.library == nil {
		return ErrNoLibrary
	}

	go func() {
		if err := s.library.Save(ctx, s.location); err != nil {
			s.log.Error("Failed to save %s to library: %v", s.location, err)
			s.observer.OnError(fmt.Errorf("%w: %w", ErrExportFailure, err))
			return
		}
		s.log.Info("Saved %s to library", s.location)
		s.observer.OnSavedToLibrary()
	}()
	return nil
}
