package ports

import "context"

// MediaLibrary persists finished recordings into a shared media collection.
type MediaLibrary interface {
	// Save imports the file at path. Implementations decide how duplicates
	// are handled.
	Save(ctx context.Context, path string) error
}
