package publish

import (
	"context"
	"io"
)

// Store receives published files.
type Store interface {
	// Put writes r under key, replacing any existing object, and returns the
	// location it was written to.
	Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
}
