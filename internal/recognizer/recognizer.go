package recognizer

import (
	"context"

	"rollcall/internal/vision"
)

// Match is a candidate identity for a face crop. Distance is the cosine
// distance between the crop's embedding and the closest gallery vector;
// callers apply their own acceptance threshold.
type Match struct {
	PersonID string
	Distance float64
}

// Recognizer resolves a face crop to a candidate identity. Implementations
// must honor the context deadline; the capture pipeline treats a deadline
// overrun as a transient failure, never as evidence about identity.
type Recognizer interface {
	Identify(ctx context.Context, crop vision.Crop) (Match, error)
}

// Embedder extracts a face embedding vector from a crop.
type Embedder interface {
	Embed(ctx context.Context, crop vision.Crop) ([]float32, error)
	Close() error
}
