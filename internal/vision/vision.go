package vision

import (
	"context"
	"errors"
	"time"
)

// ErrEndOfStream is returned by a Camera when the video source terminates.
var ErrEndOfStream = errors.New("end of stream")

// Frame is one captured video frame. Pixels stay opaque to the core: the
// detector and recognizer are the only consumers of the image payload.
type Frame struct {
	Sequence   uint64
	CapturedAt time.Time
	Width      int
	Height     int
	Pixels     []byte
}

// BoundingBox is an axis-aligned face region within a frame.
type BoundingBox struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Camera produces frames from a live video source. NextFrame blocks until a
// frame is available, the context is cancelled, or the stream ends.
type Camera interface {
	NextFrame(ctx context.Context) (Frame, error)
	Close() error
}

// FaceDetector locates face regions within a frame.
type FaceDetector interface {
	Detect(frame Frame) []BoundingBox
}

// Crop describes the face image handed to the recognizer: the source frame
// plus the region to identify.
type Crop struct {
	Frame Frame
	Box   BoundingBox
}

// Area returns the box area in pixels.
func (b BoundingBox) Area() int {
	if b.Width <= 0 || b.Height <= 0 {
		return 0
	}
	return b.Width * b.Height
}

// CenterDistanceSq returns the squared distance between two box centers.
// Squared form avoids the sqrt in the tracker's hot path.
func (b BoundingBox) CenterDistanceSq(other BoundingBox) int {
	dx := (b.X + b.Width/2) - (other.X + other.Width/2)
	dy := (b.Y + b.Height/2) - (other.Y + other.Height/2)
	return dx*dx + dy*dy
}

// IoU returns the intersection-over-union overlap of two boxes in [0, 1].
func (b BoundingBox) IoU(other BoundingBox) float64 {
	x1 := max(b.X, other.X)
	y1 := max(b.Y, other.Y)
	x2 := min(b.X+b.Width, other.X+other.Width)
	y2 := min(b.Y+b.Height, other.Y+other.Height)

	if x2 <= x1 || y2 <= y1 {
		return 0
	}
	inter := (x2 - x1) * (y2 - y1)
	union := b.Area() + other.Area() - inter
	if union <= 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
