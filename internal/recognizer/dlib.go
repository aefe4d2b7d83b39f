package recognizer

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"sync"

	"github.com/Kagami/go-face"

	"rollcall/internal/services"
	"rollcall/internal/vision"
)

// EmbeddingDimension is the length of a dlib face descriptor.
const EmbeddingDimension = 128

// DlibEmbedder extracts dlib face descriptors with go-face, and doubles as
// the frame-level face detector. The underlying recognizer is not safe for
// concurrent use, so calls serialize on a mutex; the capture pipeline bounds
// parallelism above this layer.
type DlibEmbedder struct {
	mu          sync.Mutex
	rec         *face.Recognizer
	minFaceSize int
}

// NewDlibEmbedder loads the dlib models from modelDir. The directory must
// contain the shape predictor and the ResNet descriptor network that go-face
// expects. Detections smaller than minFaceSize pixels on either side are
// discarded.
func NewDlibEmbedder(modelDir string, minFaceSize int) (*DlibEmbedder, error) {
	rec, err := face.NewRecognizer(modelDir)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "recognizer", "load models", modelDir, err)
	}
	return &DlibEmbedder{rec: rec, minFaceSize: minFaceSize}, nil
}

// Detect locates face regions in a JPEG frame. Errors are swallowed: a frame
// that fails detection simply contributes no regions.
func (e *DlibEmbedder) Detect(frame vision.Frame) []vision.BoundingBox {
	e.mu.Lock()
	faces, err := e.rec.Recognize(frame.Pixels)
	e.mu.Unlock()
	if err != nil {
		return nil
	}

	boxes := make([]vision.BoundingBox, 0, len(faces))
	for _, f := range faces {
		rect := f.Rectangle
		box := vision.BoundingBox{X: rect.Min.X, Y: rect.Min.Y, Width: rect.Dx(), Height: rect.Dy()}
		if box.Width < e.minFaceSize || box.Height < e.minFaceSize {
			continue
		}
		boxes = append(boxes, box)
	}
	return boxes
}

// Embed decodes the frame, isolates the crop region and runs the descriptor
// network on it. Frames are expected JPEG-encoded; the camera layer
// guarantees this.
func (e *DlibEmbedder) Embed(ctx context.Context, crop vision.Crop) ([]float32, error) {
	encoded, err := encodeCrop(crop)
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, services.Wrap(services.ErrTimeout, "recognizer", "embed", "", ctx.Err())
	}

	e.mu.Lock()
	found, err := e.rec.RecognizeSingle(encoded)
	e.mu.Unlock()
	if err != nil {
		return nil, services.Wrap(services.ErrRecognizer, "recognizer", "embed", "descriptor extraction", err)
	}
	if found == nil {
		return nil, services.Wrap(services.ErrRecognizer, "recognizer", "embed", "no face in crop", nil)
	}

	vector := make([]float32, EmbeddingDimension)
	copy(vector, found.Descriptor[:])
	return vector, nil
}

// Close releases the dlib models.
func (e *DlibEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.rec != nil {
		e.rec.Close()
		e.rec = nil
	}
	return nil
}

// encodeCrop re-encodes the face region of a JPEG frame as a standalone
// JPEG image for the descriptor network.
func encodeCrop(crop vision.Crop) ([]byte, error) {
	img, err := jpeg.Decode(bytes.NewReader(crop.Frame.Pixels))
	if err != nil {
		return nil, services.Wrap(services.ErrRecognizer, "recognizer", "decode frame", "", err)
	}

	box := crop.Box
	rect := image.Rect(box.X, box.Y, box.X+box.Width, box.Y+box.Height).
		Intersect(img.Bounds())
	if rect.Empty() {
		return nil, services.Wrap(services.ErrRecognizer, "recognizer", "decode frame", "crop outside frame", nil)
	}

	type subImager interface {
		SubImage(image.Rectangle) image.Image
	}
	region := img
	if sub, ok := img.(subImager); ok {
		region = sub.SubImage(rect)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, region, nil); err != nil {
		return nil, services.Wrap(services.ErrRecognizer, "recognizer", "encode crop", "", err)
	}
	return buf.Bytes(), nil
}
