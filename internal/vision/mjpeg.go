package vision

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// MJPEGCamera reads frames from a multipart MJPEG stream, the format served
// by IP cameras and mjpg-streamer in front of a local capture device. Each
// part is one JPEG-encoded frame, which is exactly what the face embedder
// consumes.
type MJPEGCamera struct {
	body     io.ReadCloser
	reader   *multipart.Reader
	cancel   context.CancelFunc
	sequence uint64
}

// OpenMJPEG connects to an MJPEG stream URL. The stream stays bound to ctx:
// cancelling it unblocks any pending read.
func OpenMJPEG(ctx context.Context, url string) (*MJPEGCamera, error) {
	streamCtx, cancel := context.WithCancel(ctx)

	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, url, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("build stream request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("connect to stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("stream returned %d", resp.StatusCode)
	}

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") || params["boundary"] == "" {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("not an MJPEG stream: content type %q", resp.Header.Get("Content-Type"))
	}

	return &MJPEGCamera{
		body:   resp.Body,
		reader: multipart.NewReader(resp.Body, params["boundary"]),
		cancel: cancel,
	}, nil
}

// NextFrame blocks until the next JPEG part arrives. A closed stream maps to
// ErrEndOfStream; cancellation surfaces the context error.
func (c *MJPEGCamera) NextFrame(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}

	part, err := c.reader.NextPart()
	if err != nil {
		if ctx.Err() != nil {
			return Frame{}, ctx.Err()
		}
		if err == io.EOF {
			return Frame{}, ErrEndOfStream
		}
		return Frame{}, fmt.Errorf("read stream part: %w", err)
	}
	pixels, err := io.ReadAll(part)
	part.Close()
	if err != nil {
		if ctx.Err() != nil {
			return Frame{}, ctx.Err()
		}
		return Frame{}, fmt.Errorf("read frame body: %w", err)
	}

	c.sequence++
	frame := Frame{
		Sequence:   c.sequence,
		CapturedAt: time.Now(),
		Pixels:     pixels,
	}
	if cfg, err := jpeg.DecodeConfig(bytes.NewReader(pixels)); err == nil {
		frame.Width = cfg.Width
		frame.Height = cfg.Height
	}
	return frame, nil
}

// Close terminates the stream connection.
func (c *MJPEGCamera) Close() error {
	c.cancel()
	return c.body.Close()
}
