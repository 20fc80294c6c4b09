// Package imaging turns uploaded images into normalized artifacts that a chat
// message can reference by id.
package imaging

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	app_errors "intellimind/backend/internal/errors"
	"intellimind/backend/internal/fsutil"
)

const (
	// MaxUploadBytes bounds the size of an accepted upload.
	MaxUploadBytes = 10 << 20
	// MaxPixels bounds the decoded size. Headers are checked before any pixel
	// buffer is allocated.
	MaxPixels = 50_000_000
)

// Artifact describes a processed image stored on disk.
type Artifact struct {
	ID        string    `json:"id"`
	MIMEType  string    `json:"mime_type"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Path      string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Processor normalizes raw image bytes into an Artifact.
type Processor interface {
	Process(ctx context.Context, data []byte) (*Artifact, error)
}

// ThumbnailProcessor decodes PNG, JPEG, GIF or WebP input, scales it down so
// that neither side exceeds maxDim and stores it as PNG under dir.
type ThumbnailProcessor struct {
	dir    string
	maxDim int
}

func NewThumbnailProcessor(dir string, maxDim int) *ThumbnailProcessor {
	if maxDim <= 0 {
		maxDim = 1024
	}
	return &ThumbnailProcessor{dir: dir, maxDim: maxDim}
}

func (p *ThumbnailProcessor) Process(ctx context.Context, data []byte) (*Artifact, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty image", app_errors.ErrValidation)
	}
	if len(data) > MaxUploadBytes {
		return nil, fmt.Errorf("%w: image exceeds %d bytes", app_errors.ErrValidation, MaxUploadBytes)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: could not read image header: %v", app_errors.ErrCollaborator, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, fmt.Errorf("%w: image of %dx%d pixels exceeds the %d pixel limit",
			app_errors.ErrCollaborator, cfg.Width, cfg.Height, MaxPixels)
	}

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: could not decode image: %v", app_errors.ErrCollaborator, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dst := p.scale(src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("%w: could not encode %s image: %v", app_errors.ErrCollaborator, format, err)
	}

	if err := os.MkdirAll(p.dir, 0750); err != nil {
		return nil, fmt.Errorf("%w: %v", app_errors.ErrCollaborator, err)
	}
	id := uuid.NewString()
	path := filepath.Join(p.dir, id+".png")
	if err := fsutil.AtomicWriteFile(path, buf.Bytes(), 0640); err != nil {
		return nil, fmt.Errorf("%w: %v", app_errors.ErrCollaborator, err)
	}

	b := dst.Bounds()
	return &Artifact{
		ID:        id,
		MIMEType:  "image/png",
		Width:     b.Dx(),
		Height:    b.Dy(),
		Path:      path,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func (p *ThumbnailProcessor) scale(src image.Image) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= p.maxDim && h <= p.maxDim {
		return src
	}
	if w >= h {
		h = max(1, h*p.maxDim/w)
		w = p.maxDim
	} else {
		w = max(1, w*p.maxDim/h)
		h = p.maxDim
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}
