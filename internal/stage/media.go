// Package stage prepares a chosen file for submission: it opens a revocable
// handle on the file and waits until the media has decoded far enough to be
// previewed.
package stage

import (
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"sync"
	"time"

	"github.com/jask/realcheck/internal/media"
)

var (
	ErrReleased     = errors.New("stage: media released")
	ErrUndecodable  = errors.New("stage: media could not be decoded")
	ErrStagingStall = errors.New("stage: media did not finish loading")
)

// Preview describes what was decoded.
type Preview struct {
	Kind   media.Mode
	Format string
	Width  int
	Height int
	// Duration is zero for images.
	Duration time.Duration
	// Thumbnail is a downscaled copy of an image; nil for video.
	Thumbnail image.Image
}

// Summary is a one-line description, e.g. "jpeg 1920×1080".
func (p Preview) Summary() string {
	s := p.Format
	if p.Width > 0 && p.Height > 0 {
		s += fmt.Sprintf(" %d×%d", p.Width, p.Height)
	}
	if p.Duration > 0 {
		s += " " + p.Duration.Round(100*time.Millisecond).String()
	}
	return s
}

// Media is a staged file. It owns an open handle until Release is called.
type Media struct {
	ID      string
	Mode    media.Mode
	File    media.Candidate
	Preview Preview

	mu       sync.Mutex
	f        *os.File
	size     int64
	released bool
}

// Open returns a fresh reader over the staged bytes.
func (m *Media) Open() (io.Reader, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.released || m.f == nil {
		return nil, ErrReleased
	}
	return io.NewSectionReader(m.f, 0, m.size), nil
}

// Size is the staged file size in bytes.
func (m *Media) Size() int64 {
	return m.size
}

// Release closes the handle. It is safe to call more than once.
func (m *Media) Release() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.released {
		return nil
	}
	m.released = true
	if m.f == nil {
		return nil
	}
	return m.f.Close()
}

// Released reports whether Release has been called.
func (m *Media) Released() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.released
}
