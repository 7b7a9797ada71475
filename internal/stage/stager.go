package stage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/jask/realcheck/internal/media"
)

const (
	DefaultTimeout    = 15 * time.Second
	DefaultThumbWidth = 32
)

// Stager turns an accepted candidate into staged media.
type Stager struct {
	// Timeout bounds decoding; zero disables the bound.
	Timeout time.Duration
	// ThumbWidth is the thumbnail width in pixels (one terminal column each).
	ThumbWidth int

	decode func(r *io.SectionReader, mode media.Mode) (Preview, error)
}

func NewStager(timeout time.Duration, thumbWidth int) *Stager {
	if thumbWidth <= 0 {
		thumbWidth = DefaultThumbWidth
	}
	return &Stager{Timeout: timeout, ThumbWidth: thumbWidth}
}

func (s *Stager) decodeMedia(r *io.SectionReader, mode media.Mode) (Preview, error) {
	if s.decode != nil {
		return s.decode(r, mode)
	}
	if mode == media.Video {
		return decodeVideo(r)
	}
	thumbWidth := s.ThumbWidth
	if thumbWidth <= 0 {
		thumbWidth = DefaultThumbWidth
	}
	return decodeImage(r, thumbWidth)
}

type decoded struct {
	preview Preview
	err     error
}

// Stage opens file and resolves once it has decoded: a full image decode for
// images, a located video sample for video. Undecodable input fails with
// ErrUndecodable and a decode that outlives the timeout fails with
// ErrStagingStall. The handle is closed on every failure.
func (s *Stager) Stage(ctx context.Context, file media.Candidate, mode media.Mode) (*Media, error) {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	f, err := os.Open(file.Path)
	if err != nil {
		return nil, fmt.Errorf("stage: open %s: %w", file.Name, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stage: stat %s: %w", file.Name, err)
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %s is a directory", ErrUndecodable, file.Name)
	}
	size := info.Size()

	done := make(chan decoded, 1)
	go func() {
		var d decoded
		d.preview, d.err = s.decodeMedia(io.NewSectionReader(f, 0, size), mode)
		done <- d
	}()

	select {
	case <-ctx.Done():
		// Closing the file makes the decoder's next read fail so it exits.
		_ = f.Close()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s after %s", ErrStagingStall, file.Name, s.Timeout)
		}
		return nil, ctx.Err()
	case d := <-done:
		if d.err != nil {
			_ = f.Close()
			return nil, d.err
		}
		file.Size = size
		return &Media{
			ID:      uuid.NewString(),
			Mode:    mode,
			File:    file,
			Preview: d.preview,
			f:       f,
			size:    size,
		}, nil
	}
}
