package stage

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jask/realcheck/internal/media"
)

func writePNG(t *testing.T, dir string, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	path := filepath.Join(dir, "cat.png")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestStageImage(t *testing.T) {
	t.Parallel()

	path := writePNG(t, t.TempDir(), 120, 80)
	s := NewStager(time.Second, 24)

	m, err := s.Stage(context.Background(), media.NewCandidate(path), media.Image)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Release() })

	require.NotEmpty(t, m.ID)
	require.Equal(t, "png", m.Preview.Format)
	require.Equal(t, 120, m.Preview.Width)
	require.Equal(t, 80, m.Preview.Height)
	require.NotNil(t, m.Preview.Thumbnail)
	tb := m.Preview.Thumbnail.Bounds()
	require.Equal(t, 24, tb.Dx())
	require.Equal(t, 16, tb.Dy())
	require.Equal(t, "png 120×80", m.Preview.Summary())

	r, err := m.Open()
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	require.EqualValues(t, m.Size(), len(data))
}

func TestReleaseRevokesHandle(t *testing.T) {
	t.Parallel()

	path := writePNG(t, t.TempDir(), 4, 4)
	m, err := NewStager(0, 0).Stage(context.Background(), media.NewCandidate(path), media.Image)
	require.NoError(t, err)

	require.NoError(t, m.Release())
	require.True(t, m.Released())
	require.NoError(t, m.Release(), "second release is a no-op")

	_, err = m.Open()
	require.ErrorIs(t, err, ErrReleased)
}

func TestStageUndecodable(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, tc := range []struct {
		name string
		mode media.Mode
	}{
		{"broken.jpg", media.Image},
		{"broken.mp4", media.Video},
	} {
		path := filepath.Join(dir, tc.name)
		require.NoError(t, os.WriteFile(path, []byte("definitely not media"), 0o644))

		_, err := NewStager(time.Second, 0).Stage(context.Background(), media.NewCandidate(path), tc.mode)
		require.ErrorIs(t, err, ErrUndecodable, tc.name)
	}
}

func TestStageVideo(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		file          string
		width, height int
		duration      time.Duration
	}{
		{"clip.mp4", 320, 180, 1024 * time.Millisecond},
		{"clip.mov", 424, 240, 0},
		// Fragmented: empty moov sample table, frames live in moof boxes.
		{"clip_fragmented.mp4", 1280, 720, 0},
	} {
		tc := tc
		t.Run(tc.file, func(t *testing.T) {
			t.Parallel()

			m, err := NewStager(time.Second, 0).Stage(context.Background(), media.NewCandidate(filepath.Join("testdata", tc.file)), media.Video)
			require.NoError(t, err)
			t.Cleanup(func() { _ = m.Release() })

			require.Equal(t, media.Video, m.Preview.Kind)
			require.Equal(t, "avc1", m.Preview.Format)
			require.Equal(t, tc.width, m.Preview.Width)
			require.Equal(t, tc.height, m.Preview.Height)
			require.Nil(t, m.Preview.Thumbnail)
			require.Positive(t, m.Preview.Duration)
			if tc.duration > 0 {
				require.Equal(t, tc.duration, m.Preview.Duration)
			}
			require.Positive(t, m.Size())
		})
	}
}

func TestStageVideoSummary(t *testing.T) {
	t.Parallel()

	m, err := NewStager(time.Second, 0).Stage(context.Background(), media.NewCandidate(filepath.Join("testdata", "clip.mp4")), media.Video)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Release() })
	require.Equal(t, "avc1 320×180 1s", m.Preview.Summary())
}

func TestStageAudioOnlyIsNotVideo(t *testing.T) {
	t.Parallel()

	_, err := NewStager(time.Second, 0).Stage(context.Background(), media.NewCandidate(filepath.Join("testdata", "clip_audio.mp4")), media.Video)
	require.ErrorIs(t, err, ErrUndecodable)
	require.ErrorContains(t, err, "no video frames")
}

func TestStageMissingFile(t *testing.T) {
	t.Parallel()

	_, err := NewStager(0, 0).Stage(context.Background(), media.NewCandidate(filepath.Join(t.TempDir(), "gone.png")), media.Image)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestStageTimesOutOnStall(t *testing.T) {
	t.Parallel()

	path := writePNG(t, t.TempDir(), 4, 4)
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	s := NewStager(20*time.Millisecond, 0)
	s.decode = func(*io.SectionReader, media.Mode) (Preview, error) {
		<-release
		return Preview{}, nil
	}

	_, err := s.Stage(context.Background(), media.NewCandidate(path), media.Image)
	require.ErrorIs(t, err, ErrStagingStall)
}

func TestStageHonoursCancellation(t *testing.T) {
	t.Parallel()

	path := writePNG(t, t.TempDir(), 4, 4)
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	s := NewStager(0, 0)
	s.decode = func(*io.SectionReader, media.Mode) (Preview, error) {
		<-release
		return Preview{}, nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Stage(ctx, media.NewCandidate(path), media.Image)
	require.ErrorIs(t, err, context.Canceled)
}

func TestBrand(t *testing.T) {
	t.Parallel()

	require.Equal(t, "qt", brand([4]byte{'q', 't', ' ', ' '}))
	require.Equal(t, "isom", brand([4]byte{'i', 's', 'o', 'm'}))
	require.Equal(t, "video", brand([4]byte{}))
}
