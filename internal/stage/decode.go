package stage

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"time"

	"github.com/abema/go-mp4"
	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/jask/realcheck/internal/media"
)

func decodeImage(r io.Reader, thumbWidth int) (Preview, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return Preview{}, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return Preview{}, fmt.Errorf("%w: empty image", ErrUndecodable)
	}
	return Preview{
		Kind:      media.Image,
		Format:    format,
		Width:     b.Dx(),
		Height:    b.Dy(),
		Thumbnail: thumbnail(img, thumbWidth),
	}, nil
}

// thumbnail scales img to width pixels wide, keeping the aspect ratio. The
// height is rounded to an even number so two pixel rows fit one text row.
func thumbnail(img image.Image, width int) image.Image {
	b := img.Bounds()
	if width > b.Dx() {
		width = b.Dx()
	}
	height := width * b.Dy() / b.Dx()
	if height < 2 {
		height = 2
	}
	height += height % 2
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, xdraw.Over, nil)
	return dst
}

// decodeVideo probes the ISO-BMFF container and succeeds once a video track
// carrying at least one sample is found, the point at which a player could
// show the first frame. Samples are counted in the moov sample table and, for
// fragmented files, in the moof fragments.
func decodeVideo(r io.ReadSeeker) (Preview, error) {
	info, err := mp4.Probe(r)
	if err != nil {
		return Preview{}, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	headers, err := trackHeaders(r)
	if err != nil {
		return Preview{}, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}

	var track *mp4.Track
	for _, t := range info.Tracks {
		if !isVisual(t, headers[t.TrackID]) || sampleCount(info, t) == 0 {
			continue
		}
		if track == nil || (t.Codec == mp4.CodecAVC1 && track.Codec != mp4.CodecAVC1) {
			track = t
		}
	}
	if track == nil {
		return Preview{}, fmt.Errorf("%w: no video frames", ErrUndecodable)
	}

	p := Preview{Kind: media.Video, Format: brand(info.MajorBrand)}
	if track.Codec == mp4.CodecAVC1 {
		p.Format = "avc1"
	}
	if track.AVC != nil && track.AVC.Width > 0 {
		p.Width, p.Height = int(track.AVC.Width), int(track.AVC.Height)
	} else {
		h := headers[track.TrackID]
		p.Width, p.Height = h.width, h.height
	}
	p.Duration = duration(info, track)
	return p, nil
}

type trackHeader struct {
	handler       string
	width, height int
}

// trackHeaders reads the handler type and display size of every trak, keyed
// by track ID.
func trackHeaders(r io.ReadSeeker) (map[uint32]trackHeader, error) {
	traks, err := mp4.ExtractBox(r, nil, mp4.BoxPath{mp4.BoxTypeMoov(), mp4.BoxTypeTrak()})
	if err != nil {
		return nil, err
	}
	out := make(map[uint32]trackHeader, len(traks))
	for _, trak := range traks {
		boxes, err := mp4.ExtractBoxesWithPayload(r, trak, []mp4.BoxPath{
			{mp4.BoxTypeTkhd()},
			{mp4.BoxTypeMdia(), mp4.BoxTypeHdlr()},
		})
		if err != nil {
			return nil, err
		}
		var id uint32
		var h trackHeader
		for _, b := range boxes {
			switch box := b.Payload.(type) {
			case *mp4.Tkhd:
				id = box.TrackID
				h.width, h.height = int(box.GetWidthInt()), int(box.GetHeightInt())
			case *mp4.Hdlr:
				h.handler = string(box.HandlerType[:])
			}
		}
		out[id] = h
	}
	return out, nil
}

// isVisual reports whether t is a picture track. Audio, timecode and text
// tracks carry samples too and must not count as a first frame.
func isVisual(t *mp4.Track, h trackHeader) bool {
	if h.handler != "" {
		return h.handler == "vide"
	}
	return t.Codec == mp4.CodecAVC1
}

func sampleCount(info *mp4.ProbeInfo, t *mp4.Track) int {
	n := len(t.Samples)
	for _, seg := range info.Segments {
		if seg.TrackID == t.TrackID {
			n += int(seg.SampleCount)
		}
	}
	return n
}

// duration prefers the movie header. Fragmented files leave it zero, so the
// track's fragment durations are summed instead.
func duration(info *mp4.ProbeInfo, t *mp4.Track) time.Duration {
	if info.Timescale > 0 && info.Duration > 0 {
		return scaled(info.Duration, info.Timescale)
	}
	var total uint64
	for _, seg := range info.Segments {
		if seg.TrackID == t.TrackID {
			total += uint64(seg.Duration)
		}
	}
	if total == 0 || t.Timescale == 0 {
		return 0
	}
	return scaled(total, t.Timescale)
}

func scaled(units uint64, timescale uint32) time.Duration {
	ts := uint64(timescale)
	return time.Duration(units/ts)*time.Second + time.Duration(units%ts)*time.Second/time.Duration(ts)
}

func brand(b [4]byte) string {
	out := make([]byte, 0, 4)
	for _, c := range b {
		if c > ' ' && c < 0x7f {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return "video"
	}
	return string(out)
}
