package media

import (
	"fmt"
	"strings"
)

// Mode is the kind of media being checked.
type Mode int

const (
	Image Mode = iota
	Video
)

// Modes lists every mode in display order.
var Modes = []Mode{Image, Video}

func (m Mode) String() string {
	switch m {
	case Image:
		return "image"
	case Video:
		return "video"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Title is the capitalised name used in headings.
func (m Mode) Title() string {
	s := m.String()
	return strings.ToUpper(s[:1]) + s[1:]
}

// Toggle returns the other mode.
func (m Mode) Toggle() Mode {
	if m == Image {
		return Video
	}
	return Image
}

// ParseMode accepts "image" or "video" in any case.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "image", "img":
		return Image, nil
	case "video", "vid":
		return Video, nil
	}
	return Image, fmt.Errorf("media: unknown mode %q (want image or video)", s)
}
