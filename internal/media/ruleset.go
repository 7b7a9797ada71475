package media

import (
	"fmt"
	"slices"
	"strings"
)

// Ruleset maps each mode to the extensions it accepts. It is built once and
// never modified; accessors hand out copies.
type Ruleset struct {
	exts map[Mode][]string
}

// DefaultImageExtensions and DefaultVideoExtensions are the built-in rules.
var (
	DefaultImageExtensions = []string{"png", "jpg", "jpeg"}
	DefaultVideoExtensions = []string{"mp4", "mov"}
)

// DefaultRuleset returns the built-in rules.
func DefaultRuleset() Ruleset {
	r, _ := NewRuleset(DefaultImageExtensions, DefaultVideoExtensions)
	return r
}

// NewRuleset normalises the given extension lists (trim, strip leading dot,
// lower-case, de-duplicate) and rejects empty sets.
func NewRuleset(image, video []string) (Ruleset, error) {
	r := Ruleset{exts: make(map[Mode][]string, 2)}
	for mode, raw := range map[Mode][]string{Image: image, Video: video} {
		exts := normalizeExtensions(raw)
		if len(exts) == 0 {
			return Ruleset{}, fmt.Errorf("media: no %s extensions configured", mode)
		}
		r.exts[mode] = exts
	}
	return r, nil
}

func normalizeExtensions(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, e := range raw {
		e = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e), "."))
		if e == "" || slices.Contains(out, e) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Allowed returns the accepted extensions for mode, in configured order.
func (r Ruleset) Allowed(mode Mode) []string {
	return slices.Clone(r.exts[mode])
}

// Allows reports whether ext (already lower-cased) is accepted for mode.
func (r Ruleset) Allows(mode Mode, ext string) bool {
	return slices.Contains(r.exts[mode], ext)
}

// FormatList renders extensions the way the upload screen shows them:
// "MP4, MOV".
func FormatList(exts []string) string {
	return strings.ToUpper(strings.Join(exts, ", "))
}
