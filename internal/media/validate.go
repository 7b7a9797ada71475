package media

import (
	"errors"
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
)

var (
	ErrNoFile               = errors.New("media: no file selected")
	ErrUnsupportedExtension = errors.New("media: unsupported file type")
)

// Reason classifies a rejected candidate.
type Reason int

const (
	NoFile Reason = iota + 1
	UnsupportedExtension
)

func (r Reason) String() string {
	switch r {
	case NoFile:
		return "no_file"
	case UnsupportedExtension:
		return "unsupported_extension"
	default:
		return "unknown"
	}
}

// ValidationError is returned by Ruleset.Validate.
type ValidationError struct {
	Reason  Reason
	Mode    Mode
	Name    string
	Ext     string
	Allowed []string
	// Suggestion is an allowed extension one edit away from Ext, if any.
	Suggestion string
}

func (e *ValidationError) Error() string {
	switch e.Reason {
	case NoFile:
		return ErrNoFile.Error()
	default:
		return fmt.Sprintf("%s: %q for %s mode (allowed: %s)", ErrUnsupportedExtension, e.Ext, e.Mode, strings.Join(e.Allowed, ", "))
	}
}

func (e *ValidationError) Unwrap() error {
	if e.Reason == NoFile {
		return ErrNoFile
	}
	return ErrUnsupportedExtension
}

// Message is the text for the error panel.
func (e *ValidationError) Message() string {
	var b strings.Builder
	if e.Reason == NoFile {
		b.WriteString("No file selected.")
	} else {
		b.WriteString("Unsupported file type.")
	}
	b.WriteString("\nSupported formats are: ")
	b.WriteString(FormatList(e.Allowed))
	if e.Suggestion != "" {
		fmt.Fprintf(&b, "\nDid you mean %s?", strings.ToUpper(e.Suggestion))
	}
	return b.String()
}

// Validate accepts file for mode when its extension is in the ruleset. It has
// no side effects.
func (r Ruleset) Validate(file Candidate, mode Mode) error {
	allowed := r.Allowed(mode)
	if file.IsZero() {
		return &ValidationError{Reason: NoFile, Mode: mode, Allowed: allowed}
	}
	ext := file.Extension()
	if r.Allows(mode, ext) {
		return nil
	}
	return &ValidationError{
		Reason:     UnsupportedExtension,
		Mode:       mode,
		Name:       file.Name,
		Ext:        ext,
		Allowed:    allowed,
		Suggestion: nearest(ext, allowed),
	}
}

// nearest returns the single allowed extension within one edit of ext.
func nearest(ext string, allowed []string) string {
	if len(ext) < 2 {
		return ""
	}
	match := ""
	for _, a := range allowed {
		if levenshtein.ComputeDistance(ext, a) != 1 {
			continue
		}
		if match != "" {
			return ""
		}
		match = a
	}
	return match
}
