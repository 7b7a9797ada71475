package media

import (
	"fmt"
	"strings"
)

// Selector holds the active mode and the rules that go with it.
type Selector struct {
	rules Ruleset
	mode  Mode
}

func NewSelector(rules Ruleset, mode Mode) Selector {
	return Selector{rules: rules, mode: mode}
}

// WithMode records mode as active.
func (s Selector) WithMode(mode Mode) Selector {
	s.mode = mode
	return s
}

func (s Selector) Mode() Mode { return s.mode }

func (s Selector) Ruleset() Ruleset { return s.rules }

// Rules returns the extensions accepted in the active mode.
func (s Selector) Rules() []string { return s.rules.Allowed(s.mode) }

// Accept returns the picker filter for the active mode, e.g. ".mp4", ".mov".
func (s Selector) Accept() []string {
	exts := s.Rules()
	out := make([]string, len(exts))
	for i, e := range exts {
		out[i] = "." + e
	}
	return out
}

// Hint is the accepted-formats line shown under the upload box.
func (s Selector) Hint() string {
	return fmt.Sprintf("Supported %s formats are: %s", strings.ToLower(s.mode.String()), FormatList(s.Rules()))
}
