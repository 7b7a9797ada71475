package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// Keybinding overrides the keys of one action within one scope.
type Keybinding struct {
	Scope  string
	Action string
	Keys   []string
}

type rawKeybindings struct {
	Version  int                            `toml:"version"`
	Bindings []rawKeybinding                `toml:"binding"`
	Scopes   map[string]map[string][]string `toml:"scope,omitempty"`
}

type rawKeybinding struct {
	Scope  string   `toml:"scope"`
	Action string   `toml:"action"`
	Keys   []string `toml:"keys"`
}

// LoadKeybindings parses path. Both forms are accepted:
//
//	[[binding]]
//	scope = "idle"
//	action = "browse"
//	keys = ["o"]
//
//	[scope.idle]
//	browse = ["o"]
//
// A missing file yields no overrides.
func LoadKeybindings(path string) ([]Keybinding, error) {
	var raw rawKeybindings
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if raw.Version > 1 {
		return nil, fmt.Errorf("parse %s: unsupported version %d", path, raw.Version)
	}

	out := make([]Keybinding, 0, len(raw.Bindings))
	for _, b := range raw.Bindings {
		out = append(out, Keybinding{
			Scope:  strings.TrimSpace(b.Scope),
			Action: strings.TrimSpace(b.Action),
			Keys:   b.Keys,
		})
	}

	scopes := make([]string, 0, len(raw.Scopes))
	for scope := range raw.Scopes {
		scopes = append(scopes, scope)
	}
	sort.Strings(scopes)
	for _, scope := range scopes {
		actions := raw.Scopes[scope]
		names := make([]string, 0, len(actions))
		for action := range actions {
			names = append(names, action)
		}
		sort.Strings(names)
		for _, action := range names {
			out = append(out, Keybinding{Scope: scope, Action: action, Keys: actions[action]})
		}
	}
	return out, nil
}

// WriteKeybindings writes items in the [[binding]] form LoadKeybindings reads.
func WriteKeybindings(w io.Writer, items []Keybinding) error {
	raw := rawKeybindings{Version: 1, Bindings: make([]rawKeybinding, 0, len(items))}
	for _, kb := range items {
		raw.Bindings = append(raw.Bindings, rawKeybinding{Scope: kb.Scope, Action: kb.Action, Keys: kb.Keys})
	}
	if err := toml.NewEncoder(w).Encode(raw); err != nil {
		return fmt.Errorf("encode keybindings: %w", err)
	}
	return nil
}
