package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"

	"github.com/jask/realcheck/internal/config"
)

type Action string

type Binding struct {
	Action Action
	Keys   []string
	Help   string
	Scopes []string
}

// KeyRegistry maps keys to actions per scope. Lookups fall back to the
// global scope.
type KeyRegistry struct {
	bindingsByScope map[string][]*Binding
	indexByScope    map[string]map[string]*Binding
}

const (
	scopeGlobal     = "global"
	scopeIdle       = "idle"
	scopeBusy       = "busy"
	scopeResult     = "result"
	scopeError      = "error"
	scopeAlert      = "alert"
	scopeFilePicker = "file_picker"
	scopePathInput  = "path_input"
)

const (
	actionQuit        Action = "quit"
	actionToggleMode  Action = "toggle_mode"
	actionImageMode   Action = "image_mode"
	actionVideoMode   Action = "video_mode"
	actionBrowse      Action = "browse"
	actionTypePath    Action = "type_path"
	actionNavigate    Action = "navigate"
	actionSelect      Action = "select"
	actionClose       Action = "close"
	actionConfirm     Action = "confirm"
	actionCancel      Action = "cancel"
	actionRetry       Action = "retry"
	actionUploadAgain Action = "upload_again"
	actionDismiss     Action = "dismiss"
)

func NewKeyRegistry() *KeyRegistry {
	r := &KeyRegistry{
		bindingsByScope: make(map[string][]*Binding),
		indexByScope:    make(map[string]map[string]*Binding),
	}

	reg := func(scope string, action Action, keys []string, help string) {
		r.Register(Binding{Action: action, Keys: keys, Help: help, Scopes: []string{scope}})
	}
	modeKeys := func(scope string) {
		reg(scope, actionToggleMode, []string{"tab"}, "mode")
		reg(scope, actionImageMode, []string{"i"}, "image")
		reg(scope, actionVideoMode, []string{"v"}, "video")
	}

	reg(scopeGlobal, actionQuit, []string{"q", "ctrl+c"}, "quit")

	modeKeys(scopeIdle)
	reg(scopeIdle, actionBrowse, []string{"b", "enter"}, "browse")
	reg(scopeIdle, actionTypePath, []string{"p"}, "type path")
	reg(scopeIdle, actionQuit, []string{"q", "ctrl+c"}, "quit")

	modeKeys(scopeBusy)
	reg(scopeBusy, actionQuit, []string{"q", "ctrl+c"}, "quit")

	reg(scopeResult, actionUploadAgain, []string{"u", "enter"}, "upload again")
	reg(scopeResult, actionRetry, []string{"r"}, "retry")
	modeKeys(scopeResult)
	reg(scopeResult, actionQuit, []string{"q", "ctrl+c"}, "quit")

	reg(scopeError, actionRetry, []string{"r", "enter"}, "retry")
	reg(scopeError, actionUploadAgain, []string{"u"}, "upload again")
	modeKeys(scopeError)
	reg(scopeError, actionQuit, []string{"q", "ctrl+c"}, "quit")

	reg(scopeAlert, actionDismiss, []string{"enter", "esc"}, "dismiss")
	reg(scopeAlert, actionQuit, []string{"q", "ctrl+c"}, "quit")

	// The picker handles its own movement keys; these entries feed the footer.
	reg(scopeFilePicker, actionNavigate, []string{"j/k", "j", "k", "up", "down"}, "navigate")
	reg(scopeFilePicker, actionSelect, []string{"enter", "l", "right"}, "open")
	reg(scopeFilePicker, actionClose, []string{"esc"}, "close")
	reg(scopeFilePicker, actionQuit, []string{"ctrl+c"}, "quit")

	reg(scopePathInput, actionConfirm, []string{"enter"}, "upload")
	reg(scopePathInput, actionCancel, []string{"esc"}, "cancel")
	reg(scopePathInput, actionQuit, []string{"ctrl+c"}, "quit")

	return r
}

func (r *KeyRegistry) Register(b Binding) {
	if r == nil || len(b.Keys) == 0 {
		return
	}
	normKeys := normalizeKeyList(b.Keys)
	if len(normKeys) == 0 {
		return
	}
	for _, scope := range b.Scopes {
		scope = strings.TrimSpace(scope)
		if scope == "" {
			continue
		}
		if _, ok := r.indexByScope[scope]; !ok {
			r.indexByScope[scope] = make(map[string]*Binding)
		}
		if r.scopeHasAnyKey(scope, normKeys) {
			continue
		}
		copyBinding := b
		copyBinding.Keys = append([]string(nil), normKeys...)
		copyBinding.Scopes = []string{scope}
		r.bindingsByScope[scope] = append(r.bindingsByScope[scope], &copyBinding)
		for _, k := range copyBinding.Keys {
			r.indexByScope[scope][k] = &copyBinding
		}
	}
}

func (r *KeyRegistry) BindingsForScope(scope string) []Binding {
	if r == nil {
		return nil
	}
	items := r.bindingsByScope[scope]
	out := make([]Binding, 0, len(items))
	for _, b := range items {
		out = append(out, *b)
	}
	return out
}

// Lookup finds the binding for keyName in scope, then in the global scope.
func (r *KeyRegistry) Lookup(keyName, scope string) *Binding {
	if r == nil || keyName == "" {
		return nil
	}
	keyName = normalizeKeyName(keyName)
	if b := r.lookupInScope(keyName, scope); b != nil {
		return b
	}
	if scope != scopeGlobal {
		return r.lookupInScope(keyName, scopeGlobal)
	}
	return nil
}

// LookupLocal is Lookup without the global fallback, for scopes that take
// free text.
func (r *KeyRegistry) LookupLocal(keyName, scope string) *Binding {
	if r == nil || keyName == "" {
		return nil
	}
	return r.lookupInScope(normalizeKeyName(keyName), scope)
}

func (r *KeyRegistry) HelpBindings(scope string) []key.Binding {
	items := r.BindingsForScope(scope)
	out := make([]key.Binding, 0, len(items))
	for _, b := range items {
		if len(b.Keys) == 0 {
			continue
		}
		out = append(out, key.NewBinding(key.WithKeys(b.Keys...), key.WithHelp(b.Keys[0], b.Help)))
	}
	return out
}

func (r *KeyRegistry) lookupInScope(keyName, scope string) *Binding {
	if scope == "" {
		return nil
	}
	lookup, ok := r.indexByScope[scope]
	if !ok {
		return nil
	}
	return lookup[keyName]
}

func (r *KeyRegistry) scopeHasAnyKey(scope string, keys []string) bool {
	lookup := r.indexByScope[scope]
	for _, k := range keys {
		if _, exists := lookup[k]; exists {
			return true
		}
	}
	return false
}

func normalizeKeyList(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]bool)
	for _, k := range keys {
		n := normalizeKeyName(k)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

func normalizeKeyName(k string) string {
	if k == " " {
		return "space"
	}
	trimmed := strings.TrimSpace(k)
	if trimmed == "" {
		return ""
	}
	if len(trimmed) == 1 {
		ch := trimmed[0]
		if ch >= 'A' && ch <= 'Z' {
			// Single uppercase letters stay distinct from lowercase.
			return trimmed
		}
	}
	s := strings.ToLower(trimmed)
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "control+", "ctrl+")
	s = strings.ReplaceAll(s, "ctl+", "ctrl+")
	s = strings.ReplaceAll(s, "return", "enter")
	s = strings.ReplaceAll(s, "escape", "esc")
	s = strings.ReplaceAll(s, "spacebar", "space")
	return s
}

// ApplyKeybindingConfig replaces the keys of existing bindings. Unknown
// scopes or actions, duplicate entries and key conflicts within a scope are
// errors; the registry is left unchanged on error.
func (r *KeyRegistry) ApplyKeybindingConfig(items []config.Keybinding) error {
	if r == nil || len(items) == 0 {
		return nil
	}
	type pair struct {
		scope  string
		action Action
	}
	pending := make(map[*Binding][]string)
	seenPair := make(map[pair]bool)
	for _, o := range items {
		scope := strings.TrimSpace(o.Scope)
		if scope == "" {
			return fmt.Errorf("keybinding override: scope is required")
		}
		action := Action(strings.TrimSpace(o.Action))
		if action == "" {
			return fmt.Errorf("keybinding override scope=%q: action is required", scope)
		}
		keys := normalizeKeyList(o.Keys)
		if len(keys) == 0 {
			return fmt.Errorf("keybinding override scope=%q action=%q: keys are required", scope, action)
		}
		bindings := r.bindingsByScope[scope]
		if len(bindings) == 0 {
			return fmt.Errorf("keybinding override scope=%q action=%q: unknown scope", scope, action)
		}
		var target *Binding
		for _, b := range bindings {
			if b.Action == action {
				target = b
				break
			}
		}
		if target == nil {
			return fmt.Errorf("keybinding override scope=%q action=%q: unknown action in scope", scope, action)
		}
		p := pair{scope: scope, action: action}
		if seenPair[p] {
			return fmt.Errorf("keybinding override scope=%q action=%q: duplicated override entry", scope, action)
		}
		seenPair[p] = true
		pending[target] = keys
	}

	for scope, bindings := range r.bindingsByScope {
		seen := make(map[string]Action)
		for _, b := range bindings {
			keys := b.Keys
			if override, ok := pending[b]; ok {
				keys = override
			}
			for _, k := range keys {
				if prev, ok := seen[k]; ok {
					return fmt.Errorf("keybinding override conflict in scope=%q: key %q used by both %q and %q", scope, k, prev, b.Action)
				}
				seen[k] = b.Action
			}
		}
	}

	for b, keys := range pending {
		b.Keys = keys
	}
	r.rebuildIndex()
	return nil
}

// ExportKeybindingConfig lists every binding, sorted by scope then action.
func (r *KeyRegistry) ExportKeybindingConfig() []config.Keybinding {
	if r == nil {
		return nil
	}
	var out []config.Keybinding
	for scope, bindings := range r.bindingsByScope {
		for _, b := range bindings {
			out = append(out, config.Keybinding{
				Scope:  scope,
				Action: string(b.Action),
				Keys:   append([]string(nil), b.Keys...),
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Scope != out[j].Scope {
			return out[i].Scope < out[j].Scope
		}
		return out[i].Action < out[j].Action
	})
	return out
}

func (r *KeyRegistry) rebuildIndex() {
	r.indexByScope = make(map[string]map[string]*Binding, len(r.bindingsByScope))
	for scope, bindings := range r.bindingsByScope {
		r.indexByScope[scope] = make(map[string]*Binding)
		for _, b := range bindings {
			for _, k := range b.Keys {
				r.indexByScope[scope][k] = b
			}
		}
	}
}
