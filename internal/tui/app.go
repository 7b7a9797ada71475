// Package tui is the interactive front end. The App model feeds key presses
// and effect results into the upload state machine and runs the effects it
// returns as commands.
package tui

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jask/realcheck/internal/media"
	"github.com/jask/realcheck/internal/upload"
)

// App is the upload screen.
type App struct {
	ctx    context.Context
	runner *upload.Runner
	keys   *KeyRegistry
	state  upload.State

	input   inputMode
	initial media.Candidate

	spinner spinner.Model
	picker  filepicker.Model
	path    textinput.Model
	bar     progress.Model
	help    help.Model

	status string
	width  int
	height int
}

type inputMode string

const (
	inputNone   inputMode = ""
	inputPicker inputMode = "picker"
	inputPath   inputMode = "path"
)

// Options configures New.
type Options struct {
	Keys *KeyRegistry
	// StartDir is where the file picker opens; defaults to the working
	// directory.
	StartDir string
	// Initial, when set, is selected as soon as the program starts.
	Initial media.Candidate
	// Status is shown in the status bar until the first event.
	Status string
}

func New(ctx context.Context, runner *upload.Runner, selector media.Selector, opts Options) *App {
	keys := opts.Keys
	if keys == nil {
		keys = NewKeyRegistry()
	}

	sp := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(colorAccent)),
	)

	fp := filepicker.New()
	fp.AllowedTypes = selector.Accept()
	fp.CurrentDirectory = startDir(opts.StartDir)

	ti := textinput.New()
	ti.Placeholder = "/path/to/file"
	ti.Prompt = "› "
	ti.CharLimit = 4096

	bar := progress.New(progress.WithGradient(string(colorSuccess), string(colorError)), progress.WithWidth(40))

	h := help.New()
	h.Styles.ShortKey = helpKeyStyle.Background(colorMantle)
	h.Styles.ShortDesc = helpDescStyle.Background(colorMantle)
	h.Styles.ShortSeparator = helpDescStyle.Background(colorMantle)
	h.ShortSeparator = "  "

	return &App{
		ctx:     ctx,
		runner:  runner,
		keys:    keys,
		state:   upload.NewState(selector),
		initial: opts.Initial,
		status:  opts.Status,
		spinner: sp,
		picker:  fp,
		path:    ti,
		bar:     bar,
		help:    h,
	}
}

func startDir(dir string) string {
	if strings.TrimSpace(dir) != "" {
		return dir
	}
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}

func (a *App) Init() tea.Cmd {
	if a.initial.IsZero() {
		return nil
	}
	file := a.initial
	return func() tea.Msg { return eventMsg{upload.FileSelected{File: file}} }
}

// State returns the current orchestration state.
func (a *App) State() upload.State {
	return a.state
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = m.Width, m.Height
		a.bar.Width = max(10, min(40, a.panelWidth()-10))
		a.help.Width = m.Width
	case tea.KeyMsg:
		return a.handleKey(m)
	case eventMsg:
		return a, a.apply(m.ev)
	case spinner.TickMsg:
		if !a.state.Phase.Busy() {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(m)
		return a, cmd
	}
	if a.input == inputPicker {
		var cmd tea.Cmd
		a.picker, cmd = a.picker.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a *App) handleKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch a.input {
	case inputPicker:
		return a.handlePickerKey(m)
	case inputPath:
		return a.handlePathKey(m)
	}

	b := a.keys.Lookup(m.String(), a.scope())
	if b == nil {
		return a, nil
	}
	switch b.Action {
	case actionQuit:
		return a, tea.Quit
	case actionToggleMode:
		return a, a.apply(upload.ModeSelected{Mode: a.state.Selector.Mode().Toggle()})
	case actionImageMode:
		return a, a.apply(upload.ModeSelected{Mode: media.Image})
	case actionVideoMode:
		return a, a.apply(upload.ModeSelected{Mode: media.Video})
	case actionBrowse:
		a.input = inputPicker
		a.picker.AllowedTypes = a.state.Selector.Accept()
		return a, a.picker.Init()
	case actionTypePath:
		a.input = inputPath
		a.path.SetValue("")
		return a, a.path.Focus()
	case actionRetry:
		return a, a.apply(upload.RetryRequested{})
	case actionUploadAgain:
		return a, a.apply(upload.UploadAgainRequested{})
	case actionDismiss:
		return a, a.apply(upload.AlertDismissed{})
	}
	return a, nil
}

func (a *App) handlePickerKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	if b := a.keys.LookupLocal(m.String(), scopeFilePicker); b != nil {
		switch b.Action {
		case actionClose:
			a.input = inputNone
			return a, nil
		case actionQuit:
			return a, tea.Quit
		}
	}
	var cmd tea.Cmd
	a.picker, cmd = a.picker.Update(m)
	// Filtered-out files still go through validation so the error panel
	// can list the accepted formats.
	if ok, path := a.picker.DidSelectFile(m); ok {
		a.input = inputNone
		return a, tea.Batch(cmd, a.apply(upload.FileSelected{File: media.NewCandidate(path)}))
	}
	if ok, path := a.picker.DidSelectDisabledFile(m); ok {
		a.input = inputNone
		return a, tea.Batch(cmd, a.apply(upload.FileSelected{File: media.NewCandidate(path)}))
	}
	return a, cmd
}

func (a *App) handlePathKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	if b := a.keys.LookupLocal(m.String(), scopePathInput); b != nil {
		switch b.Action {
		case actionCancel:
			a.closePathInput()
			return a, nil
		case actionConfirm:
			path := expandHome(a.path.Value())
			a.closePathInput()
			return a, a.apply(upload.FileSelected{File: media.NewCandidate(path)})
		case actionQuit:
			return a, tea.Quit
		}
	}
	var cmd tea.Cmd
	a.path, cmd = a.path.Update(m)
	return a, cmd
}

func (a *App) closePathInput() {
	a.input = inputNone
	a.path.Blur()
}

func expandHome(p string) string {
	p = strings.TrimSpace(p)
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

// apply feeds ev through the state machine and turns the resulting effects
// into commands.
func (a *App) apply(ev upload.Event) tea.Cmd {
	wasBusy := a.state.Phase.Busy()
	var effects []upload.Effect
	a.state, effects = a.runner.Apply(a.ctx, a.state, ev)
	a.picker.AllowedTypes = a.state.Selector.Accept()

	if _, ok := ev.(upload.ModeSelected); ok {
		a.status = a.state.Selector.Hint()
	} else if _, ok := ev.(upload.FileSelected); ok {
		a.status = ""
	}

	cmds := make([]tea.Cmd, 0, len(effects)+1)
	for _, eff := range effects {
		cmds = append(cmds, a.effectCmd(eff))
	}
	if a.state.Phase.Busy() && !wasBusy {
		cmds = append(cmds, a.spinner.Tick)
	}
	return tea.Batch(cmds...)
}

func (a *App) effectCmd(eff upload.Effect) tea.Cmd {
	return func() tea.Msg {
		if ev := a.runner.Execute(a.ctx, eff); ev != nil {
			return eventMsg{ev}
		}
		return nil
	}
}

// scope is the key scope for the current screen.
func (a *App) scope() string {
	switch {
	case a.input == inputPicker:
		return scopeFilePicker
	case a.input == inputPath:
		return scopePathInput
	case a.state.Alert != "":
		return scopeAlert
	}
	switch a.state.Phase {
	case upload.PhaseIdle:
		return scopeIdle
	case upload.PhaseResult:
		return scopeResult
	case upload.PhaseError:
		return scopeError
	default:
		return scopeBusy
	}
}

func (a *App) View() string {
	d := a.state.Display()
	var body string
	switch {
	case a.input == inputPicker:
		body = a.renderPicker(d)
	case a.input == inputPath:
		body = a.renderPathInput(d)
	case d.ShowUpload:
		body = a.renderUpload(d)
	case d.ShowSpinner:
		body = a.renderSpinner(d)
	case d.ShowResult:
		body = a.renderResult(d)
	case d.ShowError:
		body = a.renderError(d)
	}
	main := renderHeader(d.Mode, a.width) + "\n\n" + body

	status := a.status
	if status == "" {
		status = d.Hint
	}
	statusLine := a.renderStatus(status)
	footer := a.renderFooter(a.keys.HelpBindings(a.scope()))
	if d.Alert != "" && a.input == inputNone {
		return a.composeOverlay(main, statusLine, footer, renderAlert(d.Alert))
	}
	return a.placeWithFooter(main, statusLine, footer)
}

func normalizeLabel(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}

// eventMsg carries an event produced by an effect back into Update.
type eventMsg struct{ ev upload.Event }
