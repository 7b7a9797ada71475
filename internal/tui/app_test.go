package tui

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/require"

	"github.com/jask/realcheck/internal/inference"
	"github.com/jask/realcheck/internal/media"
	"github.com/jask/realcheck/internal/stage"
	"github.com/jask/realcheck/internal/upload"
)

func newTestApp(t *testing.T, status int, body string, mode media.Mode) *App {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	client, err := inference.New(inference.Config{BaseURL: srv.URL})
	require.NoError(t, err)
	runner := &upload.Runner{Stager: stage.NewStager(0, 4), Submitter: client}
	return New(context.Background(), runner, media.NewSelector(media.DefaultRuleset(), mode), Options{StartDir: t.TempDir()})
}

func writePNG(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	require.NoError(t, f.Close())
	return path
}

func press(a *App, k string) tea.Cmd {
	var msg tea.KeyMsg
	switch k {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	_, cmd := a.Update(msg)
	return cmd
}

// settle runs cmd and every command it leads to, feeding produced events
// back into the app. Spinner ticks are dropped.
func settle(t *testing.T, a *App, cmd tea.Cmd) {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for i := 0; len(queue) > 0; i++ {
		require.Less(t, i, 100, "commands did not settle")
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch msg := c().(type) {
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case eventMsg:
			_, next := a.Update(msg)
			queue = append(queue, next)
		}
	}
}

func typePath(t *testing.T, a *App, path string) {
	t.Helper()
	press(a, "p")
	require.Equal(t, inputPath, a.input)
	_, _ = a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(path)})
	settle(t, a, press(a, "enter"))
}

func TestModeKeysUpdateSelectorAndHint(t *testing.T) {
	a := newTestApp(t, 200, `{}`, media.Video)
	require.Contains(t, ansi.Strip(a.View()), "Supported video formats are: MP4, MOV")

	settle(t, a, press(a, "i"))
	require.Equal(t, media.Image, a.State().Selector.Mode())
	require.Equal(t, []string{".png", ".jpg", ".jpeg"}, a.picker.AllowedTypes)
	require.Contains(t, ansi.Strip(a.View()), "PNG, JPG, JPEG")

	settle(t, a, press(a, "tab"))
	require.Equal(t, media.Video, a.State().Selector.Mode())
	require.Equal(t, []string{".mp4", ".mov"}, a.picker.AllowedTypes)
}

func TestPathInputRunsFullCycle(t *testing.T) {
	a := newTestApp(t, 200, `{"label":"Fake","score":"88%","speech_text":"hi there"}`, media.Image)
	typePath(t, a, writePNG(t, "cat.png"))

	s := a.State()
	require.Equal(t, upload.PhaseResult, s.Phase)
	view := ansi.Strip(a.View())
	require.Contains(t, view, "Fake")
	require.Contains(t, view, "88%")
	require.Contains(t, view, "cat.png")
	require.Contains(t, view, "hi there")

	staged := s.Cycle.Staged
	settle(t, a, press(a, "u"))
	require.Equal(t, upload.PhaseIdle, a.State().Phase)
	require.True(t, staged.Released())
}

func TestPathInputDoesNotQuitOnQ(t *testing.T) {
	a := newTestApp(t, 200, `{}`, media.Image)
	press(a, "p")
	press(a, "q")
	require.Equal(t, inputPath, a.input)
	require.Equal(t, "q", a.path.Value())

	press(a, "esc")
	require.Equal(t, inputNone, a.input)
	require.Equal(t, upload.PhaseIdle, a.State().Phase)
}

func TestValidationErrorPanel(t *testing.T) {
	a := newTestApp(t, 200, `{}`, media.Video)
	typePath(t, a, filepath.Join(t.TempDir(), "doc.pdf"))

	require.Equal(t, upload.PhaseError, a.State().Phase)
	view := ansi.Strip(a.View())
	require.Contains(t, view, "Unsupported file type.")
	require.Contains(t, view, "MP4, MOV")

	settle(t, a, press(a, "r"))
	require.Equal(t, upload.PhaseIdle, a.State().Phase)
}

func TestNetworkErrorRaisesAlert(t *testing.T) {
	a := newTestApp(t, http.StatusInternalServerError, `oops`, media.Image)
	typePath(t, a, writePNG(t, "cat.png"))

	s := a.State()
	require.Equal(t, upload.PhaseError, s.Phase)
	require.Equal(t, scopeAlert, a.scope())
	view := ansi.Strip(a.View())
	require.Contains(t, view, upload.NetworkMessage)
	require.Contains(t, view, "No verdict.")

	settle(t, a, press(a, "enter"))
	require.Empty(t, a.State().Alert)
	require.Equal(t, scopeError, a.scope())
	require.NotContains(t, ansi.Strip(a.View()), "Request failed")

	staged := s.Cycle.Staged
	require.False(t, staged.Released())
	settle(t, a, press(a, "r"))
	require.Equal(t, upload.PhaseIdle, a.State().Phase)
	require.True(t, staged.Released())
}

func TestInitSelectsInitialFile(t *testing.T) {
	a := newTestApp(t, 200, `{"label":"Real","score":0.5}`, media.Image)
	a.initial = media.NewCandidate(writePNG(t, "start.png"))
	settle(t, a, a.Init())
	require.Equal(t, upload.PhaseResult, a.State().Phase)
}

func TestQuitKey(t *testing.T) {
	a := newTestApp(t, 200, `{}`, media.Image)
	cmd := press(a, "q")
	require.NotNil(t, cmd)
	require.IsType(t, tea.QuitMsg{}, cmd())
}

func TestPickerOpensAndCloses(t *testing.T) {
	a := newTestApp(t, 200, `{}`, media.Image)
	cmd := press(a, "b")
	require.Equal(t, inputPicker, a.input)
	require.NotNil(t, cmd)
	require.Equal(t, scopeFilePicker, a.scope())

	press(a, "esc")
	require.Equal(t, inputNone, a.input)
}

func TestRenderThumbnail(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 4))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	out := renderThumbnail(img)
	require.Equal(t, "▀▀▀\n▀▀▀", ansi.Strip(out))
	require.Equal(t, lipgloss.Color("#ff0000"), hexColor(color.RGBA{R: 255, A: 255}))
}

func TestLabelColor(t *testing.T) {
	require.Equal(t, colorSuccess, labelColor(" REAL "))
	require.Equal(t, colorError, labelColor("fake"))
	require.Equal(t, colorAccent, labelColor("unsure"))
}
