package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jask/realcheck/internal/config"
)

func writeConfig(t *testing.T, baseURL string) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("REALCHECK_CONFIG", "")
	path := filepath.Join(dir, "config.toml")
	body := fmt.Sprintf(`
[inference]
base_url = %q

[media]
default_mode = "image"

[log]
path = %q
`, baseURL, filepath.Join(dir, "realcheck.log"))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func writePNG(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cat.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, 6, 6))))
	require.NoError(t, f.Close())
	return path
}

func classifier(t *testing.T, status int, body string) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestCheckJSON(t *testing.T) {
	cfg := writeConfig(t, classifier(t, http.StatusOK, `{"label":"Real","score":0.91}`))
	img := writePNG(t)

	var stdout, stderr bytes.Buffer
	code := run([]string{"check", "-config", cfg, "-output", "json", img}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	var rep report
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &rep))
	require.Equal(t, "Real", rep.Label)
	require.Equal(t, "0.91", rep.Score)
	require.Equal(t, "image", rep.Mode)
	require.Equal(t, img, rep.File)
	require.Equal(t, []string{"idle", "validating", "staging", "submitting", "result"}, rep.Phases)
}

func TestCheckServerErrorYAML(t *testing.T) {
	cfg := writeConfig(t, classifier(t, http.StatusInternalServerError, `boom`))

	var stdout, stderr bytes.Buffer
	code := run([]string{"check", "-config", cfg, "-output", "yaml", writePNG(t)}, &stdout, &stderr)
	require.Equal(t, 1, code)

	var rep report
	require.NoError(t, yaml.Unmarshal(stdout.Bytes(), &rep))
	require.Equal(t, "network", rep.Failure)
	require.Empty(t, rep.Label)
	require.NotEmpty(t, rep.Preview)
}

func TestCheckValidationText(t *testing.T) {
	cfg := writeConfig(t, classifier(t, http.StatusOK, `{}`))

	var stdout, stderr bytes.Buffer
	code := run([]string{"check", "-config", cfg, "-mode", "video", "doc.pdf"}, &stdout, &stderr)
	require.Equal(t, 1, code)
	require.Contains(t, stdout.String(), "error (validation)")
	require.Contains(t, stdout.String(), "MP4, MOV")
	require.Contains(t, stdout.String(), "idle → validating → error")
}

func TestCheckUsage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.Equal(t, 2, run([]string{"check"}, &stdout, &stderr))
	require.Equal(t, 2, run([]string{"check", "-output", "xml", "a.png"}, &stdout, &stderr))
}

func writeKeybindings(t *testing.T, cfg, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(cfg), "keybindings.toml"), []byte(body), 0o644))
}

func TestKeysPrintsEffectiveBindings(t *testing.T) {
	cfg := writeConfig(t, "http://localhost:5000")
	writeKeybindings(t, cfg, "[scope.idle]\nbrowse = [\"o\"]\n")

	var stdout, stderr bytes.Buffer
	require.Equal(t, 0, run([]string{"keys", "-config", cfg}, &stdout, &stderr), stderr.String())

	out := filepath.Join(t.TempDir(), "dump.toml")
	require.NoError(t, os.WriteFile(out, stdout.Bytes(), 0o644))
	got, err := config.LoadKeybindings(out)
	require.NoError(t, err)
	require.Contains(t, got, config.Keybinding{Scope: "idle", Action: "browse", Keys: []string{"o"}})
	require.Contains(t, got, config.Keybinding{Scope: "global", Action: "quit", Keys: []string{"q", "ctrl+c"}})
}

func TestKeysRejectsConflictingOverride(t *testing.T) {
	cfg := writeConfig(t, "http://localhost:5000")
	writeKeybindings(t, cfg, "[scope.idle]\nbrowse = [\"p\"]\n")

	var stdout, stderr bytes.Buffer
	require.Equal(t, 1, run([]string{"keys", "-config", cfg}, &stdout, &stderr))
	require.Contains(t, stderr.String(), "conflict")
	require.Empty(t, stdout.String())
}
