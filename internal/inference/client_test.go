package inference

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/jask/realcheck/internal/media"
	"github.com/jask/realcheck/internal/observe"
	"github.com/jask/realcheck/internal/stage"
)

func stagePNG(t *testing.T, name string) *stage.Media {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, 8, 8))))
	require.NoError(t, f.Close())

	m, err := stage.NewStager(0, 0).Stage(context.Background(), media.NewCandidate(path), media.Image)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Release() })
	return m
}

func newTestClient(t *testing.T, srv *httptest.Server, opts ...Option) *Client {
	t.Helper()
	c, err := New(Config{BaseURL: srv.URL}, opts...)
	require.NoError(t, err)
	return c
}

func TestSubmitPostsSingleFilePart(t *testing.T) {
	type seen struct {
		path, field, filename, ctype string
		fields                       int
		size                         int
	}
	got := make(chan seen, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		mr, err := r.MultipartReader()
		require.NoError(t, err)
		var s seen
		s.path = r.URL.Path
		for {
			p, err := mr.NextPart()
			if errors.Is(err, io.EOF) {
				break
			}
			require.NoError(t, err)
			data, err := io.ReadAll(p)
			require.NoError(t, err)
			s.fields++
			s.field = p.FormName()
			s.filename = p.FileName()
			s.ctype = p.Header.Get("Content-Type")
			s.size = len(data)
		}
		got <- s
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"label":"Real","score":0.97,"speech_text":"hello"}`)
	}))
	defer srv.Close()

	m := stagePNG(t, "cat.png")
	res, err := newTestClient(t, srv).Submit(context.Background(), media.Image, m)
	require.NoError(t, err)
	require.Equal(t, "Real", res.Label)
	require.Equal(t, Score("0.97"), res.Score)
	require.Equal(t, "hello", res.SpeechText)

	s := <-got
	require.Equal(t, "/predict_image", s.path)
	require.Equal(t, 1, s.fields)
	require.Equal(t, "image", s.field)
	require.Equal(t, "cat.png", s.filename)
	require.Equal(t, "image/png", s.ctype)
	require.EqualValues(t, m.Size(), s.size)
}

func TestEndpointAndFieldPerMode(t *testing.T) {
	c, err := New(Config{BaseURL: "http://example.test/api/", VideoPath: "/v2/video/"})
	require.NoError(t, err)
	require.Equal(t, "http://example.test/api/predict_image", c.Endpoint(media.Image))
	require.Equal(t, "http://example.test/api/v2/video", c.Endpoint(media.Video))
	require.Equal(t, "image", FieldName(media.Image))
	require.Equal(t, "video", FieldName(media.Video))
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	_, err := New(Config{BaseURL: "ftp://example.test"})
	require.Error(t, err)
}

func TestSubmitBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).Submit(context.Background(), media.Image, stagePNG(t, "a.png"))
	require.ErrorIs(t, err, ErrNetwork)
	var nerr *NetworkError
	require.ErrorAs(t, err, &nerr)
	require.Equal(t, BadStatus, nerr.Kind)
	require.Equal(t, http.StatusInternalServerError, nerr.Status)
	require.Contains(t, err.Error(), "HTTP 500")
}

func TestSubmitMalformedResponse(t *testing.T) {
	cases := map[string]string{
		"not json":      `<html>`,
		"missing label": `{"score":0.5}`,
		"missing score": `{"label":"Real"}`,
		"null score":    `{"label":"Real","score":null}`,
		"blank score":   `{"label":"Real","score":" "}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, body)
			}))
			defer srv.Close()

			_, err := newTestClient(t, srv).Submit(context.Background(), media.Image, stagePNG(t, "a.png"))
			var nerr *NetworkError
			require.ErrorAs(t, err, &nerr)
			require.Equal(t, MalformedResponse, nerr.Kind)
			require.ErrorIs(t, err, ErrNetwork)
		})
	}
}

func TestSubmitTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	c := newTestClient(t, srv)
	srv.Close()

	_, err := c.Submit(context.Background(), media.Image, stagePNG(t, "a.png"))
	var nerr *NetworkError
	require.ErrorAs(t, err, &nerr)
	require.Equal(t, Transport, nerr.Kind)
}

func TestSubmitReleasedMedia(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { hits++ }))
	defer srv.Close()

	m := stagePNG(t, "a.png")
	require.NoError(t, m.Release())
	_, err := newTestClient(t, srv).Submit(context.Background(), media.Image, m)
	require.ErrorIs(t, err, stage.ErrReleased)
	require.ErrorIs(t, err, ErrNetwork)
	require.Zero(t, hits)
}

func TestSubmitRecordsMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	metrics, err := observe.NewMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err = newTestClient(t, srv, WithMetrics(metrics)).Submit(context.Background(), media.Image, stagePNG(t, "a.png"))
	require.Error(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	var found bool
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "realcheck.inference.requests" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			require.Len(t, sum.DataPoints, 1)
			status, _ := sum.DataPoints[0].Attributes.Value("status")
			require.Equal(t, "bad_status", status.AsString())
			found = true
		}
	}
	require.True(t, found)
}

func TestScoreDecoding(t *testing.T) {
	var r Result
	require.NoError(t, json.Unmarshal([]byte(`{"label":"Fake","score":"87.5%"}`), &r))
	require.Equal(t, Score("87.5%"), r.Score)
	f, ok := r.Score.Fraction()
	require.True(t, ok)
	require.InDelta(t, 0.875, f, 1e-9)

	require.NoError(t, json.Unmarshal([]byte(`{"label":"Real","score":0.25}`), &r))
	f, ok = r.Score.Fraction()
	require.True(t, ok)
	require.InDelta(t, 0.25, f, 1e-9)

	require.NoError(t, json.Unmarshal([]byte(`{"label":"Real","score":null}`), &r))
	_, ok = r.Score.Fraction()
	require.False(t, ok)

	_, ok = Score("high").Fraction()
	require.False(t, ok)
	_, ok = Score("250").Fraction()
	require.False(t, ok)

	require.Error(t, json.Unmarshal([]byte(`{"label":"Real","score":true}`), &r))
}
