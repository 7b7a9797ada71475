// Package inference talks to the remote real/fake classifier.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"

	"github.com/jask/realcheck/internal/media"
	"github.com/jask/realcheck/internal/observe"
	"github.com/jask/realcheck/internal/stage"
)

const (
	DefaultBaseURL   = "http://localhost:5000"
	DefaultImagePath = "predict_image"
	DefaultVideoPath = "predict_video"
)

// Config selects the classifier endpoints.
type Config struct {
	BaseURL   string
	ImagePath string
	VideoPath string
	// Timeout bounds one request; zero means no client-side bound.
	Timeout time.Duration
}

// Client submits staged media. It never retries.
type Client struct {
	base    *url.URL
	paths   map[media.Mode]string
	timeout time.Duration
	http    *http.Client
	metrics *observe.Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithMetrics records request metrics on m.
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

func New(cfg Config, opts ...Option) (*Client, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		raw = DefaultBaseURL
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("inference: parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("inference: base url %q must be http or https", raw)
	}
	c := &Client{
		base: base,
		paths: map[media.Mode]string{
			media.Image: orDefault(cfg.ImagePath, DefaultImagePath),
			media.Video: orDefault(cfg.VideoPath, DefaultVideoPath),
		},
		timeout: cfg.Timeout,
		http:    http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func orDefault(v, def string) string {
	if v = strings.Trim(strings.TrimSpace(v), "/"); v != "" {
		return v
	}
	return def
}

// FieldName is the multipart field carrying the file for mode.
func FieldName(mode media.Mode) string {
	if mode == media.Video {
		return "video"
	}
	return "image"
}

// Endpoint is the URL the file for mode is posted to.
func (c *Client) Endpoint(mode media.Mode) string {
	return c.base.JoinPath(c.paths[mode]).String()
}

// Submit posts the staged file and decodes the verdict. Every failure is a
// *NetworkError.
func (c *Client) Submit(ctx context.Context, mode media.Mode, m *stage.Media) (Result, error) {
	endpoint := c.Endpoint(mode)
	log := zerolog.Ctx(ctx).With().Str("endpoint", endpoint).Str("mode", mode.String()).Logger()

	start := time.Now()
	res, err := c.submit(ctx, endpoint, mode, m)
	elapsed := time.Since(start)

	status := "ok"
	var nerr *NetworkError
	if errors.As(err, &nerr) {
		status = nerr.Kind.String()
	}
	c.metrics.RecordInference(ctx, mode.String(), status, elapsed)

	if err != nil {
		log.Warn().Err(err).Dur("elapsed", elapsed).Msg("inference failed")
		return Result{}, err
	}
	log.Info().Str("label", res.Label).Str("score", res.Score.String()).Dur("elapsed", elapsed).Msg("inference complete")
	return res, nil
}

func (c *Client) submit(ctx context.Context, endpoint string, mode media.Mode, m *stage.Media) (Result, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	body, contentType, err := encodeForm(mode, m)
	if err != nil {
		return Result{}, &NetworkError{Kind: Transport, Endpoint: endpoint, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return Result{}, &NetworkError{Kind: Transport, Endpoint: endpoint, Err: err}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, &NetworkError{Kind: Transport, Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return Result{}, &NetworkError{Kind: BadStatus, Endpoint: endpoint, Status: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, &NetworkError{Kind: Transport, Endpoint: endpoint, Err: fmt.Errorf("read body: %w", err)}
	}
	var out Result
	if err := json.Unmarshal(data, &out); err != nil {
		return Result{}, &NetworkError{Kind: MalformedResponse, Endpoint: endpoint, Err: err}
	}
	if strings.TrimSpace(out.Label) == "" {
		return Result{}, &NetworkError{Kind: MalformedResponse, Endpoint: endpoint, Err: errors.New("missing label")}
	}
	if strings.TrimSpace(string(out.Score)) == "" {
		return Result{}, &NetworkError{Kind: MalformedResponse, Endpoint: endpoint, Err: errors.New("missing score")}
	}
	return out, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// encodeForm builds a multipart body with a single file field.
func encodeForm(mode media.Mode, m *stage.Media) (io.Reader, string, error) {
	head, err := m.Open()
	if err != nil {
		return nil, "", err
	}
	mtype, err := mimetype.DetectReader(head)
	if err != nil {
		return nil, "", fmt.Errorf("detect content type: %w", err)
	}

	r, err := m.Open()
	if err != nil {
		return nil, "", err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		FieldName(mode), quoteEscaper.Replace(m.File.Name)))
	h.Set("Content-Type", mtype.String())
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("create form part: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, "", fmt.Errorf("write form part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return &body, mw.FormDataContentType(), nil
}
