package mistral

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/toricodesthings/ink-to-pixels/internal/ocr"
)

const (
	DefaultModel    = "mistral-ocr-latest"
	DefaultEndpoint = "https://api.mistral.ai/v1/ocr"
)

var ErrMissingAPIKey = errors.New("missing MISTRAL_API_KEY")

type ocrPage struct {
	Index    int    `json:"index"`    // 0-indexed
	Markdown string `json:"markdown"` // extracted markdown
}

type ocrResponse struct {
	Pages []ocrPage `json:"pages"`
}

// Engine sends page images to the Mistral OCR API. It holds no per-call
// state and is safe for concurrent use.
type Engine struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

type Option func(*Engine)

func WithModel(model string) Option {
	return func(e *Engine) {
		if model != "" {
			e.model = model
		}
	}
}

func WithEndpoint(endpoint string) Option {
	return func(e *Engine) {
		if endpoint != "" {
			e.endpoint = endpoint
		}
	}
}

func WithHTTPClient(c *http.Client) Option {
	return func(e *Engine) {
		if c != nil {
			e.client = c
		}
	}
}

func New(apiKey string, opts ...Option) *Engine {
	e := &Engine{
		apiKey:   apiKey,
		model:    DefaultModel,
		endpoint: DefaultEndpoint,
		client:   &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Name() string { return "mistral" }

// Recognize uploads the page as a PNG data URL. Every non-empty line of the
// returned markdown becomes one observation.
func (e *Engine) Recognize(ctx context.Context, img image.Image) ([]ocr.Observation, error) {
	if e.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode page: %w", err)
	}

	body := map[string]any{
		"model": e.model,
		"document": map[string]any{
			"type":      "image_url",
			"image_url": "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
		},
	}
	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+e.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slurp, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return nil, fmt.Errorf("mistral ocr error %d: %s", resp.StatusCode, strings.TrimSpace(string(slurp)))
	}

	var parsed ocrResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode mistral response: %w", err)
	}

	var obs []ocr.Observation
	for _, p := range parsed.Pages {
		for _, line := range strings.Split(cleanOCRText(p.Markdown), "\n") {
			if strings.TrimSpace(line) == "" {
				continue
			}
			obs = append(obs, ocr.Observation{Candidates: []ocr.Candidate{{Text: line}}})
		}
	}
	return obs, nil
}
