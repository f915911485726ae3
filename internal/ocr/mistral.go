package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/joseph-ayodele/vinscan/internal/common"
	"github.com/joseph-ayodele/vinscan/internal/media"
	"github.com/joseph-ayodele/vinscan/internal/vin"
)

const (
	MistralName    = "mistral-ocr"
	MistralBaseURL = "https://api.mistral.ai/v1"
	MistralModel   = "mistral-ocr-latest"
)

// MistralConfig holds configuration for the Mistral OCR client.
type MistralConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	Attempts   uint
	RetryDelay time.Duration
}

// Mistral implements Engine using the Mistral OCR API. The API returns page
// markdown without per-line confidence, so every block carries -1 and scoring
// falls back to the default base confidence.
type Mistral struct {
	apiKey   string
	baseURL  string
	model    string
	attempts uint
	delay    time.Duration
	client   *http.Client
	logger   *slog.Logger
}

func NewMistral(cfg MistralConfig, logger *slog.Logger) *Mistral {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = MistralBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = MistralModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Attempts == 0 {
		cfg.Attempts = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}
	return &Mistral{
		apiKey:   cfg.APIKey,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		model:    cfg.Model,
		attempts: cfg.Attempts,
		delay:    cfg.RetryDelay,
		client:   &http.Client{Timeout: cfg.Timeout},
		logger:   logger,
	}
}

func (c *Mistral) Name() string { return MistralName }

func (c *Mistral) Recognize(ctx context.Context, img media.Image) ([]vin.TextBlock, error) {
	start := time.Now()
	logger := common.LoggerWith(ctx, c.logger).With("engine", MistralName)

	if img.IsHEIC() {
		return nil, fmt.Errorf("%w: %s does not accept HEIC images", common.ErrInvalidInput, MistralName)
	}

	reqBody := mistralOCRRequest{
		Model: c.model,
		Document: mistralDocument{
			Type:     "image_url",
			ImageURL: &mistralImageURL{URL: img.DataURL()},
		},
	}

	var resp *mistralOCRResponse
	err := retry.Do(
		func() error {
			r, err := c.doRequest(ctx, "/ocr", reqBody)
			if err != nil {
				return err
			}
			resp = r
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(common.RetryableHTTP),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("ocr.mistral.retry", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return nil, common.ClassifyHTTPError(ctx, MistralName, err)
	}

	var blocks []vin.TextBlock
	for _, p := range resp.Pages {
		for _, ln := range markdownLines(p.Markdown) {
			blocks = append(blocks, vin.TextBlock{Text: ln, Confidence: -1})
		}
	}
	logger.Debug("ocr.mistral.ok", "pages", len(resp.Pages), "lines", len(blocks), "duration_ms", time.Since(start).Milliseconds())
	return blocks, nil
}

func (c *Mistral) doRequest(ctx context.Context, path string, body any) (*mistralOCRResponse, error) {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := string(respBody)
		var errResp mistralErrorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error.Message != "" {
			msg = errResp.Error.Message
		}
		return nil, &common.StatusError{Provider: MistralName, Code: resp.StatusCode, Message: truncate(msg, 512)}
	}

	var ocrResp mistralOCRResponse
	if err := json.Unmarshal(respBody, &ocrResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &ocrResp, nil
}

var (
	reMDPrefix   = regexp.MustCompile(`^\s*(?:#{1,6}|[-*+>]|\d+\.)\s+`)
	reMDEmphasis = regexp.MustCompile("[*`]+")
	reMDRule     = regexp.MustCompile(`^[\s\-:|=]*$`)
	reMultiSpace = regexp.MustCompile(`\s{2,}`)
)

// markdownLines flattens page markdown into plain text lines.
func markdownLines(md string) []string {
	var out []string
	for _, ln := range strings.Split(strings.ReplaceAll(md, "\r\n", "\n"), "\n") {
		if reMDRule.MatchString(ln) {
			continue
		}
		ln = reMDPrefix.ReplaceAllString(ln, "")
		ln = reMDEmphasis.ReplaceAllString(ln, "")
		ln = strings.ReplaceAll(ln, "|", " ")
		ln = strings.TrimSpace(reMultiSpace.ReplaceAllString(ln, " "))
		if ln != "" {
			out = append(out, ln)
		}
	}
	return out
}

// Mistral OCR API types

type mistralOCRRequest struct {
	Model              string          `json:"model"`
	Document           mistralDocument `json:"document"`
	IncludeImageBase64 bool            `json:"include_image_base64,omitempty"`
}

type mistralDocument struct {
	Type     string           `json:"type"` // "image_url" or "document_url"
	ImageURL *mistralImageURL `json:"image_url,omitempty"`
}

type mistralImageURL struct {
	URL string `json:"url"`
}

type mistralOCRResponse struct {
	Model string           `json:"model"`
	Pages []mistralOCRPage `json:"pages"`
}

type mistralOCRPage struct {
	Index    int    `json:"index"`
	Markdown string `json:"markdown"`
}

type mistralErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

var _ Engine = (*Mistral)(nil)
