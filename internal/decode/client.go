package decode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/vinscan/internal/common"
	"github.com/joseph-ayodele/vinscan/internal/vin"
)

const (
	ProviderName   = "vpic"
	DefaultBaseURL = "https://vpic.nhtsa.dot.gov/api"
)

type Config struct {
	BaseURL    string
	Timeout    time.Duration
	Attempts   uint
	RetryDelay time.Duration
}

// ConfigFrom copies the decode section of the application config.
func ConfigFrom(c common.DecodeConfig) Config {
	return Config{BaseURL: c.BaseURL, Timeout: c.Timeout, Attempts: c.Attempts, RetryDelay: c.RetryDelay}
}

// Vehicle is the decoded description of a VIN. Partial is set when vPIC reported
// decoding problems but still returned some attributes.
type Vehicle struct {
	VIN       string `json:"vin"`
	Make      string `json:"make,omitempty"`
	Model     string `json:"model,omitempty"`
	Year      string `json:"year,omitempty"`
	Engine    string `json:"engine,omitempty"`
	Trim      string `json:"trim,omitempty"`
	BodyClass string `json:"body_class,omitempty"`
	ErrorCode string `json:"error_code"`
	ErrorText string `json:"error_text,omitempty"`
	Partial   bool   `json:"partial"`
}

// Client decodes VINs against the NHTSA vPIC API.
type Client struct {
	baseURL  string
	attempts uint
	delay    time.Duration
	http     *http.Client
	schema   *jsonschema.Schema
	logger   *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Attempts == 0 {
		cfg.Attempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}
	schema, err := compileSchema(decodeResponseSchema())
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		attempts: cfg.Attempts,
		delay:    cfg.RetryDelay,
		http:     &http.Client{Timeout: cfg.Timeout},
		schema:   schema,
		logger:   logger,
	}, nil
}

// Decode looks up v. Strings that are not VIN-shaped are refused before any
// network call.
func (c *Client) Decode(ctx context.Context, v string) (*Vehicle, error) {
	if !vin.IsValidShape(v) {
		return nil, fmt.Errorf("%w: %q is not a valid VIN (%s)", common.ErrInvalidInput, v,
			strings.Join(vin.ShapeViolations(v), ", "))
	}
	v = strings.ToUpper(v)
	logger := common.LoggerWith(ctx, c.logger).With("provider", ProviderName, "vin", v)
	start := time.Now()

	var body []byte
	err := retry.Do(
		func() error {
			b, err := c.get(ctx, "/vehicles/DecodeVinValues/"+v+"?format=json")
			if err != nil {
				return err
			}
			body = b
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(common.RetryableHTTP),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("decode.retry", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		logger.Error("decode.failed", "error", err)
		return nil, common.ClassifyHTTPError(ctx, ProviderName, err)
	}

	if err := validateAgainst(c.schema, body); err != nil {
		logger.Error("decode.bad_response", "error", err)
		return nil, fmt.Errorf("%w: %s: %v", common.ErrUnavailable, ProviderName, err)
	}

	var resp decodeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", common.ErrUnavailable, ProviderName, err)
	}
	veh := toVehicle(v, resp.Results[0])
	if veh.Partial && veh.Make == "" && veh.Model == "" && veh.Year == "" {
		logger.Info("decode.unknown", "error_code", veh.ErrorCode)
		return nil, fmt.Errorf("%w: %s could not decode %s: %s", common.ErrNotFound, ProviderName, v, veh.ErrorText)
	}
	logger.Info("decode.ok", "make", veh.Make, "year", veh.Year, "partial", veh.Partial,
		"duration_ms", time.Since(start).Milliseconds())
	return veh, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := string(body)
		if len(msg) > 256 {
			msg = msg[:256]
		}
		return nil, &common.StatusError{Provider: ProviderName, Code: resp.StatusCode, Message: msg}
	}
	return body, nil
}

type decodeResponse struct {
	Count   int            `json:"Count"`
	Message string         `json:"Message"`
	Results []decodeResult `json:"Results"`
}

type decodeResult struct {
	ErrorCode       string `json:"ErrorCode"`
	ErrorText       string `json:"ErrorText"`
	Make            string `json:"Make"`
	Model           string `json:"Model"`
	ModelYear       string `json:"ModelYear"`
	Trim            string `json:"Trim"`
	BodyClass       string `json:"BodyClass"`
	DisplacementL   string `json:"DisplacementL"`
	EngineCylinders string `json:"EngineCylinders"`
	EngineModel     string `json:"EngineModel"`
}

func toVehicle(v string, r decodeResult) *Vehicle {
	return &Vehicle{
		VIN:       v,
		Make:      strings.TrimSpace(r.Make),
		Model:     strings.TrimSpace(r.Model),
		Year:      strings.TrimSpace(r.ModelYear),
		Engine:    engineOf(r),
		Trim:      strings.TrimSpace(r.Trim),
		BodyClass: strings.TrimSpace(r.BodyClass),
		ErrorCode: r.ErrorCode,
		ErrorText: strings.TrimSpace(r.ErrorText),
		Partial:   !cleanDecode(r.ErrorCode),
	}
}

// cleanDecode: vPIC reports a comma-separated list of codes; "0" alone is clean.
func cleanDecode(code string) bool {
	for _, c := range strings.Split(code, ",") {
		if strings.TrimSpace(c) != "0" {
			return false
		}
	}
	return true
}

// engineOf renders e.g. "2.0L 4-cyl K20C1".
func engineOf(r decodeResult) string {
	var parts []string
	if d := strings.TrimSpace(r.DisplacementL); d != "" {
		if f, err := strconv.ParseFloat(d, 64); err == nil {
			d = strconv.FormatFloat(f, 'f', 1, 64)
		}
		parts = append(parts, d+"L")
	}
	if cyl := strings.TrimSpace(r.EngineCylinders); cyl != "" {
		parts = append(parts, cyl+"-cyl")
	}
	if m := strings.TrimSpace(r.EngineModel); m != "" {
		parts = append(parts, m)
	}
	return strings.Join(parts, " ")
}
