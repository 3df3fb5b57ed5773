package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ecosort/backend/config"
)

// Label is a waste category assigned by the classification service.
type Label string

const (
	LabelBiodegradable Label = "Biodegradable"
	LabelRecyclable    Label = "Recyclable"
	LabelResidual      Label = "Residual"
	LabelSpecialWaste  Label = "Special Waste"
)

// Labels is the fixed category set. The service contract is: one image in,
// exactly one of these out, or an error.
var Labels = []Label{LabelBiodegradable, LabelRecyclable, LabelResidual, LabelSpecialWaste}

// ErrUnknownLabel is returned when the service answers outside the fixed set.
var ErrUnknownLabel = errors.New("classifier returned unknown label")

// ValidLabel reports whether s is one of the fixed categories.
func ValidLabel(s string) bool {
	for _, l := range Labels {
		if Label(s) == l {
			return true
		}
	}
	return false
}

// Service classifies one image into one label.
type Service interface {
	Classify(ctx context.Context, filename, contentType string, image io.Reader) (Label, error)
}

// Client calls the external inference service over HTTP.
type Client struct {
	url    string
	apiKey string
	http   *http.Client
	logger *zap.Logger
}

// NewClient creates a classifier client from config.
func NewClient(cfg config.ClassifierConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		url:    cfg.URL,
		apiKey: cfg.APIKey,
		http:   &http.Client{Timeout: timeout},
		logger: logger,
	}
}

type classifyResponse struct {
	Label string `json:"label"`
}

// Classify submits the image as multipart form data and returns the label.
func (c *Client) Classify(ctx context.Context, filename, contentType string, image io.Reader) (Label, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", filename)
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, image); err != nil {
		return "", fmt.Errorf("copy image: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &buf)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("classify request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("classifier status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	var out classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if !ValidLabel(out.Label) {
		c.logger.Warn("unknown classifier label", zap.String("label", out.Label))
		return "", fmt.Errorf("%w: %q", ErrUnknownLabel, out.Label)
	}
	return Label(out.Label), nil
}
