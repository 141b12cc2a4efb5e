// Package vision identifies trading cards from photos with a vision-capable
// chat completion model.
package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/JulienRioux/slabbers/internal/model"
)

const (
	jsonResponseType   = "json_object"
	defaultHTTPTimeout = 60 * time.Second
	defaultRetryDelay  = time.Second
	defaultBaseURL     = "https://api.openai.com/v1"
	defaultModel       = "gpt-4o"

	// MaxImages is the number of photos sent per identification.
	MaxImages = 6
)

var ErrNoImages = errors.New("vision: at least one image is required")

// Config captures the runtime settings required to talk to the model.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Client wraps the OpenAI chat completions API.
type Client struct {
	cfg        Config
	httpClient *http.Client

	retryAttempts int
	retryDelay    time.Duration
	sleeper       func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetry overrides how often and how long to wait before retrying
// throttled or failed requests.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(c *Client) {
		c.retryAttempts = attempts
		c.retryDelay = delay
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

func NewClient(cfg Config, opts ...Option) *Client {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultHTTPTimeout
	}

	c := &Client{
		cfg:           cfg,
		httpClient:    &http.Client{Timeout: cfg.Timeout},
		retryAttempts: 2,
		retryDelay:    defaultRetryDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Image is one photo of the card.
type Image struct {
	ContentType string
	Data        []byte
}

func (img Image) dataURL() string {
	ct := img.ContentType
	if !strings.HasPrefix(ct, "image/") {
		ct = "image/jpeg"
	}
	return "data:" + ct + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

const identifyPrompt = "You are identifying a sports trading card from photos (possibly inside a graded slab). " +
	"IMPORTANT: Read any visible label text (OCR) from the grading label and the card itself. " +
	"Extract the best-guess structured fields. " +
	"Return JSON ONLY with keys: " +
	"confidence (0-100 integer), title, year, player, manufacturer, team, league, sport, " +
	"set_name, card_number, condition, condition_detail, country_of_origin, " +
	"original_licensed_reprint, parallel_variety, features, season, year_manufactured, " +
	"autograph (boolean|null), is_graded (boolean|null), grading_company, grade, evidence_text. " +
	"Use null for unknown fields. " +
	"For year: return a number. If the card uses a season like 2015-16, return 2015. " +
	"If a graded label is visible, set is_graded=true, grading_company and grade accordingly. " +
	"If the card indicates an autograph, set autograph=true, else false if clearly not. " +
	"evidence_text should be a short concatenation of the key text you read to support the extraction. " +
	"Confidence should reflect how sure you are about the overall identification."

// Identify sends up to MaxImages photos to the model and decodes its answer.
func (c *Client) Identify(ctx context.Context, images []Image) (model.Identification, error) {
	if len(images) == 0 {
		return model.Identification{}, ErrNoImages
	}
	if c.cfg.APIKey == "" {
		return model.Identification{}, errors.New("vision identify: api key required")
	}
	if len(images) > MaxImages {
		images = images[:MaxImages]
	}

	parts := []contentPart{{Type: "text", Text: identifyPrompt}}
	for _, img := range images {
		parts = append(parts, contentPart{Type: "image_url", ImageURL: &imageURL{URL: img.dataURL()}})
	}
	payload := chatCompletionRequest{
		Model:          c.cfg.Model,
		Messages:       []chatMessage{{Role: "user", Content: parts}},
		Temperature:    0,
		ResponseFormat: map[string]string{"type": jsonResponseType},
	}

	content, err := c.completeWithRetry(ctx, payload)
	if err != nil {
		return model.Identification{}, err
	}
	return DecodeIdentification(content)
}

type chatCompletionRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Refusal string `json:"refusal"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type httpStatusError struct {
	StatusCode int
	Body       string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("vision request: http %d: %s", e.StatusCode, e.Body)
}

func (e *httpStatusError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

func (c *Client) completeWithRetry(ctx context.Context, payload chatCompletionRequest) (string, error) {
	attempts := c.retryAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		content, err := c.completeOnce(ctx, payload)
		if err == nil {
			return content, nil
		}
		lastErr = err

		var statusErr *httpStatusError
		if !errors.As(err, &statusErr) || !statusErr.retryable() || attempt == attempts {
			break
		}
		if err := c.sleep(ctx, c.retryDelay*time.Duration(attempt)); err != nil {
			return "", err
		}
	}
	return "", lastErr
}

func (c *Client) completeOnce(ctx context.Context, payload chatCompletionRequest) (string, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("vision request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("vision request: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("vision request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("vision request: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", &httpStatusError{StatusCode: resp.StatusCode, Body: snippet(string(body))}
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", fmt.Errorf("vision request: decode response: %w", err)
	}
	if completion.Error != nil {
		return "", fmt.Errorf("vision request: api error: %s", strings.TrimSpace(completion.Error.Message))
	}
	for _, choice := range completion.Choices {
		if content := strings.TrimSpace(choice.Message.Content); content != "" {
			return content, nil
		}
		if refusal := strings.TrimSpace(choice.Message.Refusal); refusal != "" {
			return "", fmt.Errorf("vision request: model refused: %s", refusal)
		}
	}
	return "", errors.New("vision request: empty content")
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func snippet(s string) string {
	clean := strings.Join(strings.Fields(s), " ")
	const limit = 160
	if runes := []rune(clean); len(runes) > limit {
		return string(runes[:limit]) + "..."
	}
	return clean
}
