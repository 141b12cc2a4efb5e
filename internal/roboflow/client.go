// Package roboflow locates trading cards in photos with a hosted Roboflow
// detection workflow.
package roboflow

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
)

const (
	DefaultWorkflowURL = "https://serverless.roboflow.com/patio-ppznd/workflows/find-graded-cases-trading-cards-slabs-and-otherwise-the-trading-card-itselves"
	defaultHTTPTimeout = 30 * time.Second
)

type Config struct {
	APIKey      string
	WorkflowURL string
}

type Client struct {
	cfg        Config
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func NewClient(cfg Config, opts ...Option) *Client {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.WorkflowURL = strings.TrimSpace(cfg.WorkflowURL)
	if cfg.WorkflowURL == "" {
		cfg.WorkflowURL = DefaultWorkflowURL
	}
	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type workflowRequest struct {
	APIKey string         `json:"api_key"`
	Inputs workflowInputs `json:"inputs"`
}

type workflowInputs struct {
	Image workflowImage `json:"image"`
}

type workflowImage struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Predictions runs the workflow on a JPEG and returns every raw prediction
// object found in its response.
func (c *Client) Predictions(ctx context.Context, jpeg []byte) ([]any, error) {
	if c.cfg.APIKey == "" {
		return nil, errors.New("roboflow: api key required")
	}

	body, err := json.Marshal(workflowRequest{
		APIKey: c.cfg.APIKey,
		Inputs: workflowInputs{Image: workflowImage{Type: "base64", Value: base64.StdEncoding.EncodeToString(jpeg)}},
	})
	if err != nil {
		return nil, fmt.Errorf("roboflow: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.WorkflowURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("roboflow: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("roboflow: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("roboflow: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("roboflow request failed (%d): %s", resp.StatusCode, apiErr.Error)
		}
		return nil, fmt.Errorf("roboflow request failed (%d)", resp.StatusCode)
	}

	var result any
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("roboflow: decode response: %w", err)
	}
	return collectPredictions(result), nil
}
