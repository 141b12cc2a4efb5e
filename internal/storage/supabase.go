// Package storage uploads and removes objects in Supabase Storage buckets.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	cacheControl       = "3600"
)

// Client talks to the Storage REST API of one Supabase project with the
// service role key.
type Client struct {
	baseURL    string
	serviceKey string
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

func NewClient(projectURL, serviceKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(projectURL), "/") + "/storage/v1",
		serviceKey: strings.TrimSpace(serviceKey),
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Bucket returns a handle on one bucket.
func (c *Client) Bucket(name string) *Bucket {
	return &Bucket{client: c, name: name}
}

// StatusError is a non-2xx answer from the storage API.
type StatusError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("storage %s failed (%d): %s", e.Op, e.StatusCode, e.Message)
}

type Bucket struct {
	client *Client
	name   string
}

func (b *Bucket) Name() string { return b.name }

// Upload stores data at path. With upsert an existing object is replaced,
// otherwise the upload fails on conflict.
func (b *Bucket) Upload(ctx context.Context, path, contentType string, data []byte, upsert bool) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.objectURL(path), bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("storage upload: new request: %w", err)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Cache-Control", "max-age="+cacheControl)
	req.Header.Set("x-upsert", fmt.Sprintf("%t", upsert))
	return b.client.do(req, "upload")
}

// Remove deletes the objects at paths.
func (b *Bucket) Remove(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	body, err := json.Marshal(map[string][]string{"prefixes": paths})
	if err != nil {
		return fmt.Errorf("storage remove: encode: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, b.client.baseURL+"/object/"+url.PathEscape(b.name), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("storage remove: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return b.client.do(req, "remove")
}

// PublicURL is the unauthenticated download URL of path.
func (b *Bucket) PublicURL(path string) string {
	return b.client.baseURL + "/object/public/" + url.PathEscape(b.name) + "/" + escapePath(path)
}

// PathFromURL recovers the object path from a public or signed URL of this
// bucket.
func (b *Bucket) PathFromURL(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	for _, kind := range []string{"public", "sign"} {
		marker := "/storage/v1/object/" + kind + "/" + b.name + "/"
		idx := strings.Index(u.Path, marker)
		if idx < 0 {
			continue
		}
		path := u.Path[idx+len(marker):]
		if path == "" {
			return "", false
		}
		return path, true
	}
	return "", false
}

func (b *Bucket) objectURL(path string) string {
	return b.client.baseURL + "/object/" + url.PathEscape(b.name) + "/" + escapePath(path)
}

// escapePath escapes each segment of an object path, keeping the slashes.
func escapePath(path string) string {
	segments := strings.Split(strings.TrimLeft(path, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

func (c *Client) do(req *http.Request, op string) error {
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("apikey", c.serviceKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("storage %s: %w", op, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= http.StatusMultipleChoices {
		var apiErr struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		msg := strings.TrimSpace(string(body))
		if json.Unmarshal(body, &apiErr) == nil {
			if apiErr.Message != "" {
				msg = apiErr.Message
			} else if apiErr.Error != "" {
				msg = apiErr.Error
			}
		}
		return &StatusError{Op: op, StatusCode: resp.StatusCode, Message: msg}
	}
	return nil
}
