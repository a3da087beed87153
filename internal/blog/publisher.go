package blog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Publisher errors.
var (
	ErrUnexpectedStatusCode = errors.New("unexpected status code")
	ErrNoImageURL           = errors.New("upload response has no url")
	ErrMissingBaseURL       = errors.New("base API URL is not configured")
)

// Post is the body of the publish call.
type Post struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Blog     string `json:"blog"`
	Tag      string `json:"tag"`
	ImageURL string `json:"imageUrl"`
}

// Ensure HTTPPublisher implements Publisher.
var _ Publisher = (*HTTPPublisher)(nil)

// HTTPPublisher talks to the Crypto Briefs backend.
type HTTPPublisher struct {
	httpClient *http.Client
	baseURL    string
}

// NewHTTPPublisher creates a publisher rooted at baseURL, which gains a trailing slash if missing.
func NewHTTPPublisher(baseURL string, timeout time.Duration) *HTTPPublisher {
	if baseURL != "" && !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &HTTPPublisher{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// UploadImage stores a base64 encoded image and returns its public URL.
func (p *HTTPPublisher) UploadImage(ctx context.Context, imageBase64 string) (string, error) {
	var out struct {
		URL string `json:"url"`
	}
	if err := p.post(ctx, "api/upload", map[string]string{"base64": imageBase64}, &out); err != nil {
		return "", fmt.Errorf("image upload failed: %w", err)
	}
	if out.URL == "" {
		return "", ErrNoImageURL
	}
	return out.URL, nil
}

// Publish creates the blog post.
func (p *HTTPPublisher) Publish(ctx context.Context, post Post) error {
	if err := p.post(ctx, "api/blog", post, nil); err != nil {
		return fmt.Errorf("publish failed: %w", err)
	}
	return nil
}

// TriggerSummary asks the backend to rebuild its news summary.
func (p *HTTPPublisher) TriggerSummary(ctx context.Context) error {
	if err := p.post(ctx, "api/briefs/addSummary", struct{}{}, nil); err != nil {
		return fmt.Errorf("summary trigger failed: %w", err)
	}
	return nil
}

func (p *HTTPPublisher) post(ctx context.Context, path string, body any, out any) (err error) {
	if p.baseURL == "" {
		return ErrMissingBaseURL
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close response body: %w", closeErr)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %d, body: %s", ErrUnexpectedStatusCode, resp.StatusCode, truncate(string(respBody), 200))
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
