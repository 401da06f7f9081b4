package splunk

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a thin wrapper over the splunkd management API. All the heavy
// lifting (search execution, scheduling, indexing) happens server-side;
// this client only builds requests, classifies failures, and decodes JSON.
type Client struct {
	BaseURL    string
	Token      string
	Username   string
	Password   string
	App        string
	Owner      string
	HTTPClient *http.Client
	// SearchTimeout is the default deadline for search dispatch calls
	// (oneshot and blocking) when no per-call timeout is given.
	SearchTimeout time.Duration
	MaxRetries    int
	Backoff       float64
	Debug         bool
}

// Options for configuring the client.
type Options struct {
	Token         string
	Username      string
	Password      string
	App           string
	Owner         string
	InsecureSSL   bool
	Timeout       time.Duration
	SearchTimeout time.Duration
	MaxRetries    int
	Backoff       float64
	Debug         bool
}

// NewClient creates a client for the splunkd management port. baseURL is
// the scheme+host+port, e.g. https://splunk.example.com:8089.
func NewClient(baseURL string, options *Options) *Client {
	if options == nil {
		options = &Options{}
	}
	if options.Timeout <= 0 {
		options.Timeout = 30 * time.Second
	}
	if options.SearchTimeout <= 0 {
		options.SearchTimeout = 300 * time.Second
	}
	if options.MaxRetries <= 0 {
		options.MaxRetries = 3
	}
	if options.Backoff <= 0 {
		options.Backoff = 2.0
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: options.InsecureSSL}
	httpClient := &http.Client{
		Timeout:   options.Timeout,
		Transport: transport,
	}

	return &Client{
		BaseURL:       strings.TrimRight(baseURL, "/"),
		Token:         options.Token,
		Username:      options.Username,
		Password:      options.Password,
		App:           options.App,
		Owner:         options.Owner,
		HTTPClient:    httpClient,
		SearchTimeout: options.SearchTimeout,
		MaxRetries:    options.MaxRetries,
		Backoff:       options.Backoff,
		Debug:         options.Debug,
	}
}

// endpointURL joins path onto the base URL. Paths beginning with /services
// or /servicesNS are used as-is; anything else is namespaced under
// /services, or /servicesNS/{owner}/{app} when an app context is set.
func (c *Client) endpointURL(path string) string {
	path = "/" + strings.TrimLeft(path, "/")
	if strings.HasPrefix(path, "/services/") || strings.HasPrefix(path, "/servicesNS/") {
		return c.BaseURL + path
	}
	if c.App != "" {
		owner := c.Owner
		if owner == "" {
			owner = "nobody"
		}
		return c.BaseURL + "/servicesNS/" + url.PathEscape(owner) + "/" + url.PathEscape(c.App) + path
	}
	return c.BaseURL + "/services" + path
}

// splitQuery moves a query string embedded in path into params, so a
// passthrough endpoint like /services/data/indexes?count=5 keeps its
// parameters when the client adds its own.
func splitQuery(path string, params url.Values) (string, url.Values) {
	if params == nil {
		params = url.Values{}
	}
	trimmed, rawQuery, found := strings.Cut(path, "?")
	if !found {
		return path, params
	}
	parsed, _ := url.ParseQuery(rawQuery)
	for key, values := range parsed {
		for _, value := range values {
			params.Add(key, value)
		}
	}
	return trimmed, params
}

// Get issues a GET request and decodes the JSON response.
func (c *Client) Get(ctx context.Context, path string, params url.Values, operation string) (map[string]any, error) {
	path, params = splitQuery(path, params)
	if params.Get("output_mode") == "" {
		params.Set("output_mode", "json")
	}

	endpoint := c.endpointURL(path) + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	return c.do(req, operation, true)
}

// Post issues a form-encoded POST request and decodes the JSON response.
func (c *Client) Post(ctx context.Context, path string, form url.Values, operation string) (map[string]any, error) {
	if form == nil {
		form = url.Values{}
	}
	if form.Get("output_mode") == "" {
		form.Set("output_mode", "json")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpointURL(path), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, operation, false)
}

// PostWithTimeout is Post with a per-call deadline, used for search
// dispatch which can far exceed the normal request timeout. A zero
// timeout falls back to the client's SearchTimeout.
func (c *Client) PostWithTimeout(ctx context.Context, path string, form url.Values, timeout time.Duration, operation string) (map[string]any, error) {
	if timeout <= 0 {
		timeout = c.SearchTimeout
	}
	if timeout <= 0 {
		return c.Post(ctx, path, form, operation)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if form == nil {
		form = url.Values{}
	}
	if form.Get("output_mode") == "" {
		form.Set("output_mode", "json")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpointURL(path), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	// The client-level timeout would cut the blocking dispatch short, so
	// rely on the context deadline alone for this request.
	client := &http.Client{Transport: c.HTTPClient.Transport}
	return c.doWith(client, req, operation, false)
}

// Delete issues a DELETE request and decodes the JSON response.
func (c *Client) Delete(ctx context.Context, path string, operation string) (map[string]any, error) {
	path, params := splitQuery(path, nil)
	params.Set("output_mode", "json")
	endpoint := c.endpointURL(path) + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	return c.do(req, operation, false)
}

func (c *Client) setAuth(req *http.Request) {
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	} else if c.Username != "" && c.Password != "" {
		req.SetBasicAuth(c.Username, c.Password)
	}
}

func (c *Client) do(req *http.Request, operation string, retryable bool) (map[string]any, error) {
	return c.doRetry(c.HTTPClient, req, operation, retryable)
}

func (c *Client) doWith(client *http.Client, req *http.Request, operation string, retryable bool) (map[string]any, error) {
	return c.doRetry(client, req, operation, retryable)
}

// doRetry sends the request, retrying on 429, 503 and transport errors.
// Non-idempotent requests are retried only on 429/503, where splunkd has
// rejected the request before acting on it.
func (c *Client) doRetry(client *http.Client, req *http.Request, operation string, retryable bool) (map[string]any, error) {
	var body []byte
	if req.Body != nil && req.GetBody != nil {
		// Preserve the form payload so the request can be re-sent.
		b, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("error buffering request body: %w", err)
		}
		body = b
	}

	wait := 500 * time.Millisecond
	var lastErr error
	for attempt := 0; attempt < c.MaxRetries; attempt++ {
		if attempt > 0 {
			if c.Debug {
				log.Printf("DEBUG: retry %d/%d for %s %s after %v", attempt, c.MaxRetries-1, req.Method, req.URL.Path, wait)
			}
			select {
			case <-req.Context().Done():
				return nil, req.Context().Err()
			case <-time.After(wait):
			}
			wait = time.Duration(float64(wait) * c.Backoff)
		}

		attemptReq := req
		if body != nil {
			attemptReq = req.Clone(req.Context())
			attemptReq.Body = io.NopCloser(strings.NewReader(string(body)))
		}
		c.setAuth(attemptReq)

		if c.Debug {
			log.Printf("DEBUG: %s %s", attemptReq.Method, attemptReq.URL)
		}

		resp, err := client.Do(attemptReq)
		if err != nil {
			lastErr = fmt.Errorf("error sending request: %w", err)
			if req.Context().Err() != nil {
				return nil, lastErr
			}
			if !retryable {
				return nil, lastErr
			}
			continue
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("error reading response body: %w", readErr)
		}

		if c.Debug {
			log.Printf("DEBUG: response status %s (%d bytes)", resp.Status, len(respBody))
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable {
			lastErr = classifyResponse(resp.StatusCode, operation, string(respBody))
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, classifyResponse(resp.StatusCode, operation, string(respBody))
		}

		return decodeBody(respBody)
	}
	return nil, lastErr
}

func decodeBody(body []byte) (map[string]any, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return map[string]any{}, nil
	}
	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("error parsing response: %w", err)
	}
	return decoded, nil
}

// extractMessage pulls the first message text out of a splunkd error body.
func extractMessage(body string) string {
	var payload struct {
		Messages []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"messages"`
	}
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return ""
	}
	for _, m := range payload.Messages {
		if m.Text != "" {
			return m.Text
		}
	}
	return ""
}

// entries unwraps the "entry" list of a splunkd collection response.
func entries(response map[string]any) []map[string]any {
	raw, ok := response["entry"].([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(raw))
	for _, e := range raw {
		if m, ok := e.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// entryContent returns the "content" map of a collection entry.
func entryContent(entry map[string]any) map[string]any {
	if m, ok := entry["content"].(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

// resultsOf unwraps the "results" list of a search response.
func resultsOf(response map[string]any) []map[string]any {
	raw, ok := response["results"].([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(raw))
	for _, r := range raw {
		if m, ok := r.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}
