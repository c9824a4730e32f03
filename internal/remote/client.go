package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// HeaderTotalPages is the response header carrying the page count for
// collection endpoints.
const HeaderTotalPages = "X-WP-TotalPages"

const defaultPerPage = 100

// Client talks to the remote store's REST API. Authentication is HTTP
// Basic with a consumer key/secret pair. Network and 5xx failures are
// retried a fixed number of times with a fixed delay; 4xx failures are
// returned immediately as terminal errors.
type Client struct {
	baseURL    string
	key        string
	secret     string
	httpClient *http.Client
	maxRetries int
	retryDelay time.Duration
}

type Config struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	Timeout        time.Duration
	MaxRetries     int
	RetryDelay     time.Duration
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 2 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		key:        cfg.ConsumerKey,
		secret:     cfg.ConsumerSecret,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
	}
}

func (c *Client) endpoint(path string, params url.Values) string {
	u := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

// do performs one API call with the retry policy applied.
func (c *Client) do(ctx context.Context, method, path string, params url.Values, body any) ([]byte, http.Header, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, nil, &Error{Kind: KindUnknown, Message: fmt.Sprintf("encode request body: %v", err), Err: err}
		}
	}

	endpoint := c.endpoint(path, params)
	var lastErr *Error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			log.Printf("[remote] retry %d/%d %s %s after: %s", attempt, c.maxRetries, method, path, lastErr.Message)
			select {
			case <-ctx.Done():
				return nil, nil, networkError(ctx.Err())
			case <-time.After(c.retryDelay):
			}
		}

		var reader *bytes.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		} else {
			reader = bytes.NewReader(nil)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return nil, nil, &Error{Kind: KindUnknown, Message: err.Error(), Err: err}
		}
		req.SetBasicAuth(c.key, c.secret)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		res, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = networkError(err)
			continue
		}

		respBody, readErr := readBody(res)
		if readErr != nil {
			lastErr = networkError(readErr)
			continue
		}

		if res.StatusCode < 400 {
			log.Printf("[remote] %s %s -> %d (%d bytes)", method, path, res.StatusCode, len(respBody))
			return respBody, res.Header, nil
		}

		apiErr := &Error{
			Kind:    classifyStatus(res.StatusCode),
			Status:  res.StatusCode,
			Message: apiMessage(respBody, res.StatusCode),
		}
		log.Printf("[remote] %s %s -> %d (%s)", method, path, res.StatusCode, apiErr.Kind)
		if apiErr.Kind != KindServer {
			return nil, nil, apiErr
		}
		lastErr = apiErr
	}

	return nil, nil, lastErr
}

func readBody(res *http.Response) ([]byte, error) {
	defer res.Body.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(res.Body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// apiMessage pulls the human-readable message out of an error response,
// falling back to the raw body.
func apiMessage(body []byte, status int) string {
	var out struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &out); err == nil && out.Message != "" {
		return out.Message
	}
	if len(body) > 200 {
		body = body[:200]
	}
	if len(body) == 0 {
		return http.StatusText(status)
	}
	return string(body)
}

func (c *Client) Get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	body, _, err := c.do(ctx, http.MethodGet, path, params, nil)
	return body, err
}

func (c *Client) Post(ctx context.Context, path string, payload any) ([]byte, error) {
	body, _, err := c.do(ctx, http.MethodPost, path, nil, payload)
	return body, err
}

func (c *Client) Put(ctx context.Context, path string, payload any) ([]byte, error) {
	body, _, err := c.do(ctx, http.MethodPut, path, nil, payload)
	return body, err
}

func (c *Client) Patch(ctx context.Context, path string, payload any) ([]byte, error) {
	body, _, err := c.do(ctx, http.MethodPatch, path, nil, payload)
	return body, err
}

func (c *Client) Delete(ctx context.Context, path string) ([]byte, error) {
	body, _, err := c.do(ctx, http.MethodDelete, path, nil, nil)
	return body, err
}

// GetAll drains every page of a collection endpoint into one ordered
// slice, following the total-page-count header. A fresh call re-fetches
// from page 1; there is no resume.
func (c *Client) GetAll(ctx context.Context, path string, params url.Values) ([]json.RawMessage, error) {
	merged := url.Values{}
	for k, vs := range params {
		merged[k] = vs
	}
	merged.Set("per_page", strconv.Itoa(defaultPerPage))

	var all []json.RawMessage
	for page := 1; ; page++ {
		merged.Set("page", strconv.Itoa(page))
		body, header, err := c.do(ctx, http.MethodGet, path, merged, nil)
		if err != nil {
			return nil, err
		}

		var items []json.RawMessage
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, &Error{Kind: KindUnknown, Message: fmt.Sprintf("decode page %d of %s: %v", page, path, err), Err: err}
		}
		all = append(all, items...)

		totalPages, _ := strconv.Atoi(header.Get(HeaderTotalPages))
		if totalPages > 0 {
			if page >= totalPages {
				break
			}
		} else if len(items) == 0 {
			break
		}
	}
	return all, nil
}

// TestConnection probes the store metadata endpoint and reports the
// reachable store's version and currency. Used for configuration-time
// health checks and connectivity probing, not on the sync hot path.
func (c *Client) TestConnection(ctx context.Context) (*StoreInfo, error) {
	body, err := c.Get(ctx, "system_status", nil)
	if err != nil {
		return nil, err
	}
	var status SystemStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, &Error{Kind: KindUnknown, Message: fmt.Sprintf("decode system status: %v", err), Err: err}
	}
	return &StoreInfo{Version: status.Environment.Version, Currency: status.Settings.Currency}, nil
}
