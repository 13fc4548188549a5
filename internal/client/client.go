// Package client provides an HTTP client for the prospector REST API.
package client

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

	"github.com/evcraddock/prospector/internal/analyst"
	"github.com/evcraddock/prospector/internal/company"
)

// Client is an HTTP client for the prospector API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a new API client.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 90 * time.Second},
	}
}

// Health checks that the server is reachable.
func (c *Client) Health(ctx context.Context) error {
	return c.get(ctx, "/health", nil, nil)
}

// Regions lists every region.
func (c *Client) Regions(ctx context.Context) ([]string, error) {
	return c.options(ctx, "/api/regions", nil)
}

// Departments lists the departments of region.
func (c *Client) Departments(ctx context.Context, region string) ([]string, error) {
	return c.options(ctx, "/api/departments", company.Filter{Region: region}.Query())
}

// Sizes lists every size bucket.
func (c *Client) Sizes(ctx context.Context) ([]string, error) {
	return c.options(ctx, "/api/sizes", nil)
}

// Sectors lists the sectors for region, department and sizes.
func (c *Client) Sectors(ctx context.Context, region, department string, sizes []string) ([]string, error) {
	if len(sizes) == 0 {
		return nil, nil
	}
	q := company.Filter{Region: region, Department: department, Sizes: sizes}.Query()
	return c.options(ctx, "/api/sectors", q)
}

// Industries lists the industries under the filter's cascade.
func (c *Client) Industries(ctx context.Context, f company.Filter) ([]string, error) {
	return c.options(ctx, "/api/industries", f.Query())
}

// Years lists the distinct creation years.
func (c *Client) Years(ctx context.Context) ([]int64, error) {
	var years []int64
	if err := c.get(ctx, "/api/years", nil, &years); err != nil {
		return nil, err
	}
	return years, nil
}

// Search returns the companies matching f.
func (c *Client) Search(ctx context.Context, f company.Filter) ([]*company.Company, error) {
	var companies []*company.Company
	if err := c.get(ctx, "/api/companies", f.Query(), &companies); err != nil {
		return nil, err
	}
	return companies, nil
}

// Map returns the city-grouped map view for f.
func (c *Client) Map(ctx context.Context, f company.Filter) (*company.MapView, error) {
	var view company.MapView
	if err := c.get(ctx, "/api/map", f.Query(), &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// UpdateComment sets the comment on the named company. city is required when
// the name is shared by several records.
func (c *Client) UpdateComment(ctx context.Context, name, city, comment string) (*company.Company, error) {
	body := map[string]string{
		"nom":          name,
		"ville":        city,
		"commentaires": comment,
	}
	var updated company.Company
	if err := c.send(ctx, http.MethodPut, "/api/companies/comment", body, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// AnalystReply is the response from POST /api/analyst.
type AnalystReply struct {
	Messages    []analyst.Message `json:"messages"`
	Text        string            `json:"text"`
	Suggestions []string          `json:"suggestions,omitempty"`
	SQL         string            `json:"sql,omitempty"`
	RequestID   string            `json:"request_id,omitempty"`
}

// Ask sends a question, with the prior conversation, to the analyst.
func (c *Client) Ask(ctx context.Context, history []analyst.Message, question string) (*AnalystReply, error) {
	body := struct {
		Messages []analyst.Message `json:"messages"`
		Question string            `json:"question"`
	}{Messages: history, Question: question}

	var reply AnalystReply
	if err := c.send(ctx, http.MethodPost, "/api/analyst", body, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

func (c *Client) options(ctx context.Context, path string, query url.Values) ([]string, error) {
	var values []string
	if err := c.get(ctx, path, query, &values); err != nil {
		return nil, err
	}
	return values, nil
}

// get performs a GET request and decodes the response.
func (c *Client) get(ctx context.Context, path string, query url.Values, result interface{}) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	return c.do(req, result)
}

// send performs a request with a JSON body and decodes the response.
func (c *Client) send(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, result)
}

// do executes an HTTP request with auth header and handles errors.
func (c *Client) do(req *http.Request, result interface{}) error {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			fmt.Printf("warning: closing response body: %v\n", cerr)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return &Error{Code: resp.StatusCode, Message: errResp.Error}
		}
		return &Error{Code: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}

// Error is a non-2xx API response.
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}
