// Package analyst talks to the hosted natural-language analytics endpoint.
package analyst

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	messagePath    = "/api/v2/cortex/analyst/message"
	defaultTimeout = 60 * time.Second
	maxErrorBody   = 4 << 10
)

// Roles.
const (
	RoleUser    = "user"
	RoleAnalyst = "analyst"
)

// Content block types.
const (
	TypeText        = "text"
	TypeSuggestions = "suggestions"
	TypeSQL         = "sql"
)

// Content is one block of a message.
type Content struct {
	Type        string   `json:"type"`
	Text        string   `json:"text,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
	Statement   string   `json:"statement,omitempty"`

	// Confidence is kept verbatim so it survives the history round-trip.
	Confidence json.RawMessage `json:"confidence,omitempty"`
}

// Message is one conversation turn.
type Message struct {
	Role    string    `json:"role"`
	Content []Content `json:"content"`
}

// Warning is a non-fatal notice returned with a response.
type Warning struct {
	Message string `json:"message"`
}

// Response is the analyst reply.
type Response struct {
	Message   Message   `json:"message"`
	RequestID string    `json:"request_id,omitempty"`
	Warnings  []Warning `json:"warnings,omitempty"`
}

// Text returns the text blocks of the reply joined by blank lines.
func (r *Response) Text() string {
	var parts []string
	for _, c := range r.Message.Content {
		if c.Type == TypeText && c.Text != "" {
			parts = append(parts, c.Text)
		}
	}
	return strings.Join(parts, "\n\n")
}

// Suggestions returns every suggested follow-up question.
func (r *Response) Suggestions() []string {
	var out []string
	for _, c := range r.Message.Content {
		if c.Type == TypeSuggestions {
			out = append(out, c.Suggestions...)
		}
	}
	return out
}

// SQL returns the first SQL statement in the reply, or "".
func (r *Response) SQL() string {
	for _, c := range r.Message.Content {
		if c.Type == TypeSQL && c.Statement != "" {
			return c.Statement
		}
	}
	return ""
}

// StatusError is returned for a non-success HTTP status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("analyst request failed: status %d: %s", e.Code, e.Body)
}

type request struct {
	Messages          []Message `json:"messages"`
	SemanticModelFile string    `json:"semantic_model_file,omitempty"`
}

// Client posts conversations to the analyst endpoint.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	token         string
	semanticModel string
	limiter       *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRateLimit caps outgoing requests per second. rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// NewClient creates an analyst client.
func NewClient(baseURL, token, semanticModel string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("analyst URL is required")
	}
	if token == "" {
		return nil, fmt.Errorf("analyst token is required")
	}

	c := &Client{
		httpClient:    &http.Client{Timeout: defaultTimeout},
		baseURL:       strings.TrimRight(baseURL, "/"),
		token:         token,
		semanticModel: semanticModel,
		limiter:       rate.NewLimiter(rate.Limit(1), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Send posts the conversation and returns the analyst reply.
func (c *Client) Send(ctx context.Context, messages []Message) (*Response, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("at least one message is required")
	}

	body, err := json.Marshal(request{Messages: messages, SemanticModelFile: c.semanticModel})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+messagePath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			err = fmt.Errorf("%w (also failed to close body: %v)", err, closeErr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return &out, nil
}

// Ask appends question to history as a user turn, sends the conversation and
// returns the history extended with the analyst reply.
func (c *Client) Ask(ctx context.Context, history []Message, question string) ([]Message, *Response, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, nil, fmt.Errorf("question is required")
	}

	messages := make([]Message, 0, len(history)+2)
	messages = append(messages, history...)
	messages = append(messages, UserMessage(question))

	resp, err := c.Send(ctx, messages)
	if err != nil {
		return nil, nil, err
	}

	reply := resp.Message
	if reply.Role == "" {
		reply.Role = RoleAnalyst
	}
	return append(messages, reply), resp, nil
}

// UserMessage builds a single-text user turn.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: []Content{{Type: TypeText, Text: text}}}
}
