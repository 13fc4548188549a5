package analyst

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL+"/", "tok", "@DB.SCHEMA.STAGE/model.yaml", WithRateLimit(0, 0))
	require.NoError(t, err)
	return c
}

func TestNewClientRequiresSettings(t *testing.T) {
	_, err := NewClient("", "tok", "")
	assert.Error(t, err)

	_, err = NewClient("http://x", "", "")
	assert.Error(t, err)
}

func TestSendPostsConversation(t *testing.T) {
	var got request
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, messagePath, r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"request_id": "req-1",
			"message": {"role": "analyst", "content": [
				{"type": "text", "text": "Voici les entreprises."},
				{"type": "sql", "statement": "SELECT NOM FROM test"},
				{"type": "suggestions", "suggestions": ["Combien à Brest ?", "Et à Quimper ?"]}
			]},
			"warnings": [{"message": "partial model"}]
		}`))
	})

	resp, err := c.Send(context.Background(), []Message{UserMessage("Quelles entreprises ?")})
	require.NoError(t, err)

	require.Len(t, got.Messages, 1)
	assert.Equal(t, RoleUser, got.Messages[0].Role)
	assert.Equal(t, "Quelles entreprises ?", got.Messages[0].Content[0].Text)
	assert.Equal(t, "@DB.SCHEMA.STAGE/model.yaml", got.SemanticModelFile)

	assert.Equal(t, "req-1", resp.RequestID)
	assert.Equal(t, "Voici les entreprises.", resp.Text())
	assert.Equal(t, "SELECT NOM FROM test", resp.SQL())
	assert.Equal(t, []string{"Combien à Brest ?", "Et à Quimper ?"}, resp.Suggestions())
	require.Len(t, resp.Warnings, 1)
}

func TestSendNonSuccessStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"not authorized"}`))
	})

	_, err := c.Send(context.Background(), []Message{UserMessage("q")})
	require.Error(t, err)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusForbidden, se.Code)
	assert.Contains(t, se.Body, "not authorized")
	assert.Contains(t, err.Error(), "403")
}

func TestSendBadJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	})

	_, err := c.Send(context.Background(), []Message{UserMessage("q")})
	assert.Error(t, err)
}

func TestSendRequiresMessages(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	_, err := c.Send(context.Background(), nil)
	assert.Error(t, err)
}

func TestAskExtendsHistory(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		var req request
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Len(t, req.Messages, 2*calls-1)
		_, _ = w.Write([]byte(`{"message":{"content":[{"type":"text","text":"ok"}]}}`))
	})

	history, resp, err := c.Ask(context.Background(), nil, "  première  ")
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text())
	require.Len(t, history, 2)
	assert.Equal(t, "première", history[0].Content[0].Text)
	assert.Equal(t, RoleAnalyst, history[1].Role)

	history, _, err = c.Ask(context.Background(), history, "seconde")
	require.NoError(t, err)
	assert.Len(t, history, 4)
}

func TestAskKeepsSQLConfidence(t *testing.T) {
	calls := 0
	var second request
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 2 {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&second))
		}
		_, _ = w.Write([]byte(`{"message":{"role":"analyst","content":[
			{"type":"sql","statement":"SELECT 1","confidence":{"verified_query_used":{"name":"q1"}}}
		]}}`))
	})

	history, _, err := c.Ask(context.Background(), nil, "combien ?")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.JSONEq(t, `{"verified_query_used":{"name":"q1"}}`, string(history[1].Content[0].Confidence))

	_, _, err = c.Ask(context.Background(), history, "et ensuite ?")
	require.NoError(t, err)
	require.Len(t, second.Messages, 3)
	assert.JSONEq(t, `{"verified_query_used":{"name":"q1"}}`, string(second.Messages[1].Content[0].Confidence))
}

func TestAskEmptyQuestion(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	_, _, err := c.Ask(context.Background(), nil, "   ")
	assert.Error(t, err)
}

func TestRateLimitHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":{"content":[]}}`))
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL, "tok", "", WithRateLimit(0.001, 1))
	require.NoError(t, err)

	_, err = c.Send(context.Background(), []Message{UserMessage("first")})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.Send(ctx, []Message{UserMessage("second")})
	assert.Error(t, err)
}
