// Package agent talks to the remote agent runtime and turns its loosely
// formatted replies into JSON objects.
package agent

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"campaign-engine/internal/logger"
)

// ErrNoResponse is returned when the runtime answers with an empty body.
var ErrNoResponse = errors.New("agent returned no response")

// Invoker sends one payload to one agent and returns the raw reply.
type Invoker interface {
	Invoke(ctx context.Context, agentID string, payload []byte) ([]byte, error)
}

type sessionKey struct{}

// WithSession attaches a runtime session ID to the context.
func WithSession(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey{}, id)
}

// SessionFrom returns the session ID attached by WithSession, if any.
func SessionFrom(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}

// Client invokes agents over HTTP:
// POST {baseURL}/agents/{agentID}/invocations with the payload as the body.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *logrus.Entry
}

// NewClient builds a runtime client. timeout bounds each invocation.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: logger.Get("agent"),
	}
}

func (c *Client) Invoke(ctx context.Context, agentID string, payload []byte) ([]byte, error) {
	invokeURL := fmt.Sprintf("%s/agents/%s/invocations", c.baseURL, url.PathEscape(agentID))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, invokeURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	session := SessionFrom(ctx)
	if session == "" {
		session = uuid.NewString()
	}
	req.Header.Set("X-Runtime-Session-Id", session)

	c.log.WithFields(logrus.Fields{"agent": agentID, "session": session}).Debug("Agent: invoking")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to invoke agent %s: %w", agentID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read agent %s response: %w", agentID, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("agent %s error (status %d): %s", agentID, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, fmt.Errorf("agent %s: %w", agentID, ErrNoResponse)
	}
	return body, nil
}
