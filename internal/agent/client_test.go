package agent

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Invoke(t *testing.T) {
	var gotPath, gotSession, gotAuth, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotSession = r.Header.Get("X-Runtime-Session-Id")
		gotAuth = r.Header.Get("Authorization")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "secret", time.Second)
	ctx := WithSession(context.Background(), "session-1")
	body, err := c.Invoke(ctx, "campaign_agent", []byte(`{"prompt":"x"}`))

	require.NoError(t, err)
	assert.JSONEq(t, `{"ok": true}`, string(body))
	assert.Equal(t, "/agents/campaign_agent/invocations", gotPath)
	assert.Equal(t, "session-1", gotSession)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, `{"prompt":"x"}`, gotBody)
}

func TestClient_GeneratesSessionID(t *testing.T) {
	var gotSession string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSession = r.Header.Get("X-Runtime-Session-Id")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "", time.Second).Invoke(context.Background(), "a", nil)
	require.NoError(t, err)
	_, err = uuid.Parse(gotSession)
	assert.NoError(t, err)
}

func TestClient_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/agents/empty/invocations":
			w.WriteHeader(http.StatusOK)
		case "/agents/slow/invocations":
			time.Sleep(200 * time.Millisecond)
			_, _ = w.Write([]byte(`{}`))
		default:
			http.Error(w, "boom", http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 50*time.Millisecond)

	_, err := c.Invoke(context.Background(), "empty", nil)
	assert.ErrorIs(t, err, ErrNoResponse)

	_, err = c.Invoke(context.Background(), "broken", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")

	_, err = c.Invoke(context.Background(), "slow", nil)
	assert.Error(t, err)
}
