package httpclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avatarctic/services-marketplace/go/internal/core/domain/fault"
)

func newServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL+"/api/v1", WithToken("secret"))
	require.NoError(t, err)
	return c
}

func TestRequest_UnwrapsEnvelope(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/billing/plan", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"data": {"type": "PRO"}}`)
	})

	raw, err := c.Request(context.Background(), http.MethodGet, "/billing/plan", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type": "PRO"}`, string(raw))
}

func TestRequest_NullData(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data": null}`)
	})

	raw, err := c.Request(context.Background(), http.MethodGet, "billing/usage", nil)
	require.NoError(t, err)
	assert.Equal(t, "null", string(raw))
}

func TestRequest_SendsJSONBody(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "PRO", body["type"])
		_, _ = io.WriteString(w, `{"data": {"type": "PRO"}}`)
	})

	_, err := c.Request(context.Background(), http.MethodPost, "/billing/plan", map[string]string{"type": "PRO"})
	require.NoError(t, err)
}

func TestRequest_ClassifiesStatus(t *testing.T) {
	tests := []struct {
		status int
		want   fault.Class
	}{
		{http.StatusUnauthorized, fault.ClassUnauthorized},
		{http.StatusNotFound, fault.ClassNotFound},
		{http.StatusBadRequest, fault.ClassBadRequest},
		{http.StatusTooManyRequests, fault.ClassTransient},
		{http.StatusBadGateway, fault.ClassTransient},
		{http.StatusForbidden, fault.ClassOther},
	}
	for _, tc := range tests {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, `{"message": "nope"}`)
			})

			_, err := c.Request(context.Background(), http.MethodGet, "/billing/plan", nil)
			require.Error(t, err)
			var fe *fault.Error
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tc.want, fe.Class)
			assert.Equal(t, tc.status, fe.Status)
			assert.Contains(t, err.Error(), "nope")
		})
	}
}

func TestRequest_MalformedEnvelopeIsStructural(t *testing.T) {
	for name, body := range map[string]string{
		"not json":    `<html>`,
		"no envelope": `{"type": "PRO"}`,
		"array":       `[1,2]`,
	} {
		t.Run(name, func(t *testing.T) {
			c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, body)
			})
			_, err := c.Request(context.Background(), http.MethodGet, "/billing/plan", nil)
			assert.True(t, fault.Is(err, fault.ClassStructural), "got %v", err)
		})
	}
}

func TestRequest_NetworkFailureIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, err := New(url)
	require.NoError(t, err)
	_, err = c.Request(context.Background(), http.MethodGet, "/billing/plan", nil)
	assert.True(t, fault.Is(err, fault.ClassTransient))
}

func TestRequest_NoTokenNoHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"data": []}`)
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)
	_, err = c.Request(context.Background(), http.MethodGet, "/categories", nil)
	require.NoError(t, err)
}

func TestWithTimeout_LeavesSharedClientUntouched(t *testing.T) {
	shared := &http.Client{Timeout: time.Minute}

	for name, opts := range map[string][]Option{
		"timeout last":  {WithHTTPClient(shared), WithTimeout(3 * time.Second)},
		"timeout first": {WithTimeout(3 * time.Second), WithHTTPClient(shared)},
	} {
		t.Run(name, func(t *testing.T) {
			c, err := New("http://localhost/api/v1", opts...)
			require.NoError(t, err)
			assert.Equal(t, 3*time.Second, c.httpClient.Timeout)
			assert.NotSame(t, shared, c.httpClient)
			assert.Equal(t, time.Minute, shared.Timeout)
		})
	}

	c, err := New("http://localhost/api/v1", WithHTTPClient(http.DefaultClient), WithTimeout(time.Second))
	require.NoError(t, err)
	assert.Equal(t, time.Second, c.httpClient.Timeout)
	assert.Zero(t, http.DefaultClient.Timeout)
}

func TestNew_RequiresBaseURL(t *testing.T) {
	_, err := New("  ")
	assert.Error(t, err)
}
