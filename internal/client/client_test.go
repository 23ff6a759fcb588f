package client

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"resumeform/internal/config"
	"resumeform/internal/errors"
	"resumeform/internal/types"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEndpointConfig(url string) config.EndpointConfig {
	return config.EndpointConfig{
		URL:       url,
		Timeout:   5 * time.Second,
		UserAgent: "resumeform-test",
	}
}

func samplePayload() types.FormPayload {
	return types.FormPayload{
		FileField: "resume",
		File: &types.SelectedFile{
			Name:    "cv.txt",
			Content: []byte("Go, Kubernetes, PostgreSQL"),
		},
		Fields: map[string]string{"job_description": "Backend engineer"},
	}
}

func TestSubmit_SendsMultipartForm(t *testing.T) {
	var seen atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen.Store(true)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "resumeform-test", r.Header.Get("User-Agent"))
		_, err := uuid.Parse(r.Header.Get("X-Request-ID"))
		assert.NoError(t, err, "request id is a uuid")
		assert.Empty(t, r.Header.Get("X-API-Key"))
		assert.Empty(t, r.Header.Get("Authorization"))

		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		assert.Equal(t, "Backend engineer", r.FormValue("job_description"))

		f, hdr, err := r.FormFile("resume")
		if !assert.NoError(t, err) {
			return
		}
		defer f.Close()
		content, err := io.ReadAll(f)
		assert.NoError(t, err)
		assert.Equal(t, "cv.txt", hdr.Filename)
		assert.Equal(t, "text/plain; charset=utf-8", hdr.Header.Get("Content-Type"))
		assert.Equal(t, "Go, Kubernetes, PostgreSQL", string(content))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"relevance_score": 77}`))
	}))
	defer srv.Close()

	c, err := New(testEndpointConfig(srv.URL), nil)
	require.NoError(t, err)

	resp, err := c.Submit(context.Background(), samplePayload())
	require.NoError(t, err)
	assert.True(t, seen.Load())
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"relevance_score": 77}`, string(resp.Body))
	assert.NotEmpty(t, resp.RequestID)
}

func TestSubmit_ReturnsFailureResponses(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"bad request", http.StatusBadRequest, `{"error":"bad file type"}`},
		{"server error", http.StatusInternalServerError, `{"error":"model overloaded"}`},
		{"empty body", http.StatusBadGateway, ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c, err := New(testEndpointConfig(srv.URL), nil)
			require.NoError(t, err)

			resp, err := c.Submit(context.Background(), samplePayload())
			require.NoError(t, err, "a received response is never a transport error")
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.body, string(resp.Body))
		})
	}
}

func TestSubmit_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, err := New(testEndpointConfig(url), nil)
	require.NoError(t, err)

	resp, err := c.Submit(context.Background(), samplePayload())
	assert.Nil(t, resp)
	require.Error(t, err)

	var appErr *errors.AppError
	require.True(t, stderrors.As(err, &appErr))
	assert.Equal(t, errors.ErrorTypeNetwork, appErr.Type)
	assert.Equal(t, errors.ErrCodeEndpointUnreachable, appErr.Code)
}

func TestSubmit_DroppedConnection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hj, ok := w.(http.Hijacker)
		if !assert.True(t, ok) {
			return
		}
		conn, _, err := hj.Hijack()
		if !assert.NoError(t, err) {
			return
		}
		_ = conn.Close()
	}))
	defer srv.Close()

	c, err := New(testEndpointConfig(srv.URL), nil)
	require.NoError(t, err)

	_, err = c.Submit(context.Background(), samplePayload())
	require.Error(t, err)
	var appErr *errors.AppError
	require.True(t, stderrors.As(err, &appErr))
	assert.Equal(t, errors.ErrorTypeNetwork, appErr.Type)
}

func TestSubmit_CancelledContext(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	c, err := New(testEndpointConfig(srv.URL), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err = c.Submit(ctx, samplePayload())
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, context.Canceled))
}

func TestSubmit_AuthHeaders(t *testing.T) {
	const secret = "test-signing-secret"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "endpoint-key", r.Header.Get("X-API-Key"))

		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		assert.True(t, ok)

		claims := &jwt.RegisteredClaims{}
		token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
			return []byte(secret), nil
		}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithAudience("analyzer"), jwt.WithIssuer("resumeform"))
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.True(t, token.Valid)
		assert.Equal(t, "resumeform-client", claims.Subject)
		assert.NotEmpty(t, claims.ID)

		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	cfg := testEndpointConfig(srv.URL)
	cfg.APIKey = "endpoint-key"
	cfg.JWT = config.JWTConfig{
		Enabled:  true,
		Secret:   secret,
		Issuer:   "resumeform",
		Audience: "analyzer",
		Subject:  "resumeform-client",
		TTL:      time.Minute,
	}

	c, err := New(cfg, nil)
	require.NoError(t, err)

	resp, err := c.Submit(context.Background(), samplePayload())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestNew_JWTWithoutSecret(t *testing.T) {
	cfg := testEndpointConfig("http://localhost:5000/analyze")
	cfg.JWT.Enabled = true

	_, err := New(cfg, nil)
	require.Error(t, err)
	var appErr *errors.AppError
	require.True(t, stderrors.As(err, &appErr))
	assert.Equal(t, errors.ErrorTypeConfig, appErr.Type)
}

func TestSubmit_CircuitBreakerOpens(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"busy"}`))
	}))
	defer srv.Close()

	cfg := testEndpointConfig(srv.URL)
	cfg.CircuitBreaker = config.CircuitBreakerConfig{
		Enabled:          true,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		MinRequests:      2,
		FailureThreshold: 0.5,
	}
	c, err := New(cfg, nil)
	require.NoError(t, err)

	for range 2 {
		resp, err := c.Submit(context.Background(), samplePayload())
		require.NoError(t, err)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	}
	assert.False(t, c.IsHealthy())

	resp, err := c.Submit(context.Background(), samplePayload())
	assert.Nil(t, resp)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.NewNetworkError(errors.ErrCodeCircuitOpen, "", nil)))
	assert.Equal(t, int32(2), hits.Load(), "open breaker does not reach the endpoint")

	stats := c.GetStats()["circuit_breaker"].(map[string]any)
	assert.Equal(t, "open", stats["state"])
}

func TestSubmit_ClientErrorsDoNotTripBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	cfg := testEndpointConfig(srv.URL)
	cfg.CircuitBreaker = config.CircuitBreakerConfig{Enabled: true, MaxRequests: 1, Interval: time.Minute, Timeout: time.Minute, MinRequests: 1, FailureThreshold: 0.1}
	c, err := New(cfg, nil)
	require.NoError(t, err)

	for range 3 {
		_, err := c.Submit(context.Background(), samplePayload())
		require.NoError(t, err)
	}
	assert.True(t, c.IsHealthy())
}

func TestSubmit_RateLimitHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	cfg := testEndpointConfig(srv.URL)
	cfg.RateLimit = config.ClientRateConfig{Enabled: true, RequestsPerMin: 1, BurstCapacity: 1}
	c, err := New(cfg, nil)
	require.NoError(t, err)

	_, err = c.Submit(context.Background(), samplePayload())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.Submit(ctx, samplePayload())
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.NewNetworkError(errors.ErrCodeNetworkTimeout, "", nil)))
}

func TestEncodeMultipart(t *testing.T) {
	body, contentType, err := EncodeMultipart(types.FormPayload{
		File:   &types.SelectedFile{Name: `my "cv".pdf`, Content: []byte("%PDF-1.4")},
		Fields: map[string]string{"b": "2", "a": "1"},
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(contentType, "multipart/form-data; boundary="))

	s := string(body)
	assert.Contains(t, s, `name="resume"; filename="my \"cv\".pdf"`)
	assert.Contains(t, s, "Content-Type: application/pdf")
	assert.Less(t, strings.Index(s, `name="a"`), strings.Index(s, `name="b"`), "fields are written in name order")
}

func TestEncodeMultipart_NoFile(t *testing.T) {
	body, _, err := EncodeMultipart(types.FormPayload{Fields: map[string]string{"job_description": "x"}})
	require.NoError(t, err)
	assert.NotContains(t, string(body), "filename=")
	assert.Contains(t, string(body), `name="job_description"`)
}
