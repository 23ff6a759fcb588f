package client

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"slices"
	"strings"
	"time"

	"resumeform/internal/config"
	"resumeform/internal/errors"
	"resumeform/internal/types"
	"resumeform/internal/utils"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

// maxResponseSize caps how much of a response body is read
const maxResponseSize = 4 << 20

// Client posts form payloads to the analysis endpoint
type Client struct {
	httpClient *http.Client
	url        string
	apiKey     string
	userAgent  string
	signer     *TokenSigner
	breaker    *CircuitBreaker
	limiter    *rate.Limiter
	logger     *errors.Logger
}

// New creates an endpoint client from configuration
func New(cfg config.EndpointConfig, logger *errors.Logger) (*Client, error) {
	if logger == nil {
		logger = errors.Discard()
	}

	tlsConfig, err := cfg.TLS.BuildClientTLS()
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "invalid endpoint TLS settings", err)
	}

	signer, err := NewTokenSigner(cfg.JWT)
	if err != nil {
		return nil, err
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if tlsConfig != nil {
		transport.TLSClientConfig = tlsConfig
	}

	c := &Client{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(transport),
		},
		url:       cfg.URL,
		apiKey:    cfg.APIKey,
		userAgent: cfg.UserAgent,
		signer:    signer,
		breaker:   NewCircuitBreaker(cfg.URL, cfg.CircuitBreaker, logger),
		logger:    logger,
	}

	if cfg.RateLimit.Enabled {
		c.limiter = rate.NewLimiter(rate.Limit(float64(cfg.RateLimit.RequestsPerMin)/60.0), max(cfg.RateLimit.BurstCapacity, 1))
	}

	logger.Debug("Endpoint client initialized",
		"url", cfg.URL,
		"timeout", cfg.Timeout,
		"jwt", signer != nil,
		"circuit_breaker", c.breaker != nil,
		"rate_limit", c.limiter != nil)
	return c, nil
}

// statusError marks a 5xx response so the breaker counts it as a failure.
// The response itself still reaches the caller.
type statusError struct {
	resp *types.EndpointResponse
}

func (e *statusError) Error() string {
	return fmt.Sprintf("endpoint returned status %d", e.resp.StatusCode)
}

// Submit sends payload as multipart/form-data. Any HTTP response, whatever
// its status, is returned without error; an error means no response.
func (c *Client) Submit(ctx context.Context, payload types.FormPayload) (*types.EndpointResponse, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, errors.NewNetworkError(errors.ErrCodeNetworkTimeout, "submission throttled", err)
		}
	}

	body, contentType, err := EncodeMultipart(payload)
	if err != nil {
		return nil, err
	}

	requestID := uuid.NewString()
	resp, err := c.breaker.Execute(func() (*types.EndpointResponse, error) {
		resp, err := c.post(ctx, requestID, body, contentType)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 {
			return nil, &statusError{resp: resp}
		}
		return resp, nil
	})

	var se *statusError
	if stderrors.As(err, &se) {
		return se.resp, nil
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) post(ctx context.Context, requestID string, body []byte, contentType string) (*types.EndpointResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeInvalidRequest, "failed to build request", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	if c.signer != nil {
		token, err := c.signer.Sign()
		if err != nil {
			return nil, errors.NewInternalError(errors.ErrCodeInvalidRequest, "failed to sign request", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		code := errors.ErrCodeEndpointUnreachable
		if stderrors.Is(err, context.DeadlineExceeded) {
			code = errors.ErrCodeNetworkTimeout
		}
		return nil, errors.NewNetworkError(code, "analysis endpoint unreachable", err).
			WithContext("request_id", requestID)
	}
	defer func() {
		if closeErr := httpResp.Body.Close(); closeErr != nil {
			c.logger.LogError(closeErr, "Failed to close response body", "request_id", requestID)
		}
	}()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return nil, errors.NewNetworkError(errors.ErrCodeEndpointUnreachable, "connection lost while reading response", err).
			WithContext("request_id", requestID)
	}

	c.logger.Debug("Endpoint responded",
		"request_id", requestID,
		"status", httpResp.StatusCode,
		"bytes", len(data),
		"duration", time.Since(start))

	return &types.EndpointResponse{
		StatusCode: httpResp.StatusCode,
		Body:       data,
		RequestID:  requestID,
	}, nil
}

// EncodeMultipart serializes the form: the file under its field name, then
// every other field in name order. A payload without a file sends only
// the fields.
func EncodeMultipart(payload types.FormPayload) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if f := payload.File; f != nil {
		field := payload.FileField
		if field == "" {
			field = config.DefaultFileField
		}
		contentType := f.ContentType
		if contentType == "" {
			contentType = utils.DetectContentType(f.Name, f.Content)
		}

		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			escapeQuotes(field), escapeQuotes(f.Name)))
		h.Set("Content-Type", contentType)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", errors.NewInternalError(errors.ErrCodeInvalidRequest, "failed to encode file part", err)
		}
		if _, err := part.Write(f.Content); err != nil {
			return nil, "", errors.NewInternalError(errors.ErrCodeInvalidRequest, "failed to encode file part", err)
		}
	}

	names := make([]string, 0, len(payload.Fields))
	for name := range payload.Fields {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if err := w.WriteField(name, payload.Fields[name]); err != nil {
			return nil, "", errors.NewInternalError(errors.ErrCodeInvalidRequest, "failed to encode form field", err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", errors.NewInternalError(errors.ErrCodeInvalidRequest, "failed to finish multipart body", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// GetStats returns client statistics
func (c *Client) GetStats() map[string]any {
	stats := map[string]any{
		"url":             c.url,
		"circuit_breaker": c.breaker.GetStats(),
		"jwt":             c.signer != nil,
		"rate_limited":    c.limiter != nil,
	}
	return stats
}

// IsHealthy reports whether the endpoint breaker is closed
func (c *Client) IsHealthy() bool {
	return c.breaker.IsHealthy()
}
