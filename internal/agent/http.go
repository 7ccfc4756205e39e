package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/tidwall/gjson"
)

// maxReplyBytes bounds how much of a reply body is read.
const maxReplyBytes = 16 << 20

// HTTPInvoker calls the hosted agent service over HTTP.
type HTTPInvoker struct {
	Endpoint string
	APIKey   string
	client   *http.Client
}

// NewHTTPInvoker creates an invoker for endpoint, reading the API key from
// the apiKeyEnv environment variable. A zero timeout leaves calls unbounded.
func NewHTTPInvoker(endpoint, apiKeyEnv string, timeout time.Duration) *HTTPInvoker {
	return &HTTPInvoker{
		Endpoint: endpoint,
		APIKey:   os.Getenv(apiKeyEnv),
		client:   &http.Client{Timeout: timeout},
	}
}

// IsConfigured reports whether an endpoint is set.
func (h *HTTPInvoker) IsConfigured() bool {
	return h.Endpoint != ""
}

// Invoke posts the brief to the agent and returns its reply envelope.
func (h *HTTPInvoker) Invoke(ctx context.Context, brief, agentID string) (*Response, error) {
	if h.Endpoint == "" {
		return nil, &TransportError{Op: "configure", Err: fmt.Errorf("no agent endpoint configured")}
	}

	data, err := json.Marshal(map[string]string{
		"message":  brief,
		"agent_id": agentID,
	})
	if err != nil {
		return nil, &TransportError{Op: "encode", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, "POST", h.Endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, &TransportError{Op: "request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if h.APIKey != "" {
		req.Header.Set("x-api-key", h.APIKey)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "call", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return nil, &TransportError{Op: "read", Err: err}
	}

	// An error status with an envelope is the agent reporting failure;
	// anything else is the transport failing.
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if gjson.ValidBytes(body) && gjson.GetBytes(body, "success").Exists() {
			return ParseResponse(body), nil
		}
		return nil, &TransportError{
			Op:  "call",
			Err: fmt.Errorf("service returned %d: %s", resp.StatusCode, truncate(string(body), 200)),
		}
	}

	if !gjson.ValidBytes(body) {
		return nil, &TransportError{Op: "decode", Err: fmt.Errorf("reply is not JSON: %s", truncate(string(body), 200))}
	}
	return ParseResponse(body), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
