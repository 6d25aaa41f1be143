// Package httpx holds the HTTP plumbing shared by the provider clients.
package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/fwojciec/genstream"
)

// maxErrorBody caps how much of a non-success response body is kept.
const maxErrorBody = 64 << 10

// PostJSON posts body as JSON and returns the response when the status is
// 2xx. The caller owns the returned body. Failures before a response and
// non-success statuses are reported as *genstream.TransportError.
func PostJSON(ctx context.Context, hc *http.Client, provider, url string, header http.Header, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%s: encode request: %w", provider, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", provider, err)
	}
	for k, vv := range header {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return nil, &genstream.TransportError{Provider: provider, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, statusError(provider, resp)
	}
	return resp, nil
}

func statusError(provider string, resp *http.Response) error {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return &genstream.TransportError{
			Provider:   provider,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("read error body: %w", err),
		}
	}
	return &genstream.TransportError{
		Provider:   provider,
		StatusCode: resp.StatusCode,
		Body:       ErrorMessage(raw),
	}
}

// ErrorMessage extracts the human-readable message from a provider error
// body. Known shapes are {"error":{"message":...}}, {"error":"..."} and
// {"message":"..."}; anything else is returned trimmed as is.
func ErrorMessage(body []byte) string {
	var shape struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &shape); err == nil {
		var nested struct {
			Message string `json:"message"`
		}
		var flat string
		switch {
		case json.Unmarshal(shape.Error, &nested) == nil && nested.Message != "":
			return nested.Message
		case json.Unmarshal(shape.Error, &flat) == nil && flat != "":
			return flat
		case shape.Message != "":
			return shape.Message
		}
	}
	return strings.TrimSpace(string(body))
}
