package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const maxErrorBody = 64 << 10

// endpoint is the shared HTTP plumbing for the auth and data APIs: both are
// addressed relative to the project URL and both require the apikey header.
type endpoint struct {
	baseURL *url.URL
	apiKey  string
	client  *http.Client
}

func newEndpoint(rawURL, apiKey string, client *http.Client) (*endpoint, error) {
	u, err := url.Parse(strings.TrimRight(rawURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid backend URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid backend URL %q: scheme and host are required", rawURL)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &endpoint{baseURL: u, apiKey: apiKey, client: client}, nil
}

type request struct {
	method  string
	path    string
	query   url.Values
	bearer  string
	headers http.Header
	body    any
}

// do sends req and decodes a JSON answer into out (when out is non-nil).
// Non-2xx answers come back as *APIError; transport failures are returned
// unclassified so each caller can pick its own sentinel.
func (e *endpoint) do(ctx context.Context, req request, out any) error {
	u := *e.baseURL
	u.Path = e.baseURL.Path + req.path
	if len(req.query) > 0 {
		u.RawQuery = encodeQuery(req.query)
	}

	var body io.Reader
	if req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u.String(), body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("apikey", e.apiKey)
	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	bearer := req.bearer
	if bearer == "" {
		bearer = e.apiKey
	}
	httpReq.Header.Set("Authorization", "Bearer "+bearer)
	for key, values := range req.headers {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.method, req.path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("failed to decode %s %s response: %w", req.method, req.path, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := &APIError{Status: resp.StatusCode}

	// PostgREST: {code, message}; GoTrue: {error, error_description} or {error_code, msg}.
	var body struct {
		Code             any    `json:"code"`
		ErrorCode        string `json:"error_code"`
		Message          string `json:"message"`
		Msg              string `json:"msg"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		apiErr.Message = strings.TrimSpace(string(raw))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	switch code := body.Code.(type) {
	case string:
		apiErr.Code = code
	}
	if apiErr.Code == "" {
		apiErr.Code = body.ErrorCode
	}
	if apiErr.Code == "" {
		apiErr.Code = body.Error
	}
	for _, m := range []string{body.Message, body.Msg, body.ErrorDescription, body.Error} {
		if m != "" {
			apiErr.Message = m
			break
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

// encodeQuery keeps parameters in insertion-independent, sorted order but,
// unlike url.Values.Encode, leaves the PostgREST operator syntax readable
// ("gte.2024-01-01", "in.(a,b)").
func encodeQuery(v url.Values) string {
	return strings.NewReplacer("%28", "(", "%29", ")", "%2C", ",", "%3A", ":", "%2A", "*").Replace(v.Encode())
}
