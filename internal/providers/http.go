package providers

import (
	"io"
	"net/http"
	"time"
)

const (
	defaultHTTPTimeout = 60 * time.Second
	maxResponseBytes   = 32 << 20
	maxErrorBodyBytes  = 2048
)

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: defaultHTTPTimeout}
}

// do sends req and returns the body of a 2xx answer. Everything else is
// classified into TransportError or ProviderError.
func do(client *http.Client, provider Tag, req *http.Request) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, &TransportError{Provider: provider, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &TransportError{Provider: provider, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if len(body) > maxErrorBodyBytes {
			body = body[:maxErrorBodyBytes]
		}
		return nil, &ProviderError{Provider: provider, StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}
