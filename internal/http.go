package internal

import "net/http"

// HeaderTransport is a RoundTripper that adds static headers, such as an
// RPC provider's API key, to every request
type HeaderTransport struct {
	Base    http.RoundTripper
	Headers http.Header
}

// NewHeaderTransport creates a HeaderTransport from a simple key/value map
func NewHeaderTransport(base http.RoundTripper, headers map[string]string) *HeaderTransport {
	h := make(http.Header, len(headers))
	for key, value := range headers {
		h.Set(key, value)
	}
	return &HeaderTransport{Base: base, Headers: h}
}

func (t *HeaderTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// RoundTrippers must not modify the caller's request.
	req = req.Clone(req.Context())
	for key, values := range t.Headers {
		req.Header.Del(key)
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}
