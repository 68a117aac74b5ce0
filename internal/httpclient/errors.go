package httpclient

import "fmt"

// UpstreamError carries a non-2xx response from a vendor endpoint. The
// raw body is preserved so callers can classify or surface it.
type UpstreamError struct {
	StatusCode int
	Body       []byte
	URL        string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream error: status %d from %s", e.StatusCode, e.URL)
}
