package ports

import "net/http"

// HTTPClient is the transport used for upstream requests. *http.Client
// satisfies it; tests substitute their own to script upstream behavior.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}
