package util

import (
	"fmt"
	"net/http"
	"net/url"
)

// ProxyFunc returns the proxy selector for an HTTP transport. An empty
// proxyURL defers to HTTP_PROXY / HTTPS_PROXY / NO_PROXY.
func ProxyFunc(proxyURL string) (func(*http.Request) (*url.URL, error), error) {
	if proxyURL == "" {
		return http.ProxyFromEnvironment, nil
	}

	u, err := url.Parse(proxyURL)
	if err != nil {
		return nil, fmt.Errorf("parse proxy URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("proxy URL %q needs a scheme and host", proxyURL)
	}

	return http.ProxyURL(u), nil
}
