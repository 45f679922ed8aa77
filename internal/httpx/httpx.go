package httpx

import (
	"net"
	"net/http"
	"net/http/cookiejar"
	"time"
)

const (
	ChromeUA  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	FirefoxUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0"
)

// BrowserHeaders is the header set a desktop browser sends on a top-level
// navigation. Accept-Encoding is left to the transport so responses are
// decompressed transparently.
func BrowserHeaders() map[string]string {
	return map[string]string{
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,image/apng,*/*;q=0.8",
		"Accept-Language":           "ro-RO,ro;q=0.9,en-US;q=0.8,en;q=0.7",
		"Upgrade-Insecure-Requests": "1",
		"Sec-Fetch-Dest":            "document",
		"Sec-Fetch-Mode":            "navigate",
		"Sec-Fetch-Site":            "same-origin",
		"Cache-Control":             "max-age=0",
	}
}

// Client is a small wrapper around http.Client with sane defaults. One Client
// is shared by every outbound call in the process.
type Client struct {
	HTTP      *http.Client
	UserAgent string
	Headers   map[string]string
}

func New(timeout time.Duration) *Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          50,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       10,
		ForceAttemptHTTP2:     true,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: timeout,
	}
	return &Client{
		HTTP:      &http.Client{Timeout: timeout, Transport: transport},
		UserAgent: ChromeUA,
		Headers:   BrowserHeaders(),
	}
}

// WithSession returns an http.Client that shares the pooled transport but
// keeps its own cookie jar.
func (c *Client) WithSession() *http.Client {
	jar, _ := cookiejar.New(nil)
	return &http.Client{
		Transport:     c.HTTP.Transport,
		Timeout:       c.HTTP.Timeout,
		CheckRedirect: c.HTTP.CheckRedirect,
		Jar:           jar,
	}
}
