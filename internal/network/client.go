package network

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/proxy"
	"golang.org/x/net/publicsuffix"
)

const (
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/91.0.4472.124"
	DefaultAccept    = "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"
)

// Options configures the plain HTTP client used after login.
type Options struct {
	Timeout time.Duration

	// ProxyAddr is an optional SOCKS5 proxy, host:port.
	ProxyAddr string

	UserAgent string
}

// NewClient creates an http.Client with an empty cookie jar. The jar is
// filled once after login and only read by the download workers.
func NewClient(opts Options) (*http.Client, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()

	if opts.ProxyAddr != "" {
		dialer, err := proxy.SOCKS5("tcp", opts.ProxyAddr, nil, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("connect SOCKS5 (%s): %w", opts.ProxyAddr, err)
		}
		transport.Proxy = nil
		if cd, ok := dialer.(proxy.ContextDialer); ok {
			transport.DialContext = cd.DialContext
		} else {
			transport.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			}
		}
	}

	ua := opts.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}

	return &http.Client{
		Transport: &headerTransport{base: transport, userAgent: ua},
		Jar:       jar,
		Timeout:   opts.Timeout,
	}, nil
}

// SetCookies installs cookies obtained from the browser. A cookie without a
// domain is bound to siteURL; others are bound to their own domain so the
// SSO cookies keep working across hosts.
func SetCookies(client *http.Client, siteURL string, cookies []*http.Cookie) error {
	if client.Jar == nil {
		return fmt.Errorf("http client has no cookie jar")
	}
	site, err := url.Parse(siteURL)
	if err != nil {
		return fmt.Errorf("parse site url: %w", err)
	}

	byHost := make(map[string][]*http.Cookie)
	for _, c := range cookies {
		host := strings.TrimPrefix(c.Domain, ".")
		if host == "" {
			host = site.Host
		}
		byHost[host] = append(byHost[host], c)
	}

	for host, list := range byHost {
		client.Jar.SetCookies(&url.URL{Scheme: site.Scheme, Host: host, Path: "/"}, list)
	}
	return nil
}

type headerTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", t.userAgent)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", DefaultAccept)
	}
	return t.base.RoundTrip(req)
}
