// inline.go fetches remote images referenced by HTML bodies and turns
// them into data URIs, so the rendered PDF is self-contained. All
// network access goes through an SSRF-safe HTTP client that blocks
// private, loopback, and link-local addresses. Inlining is opt-in;
// conversion is fully offline by default.

package convert

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"
)

// imgSrcRe matches <img src="..."> attributes for URL replacement.
var imgSrcRe = regexp.MustCompile(`(<img\b[^>]*?\bsrc=")([^"]+)(")`)

const maxInlineImageBytes = 5 << 20

// ImageInliner downloads http(s) images and rewrites their src
// attributes to data URIs. Each unique URL is fetched at most once;
// the cache is shared across conversions and safe for concurrent use.
type ImageInliner struct {
	client *http.Client

	mu    sync.Mutex
	cache map[string]string
}

func NewImageInliner() *ImageInliner {
	return &ImageInliner{
		client: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				DialContext:           ssrfSafeDialer(),
				TLSHandshakeTimeout:   5 * time.Second,
				ResponseHeaderTimeout: 5 * time.Second,
				MaxIdleConns:          10,
				MaxIdleConnsPerHost:   2,
				IdleConnTimeout:       30 * time.Second,
			},
			// Validate each redirect target against the blocklist. The
			// dialer re-checks the resolved IP on every hop.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return errors.New("too many redirects")
				}
				if isBlockedHostname(req.URL.Hostname()) {
					return errors.New("redirect to blocked host")
				}
				return nil
			},
		},
		cache: make(map[string]string),
	}
}

// Inline replaces every fetchable <img src> URL in body with a data
// URI. Images that fail to download, are not images, or point at
// blocked hosts are left as-is.
func (in *ImageInliner) Inline(ctx context.Context, body []byte) []byte {
	return imgSrcRe.ReplaceAllFunc(body, func(match []byte) []byte {
		parts := imgSrcRe.FindSubmatch(match)
		if len(parts) < 4 {
			return match
		}
		rawURL := string(parts[2])
		if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
			return match
		}

		uri := in.dataURI(ctx, rawURL)
		if uri == "" {
			return match
		}

		var out []byte
		out = append(out, parts[1]...)
		out = append(out, uri...)
		out = append(out, parts[3]...)
		return out
	})
}

func (in *ImageInliner) dataURI(ctx context.Context, rawURL string) string {
	in.mu.Lock()
	uri, seen := in.cache[rawURL]
	in.mu.Unlock()
	if seen {
		return uri
	}

	data, contentType, err := in.fetch(ctx, rawURL)
	if err == nil && len(data) > 0 {
		uri = "data:" + normalizeImageType(contentType) + ";base64," +
			base64.StdEncoding.EncodeToString(data)
	}

	in.mu.Lock()
	in.cache[rawURL] = uri
	in.mu.Unlock()
	return uri
}

// fetch downloads one image. Blocked or non-image URLs return empty
// results without error.
func (in *ImageInliner) fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, "", nil
	}
	// Hostname pre-check; the dialer also checks resolved IPs.
	if isBlockedHostname(parsed.Hostname()) {
		return nil, "", nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := in.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", nil
	}
	ct := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "image/") {
		return nil, "", nil
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxInlineImageBytes))
	if err != nil {
		return nil, "", err
	}
	return data, ct, nil
}

// ssrfSafeDialer returns a DialContext that resolves DNS and checks
// every resolved IP against the blocklist BEFORE connecting. This
// eliminates the DNS rebinding race between a hostname pre-check and
// an independent resolution at connect time.
func ssrfSafeDialer() func(ctx context.Context, network, addr string) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: 5 * time.Second}
	resolver := &net.Resolver{}

	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, err
		}
		if isBlockedHostname(host) {
			return nil, errors.New("blocked host")
		}

		resolveCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()

		ips, err := resolver.LookupIPAddr(resolveCtx, host)
		if err != nil {
			return nil, err
		}
		for _, ip := range ips {
			if isBlockedIP(ip.IP) {
				return nil, errors.New("blocked IP")
			}
		}

		// Connect to the vetted IPs directly, bypassing further DNS.
		for _, ip := range ips {
			target := net.JoinHostPort(ip.IP.String(), port)
			conn, err := dialer.DialContext(ctx, network, target)
			if err == nil {
				return conn, nil
			}
		}
		return nil, errors.New("all addresses failed")
	}
}

// isBlockedHostname reports hostnames rejected without DNS resolution.
func isBlockedHostname(host string) bool {
	lower := strings.ToLower(host)
	if lower == "localhost" || strings.HasSuffix(lower, ".local") ||
		lower == "metadata.google.internal" ||
		strings.HasSuffix(lower, ".internal") {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return isBlockedIP(ip)
	}
	return false
}

// isBlockedIP reports ranges that must never be fetched.
func isBlockedIP(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() || ip.IsUnspecified()
}

// normalizeImageType maps a Content-Type header to a standard image
// MIME type for the data URI.
func normalizeImageType(ct string) string {
	ct = strings.ToLower(ct)
	switch {
	case strings.Contains(ct, "png"):
		return "image/png"
	case strings.Contains(ct, "jpeg"), strings.Contains(ct, "jpg"):
		return "image/jpeg"
	case strings.Contains(ct, "gif"):
		return "image/gif"
	case strings.Contains(ct, "webp"):
		return "image/webp"
	case strings.Contains(ct, "svg"):
		return "image/svg+xml"
	case strings.Contains(ct, "bmp"):
		return "image/bmp"
	default:
		return "image/png"
	}
}
