package formula

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/latticehq/lattice/internal/domain"
)

const (
	maxFetchBytes = 500
	cacheSize     = 128
	cacheTTL      = time.Minute
)

// ErrDestinationNotAllowed means the URL's host is not on the allow-list
// or points at a private network.
var ErrDestinationNotAllowed = errors.New("fetch destination not allowed")

// Fetcher performs the outbound GET behind IMPORT_CSV. Only pre-approved
// hostnames are reachable; every request carries a bounded deadline.
type Fetcher struct {
	client  *http.Client
	allowed map[string]struct{}
	timeout time.Duration
	cache   *expirable.LRU[string, string]
}

func NewFetcher(allowedHosts []string, timeout time.Duration) *Fetcher {
	allowed := make(map[string]struct{}, len(allowedHosts))
	for _, h := range allowedHosts {
		allowed[strings.ToLower(h)] = struct{}{}
	}
	return &Fetcher{
		client:  &http.Client{},
		allowed: allowed,
		timeout: timeout,
		cache:   expirable.NewLRU[string, string](cacheSize, nil, cacheTTL),
	}
}

func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	if err := f.checkDestination(rawURL); err != nil {
		return "", err
	}

	if cached, ok := f.cache.Get(rawURL); ok {
		return cached, nil
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", domain.ErrUpstreamTimeout
		}
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Sprintf("#ERROR: Status %d", resp.StatusCode), nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", domain.ErrUpstreamTimeout
		}
		return "", err
	}

	content := string(body)
	f.cache.Add(rawURL, content)
	return content, nil
}

func (f *Fetcher) checkDestination(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ErrDestinationNotAllowed
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ErrDestinationNotAllowed
	}

	host := strings.ToLower(u.Hostname())
	if _, ok := f.allowed[host]; !ok {
		return ErrDestinationNotAllowed
	}

	// An allow-listed entry still must not be a private address literal.
	if ip := net.ParseIP(host); ip != nil {
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsUnspecified() {
			return ErrDestinationNotAllowed
		}
	}
	return nil
}
