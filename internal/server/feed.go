package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/time/rate"

	"github.com/desertthunder/watchx/internal/shared"
)

const (
	feedRoute         = "GET /api/rss"
	maxFeedBytes      = 5 << 20
	defaultUserAgent  = "watchx-feed-proxy/1.0"
	feedAcceptHeader  = "application/rss+xml, application/atom+xml, application/xml;q=0.9, text/xml;q=0.9, */*;q=0.8"
	cacheHeader       = "X-Cache"
	defaultFeedTTL    = 10 * time.Minute
	defaultFeedRate   = 5
	defaultFeedBurst  = 10
	defaultUpstreamTO = 15 * time.Second
)

// FeedOptions configures a [FeedHandler].
type FeedOptions struct {
	Cache        Cache
	Client       *http.Client
	Logger       *log.Logger
	UserAgent    string
	AllowedHosts []string
	AllowPrivate bool // with no allowlist, permit loopback, private and link-local targets
	RateLimit    float64
	RateBurst    int
}

// FeedHandler passes RSS and Atom feeds through unparsed, caching successful bodies.
type FeedHandler struct {
	cache     Cache
	client    *http.Client
	logger    *log.Logger
	limiter   *rate.Limiter
	userAgent string
	allowed   []string
	public    bool // only public addresses may be fetched
}

// NewFeedHandler creates a feed proxy. A nil cache gets a default [MemoryCache].
func NewFeedHandler(opts FeedOptions) *FeedHandler {
	if opts.Cache == nil {
		opts.Cache = NewMemoryCache(0, defaultFeedTTL)
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = defaultFeedRate
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = defaultFeedBurst
	}

	allowed := make([]string, 0, len(opts.AllowedHosts))
	for _, h := range opts.AllowedHosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			allowed = append(allowed, h)
		}
	}

	public := len(allowed) == 0 && !opts.AllowPrivate
	if opts.Client == nil {
		opts.Client = newFeedClient(public)
	}

	return &FeedHandler{
		cache:     opts.Cache,
		client:    opts.Client,
		logger:    shared.WithLogger(opts.Logger, "handler", "feeds"),
		limiter:   rate.NewLimiter(rate.Limit(opts.RateLimit), opts.RateBurst),
		userAgent: opts.UserAgent,
		allowed:   allowed,
		public:    public,
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *FeedHandler) Routes() []string {
	return []string{feedRoute}
}

func (h *FeedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	target, err := h.validate(r.URL.Query().Get("url"))
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, shared.ErrHostNotAllowed) {
			status = http.StatusForbidden
		}
		writeError(w, status, err.Error())
		return
	}
	key := target.String()

	entry, ok, err := h.cache.Get(r.Context(), key)
	if err != nil {
		h.logger.Warn("feed cache read failed", "url", key, "error", err)
	}
	if ok {
		h.write(w, entry, "HIT")
		return
	}

	entry, err = h.fetch(r.Context(), key)
	if err != nil {
		h.logger.Warn("feed fetch failed", "url", key, "error", err)
		status := http.StatusBadGateway
		switch {
		case errors.Is(err, shared.ErrHostNotAllowed):
			status = http.StatusForbidden
		case errors.Is(err, context.DeadlineExceeded):
			status = http.StatusGatewayTimeout
		}
		writeError(w, status, err.Error())
		return
	}

	if err := h.cache.Set(r.Context(), key, entry); err != nil {
		h.logger.Warn("feed cache write failed", "url", key, "error", err)
	}
	h.write(w, entry, "MISS")
}

// validate accepts absolute http(s) URLs whose host is allowed.
func (h *FeedHandler) validate(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: url parameter is required", shared.ErrInvalidFeedURL)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidFeedURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", shared.ErrInvalidFeedURL, u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("%w: missing host", shared.ErrInvalidFeedURL)
	}
	if !h.hostAllowed(u.Hostname()) {
		return nil, fmt.Errorf("%w: %s", shared.ErrHostNotAllowed, u.Hostname())
	}
	if h.public && !publicHost(u.Hostname()) {
		return nil, fmt.Errorf("%w: %s is not a public address", shared.ErrHostNotAllowed, u.Hostname())
	}

	u.Fragment = ""
	return u, nil
}

// hostAllowed matches host exactly or as a subdomain of an allowed entry.
func (h *FeedHandler) hostAllowed(host string) bool {
	if len(h.allowed) == 0 {
		return true
	}
	host = strings.ToLower(host)
	for _, a := range h.allowed {
		if host == a || strings.HasSuffix(host, "."+a) {
			return true
		}
	}
	return false
}

// publicHost rejects localhost names and non-public IP literals. Other names
// are checked after resolution by the client from [newFeedClient].
func publicHost(host string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return false
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return true
	}
	return publicAddr(addr)
}

func publicAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	return addr.IsValid() &&
		!addr.IsLoopback() &&
		!addr.IsPrivate() &&
		!addr.IsUnspecified() &&
		!addr.IsLinkLocalUnicast() &&
		!addr.IsLinkLocalMulticast() &&
		!addr.IsInterfaceLocalMulticast() &&
		!addr.IsMulticast()
}

// newFeedClient builds the upstream client. When public is set every dial,
// including redirects, is refused unless the resolved address is public.
func newFeedClient(public bool) *http.Client {
	dialer := &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}
	if public {
		dialer.Control = func(network, address string, _ syscall.RawConn) error {
			ap, err := netip.ParseAddrPort(address)
			if err != nil || !publicAddr(ap.Addr()) {
				return fmt.Errorf("%w: %s is not a public address", shared.ErrHostNotAllowed, address)
			}
			return nil
		}
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = dialer.DialContext
	if public {
		// a proxy would be dialed in place of the feed host
		transport.Proxy = nil
	}
	return &http.Client{Timeout: defaultUpstreamTO, Transport: transport}
}

func (h *FeedHandler) fetch(ctx context.Context, target string) (FeedEntry, error) {
	if err := h.limiter.Wait(ctx); err != nil {
		return FeedEntry{}, fmt.Errorf("%w: rate limiter: %v", shared.ErrUpstream, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return FeedEntry{}, fmt.Errorf("%w: %v", shared.ErrUpstream, err)
	}
	req.Header.Set("User-Agent", h.userAgent)
	req.Header.Set("Accept", feedAcceptHeader)

	resp, err := h.client.Do(req)
	if err != nil {
		return FeedEntry{}, fmt.Errorf("%w: %w", shared.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return FeedEntry{}, fmt.Errorf("%w: upstream returned %d", shared.ErrUpstream, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes+1))
	if err != nil {
		return FeedEntry{}, fmt.Errorf("%w: reading body: %w", shared.ErrUpstream, err)
	}
	if len(body) > maxFeedBytes {
		return FeedEntry{}, fmt.Errorf("%w: feed larger than %d bytes", shared.ErrUpstream, maxFeedBytes)
	}

	return FeedEntry{ContentType: contentType(resp.Header.Get("Content-Type"), body), Body: body}, nil
}

func (h *FeedHandler) write(w http.ResponseWriter, entry FeedEntry, status string) {
	w.Header().Set("Content-Type", entry.ContentType)
	w.Header().Set(cacheHeader, status)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(entry.Body)
}

// contentType keeps a parseable upstream header and sniffs the body otherwise.
func contentType(header string, body []byte) string {
	if header != "" {
		if _, _, err := mime.ParseMediaType(header); err == nil {
			return header
		}
	}
	return mimetype.Detect(body).String()
}
