package imagesource

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/jo-hoe/animal-pictures/internal/common"
)

const (
	DefaultTimeout        = 15 * time.Second
	DefaultConnectTimeout = 10 * time.Second
	DefaultUserAgent      = "animal-picture-app/1.0"
	fallbackMime          = "application/octet-stream"

	// fetchedAtLayout is ISO-8601 with an explicit +00:00 designator, second precision.
	fetchedAtLayout = "2006-01-02T15:04:05-07:00"
)

// DefaultURLs are the canonical upstream endpoints. Each call may return a different image.
var DefaultURLs = map[common.Animal]string{
	common.Cat:  "https://cataas.com/cat",
	common.Dog:  "https://place.dog/300/200",
	common.Bear: "https://placebear.com/200/300",
}

// FetchedImage is a single upstream download.
type FetchedImage struct {
	Bytes     []byte
	Mime      string
	SourceURL string
	FetchedAt string
}

// UpstreamError reports a non-2xx response or a transport failure.
type UpstreamError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to fetch image from %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("upstream %s returned HTTP %d", e.URL, e.StatusCode)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

type Options struct {
	URLs           map[common.Animal]string
	Timeout        time.Duration
	ConnectTimeout time.Duration
	UserAgent      string
}

type Client struct {
	urls       map[common.Animal]string
	userAgent  string
	httpClient *http.Client
	now        func() time.Time
}

func NewClient(options Options) *Client {
	urls := make(map[common.Animal]string, len(DefaultURLs))
	for animal, url := range DefaultURLs {
		urls[animal] = url
	}
	for animal, url := range options.URLs {
		if url != "" {
			urls[animal] = url
		}
	}

	timeout := options.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 || connectTimeout >= timeout {
		connectTimeout = min(DefaultConnectTimeout, timeout/2)
	}
	userAgent := options.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: connectTimeout}).DialContext
	transport.TLSHandshakeTimeout = connectTimeout

	return &Client{
		urls:      urls,
		userAgent: userAgent,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		now: time.Now,
	}
}

// URL returns the upstream endpoint configured for the animal.
func (c *Client) URL(animal common.Animal) (string, bool) {
	url, ok := c.urls[animal]
	return url, ok && animal.IsValid()
}

// Fetch downloads one image for the animal. There are no retries.
func (c *Client) Fetch(ctx context.Context, animal common.Animal) (*FetchedImage, error) {
	url, ok := c.URL(animal)
	if !ok {
		return nil, fmt.Errorf("%w: %q", common.ErrUnsupportedAnimal, animal)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &UpstreamError{URL: url, Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &UpstreamError{URL: url, Err: err}
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			slog.Warn("imagesource: failed to close response body", "url", url, "error", cerr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &UpstreamError{URL: url, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UpstreamError{URL: url, StatusCode: resp.StatusCode, Err: err}
	}

	fetched := &FetchedImage{
		Bytes:     data,
		Mime:      DetectMime(data),
		SourceURL: url,
		FetchedAt: c.now().UTC().Truncate(time.Second).Format(fetchedAtLayout),
	}
	slog.Debug("imagesource: fetched image",
		"animal", animal, "url", url, "mime", fetched.Mime, "size_bytes", len(data))
	return fetched, nil
}

// DetectMime sniffs the content type from the payload itself, ignoring any response header.
func DetectMime(data []byte) string {
	detected := mimetype.Detect(data).String()
	if i := strings.IndexByte(detected, ';'); i >= 0 {
		detected = detected[:i]
	}
	detected = strings.TrimSpace(detected)
	if detected == "" {
		return fallbackMime
	}
	return detected
}
